package plan

import (
	"encoding/json"
	"fmt"
)

// ItemKind is the JSON discriminator of a sequence item.
type ItemKind string

const (
	KindPath   ItemKind = "path"
	KindWait   ItemKind = "wait"
	KindRotate ItemKind = "rotate"
	KindServo  ItemKind = "servo"
)

// SequenceItem is one step of the execution order. Implementations are
// PathItem, WaitItem, RotateItem and ServoItem.
type SequenceItem interface {
	Kind() ItemKind
	isSequenceItem()
}

// PathItem travels along the line with LineID.
type PathItem struct {
	LineID string `json:"lineId"`
}

// WaitItem holds the robot still. Waits sharing a Name are linked and are
// expected to carry the same duration.
type WaitItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name,omitempty"`
	DurationMs float64 `json:"durationMs"`
}

// RotateItem turns the robot in place to the absolute heading Degrees.
// Rotates sharing a Name are linked.
type RotateItem struct {
	ID      string  `json:"id"`
	Name    string  `json:"name,omitempty"`
	Degrees float64 `json:"degrees"`
}

// ServoItem drives a servo to Position and holds for DurationMs.
type ServoItem struct {
	ID         string  `json:"id"`
	Port       string  `json:"port"`
	Position   float64 `json:"position"`
	DurationMs float64 `json:"durationMs"`
}

func (PathItem) Kind() ItemKind   { return KindPath }
func (WaitItem) Kind() ItemKind   { return KindWait }
func (RotateItem) Kind() ItemKind { return KindRotate }
func (ServoItem) Kind() ItemKind  { return KindServo }

func (PathItem) isSequenceItem()   {}
func (WaitItem) isSequenceItem()   {}
func (RotateItem) isSequenceItem() {}
func (ServoItem) isSequenceItem()  {}

// Sequence is the authoritative execution order. An empty sequence means
// every line in storage order.
type Sequence []SequenceItem

// Effective returns s, or a path item per line when s is empty.
func (s Sequence) Effective(lines []Line) Sequence {
	if len(s) > 0 {
		return s
	}
	out := make(Sequence, len(lines))
	for i, l := range lines {
		out[i] = PathItem{LineID: l.ID}
	}
	return out
}

// LineIDs returns the IDs of the lines the sequence travels, in order.
func (s Sequence) LineIDs() []string {
	var ids []string
	for _, it := range s {
		if p, ok := it.(PathItem); ok {
			ids = append(ids, p.LineID)
		}
	}
	return ids
}

// Clone returns a copy of the sequence. Items are values so a shallow copy
// is enough.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	return append(Sequence(nil), s...)
}

// MarshalJSON writes each item with its "kind" discriminator.
func (s Sequence) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(s))
	for i, it := range s {
		raw, err := marshalItem(it)
		if err != nil {
			return nil, fmt.Errorf("sequence item %d: %w", i, err)
		}
		out = append(out, raw)
	}
	return json.Marshal(out)
}

func marshalItem(it SequenceItem) ([]byte, error) {
	var body any
	switch v := it.(type) {
	case PathItem:
		body = struct {
			Kind ItemKind `json:"kind"`
			PathItem
		}{KindPath, v}
	case WaitItem:
		body = struct {
			Kind ItemKind `json:"kind"`
			WaitItem
		}{KindWait, v}
	case RotateItem:
		body = struct {
			Kind ItemKind `json:"kind"`
			RotateItem
		}{KindRotate, v}
	case ServoItem:
		body = struct {
			Kind ItemKind `json:"kind"`
			ServoItem
		}{KindServo, v}
	default:
		return nil, fmt.Errorf("unknown sequence item %T", it)
	}
	return json.Marshal(body)
}

// UnmarshalJSON decodes items by their "kind" discriminator.
func (s *Sequence) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Sequence, 0, len(raws))
	for i, raw := range raws {
		var head struct {
			Kind ItemKind `json:"kind"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return fmt.Errorf("sequence item %d: %w", i, err)
		}
		var (
			item SequenceItem
			err  error
		)
		switch head.Kind {
		case KindPath:
			var v PathItem
			err = json.Unmarshal(raw, &v)
			item = v
		case KindWait:
			var v WaitItem
			err = json.Unmarshal(raw, &v)
			item = v
		case KindRotate:
			var v RotateItem
			err = json.Unmarshal(raw, &v)
			item = v
		case KindServo:
			var v ServoItem
			err = json.Unmarshal(raw, &v)
			item = v
		default:
			return fmt.Errorf("sequence item %d: unknown kind %q", i, head.Kind)
		}
		if err != nil {
			return fmt.Errorf("sequence item %d: %w", i, err)
		}
		out = append(out, item)
	}
	*s = out
	return nil
}
