package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrDuplicateLine is returned when two stored lines share an ID.
	ErrDuplicateLine = errors.New("duplicate line id")
	// ErrMissingLine is returned when a path item names no stored line.
	ErrMissingLine = errors.New("sequence references unknown line")
)

// Project groups everything the calculators need.
type Project struct {
	StartPoint Point    `json:"startPoint"`
	Lines      []Line   `json:"lines"`
	Sequence   Sequence `json:"sequence,omitempty"`
	Shapes     []Shape  `json:"shapes,omitempty"`
	Settings   Settings `json:"settings"`
}

// DecodeProject reads a project document. Missing settings fall back to
// DefaultSettings field by field.
func DecodeProject(r io.Reader) (Project, error) {
	return DecodeProjectWithDefaults(r, DefaultSettings())
}

// DecodeProjectWithDefaults is DecodeProject with caller supplied fallback
// settings.
func DecodeProjectWithDefaults(r io.Reader, defaults Settings) (Project, error) {
	p := Project{Settings: defaults}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&p); err != nil {
		return Project{}, fmt.Errorf("decode project: %w", err)
	}
	return p, nil
}

// Validate checks settings and that every path item names a stored line.
func (p Project) Validate() error {
	if err := p.Settings.Validate(); err != nil {
		return err
	}
	idx := make(map[string]int, len(p.Lines))
	for i, l := range p.Lines {
		if _, dup := idx[l.ID]; dup {
			return fmt.Errorf("%w %q", ErrDuplicateLine, l.ID)
		}
		idx[l.ID] = i
	}
	for _, id := range p.Sequence.LineIDs() {
		if _, ok := idx[id]; !ok {
			return fmt.Errorf("%w %q", ErrMissingLine, id)
		}
	}
	for _, s := range p.Shapes {
		if !s.Type.Valid() {
			return fmt.Errorf("%w %q on shape %q", ErrUnknownShapeType, s.Type, s.ID)
		}
	}
	return nil
}
