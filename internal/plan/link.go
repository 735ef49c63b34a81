package plan

import "sort"

// LinkIndex groups wait and rotate items that share a name. Linked items are
// edited together: changing one value changes every item in its group.
type LinkIndex struct {
	groups map[string][]string // name -> item IDs in sequence order
	byID   map[string]string   // item ID -> name
}

// BuildLinkIndex derives the link groups of seq. Unnamed items are never
// linked. Waits and rotates form separate groups even when they share a name.
func BuildLinkIndex(seq Sequence) LinkIndex {
	li := LinkIndex{groups: map[string][]string{}, byID: map[string]string{}}
	for _, it := range seq {
		key, id, ok := linkKey(it)
		if !ok {
			continue
		}
		li.groups[key] = append(li.groups[key], id)
		li.byID[id] = key
	}
	return li
}

func linkKey(it SequenceItem) (key, id string, ok bool) {
	switch v := it.(type) {
	case WaitItem:
		if v.Name == "" {
			return "", "", false
		}
		return string(KindWait) + ":" + v.Name, v.ID, true
	case RotateItem:
		if v.Name == "" {
			return "", "", false
		}
		return string(KindRotate) + ":" + v.Name, v.ID, true
	}
	return "", "", false
}

// Linked returns the IDs of the items linked with id, including id itself.
func (li LinkIndex) Linked(id string) []string {
	key, ok := li.byID[id]
	if !ok {
		return nil
	}
	return append([]string(nil), li.groups[key]...)
}

// Groups returns the link group keys in sorted order.
func (li LinkIndex) Groups() []string {
	keys := make([]string, 0, len(li.groups))
	for k := range li.groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Propagate copies the value of item id onto every item linked with it and
// returns the updated sequence. seq is not modified.
func (li LinkIndex) Propagate(seq Sequence, id string) Sequence {
	out := seq.Clone()
	key, ok := li.byID[id]
	if !ok {
		return out
	}
	var src SequenceItem
	for _, it := range seq {
		if _, iid, ok := linkKey(it); ok && iid == id {
			src = it
			break
		}
	}
	for i, it := range out {
		k, _, ok := linkKey(it)
		if !ok || k != key {
			continue
		}
		switch v := it.(type) {
		case WaitItem:
			v.DurationMs = src.(WaitItem).DurationMs
			out[i] = v
		case RotateItem:
			v.Degrees = src.(RotateItem).Degrees
			out[i] = v
		}
	}
	return out
}

// Conflicts returns the group keys whose members disagree on their value.
func (li LinkIndex) Conflicts(seq Sequence) []string {
	values := map[string]float64{}
	bad := map[string]bool{}
	for _, it := range seq {
		key, _, ok := linkKey(it)
		if !ok {
			continue
		}
		var v float64
		switch x := it.(type) {
		case WaitItem:
			v = x.DurationMs
		case RotateItem:
			v = x.Degrees
		}
		if prev, seen := values[key]; seen && prev != v {
			bad[key] = true
		}
		values[key] = v
	}
	var out []string
	for _, k := range li.Groups() {
		if bad[k] {
			out = append(out, k)
		}
	}
	return out
}
