package category

import (
	"encoding/json"
	"sort"
)

// Set is a duplicate-free collection of category ids.
// A normalized Set is kept in display order so it compares and serializes stably.
type Set []ID

// NewSet validates ids and returns them as a normalized Set.
func NewSet(ids ...ID) (Set, error) {
	for _, id := range ids {
		if !id.Valid() {
			_, err := Lookup(id)
			return nil, err
		}
	}
	return normalize(ids), nil
}

// MustSet is like NewSet but panics on unknown ids. Intended for static data.
func MustSet(ids ...ID) Set {
	s, err := NewSet(ids...)
	if err != nil {
		panic(err)
	}
	return s
}

func normalize(ids []ID) Set {
	seen := make(map[ID]bool, len(ids))
	out := make(Set, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return order(out[i]) < order(out[j])
	})
	return out
}

// Contains reports whether id is in the set.
func (s Set) Contains(id ID) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Union returns the set holding every id of s and other.
func (s Set) Union(other Set) Set {
	merged := make([]ID, 0, len(s)+len(other))
	merged = append(merged, s...)
	merged = append(merged, other...)
	return normalize(merged)
}

// Equal reports whether both sets hold the same ids, regardless of order.
func (s Set) Equal(other Set) bool {
	a, b := normalize(s), normalize(other)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the set has no categories.
func (s Set) IsEmpty() bool {
	return len(s) == 0
}

// Strings returns the ids as plain strings.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, id := range s {
		out[i] = string(id)
	}
	return out
}

// MarshalJSON encodes the set as a JSON array, never null.
func (s Set) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ID(s))
}
