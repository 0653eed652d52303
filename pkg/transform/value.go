package transform

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Set is an unordered collection of canonical element keys. String
// elements key as themselves; everything else keys by its compact
// JSON encoding, so 1 and 1.0 from a JSON document collapse the way
// a decoded value equality would.
type Set map[string]struct{}

// Add inserts an element.
func (s Set) Add(v any) { s[canonicalKey(v)] = struct{}{} }

// Contains reports membership of an element.
func (s Set) Contains(v any) bool {
	_, ok := s[canonicalKey(v)]
	return ok
}

// MarshalJSON renders the set as a sorted array, which is what run
// logs and reports want to show.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Elements())
}

// Elements returns the canonical keys in sorted order.
func (s Set) Elements() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func canonicalKey(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// ToSet coerces a transformed value into a Set. Sequences contribute
// their elements, strings contribute their characters, nil is empty.
func ToSet(value any) (Set, error) {
	elems, err := elements(value)
	if err != nil {
		return nil, err
	}
	set := make(Set, len(elems))
	for _, e := range elems {
		set.Add(e)
	}
	return set, nil
}

// elements enumerates a value the way the transform steps produce
// them: decoded JSON arrays, line splits, sets, plain strings.
func elements(value any) ([]any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case Set:
		keys := v.Elements()
		elems := make([]any, len(keys))
		for i, k := range keys {
			elems[i] = k
		}
		return elems, nil
	case []any:
		return v, nil
	case []string:
		elems := make([]any, len(v))
		for i, s := range v {
			elems[i] = s
		}
		return elems, nil
	case string:
		elems := make([]any, 0, len(v))
		for _, r := range v {
			elems = append(elems, string(r))
		}
		return elems, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		elems := make([]any, len(keys))
		for i, k := range keys {
			elems[i] = k
		}
		return elems, nil
	default:
		return nil, fmt.Errorf("transform: value %T is not enumerable", value)
	}
}
