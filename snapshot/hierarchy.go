package snapshot

import (
	"sort"

	"github.com/tidwall/gjson"
)

// Hierarchy maps a type name to every type that is it or inherits from
// (or implements) it. Each known entry contains the type itself.
type Hierarchy map[string][]string

func parseHierarchy(r gjson.Result) Hierarchy {
	h := Hierarchy{}
	r.ForEach(func(k, v gjson.Result) bool {
		t := k.String()
		set := map[string]struct{}{t: {}}
		for _, sub := range v.Array() {
			name := sub.Get("name").String()
			if name == "" {
				name = sub.String()
			}
			set[name] = struct{}{}
		}
		h[t] = sortedKeys(set)
		return true
	})
	return h
}

// Subtypes returns the types an override on t applies to. Types missing
// from the hierarchy only cover themselves.
func (h Hierarchy) Subtypes(t string) []string {
	if subs, ok := h[t]; ok {
		return subs
	}
	return []string{t}
}

// Known reports whether t has an entry of its own.
func (h Hierarchy) Known(t string) bool {
	_, ok := h[t]
	return ok
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
