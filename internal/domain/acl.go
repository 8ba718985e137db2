package domain

import "slices"

// ACL maps an operation name ("get", "patch", "delete", "*", ...) to a
// subject kind ("roles", "groups", "users", or "*") to the granted subject
// ids. A missing operation key means no explicit grant beyond defaults; the
// "*" subject kind matches any subject under that operation.
type ACL map[string]map[string][]string

// Clone returns a deep copy.
func (a ACL) Clone() ACL {
	if a == nil {
		return nil
	}
	out := make(ACL, len(a))
	for op, kinds := range a {
		ck := make(map[string][]string, len(kinds))
		for kind, subjects := range kinds {
			ck[kind] = slices.Clone(subjects)
		}
		out[op] = ck
	}
	return out
}

// Merge returns a copy of a with buckets from defaults filled in wherever a
// has no explicit grant. Existing buckets are never overwritten.
func (a ACL) Merge(defaults ACL) ACL {
	out := a.Clone()
	if out == nil {
		out = ACL{}
	}
	for op, kinds := range defaults {
		if _, ok := out[op]; !ok {
			out[op] = nil
		}
		for kind, subjects := range kinds {
			if out[op] == nil {
				out[op] = make(map[string][]string, len(kinds))
			}
			if _, ok := out[op][kind]; !ok {
				out[op][kind] = slices.Clone(subjects)
			}
		}
	}
	return out
}

// ClearSubject returns a copy of a with subjectID removed from every bucket
// matching method (or all methods when method is "*") and matching
// subjectKind (or all kinds when subjectKind is "*"). Emptied buckets are
// kept so repeated calls produce identical results.
func (a ACL) ClearSubject(method, subjectKind, subjectID string) ACL {
	out := a.Clone()
	for op, kinds := range out {
		if method != "*" && op != method {
			continue
		}
		for kind, subjects := range kinds {
			if subjectKind != "*" && kind != subjectKind {
				continue
			}
			kinds[kind] = slices.DeleteFunc(subjects, func(s string) bool {
				return s == subjectID
			})
		}
		out[op] = kinds
	}
	return out
}
