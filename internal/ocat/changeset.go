package ocat

// ChangeSet is the outcome of diffing a proposed parameter map against the
// authoritative database values. Originals capture what the database held at
// submission time; Requests capture only the parameters the submitter wants
// changed, keyed by parameter name.
type ChangeSet struct {
	Originals map[string]any
	Requests  map[string]any
}

// ChangedNames returns the names of all requested parameters.
func (cs ChangeSet) ChangedNames() []string {
	names := make([]string, 0, len(cs.Requests))
	for name := range cs.Requests {
		names = append(names, name)
	}
	return names
}

// Empty reports whether the change set carries no requests.
func (cs ChangeSet) Empty() bool {
	return len(cs.Requests) == 0
}

// flagActive reports whether a Y/P/N flag value enables its parameter group.
// Y and P both count as active; N, null, and anything else do not.
func flagActive(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return s == "Y" || s == "P"
}

// BuildChangeSet diffs proposed values against authoritative ones under the
// catalog's rules. Plain modifiable parameters always contribute an Original
// and contribute a Request only when the proposed value differs beyond the
// approximate-equality tolerances. Flag-gated groups are handled by the state
// of their controlling flag:
//
//   - flag inactive on both sides: members are skipped entirely
//   - flag newly activated: member Requests recorded, no member Originals
//   - flag deactivated: member Originals recorded with explicit null Requests
//   - flag active on both sides: members diffed individually
//
// The flag parameter itself is diffed like any other plain parameter.
// Proposed parameters missing from the catalog are ignored.
func BuildChangeSet(catalog *Catalog, authoritative, proposed map[string]any) ChangeSet {
	cs := ChangeSet{
		Originals: make(map[string]any),
		Requests:  make(map[string]any),
	}

	for _, name := range catalog.Names() {
		spec, _ := catalog.Lookup(name)
		if !spec.Modifiable || catalog.isGroupMember(name) {
			continue
		}
		org := Coerce(authoritative[name])
		cs.Originals[name] = org
		req, present := proposed[name]
		if !present {
			continue
		}
		req = Coerce(req)
		if !ApproxEquals(org, req) {
			cs.Requests[name] = req
		}
	}

	for _, group := range catalog.Groups() {
		orgActive := flagActive(Coerce(authoritative[group.Flag]))
		reqFlag, flagPresent := proposed[group.Flag]
		reqActive := orgActive
		if flagPresent {
			reqActive = flagActive(Coerce(reqFlag))
		}

		switch {
		case !orgActive && !reqActive:
			// Group dormant on both sides, nothing to carry.
		case !orgActive && reqActive:
			for _, member := range group.Members {
				req, present := proposed[member]
				if !present {
					continue
				}
				cs.Requests[member] = Coerce(req)
			}
		case orgActive && !reqActive:
			for _, member := range group.Members {
				cs.Originals[member] = Coerce(authoritative[member])
				cs.Requests[member] = nil
			}
		default:
			diffGroupMembers(&cs, group, authoritative, proposed)
		}
	}

	return cs
}

// diffGroupMembers handles the both-active case: every member gets an
// Original, and a Request when the proposed value differs. Rank-ordered
// members compare as whole columns, so a rank-count change records the full
// proposed list rather than a per-rank patch.
func diffGroupMembers(cs *ChangeSet, group FlagGroup, authoritative, proposed map[string]any) {
	for _, member := range group.Members {
		org := Coerce(authoritative[member])
		cs.Originals[member] = org
		req, present := proposed[member]
		if !present {
			continue
		}
		req = Coerce(req)
		orgList, orgIsList := org.([]any)
		reqList, reqIsList := req.([]any)
		if group.RankKey != "" && orgIsList && reqIsList {
			if !columnEqual(orgList, reqList) {
				cs.Requests[member] = req
			}
			continue
		}
		if !ApproxEquals(org, req) {
			cs.Requests[member] = req
		}
	}
}
