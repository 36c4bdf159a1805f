package app

import (
	"encoding/json"
	"math"
	"time"

	"usint/api/internal/ocat"
)

// largeCoordinateThreshold is the Euclidean RA/Dec shift, in degrees, beyond
// which a pointing change gets flagged for extra review (about 8 arcminutes).
const largeCoordinateThreshold = 0.1333

// obsdateWindow flags revisions against observations scheduled or planned
// within this many days of submission.
const obsdateWindow = 10 * 24 * time.Hour

// flagParams are the group-gating flags whose change marks a revision as a
// constraint-structure edit.
var flagParams = []string{"dither_flag", "window_flag", "roll_flag", "spwindow_flag"}

// deriveNotes computes the notable-change annotation for an ordinary
// parameter edit. The result is nil when nothing notable happened.
func deriveNotes(cs ocat.ChangeSet, authoritative map[string]any, onORList bool, now time.Time) *string {
	notes := make(map[string]bool)

	if _, ok := cs.Requests["targname"]; ok {
		notes["target_name_change"] = true
	}
	if _, ok := cs.Requests["comments"]; ok {
		notes["comment_change"] = true
	}
	if _, ok := cs.Requests["instrument"]; ok {
		notes["instrument_change"] = true
	}
	if _, ok := cs.Requests["grating"]; ok {
		notes["grating_change"] = true
	}
	for _, flag := range flagParams {
		if _, ok := cs.Requests[flag]; ok {
			notes["flag_change"] = true
			break
		}
	}
	if largeCoordinateChange(cs) {
		notes["large_coordinate_change"] = true
	}
	if obsdateUnder10(authoritative, now) {
		notes["obsdate_under10"] = true
	}
	if onORList {
		notes["on_or_list"] = true
	}

	if len(notes) == 0 {
		return nil
	}
	encoded, err := json.Marshal(notes)
	if err != nil {
		return nil
	}
	serialized := string(encoded)
	return &serialized
}

// largeCoordinateChange reports whether the effective new pointing moved more
// than the threshold from the prior one. The prior position must be known and
// not the (0,0) placeholder some early-cycle rows carry.
func largeCoordinateChange(cs ocat.ChangeSet) bool {
	oldRA, okOldRA := numericParam(cs.Originals["ra"])
	oldDec, okOldDec := numericParam(cs.Originals["dec"])
	if !okOldRA || !okOldDec {
		return false
	}
	if oldRA == 0 && oldDec == 0 {
		return false
	}

	newRA, okNewRA := effectiveCoordinate(cs, "ra", oldRA)
	newDec, okNewDec := effectiveCoordinate(cs, "dec", oldDec)
	if !okNewRA || !okNewDec {
		return false
	}

	shift := math.Hypot(newRA-oldRA, newDec-oldDec)
	return shift > largeCoordinateThreshold
}

// effectiveCoordinate picks the requested value when present, the prior value
// otherwise.
func effectiveCoordinate(cs ocat.ChangeSet, name string, prior float64) (float64, bool) {
	if req, ok := cs.Requests[name]; ok {
		return numericParam(req)
	}
	return prior, true
}

// obsdateUnder10 reports whether the scheduled (or, failing that, planned)
// observation date falls within the notice window around now, past or future.
func obsdateUnder10(authoritative map[string]any, now time.Time) bool {
	for _, key := range []string{"soe_st_sched_date", "lts_lt_plan"} {
		when, ok := ocat.Coerce(authoritative[key]).(time.Time)
		if !ok {
			continue
		}
		delta := when.Sub(now)
		if delta < 0 {
			delta = -delta
		}
		return delta <= obsdateWindow
	}
	return false
}

func numericParam(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	}
	return 0, false
}
