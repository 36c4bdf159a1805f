package app

import (
	"encoding/json"
	"time"

	"usint/api/internal/ocat"
	"usint/api/internal/store"
)

func revisionView(revision store.Revision) map[string]any {
	view := map[string]any{
		"id":        revision.ID,
		"obsid":     revision.Obsid,
		"revision":  revision.RevisionNumber,
		"kind":      revision.Kind,
		"submitter": revision.Submitter,
		"revTime":   revision.RevTime,
		"createdAt": revision.CreatedAt.UTC().Format(time.RFC3339),
	}
	if revision.SequenceNumber != nil {
		view["seqNbr"] = *revision.SequenceNumber
	}
	if revision.Notes != nil {
		var notes map[string]bool
		if err := json.Unmarshal([]byte(*revision.Notes), &notes); err == nil {
			view["notes"] = notes
		}
	}
	return view
}

func signoffView(signoff store.Signoff) map[string]any {
	return map[string]any{
		"id":         signoff.ID,
		"revisionId": signoff.RevisionID,
		"open":       signoff.Open(),
		"general":    trackView(signoff.General),
		"acis":       trackView(signoff.ACIS),
		"acis_si":    trackView(signoff.ACISSI),
		"hrc_si":     trackView(signoff.HRCSI),
		"usint":      trackView(signoff.USINT),
	}
}

func trackView(state store.TrackState) map[string]any {
	view := map[string]any{"status": state.Status}
	if state.Signer != nil {
		view["signer"] = *state.Signer
	}
	if state.Time != nil {
		view["time"] = *state.Time
	}
	return view
}

func valueViews(values []store.ParamValue) []map[string]any {
	views := make([]map[string]any, 0, len(values))
	for _, value := range values {
		views = append(views, map[string]any{
			"name":  value.Name,
			"value": ocat.DecodeValue(value.Value, !value.Null),
			"null":  value.Null,
		})
	}
	return views
}

func slotView(slot store.ScheduleSlot) map[string]any {
	view := map[string]any{
		"id":      slot.ID,
		"order":   slot.SortOrder,
		"startAt": slot.StartAt.UTC().Format(time.RFC3339),
		"stopAt":  slot.StopAt.UTC().Format(time.RFC3339),
	}
	if slot.AssigneeID != nil {
		view["assigneeId"] = *slot.AssigneeID
		view["assignee"] = slot.Assignee
	}
	return view
}
