package email

import (
	"fmt"
	"strings"
)

// ApprovalNotice announces a newly approved obsid, linking back to the
// detail page.
func ApprovalNotice(obsid, revisionNumber, asisNumber int, username, detailURL string) (subject, body string) {
	subject = fmt.Sprintf("Parameter Change Log: obsid %d approved", obsid)
	body = fmt.Sprintf(
		"Obsid %d was approved by %s.\n\n"+
			"Signed revision: %d.%03d\n"+
			"Approval revision: %d.%03d\n\n"+
			"Details: %s\n",
		obsid, username, obsid, revisionNumber, obsid, asisNumber, detailURL)
	return subject, body
}

// ApprovalStateNotice announces a self-certifying asis or remove
// submission. The verdict line matches the wording archived in the change
// log, so downstream mail filters keep working.
func ApprovalStateNotice(obsid, revisionNumber int, kind string, seqNbr *int, targetName, username, detailURL string) (subject, body string) {
	verdict := "VERIFIED OK AS IS"
	state := "Approved"
	if kind == "remove" {
		verdict = "VERIFIED REMOVED"
		state = "Removed"
	}
	subject = fmt.Sprintf("Parameter Change Log: %d.%03d (%s)", obsid, revisionNumber, state)

	var b strings.Builder
	fmt.Fprintf(&b, "Obsid = %d\n", obsid)
	if seqNbr != nil {
		fmt.Fprintf(&b, "Sequence Number = %d\n", *seqNbr)
	}
	if targetName != "" {
		fmt.Fprintf(&b, "Target Name = %s\n", targetName)
	}
	fmt.Fprintf(&b, "User = %s\n\n%s\n\nParameter Check Page: %s\n", username, verdict, detailURL)
	return subject, b.String()
}

// SignoffSummary renders the current track states for a revision, one line
// per track in a fixed order.
func SignoffSummary(obsid, revisionNumber int, tracks map[string]string) (subject, body string) {
	subject = fmt.Sprintf("Usint signoff status for %d.%03d", obsid, revisionNumber)

	order := []string{"general", "acis", "acis_si", "hrc_si", "usint"}
	labels := map[string]string{
		"general": "General",
		"acis":    "ACIS",
		"acis_si": "ACIS SI Mode",
		"hrc_si":  "HRC SI Mode",
		"usint":   "USINT Verification",
	}

	var lines []string
	for _, track := range order {
		status, ok := tracks[track]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-20s %s", labels[track]+":", status))
	}

	body = fmt.Sprintf("Signoff status for revision %d.%03d:\n\n%s\n", obsid, revisionNumber, strings.Join(lines, "\n"))
	return subject, body
}

// TOOProgressNotice reports signoff progress on a TOO or DDT observation to
// the teams still holding pending tracks; a fully signed revision goes to
// mission planning instead.
func TOOProgressNotice(obsid, revisionNumber int, tooType string, pendingTracks []string) (recipients []string, subject, body string) {
	subject = fmt.Sprintf("%s obsid %d signoff update (%d.%03d)", tooType, obsid, obsid, revisionNumber)

	if len(pendingTracks) == 0 {
		recipients = []string{AddrMP, AddrArcOps}
		body = fmt.Sprintf("All signoff tracks for %s obsid %d (revision %d.%03d) are complete.\n", tooType, obsid, obsid, revisionNumber)
		return recipients, subject, body
	}

	seen := map[string]bool{}
	for _, track := range pendingTracks {
		var addr string
		switch track {
		case "acis", "acis_si":
			addr = AddrACIS
		case "hrc_si":
			addr = AddrHRC
		default:
			addr = AddrCUS
		}
		if !seen[addr] {
			seen[addr] = true
			recipients = append(recipients, addr)
		}
	}
	body = fmt.Sprintf(
		"%s obsid %d (revision %d.%03d) still has pending signoff tracks: %s.\n",
		tooType, obsid, obsid, revisionNumber, strings.Join(pendingTracks, ", "))
	return recipients, subject, body
}

// ErrorReport is the best-effort failure notification; it may itself fail
// silently.
func ErrorReport(operation string, err error) (subject, body string) {
	subject = "Usint error: " + operation
	body = fmt.Sprintf("Operation %s failed:\n\n%v\n", operation, err)
	return subject, body
}
