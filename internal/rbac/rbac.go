// Package rbac maps a user's directory groups onto the signoff tracks they
// are allowed to sign. Unknown groups grant nothing: a user signs a track
// only when at least one of their groups allows it.
package rbac

import "strings"

type Group string
type Track string

const (
	GroupUsint Group = "usint"
	GroupACIS  Group = "acis"
	GroupHRC   Group = "hrc"
	GroupMP    Group = "mp"
	GroupAdmin Group = "admin"
)

const (
	TrackGeneral Track = "general"
	TrackACIS    Track = "acis"
	TrackACISSI  Track = "acis_si"
	TrackHRCSI   Track = "hrc_si"
	TrackUSINT   Track = "usint"
	// TrackApprove is the USINT signoff that also finalizes approval.
	TrackApprove Track = "approve"
)

// CanSign reports whether any of the user's groups may sign the given track.
func CanSign(groups string, track Track) bool {
	for _, group := range ParseGroups(groups) {
		if groupAllows(group, track) {
			return true
		}
	}
	return false
}

func groupAllows(group Group, track Track) bool {
	switch group {
	case GroupAdmin:
		return true
	case GroupUsint:
		return track == TrackGeneral || track == TrackUSINT || track == TrackApprove
	case GroupACIS:
		return track == TrackACIS || track == TrackACISSI
	case GroupHRC:
		return track == TrackHRCSI
	case GroupMP:
		return track == TrackGeneral
	default:
		return false
	}
}

// ParseGroups splits the comma-separated group list stored per user.
func ParseGroups(groups string) []Group {
	var parsed []Group
	for _, raw := range strings.Split(groups, ",") {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		parsed = append(parsed, Group(name))
	}
	return parsed
}

// NormalizeTrack validates a track name from the wire, mapping anything
// unknown to the empty string.
func NormalizeTrack(track string) Track {
	switch Track(track) {
	case TrackGeneral, TrackACIS, TrackACISSI, TrackHRCSI, TrackUSINT, TrackApprove:
		return Track(track)
	default:
		return ""
	}
}
