package store

import "time"

// Signoff track statuses. Discard is reserved for administrative cleanup and
// is never assigned by the normal workflow.
const (
	StatusPending     = "Pending"
	StatusSigned      = "Signed"
	StatusNotRequired = "Not Required"
	StatusDiscard     = "Discard"
)

// Revision kinds.
const (
	KindNorm   = "norm"
	KindAsis   = "asis"
	KindRemove = "remove"
	KindClone  = "clone"
)

// Track column keys accepted by SignTrack and RevertSignoff.
const (
	TrackGeneral = "general"
	TrackACIS    = "acis"
	TrackACISSI  = "acis_si"
	TrackHRCSI   = "hrc_si"
	TrackUSINT   = "usint"
)

type User struct {
	ID       string
	Username string
	FullName string
	Email    string
	Groups   string
}

// Revision is one submitted change request against an obsid. RevTime is the
// submission instant in integer epoch seconds, matching the downstream tools
// that consume it; CreatedAt is the row timestamp.
type Revision struct {
	ID             string
	Obsid          int
	RevisionNumber int
	Kind           string
	SequenceNumber *int
	SubmitterID    string
	Submitter      string
	RevTime        int64
	Notes          *string
	CreatedAt      time.Time
}

// TrackState is one signoff track's status plus who signed it and when.
type TrackState struct {
	Status string
	Signer *string
	Time   *int64
}

// Signoff carries the five per-track states for one revision. Exactly one
// signoff exists per revision.
type Signoff struct {
	ID         string
	RevisionID string
	General    TrackState
	ACIS       TrackState
	ACISSI     TrackState
	HRCSI      TrackState
	USINT      TrackState
}

// Open reports whether any track is still Pending.
func (s Signoff) Open() bool {
	for _, t := range []TrackState{s.General, s.ACIS, s.ACISSI, s.HRCSI, s.USINT} {
		if t.Status == StatusPending {
			return true
		}
	}
	return false
}

// Track returns the named track's state.
func (s Signoff) Track(track string) (TrackState, bool) {
	switch track {
	case TrackGeneral:
		return s.General, true
	case TrackACIS:
		return s.ACIS, true
	case TrackACISSI:
		return s.ACISSI, true
	case TrackHRCSI:
		return s.HRCSI, true
	case TrackUSINT:
		return s.USINT, true
	}
	return TrackState{}, false
}

// ParamValue is one persisted Original or Request row. A Request row with
// Null set records an explicit "clear this parameter" request; Original rows
// are only ever written for non-null values.
type ParamValue struct {
	Name  string
	Value string
	Null  bool
}

// Parameter is one catalog row, synced from the in-process catalog at
// startup so operators can inspect track assignments in the database.
type Parameter struct {
	Name       string
	Category   string
	Modifiable bool
	DataType   string
	Tracks     string
}

// NewRevision bundles everything CreateRevision persists in one transaction.
type NewRevision struct {
	Obsid          int
	Kind           string
	SequenceNumber *int
	SubmitterID    string
	RevTime        int64
	Notes          *string
	Originals      []ParamValue
	Requests       []ParamValue
	Signoff        SignoffSeed
}

// SignoffSeed is the initial per-track status assignment derived from the
// revision kind and its changed parameters. Signer/time are only set for the
// auto-signed USINT track of asis and remove revisions.
type SignoffSeed struct {
	General     string
	ACIS        string
	ACISSI      string
	HRCSI       string
	USINT       string
	USINTSigner *string
	USINTTime   *int64
}

// StatusEntry is one row of the status listing: a revision joined with its
// signoff state.
type StatusEntry struct {
	Revision Revision
	Signoff  Signoff
}

// ApprovalResult reports what an approve transition did.
type ApprovalResult struct {
	AlreadyApproved bool
	AsisRevision    *Revision
}

// RevisionFilter narrows ListRevisionsFiltered. Zero fields do not filter.
type RevisionFilter struct {
	Obsid       *int
	Kind        string
	SubmitterID string
	Text        string
	Limit       int
}

// ScheduleSlot is one TOO duty period. AssigneeID is nil while the slot is
// unclaimed.
type ScheduleSlot struct {
	ID         string
	SortOrder  int
	AssigneeID *string
	Assignee   string
	AssignerID *string
	StartAt    time.Time
	StopAt     time.Time
}
