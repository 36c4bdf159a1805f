package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"usint/api/internal/activelist"
	"usint/api/internal/config"
	"usint/api/internal/email"
	"usint/api/internal/obscat"
	"usint/api/internal/ocat"
	"usint/api/internal/rbac"
	"usint/api/internal/search"
	"usint/api/internal/store"
)

// recentWindow bounds both the closed-revision retention on the status page
// and the undo window for signoff reverts and submission removal.
const recentWindow = 36 * time.Hour

// Session is the acting identity resolved from the front end's remote-user
// header.
type Session struct {
	UserID   string
	Username string
	FullName string
	Groups   string
}

type SubmitRevisionInput struct {
	Kind       string         `json:"kind"`
	Parameters map[string]any `json:"parameters"`
}

type ScheduleSlotInput struct {
	SortOrder int    `json:"order"`
	StartAt   string `json:"startAt"`
	StopAt    string `json:"stopAt"`
}

var revisionKinds = map[string]struct{}{
	store.KindNorm:   {},
	store.KindAsis:   {},
	store.KindRemove: {},
	store.KindClone:  {},
}

type dataStore interface {
	Ping(context.Context) error
	EnsureUserByUsername(context.Context, string) (store.User, error)
	CreateRevision(context.Context, store.NewRevision) (store.Revision, error)
	GetRevision(context.Context, string) (store.Revision, error)
	GetRevisionByNumber(context.Context, int, int) (store.Revision, error)
	ListRevisions(context.Context, int) ([]store.Revision, error)
	IsApproved(context.Context, int) (bool, error)
	HasOpenRevision(context.Context, int) (bool, error)
	GetSignoff(context.Context, string) (store.Signoff, error)
	GetSignoffByRevision(context.Context, string) (store.Signoff, error)
	SignTrack(context.Context, string, string, string, int64) error
	RevertSignoff(context.Context, string, string) error
	ApproveRevision(context.Context, string, string, int64) (store.ApprovalResult, error)
	ListValues(context.Context, string) ([]store.ParamValue, []store.ParamValue, error)
	ListStatus(context.Context, time.Time) ([]store.StatusEntry, error)
	DeleteRevision(context.Context, string) error
	UpsertParameter(context.Context, store.Parameter) error
	ListSchedule(context.Context) ([]store.ScheduleSlot, error)
	CreateScheduleSlot(context.Context, store.ScheduleSlot) (store.ScheduleSlot, error)
	AssignScheduleSlot(context.Context, string, string, string) error
	DeleteScheduleSlot(context.Context, string) error
}

type observationSource interface {
	GetObservation(context.Context, int) (map[string]any, error)
	Ping(context.Context) error
}

type activeList interface {
	IsOnList(context.Context, int) (bool, error)
}

type notifier interface {
	IsConfigured() bool
	Send(to []string, subject, body string, cc []string) error
}

type searcher interface {
	Search(context.Context, search.Query) search.Response
	IndexRevision(search.RevisionRecord)
	DeleteRevision(string)
}

type Service struct {
	cfg     config.Config
	catalog *ocat.Catalog
	store   dataStore
	obscat  observationSource
	active  activeList
	mail    notifier
	search  searcher
	now     func() time.Time
}

func New(cfg config.Config, catalog *ocat.Catalog, dataStore *store.PostgresStore, source *obscat.Source, active *activelist.Service, mail *email.Service, searchService *search.Service) *Service {
	s := &Service{
		cfg:     cfg,
		catalog: catalog,
		store:   dataStore,
		obscat:  source,
		mail:    mail,
		now:     time.Now,
	}
	if active != nil {
		s.active = active
	}
	if searchService != nil {
		s.search = searchService
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap syncs the in-process parameter catalog into the parameters table
// so operators can inspect track assignments with plain SQL.
func (s *Service) Bootstrap(ctx context.Context) error {
	for _, name := range s.catalog.Names() {
		spec, _ := s.catalog.Lookup(name)
		tracks := make([]string, 0, len(spec.Tracks))
		for _, track := range spec.Tracks {
			tracks = append(tracks, string(track))
		}
		parameter := store.Parameter{
			Name:       spec.Name,
			Category:   string(spec.Category),
			Modifiable: spec.Modifiable,
			DataType:   spec.DataType,
			Tracks:     strings.Join(tracks, ","),
		}
		if err := s.store.UpsertParameter(ctx, parameter); err != nil {
			return fmt.Errorf("sync parameter %s: %w", spec.Name, err)
		}
	}
	return nil
}

// ResolveSession turns a remote username into an acting identity, creating
// the user row on first contact.
func (s *Service) ResolveSession(ctx context.Context, username string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "missing remote user", nil)
	}
	user, err := s.store.EnsureUserByUsername(ctx, username)
	if err != nil {
		return Session{}, fmt.Errorf("resolve user %s: %w", username, err)
	}
	return Session{
		UserID:   user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Groups:   user.Groups,
	}, nil
}

// Observation returns the authoritative parameter map plus the workflow
// state derived from the obsid's revision history.
func (s *Service) Observation(ctx context.Context, obsid int) (map[string]any, error) {
	params, err := s.obscat.GetObservation(ctx, obsid)
	if err != nil {
		return nil, err
	}
	approved, err := s.store.IsApproved(ctx, obsid)
	if err != nil {
		return nil, fmt.Errorf("approval state for obsid %d: %w", obsid, err)
	}
	open, err := s.store.HasOpenRevision(ctx, obsid)
	if err != nil {
		return nil, fmt.Errorf("open revisions for obsid %d: %w", obsid, err)
	}

	coerced := make(map[string]any, len(params))
	for name, value := range params {
		coerced[name] = ocat.Coerce(value)
	}
	s.attachRankRecords(coerced)
	return map[string]any{
		"obsid":        obsid,
		"parameters":   coerced,
		"approved":     approved,
		"openRevision": open,
	}, nil
}

// SubmitRevision diffs a proposal against the catalog, derives the signoff
// requirements for whatever changed, and persists the whole revision in one
// transaction.
func (s *Service) SubmitRevision(ctx context.Context, session Session, obsid int, input SubmitRevisionInput) (map[string]any, error) {
	kind := strings.ToLower(strings.TrimSpace(input.Kind))
	if _, ok := revisionKinds[kind]; !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "kind must be norm, asis, remove, or clone", nil)
	}

	authoritative, err := s.obscat.GetObservation(ctx, obsid)
	if err != nil {
		return nil, err
	}

	now := s.now()
	newRevision := store.NewRevision{
		Obsid:       obsid,
		Kind:        kind,
		SubmitterID: session.UserID,
		RevTime:     now.Unix(),
	}
	if seq, ok := intParam(ocat.Coerce(authoritative["seq_nbr"])); ok {
		newRevision.SequenceNumber = &seq
	}

	var changed []string
	if kind == store.KindNorm {
		cs := ocat.BuildChangeSet(s.catalog, authoritative, s.normalizeRankInput(input.Parameters))
		if cs.Empty() {
			return nil, domainError(http.StatusUnprocessableEntity, "NO_CHANGES", "no parameter changes detected", nil)
		}
		changed = cs.ChangedNames()
		newRevision.Notes = deriveNotes(cs, authoritative, s.onActiveList(ctx, obsid), now)
		newRevision.Originals = encodeValues(cs.Originals)
		newRevision.Requests = encodeValues(cs.Requests)
	}
	newRevision.Signoff = s.deriveSignoffSeed(kind, changed, session.UserID, now.Unix())

	revision, err := s.store.CreateRevision(ctx, newRevision)
	if err != nil {
		return nil, fmt.Errorf("create %s revision for obsid %d: %w", kind, obsid, err)
	}
	revision.Submitter = session.Username

	s.indexRevision(revision)
	s.notifySubmission(revision, authoritative, newRevision.Signoff)
	if kind == store.KindAsis || kind == store.KindRemove {
		s.notifyApprovalState(revision, authoritative, session)
	}

	signoff, err := s.store.GetSignoffByRevision(ctx, revision.ID)
	if err != nil {
		return nil, fmt.Errorf("load signoff for revision %s: %w", revision.ID, err)
	}
	return map[string]any{
		"revision": revisionView(revision),
		"signoff":  signoffView(signoff),
	}, nil
}

// deriveSignoffSeed assigns the initial per-track statuses for a new
// revision. Self-certifying kinds auto-sign the USINT track; ordinary edits
// open exactly the technical tracks that govern a changed parameter.
func (s *Service) deriveSignoffSeed(kind string, changed []string, userID string, epoch int64) store.SignoffSeed {
	switch kind {
	case store.KindAsis, store.KindRemove:
		signer := userID
		signedAt := epoch
		return store.SignoffSeed{
			General:     store.StatusNotRequired,
			ACIS:        store.StatusNotRequired,
			ACISSI:      store.StatusNotRequired,
			HRCSI:       store.StatusNotRequired,
			USINT:       store.StatusSigned,
			USINTSigner: &signer,
			USINTTime:   &signedAt,
		}
	case store.KindClone:
		return store.SignoffSeed{
			General: store.StatusPending,
			ACIS:    store.StatusNotRequired,
			ACISSI:  store.StatusNotRequired,
			HRCSI:   store.StatusNotRequired,
			USINT:   store.StatusPending,
		}
	default:
		return store.SignoffSeed{
			General: requiredStatus(s.catalog.Governs(ocat.TrackGeneral, changed)),
			ACIS:    requiredStatus(s.catalog.Governs(ocat.TrackACIS, changed)),
			ACISSI:  requiredStatus(s.catalog.Governs(ocat.TrackACISSI, changed)),
			HRCSI:   requiredStatus(s.catalog.Governs(ocat.TrackHRCSI, changed)),
			USINT:   store.StatusPending,
		}
	}
}

func requiredStatus(required bool) string {
	if required {
		return store.StatusPending
	}
	return store.StatusNotRequired
}

// RevisionHistory lists an obsid's revisions with its derived approval state.
func (s *Service) RevisionHistory(ctx context.Context, obsid int) (map[string]any, error) {
	revisions, err := s.store.ListRevisions(ctx, obsid)
	if err != nil {
		return nil, fmt.Errorf("list revisions for obsid %d: %w", obsid, err)
	}
	approved, err := s.store.IsApproved(ctx, obsid)
	if err != nil {
		return nil, fmt.Errorf("approval state for obsid %d: %w", obsid, err)
	}
	open, err := s.store.HasOpenRevision(ctx, obsid)
	if err != nil {
		return nil, fmt.Errorf("open revisions for obsid %d: %w", obsid, err)
	}

	views := make([]map[string]any, 0, len(revisions))
	for _, revision := range revisions {
		views = append(views, revisionView(revision))
	}
	return map[string]any{
		"obsid":        obsid,
		"approved":     approved,
		"openRevision": open,
		"revisions":    views,
	}, nil
}

// CheckRevision loads one revision by its obsid.rev reference with its
// before/after value snapshots.
func (s *Service) CheckRevision(ctx context.Context, ref string) (map[string]any, error) {
	obsidPart, revPart, ok := strings.Cut(strings.TrimSpace(ref), ".")
	obsid, obsidErr := strconv.Atoi(obsidPart)
	revisionNumber, revErr := strconv.Atoi(revPart)
	if !ok || obsidErr != nil || revErr != nil || obsid <= 0 || revisionNumber <= 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "revision reference must look like obsid.rev", nil)
	}

	revision, err := s.store.GetRevisionByNumber(ctx, obsid, revisionNumber)
	if err != nil {
		return nil, fmt.Errorf("load revision %d.%03d: %w", obsid, revisionNumber, err)
	}
	signoff, err := s.store.GetSignoffByRevision(ctx, revision.ID)
	if err != nil {
		return nil, fmt.Errorf("load signoff for revision %s: %w", revision.ID, err)
	}
	originals, requests, err := s.store.ListValues(ctx, revision.ID)
	if err != nil {
		return nil, fmt.Errorf("load values for revision %s: %w", revision.ID, err)
	}
	return map[string]any{
		"revision":  revisionView(revision),
		"signoff":   signoffView(signoff),
		"originals": valueViews(originals),
		"requests":  valueViews(requests),
	}, nil
}

// Status partitions revisions into open (always listed) and recently closed.
// orderBy "obsid" sorts by obsid then revision; the default keeps submission
// order, newest first. A non-empty firstUser floats that submitter's entries
// to the front.
func (s *Service) Status(ctx context.Context, orderBy, firstUser string) (map[string]any, error) {
	entries, err := s.store.ListStatus(ctx, s.now().Add(-recentWindow))
	if err != nil {
		return nil, fmt.Errorf("list status: %w", err)
	}

	if orderBy == "obsid" {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Revision.Obsid != entries[j].Revision.Obsid {
				return entries[i].Revision.Obsid < entries[j].Revision.Obsid
			}
			return entries[i].Revision.RevisionNumber < entries[j].Revision.RevisionNumber
		})
	}
	if firstUser != "" {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Revision.Submitter == firstUser && entries[j].Revision.Submitter != firstUser
		})
	}

	open := make([]map[string]any, 0)
	closed := make([]map[string]any, 0)
	for _, entry := range entries {
		view := map[string]any{
			"revision": revisionView(entry.Revision),
			"signoff":  signoffView(entry.Signoff),
		}
		if entry.Signoff.Open() {
			open = append(open, view)
		} else {
			closed = append(closed, view)
		}
	}
	return map[string]any{"open": open, "closed": closed}, nil
}

// PerformSignoff signs one track. The approve variant performs the USINT
// signoff and, unless the obsid is already approved, spawns the terminal
// asis revision.
func (s *Service) PerformSignoff(ctx context.Context, session Session, signoffID, trackName string) (map[string]any, error) {
	track := rbac.NormalizeTrack(trackName)
	if track == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown signoff track", nil)
	}
	if !rbac.CanSign(session.Groups, track) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "your groups cannot sign this track", nil)
	}

	epoch := s.now().Unix()
	if track == rbac.TrackApprove {
		return s.approve(ctx, session, signoffID, epoch)
	}

	if err := s.store.SignTrack(ctx, signoffID, string(track), session.UserID, epoch); err != nil {
		return nil, fmt.Errorf("sign %s on signoff %s: %w", track, signoffID, err)
	}
	signoff, err := s.store.GetSignoff(ctx, signoffID)
	if err != nil {
		return nil, fmt.Errorf("reload signoff %s: %w", signoffID, err)
	}
	s.notifyProgress(ctx, signoff)
	return map[string]any{"signoff": signoffView(signoff)}, nil
}

func (s *Service) approve(ctx context.Context, session Session, signoffID string, epoch int64) (map[string]any, error) {
	signoff, err := s.store.GetSignoff(ctx, signoffID)
	if err != nil {
		return nil, fmt.Errorf("load signoff %s: %w", signoffID, err)
	}
	signed, err := s.store.GetRevision(ctx, signoff.RevisionID)
	if err != nil {
		return nil, fmt.Errorf("load revision %s: %w", signoff.RevisionID, err)
	}

	result, err := s.store.ApproveRevision(ctx, signoffID, session.UserID, epoch)
	if err != nil {
		return nil, fmt.Errorf("approve obsid %d via signoff %s: %w", signed.Obsid, signoffID, err)
	}

	updated, err := s.store.GetSignoff(ctx, signoffID)
	if err != nil {
		return nil, fmt.Errorf("reload signoff %s: %w", signoffID, err)
	}
	payload := map[string]any{"signoff": signoffView(updated)}

	if result.AlreadyApproved {
		payload["warning"] = fmt.Sprintf("obsid %d is already approved; no approval revision created", signed.Obsid)
		return payload, nil
	}

	asis := *result.AsisRevision
	asis.Submitter = session.Username
	payload["asisRevision"] = revisionView(asis)
	s.indexRevision(asis)
	s.notifyApproval(signed, asis, session)
	return payload, nil
}

// RevertSignoffTrack returns a Signed track to Pending. Only the signer may
// revert, and only within the undo window.
func (s *Service) RevertSignoffTrack(ctx context.Context, session Session, signoffID, trackName string) (map[string]any, error) {
	track := rbac.NormalizeTrack(trackName)
	if track == "" || track == rbac.TrackApprove {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown signoff track", nil)
	}

	signoff, err := s.store.GetSignoff(ctx, signoffID)
	if err != nil {
		return nil, fmt.Errorf("load signoff %s: %w", signoffID, err)
	}
	state, _ := signoff.Track(string(track))
	if state.Status != store.StatusSigned {
		return nil, domainError(http.StatusConflict, "NOT_SIGNED", "track is not signed", nil)
	}
	if state.Signer == nil || *state.Signer != session.UserID {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "only the signer may revert a signoff", nil)
	}
	if state.Time == nil || s.now().Unix()-*state.Time > int64(recentWindow.Seconds()) {
		return nil, domainError(http.StatusConflict, "REVERT_WINDOW_CLOSED", "signoff is too old to revert", nil)
	}

	if err := s.store.RevertSignoff(ctx, signoffID, string(track)); err != nil {
		return nil, fmt.Errorf("revert %s on signoff %s: %w", track, signoffID, err)
	}
	updated, err := s.store.GetSignoff(ctx, signoffID)
	if err != nil {
		return nil, fmt.Errorf("reload signoff %s: %w", signoffID, err)
	}
	return map[string]any{"signoff": signoffView(updated)}, nil
}

// RemoveSubmission deletes a recent revision of the acting user, cascading
// its signoff and value rows. Revisions carrying someone else's signature
// stay put.
func (s *Service) RemoveSubmission(ctx context.Context, session Session, revisionID string) error {
	revision, err := s.store.GetRevision(ctx, revisionID)
	if err != nil {
		return fmt.Errorf("load revision %s: %w", revisionID, err)
	}
	if revision.SubmitterID != session.UserID {
		return domainError(http.StatusForbidden, "FORBIDDEN", "only the submitter may remove a submission", nil)
	}
	if s.now().Sub(revision.CreatedAt) > recentWindow {
		return domainError(http.StatusConflict, "REMOVE_WINDOW_CLOSED", "submission is too old to remove", nil)
	}

	signoff, err := s.store.GetSignoffByRevision(ctx, revisionID)
	if err != nil {
		return fmt.Errorf("load signoff for revision %s: %w", revisionID, err)
	}
	for _, trackName := range []string{store.TrackGeneral, store.TrackACIS, store.TrackACISSI, store.TrackHRCSI, store.TrackUSINT} {
		state, _ := signoff.Track(trackName)
		if state.Status != store.StatusSigned {
			continue
		}
		if state.Signer == nil || *state.Signer != session.UserID {
			return domainError(http.StatusConflict, "ALREADY_SIGNED", "another user has signed this revision", map[string]any{"track": trackName})
		}
	}

	if err := s.store.DeleteRevision(ctx, revisionID); err != nil {
		return fmt.Errorf("delete revision %s: %w", revisionID, err)
	}
	s.deleteFromIndex(revisionID)
	return nil
}

// ExpressApprove parses an obsid-list string and files an asis revision for
// every listed obsid that is not already approved. Missing or already
// approved obsids turn into warnings rather than failing the batch.
func (s *Service) ExpressApprove(ctx context.Context, session Session, list string) (map[string]any, error) {
	obsids, err := ocat.ParseObsidList(list, 0)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	if len(obsids) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "no obsids given", nil)
	}

	approved := make([]int, 0, len(obsids))
	warnings := make([]string, 0)
	for _, obsid := range obsids {
		already, err := s.store.IsApproved(ctx, obsid)
		if err != nil {
			return nil, fmt.Errorf("approval state for obsid %d: %w", obsid, err)
		}
		if already {
			warnings = append(warnings, fmt.Sprintf("obsid %d is already approved", obsid))
			continue
		}
		if _, err := s.SubmitRevision(ctx, session, obsid, SubmitRevisionInput{Kind: store.KindAsis}); err != nil {
			if errors.Is(err, obscat.ErrNotFound) {
				warnings = append(warnings, fmt.Sprintf("obsid %d is not in the catalog", obsid))
				continue
			}
			return nil, err
		}
		approved = append(approved, obsid)
	}
	return map[string]any{"approved": approved, "warnings": warnings}, nil
}

// Schedule lists the TOO duty periods.
func (s *Service) Schedule(ctx context.Context) (map[string]any, error) {
	slots, err := s.store.ListSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schedule: %w", err)
	}
	views := make([]map[string]any, 0, len(slots))
	for _, slot := range slots {
		views = append(views, slotView(slot))
	}
	return map[string]any{"slots": views}, nil
}

func (s *Service) AddScheduleSlot(ctx context.Context, session Session, input ScheduleSlotInput) (map[string]any, error) {
	startAt, startErr := time.Parse(time.RFC3339, input.StartAt)
	stopAt, stopErr := time.Parse(time.RFC3339, input.StopAt)
	if startErr != nil || stopErr != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "startAt and stopAt must be RFC 3339 timestamps", nil)
	}
	if !stopAt.After(startAt) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "stopAt must be after startAt", nil)
	}
	slot, err := s.store.CreateScheduleSlot(ctx, store.ScheduleSlot{
		SortOrder: input.SortOrder,
		StartAt:   startAt,
		StopAt:    stopAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create schedule slot: %w", err)
	}
	return slotView(slot), nil
}

// SignUpForSlot assigns a duty period. An empty assignee signs the acting
// user up; assigning someone else records who did it.
func (s *Service) SignUpForSlot(ctx context.Context, session Session, slotID, assigneeID string) (map[string]any, error) {
	if assigneeID == "" {
		assigneeID = session.UserID
	}
	if err := s.store.AssignScheduleSlot(ctx, slotID, assigneeID, session.UserID); err != nil {
		return nil, fmt.Errorf("assign schedule slot %s: %w", slotID, err)
	}
	return map[string]any{"ok": true}, nil
}

func (s *Service) RemoveScheduleSlot(ctx context.Context, session Session, slotID string) error {
	if !rbac.CanSign(session.Groups, rbac.TrackApprove) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "your groups cannot manage the schedule", nil)
	}
	if err := s.store.DeleteScheduleSlot(ctx, slotID); err != nil {
		return fmt.Errorf("delete schedule slot %s: %w", slotID, err)
	}
	return nil
}

// SearchRevisions runs a revision search, empty when no backend is wired.
func (s *Service) SearchRevisions(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

func (s *Service) onActiveList(ctx context.Context, obsid int) bool {
	if s.active == nil {
		return false
	}
	onList, err := s.active.IsOnList(ctx, obsid)
	if err != nil {
		log.Printf("active list check for obsid %d failed: %v", obsid, err)
		return false
	}
	return onList
}

func (s *Service) indexRevision(revision store.Revision) {
	if s.search == nil {
		return
	}
	notes := ""
	if revision.Notes != nil {
		notes = *revision.Notes
	}
	s.search.IndexRevision(search.RevisionRecord{
		ID:             revision.ID,
		Obsid:          revision.Obsid,
		RevisionNumber: revision.RevisionNumber,
		Kind:           revision.Kind,
		Submitter:      revision.Submitter,
		Notes:          notes,
		RevTime:        revision.RevTime,
	})
}

func (s *Service) deleteFromIndex(revisionID string) {
	if s.search == nil {
		return
	}
	s.search.DeleteRevision(revisionID)
}

// notifySubmission reports new TOO/DDT revisions to the teams holding
// pending tracks. Failures are logged, never surfaced.
func (s *Service) notifySubmission(revision store.Revision, authoritative map[string]any, seed store.SignoffSeed) {
	if s.mail == nil || !s.mail.IsConfigured() {
		return
	}
	tooType, _ := ocat.Coerce(authoritative["too_type"]).(string)
	if tooType == "" || revision.Kind != store.KindNorm {
		return
	}
	pending := make([]string, 0, 5)
	for _, track := range []struct {
		name   string
		status string
	}{
		{store.TrackGeneral, seed.General},
		{store.TrackACIS, seed.ACIS},
		{store.TrackACISSI, seed.ACISSI},
		{store.TrackHRCSI, seed.HRCSI},
		{store.TrackUSINT, seed.USINT},
	} {
		if track.status == store.StatusPending {
			pending = append(pending, track.name)
		}
	}
	recipients, subject, body := email.TOOProgressNotice(revision.Obsid, revision.RevisionNumber, tooType, pending)
	if err := s.mail.Send(recipients, subject, body, nil); err != nil {
		s.reportFailure("too submission notice", err)
	}
}

// notifyApprovalState announces an asis or remove submission, which is
// approved the moment it lands. Failures are logged, never surfaced.
func (s *Service) notifyApprovalState(revision store.Revision, authoritative map[string]any, session Session) {
	if s.mail == nil || !s.mail.IsConfigured() {
		return
	}
	targetName, _ := ocat.Coerce(authoritative["targname"]).(string)
	detailURL := fmt.Sprintf("%s/chkupdata/%d.%03d", s.cfg.BaseURL, revision.Obsid, revision.RevisionNumber)
	subject, body := email.ApprovalStateNotice(revision.Obsid, revision.RevisionNumber, revision.Kind, revision.SequenceNumber, targetName, session.Username, detailURL)
	to := []string{email.AddrCUS}
	if session.Username != "" {
		to = append(to, session.Username+"@cfa.harvard.edu")
	}
	if err := s.mail.Send(to, subject, body, nil); err != nil {
		s.reportFailure("approval state notice", err)
	}
}

// notifyProgress re-reports TOO signoff progress after a track is signed.
func (s *Service) notifyProgress(ctx context.Context, signoff store.Signoff) {
	if s.mail == nil || !s.mail.IsConfigured() {
		return
	}
	revision, err := s.store.GetRevision(ctx, signoff.RevisionID)
	if err != nil {
		log.Printf("progress notice: load revision %s: %v", signoff.RevisionID, err)
		return
	}
	authoritative, err := s.obscat.GetObservation(ctx, revision.Obsid)
	if err != nil {
		log.Printf("progress notice: load obsid %d: %v", revision.Obsid, err)
		return
	}
	tooType, _ := ocat.Coerce(authoritative["too_type"]).(string)
	if tooType == "" {
		return
	}
	pending := make([]string, 0, 5)
	for _, trackName := range []string{store.TrackGeneral, store.TrackACIS, store.TrackACISSI, store.TrackHRCSI, store.TrackUSINT} {
		if state, _ := signoff.Track(trackName); state.Status == store.StatusPending {
			pending = append(pending, trackName)
		}
	}
	recipients, subject, body := email.TOOProgressNotice(revision.Obsid, revision.RevisionNumber, tooType, pending)
	if err := s.mail.Send(recipients, subject, body, nil); err != nil {
		s.reportFailure("too progress notice", err)
	}
}

func (s *Service) notifyApproval(signed, asis store.Revision, session Session) {
	if s.mail == nil || !s.mail.IsConfigured() {
		return
	}
	detailURL := fmt.Sprintf("%s/chkupdata/%d.%03d", s.cfg.BaseURL, signed.Obsid, signed.RevisionNumber)
	subject, body := email.ApprovalNotice(signed.Obsid, signed.RevisionNumber, asis.RevisionNumber, session.Username, detailURL)
	to := []string{email.AddrCUS}
	if signed.Submitter != "" {
		to = append(to, signed.Submitter+"@cfa.harvard.edu")
	}
	if err := s.mail.Send(to, subject, body, nil); err != nil {
		s.reportFailure("approval notice", err)
	}
}

// reportFailure logs a notification failure and fires a best-effort error
// report, which may itself fail silently.
func (s *Service) reportFailure(operation string, cause error) {
	log.Printf("notification %s failed: %v", operation, cause)
	subject, body := email.ErrorReport(operation, cause)
	_ = s.mail.Send([]string{email.AddrCUS}, subject, body, nil)
}

// normalizeRankInput expands record-oriented rank input (one map per rank
// under the group's rank key) into the per-member columns the diff compares.
// Explicit member columns in the proposal win over the record form.
func (s *Service) normalizeRankInput(proposed map[string]any) map[string]any {
	if proposed == nil {
		return nil
	}
	for _, group := range s.catalog.Groups() {
		if group.RankKey == "" {
			continue
		}
		records := recordList(proposed[group.RankKey])
		if records == nil {
			continue
		}
		for member, column := range ocat.ColumnsFromRecords(records, group.Members) {
			if _, exists := proposed[member]; !exists {
				proposed[member] = column
			}
		}
		delete(proposed, group.RankKey)
	}
	return proposed
}

// attachRankRecords adds a record-oriented view of each rank group next to
// the per-member columns so the presentation layer can render ranks row-wise.
func (s *Service) attachRankRecords(params map[string]any) {
	for _, group := range s.catalog.Groups() {
		if group.RankKey == "" {
			continue
		}
		columns := make(ocat.RankColumns)
		for _, member := range group.Members {
			if list, ok := params[member].([]any); ok {
				columns[member] = list
			}
		}
		if len(columns) == 0 {
			continue
		}
		params[group.RankKey] = ocat.RecordsFromColumns(columns, group.Members)
	}
}

func recordList(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil
	}
	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			return nil
		}
		records = append(records, record)
	}
	return records
}

func encodeValues(values map[string]any) []store.ParamValue {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	encoded := make([]store.ParamValue, 0, len(names))
	for _, name := range names {
		value, present := ocat.EncodeValue(values[name])
		encoded = append(encoded, store.ParamValue{Name: name, Value: value, Null: !present})
	}
	return encoded
}

func intParam(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	}
	return 0, false
}
