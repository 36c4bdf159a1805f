package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"usint/api/internal/config"
	"usint/api/internal/obscat"
	"usint/api/internal/ocat"
	"usint/api/internal/store"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	ensureUserByUsernameFn func(context.Context, string) (store.User, error)
	createRevisionFn       func(context.Context, store.NewRevision) (store.Revision, error)
	getRevisionFn          func(context.Context, string) (store.Revision, error)
	getRevisionByNumberFn  func(context.Context, int, int) (store.Revision, error)
	listRevisionsFn        func(context.Context, int) ([]store.Revision, error)
	isApprovedFn           func(context.Context, int) (bool, error)
	hasOpenRevisionFn      func(context.Context, int) (bool, error)
	getSignoffFn           func(context.Context, string) (store.Signoff, error)
	getSignoffByRevisionFn func(context.Context, string) (store.Signoff, error)
	signTrackFn            func(context.Context, string, string, string, int64) error
	revertSignoffFn        func(context.Context, string, string) error
	approveRevisionFn      func(context.Context, string, string, int64) (store.ApprovalResult, error)
	listValuesFn           func(context.Context, string) ([]store.ParamValue, []store.ParamValue, error)
	listStatusFn           func(context.Context, time.Time) ([]store.StatusEntry, error)
	deleteRevisionFn       func(context.Context, string) error
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) EnsureUserByUsername(ctx context.Context, username string) (store.User, error) {
	if f.ensureUserByUsernameFn != nil {
		return f.ensureUserByUsernameFn(ctx, username)
	}
	return store.User{ID: "u-" + username, Username: username}, nil
}
func (f *fakeStore) CreateRevision(ctx context.Context, nr store.NewRevision) (store.Revision, error) {
	if f.createRevisionFn != nil {
		return f.createRevisionFn(ctx, nr)
	}
	return store.Revision{ID: "rev1", Obsid: nr.Obsid, RevisionNumber: 1, Kind: nr.Kind, SubmitterID: nr.SubmitterID, RevTime: nr.RevTime, Notes: nr.Notes, CreatedAt: testNow}, nil
}
func (f *fakeStore) GetRevision(ctx context.Context, revisionID string) (store.Revision, error) {
	if f.getRevisionFn != nil {
		return f.getRevisionFn(ctx, revisionID)
	}
	return store.Revision{}, sql.ErrNoRows
}
func (f *fakeStore) GetRevisionByNumber(ctx context.Context, obsid, revisionNumber int) (store.Revision, error) {
	if f.getRevisionByNumberFn != nil {
		return f.getRevisionByNumberFn(ctx, obsid, revisionNumber)
	}
	return store.Revision{}, sql.ErrNoRows
}
func (f *fakeStore) ListRevisions(ctx context.Context, obsid int) ([]store.Revision, error) {
	if f.listRevisionsFn != nil {
		return f.listRevisionsFn(ctx, obsid)
	}
	return nil, nil
}
func (f *fakeStore) IsApproved(ctx context.Context, obsid int) (bool, error) {
	if f.isApprovedFn != nil {
		return f.isApprovedFn(ctx, obsid)
	}
	return false, nil
}
func (f *fakeStore) HasOpenRevision(ctx context.Context, obsid int) (bool, error) {
	if f.hasOpenRevisionFn != nil {
		return f.hasOpenRevisionFn(ctx, obsid)
	}
	return false, nil
}
func (f *fakeStore) GetSignoff(ctx context.Context, signoffID string) (store.Signoff, error) {
	if f.getSignoffFn != nil {
		return f.getSignoffFn(ctx, signoffID)
	}
	return store.Signoff{}, sql.ErrNoRows
}
func (f *fakeStore) GetSignoffByRevision(ctx context.Context, revisionID string) (store.Signoff, error) {
	if f.getSignoffByRevisionFn != nil {
		return f.getSignoffByRevisionFn(ctx, revisionID)
	}
	return store.Signoff{ID: "so1", RevisionID: revisionID}, nil
}
func (f *fakeStore) SignTrack(ctx context.Context, signoffID, track, signerID string, epoch int64) error {
	if f.signTrackFn != nil {
		return f.signTrackFn(ctx, signoffID, track, signerID, epoch)
	}
	return nil
}
func (f *fakeStore) RevertSignoff(ctx context.Context, signoffID, track string) error {
	if f.revertSignoffFn != nil {
		return f.revertSignoffFn(ctx, signoffID, track)
	}
	return nil
}
func (f *fakeStore) ApproveRevision(ctx context.Context, signoffID, userID string, epoch int64) (store.ApprovalResult, error) {
	if f.approveRevisionFn != nil {
		return f.approveRevisionFn(ctx, signoffID, userID, epoch)
	}
	return store.ApprovalResult{}, nil
}
func (f *fakeStore) ListValues(ctx context.Context, revisionID string) ([]store.ParamValue, []store.ParamValue, error) {
	if f.listValuesFn != nil {
		return f.listValuesFn(ctx, revisionID)
	}
	return nil, nil, nil
}
func (f *fakeStore) ListStatus(ctx context.Context, closedSince time.Time) ([]store.StatusEntry, error) {
	if f.listStatusFn != nil {
		return f.listStatusFn(ctx, closedSince)
	}
	return nil, nil
}
func (f *fakeStore) DeleteRevision(ctx context.Context, revisionID string) error {
	if f.deleteRevisionFn != nil {
		return f.deleteRevisionFn(ctx, revisionID)
	}
	return nil
}
func (f *fakeStore) UpsertParameter(context.Context, store.Parameter) error { return nil }
func (f *fakeStore) ListSchedule(context.Context) ([]store.ScheduleSlot, error) {
	return nil, nil
}
func (f *fakeStore) CreateScheduleSlot(ctx context.Context, slot store.ScheduleSlot) (store.ScheduleSlot, error) {
	slot.ID = "slot1"
	return slot, nil
}
func (f *fakeStore) AssignScheduleSlot(context.Context, string, string, string) error { return nil }
func (f *fakeStore) DeleteScheduleSlot(context.Context, string) error                 { return nil }

type fakeSource struct {
	getObservationFn func(context.Context, int) (map[string]any, error)
}

func (f *fakeSource) GetObservation(ctx context.Context, obsid int) (map[string]any, error) {
	if f.getObservationFn != nil {
		return f.getObservationFn(ctx, obsid)
	}
	return map[string]any{}, nil
}
func (f *fakeSource) Ping(context.Context) error { return nil }

type sentMail struct {
	to      []string
	subject string
	body    string
	cc      []string
}

type fakeMailer struct {
	configured bool
	sends      []sentMail
}

func (m *fakeMailer) IsConfigured() bool { return m.configured }
func (m *fakeMailer) Send(to []string, subject, body string, cc []string) error {
	m.sends = append(m.sends, sentMail{to: to, subject: subject, body: body, cc: cc})
	return nil
}

func newTestService(st *fakeStore, src *fakeSource, mail *fakeMailer) *Service {
	svc := &Service{
		cfg:     config.Config{BaseURL: "https://example.org/usint"},
		catalog: ocat.NewCatalog(),
		store:   st,
		obscat:  src,
		now:     func() time.Time { return testNow },
	}
	if mail != nil {
		svc.mail = mail
	}
	return svc
}

func usintSession() Session {
	return Session{UserID: "u1", Username: "mta", Groups: "usint"}
}

func TestSubmitRevisionRejectsUnknownKind(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeSource{}, nil)
	_, err := svc.SubmitRevision(context.Background(), usintSession(), 26123, SubmitRevisionInput{Kind: "merge"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("SubmitRevision() error = %v, want validation error", err)
	}
}

func TestSubmitRevisionRejectsEmptyChangeSet(t *testing.T) {
	src := &fakeSource{getObservationFn: func(context.Context, int) (map[string]any, error) {
		return map[string]any{"targname": "M31"}, nil
	}}
	svc := newTestService(&fakeStore{}, src, nil)
	_, err := svc.SubmitRevision(context.Background(), usintSession(), 26123, SubmitRevisionInput{
		Kind:       "norm",
		Parameters: map[string]any{"targname": "M31"},
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "NO_CHANGES" {
		t.Fatalf("SubmitRevision() error = %v, want NO_CHANGES", err)
	}
}

func TestSubmitRevisionTargnameChange(t *testing.T) {
	var captured store.NewRevision
	st := &fakeStore{createRevisionFn: func(_ context.Context, nr store.NewRevision) (store.Revision, error) {
		captured = nr
		return store.Revision{ID: "rev1", Obsid: nr.Obsid, RevisionNumber: 3, Kind: nr.Kind, RevTime: nr.RevTime, CreatedAt: testNow}, nil
	}}
	src := &fakeSource{getObservationFn: func(context.Context, int) (map[string]any, error) {
		return map[string]any{"targname": "M31", "window_flag": "N", "seq_nbr": int64(790123)}, nil
	}}
	svc := newTestService(st, src, nil)

	payload, err := svc.SubmitRevision(context.Background(), usintSession(), 26123, SubmitRevisionInput{
		Kind:       "norm",
		Parameters: map[string]any{"targname": "M31 Core", "window_flag": "N"},
	})
	if err != nil {
		t.Fatalf("SubmitRevision() error = %v", err)
	}

	if captured.SequenceNumber == nil || *captured.SequenceNumber != 790123 {
		t.Fatalf("SequenceNumber = %v, want 790123", captured.SequenceNumber)
	}
	if captured.RevTime != testNow.Unix() {
		t.Fatalf("RevTime = %d, want %d", captured.RevTime, testNow.Unix())
	}

	var request *store.ParamValue
	for i := range captured.Requests {
		if captured.Requests[i].Name == "targname" {
			request = &captured.Requests[i]
		}
	}
	if request == nil || request.Value != `"M31 Core"` {
		t.Fatalf("targname request = %+v, want JSON-encoded M31 Core", request)
	}

	seed := captured.Signoff
	if seed.General != store.StatusPending {
		t.Fatalf("general = %q, want Pending", seed.General)
	}
	for track, status := range map[string]string{"acis": seed.ACIS, "acis_si": seed.ACISSI, "hrc_si": seed.HRCSI} {
		if status != store.StatusNotRequired {
			t.Fatalf("%s = %q, want Not Required", track, status)
		}
	}
	if seed.USINT != store.StatusPending {
		t.Fatalf("usint = %q, want Pending", seed.USINT)
	}
	if payload["revision"] == nil || payload["signoff"] == nil {
		t.Fatalf("payload missing revision or signoff: %v", payload)
	}
}

func TestSubmitRevisionAcceptsRankRecords(t *testing.T) {
	var captured store.NewRevision
	st := &fakeStore{createRevisionFn: func(_ context.Context, nr store.NewRevision) (store.Revision, error) {
		captured = nr
		return store.Revision{ID: "rev1", Obsid: nr.Obsid, RevisionNumber: 1, Kind: nr.Kind, CreatedAt: testNow}, nil
	}}
	src := &fakeSource{getObservationFn: func(context.Context, int) (map[string]any, error) {
		return map[string]any{
			"window_flag":       "Y",
			"window_constraint": []any{"Y"},
			"tstart":            []any{50.0},
			"tstop":             []any{100.0},
		}, nil
	}}
	svc := newTestService(st, src, nil)

	_, err := svc.SubmitRevision(context.Background(), usintSession(), 26123, SubmitRevisionInput{
		Kind: "norm",
		Parameters: map[string]any{
			"window_flag": "Y",
			"time_ranks": []any{map[string]any{
				"window_constraint": "Y",
				"tstart":            50.0,
				"tstop":             200.0,
			}},
		},
	})
	if err != nil {
		t.Fatalf("SubmitRevision() error = %v", err)
	}

	requested := map[string]string{}
	for _, request := range captured.Requests {
		requested[request.Name] = request.Value
	}
	if requested["tstop"] != "[200]" {
		t.Fatalf("tstop request = %q, want [200]", requested["tstop"])
	}
	if _, ok := requested["tstart"]; ok {
		t.Fatalf("unchanged tstart must not be requested: %v", requested)
	}
}

func TestSubmitRevisionAsisAutoSignsUsint(t *testing.T) {
	var captured store.NewRevision
	st := &fakeStore{createRevisionFn: func(_ context.Context, nr store.NewRevision) (store.Revision, error) {
		captured = nr
		return store.Revision{ID: "rev1", Obsid: nr.Obsid, RevisionNumber: 2, Kind: nr.Kind, CreatedAt: testNow}, nil
	}}
	svc := newTestService(st, &fakeSource{}, nil)

	if _, err := svc.SubmitRevision(context.Background(), usintSession(), 26123, SubmitRevisionInput{Kind: "asis"}); err != nil {
		t.Fatalf("SubmitRevision() error = %v", err)
	}

	seed := captured.Signoff
	for track, status := range map[string]string{"general": seed.General, "acis": seed.ACIS, "acis_si": seed.ACISSI, "hrc_si": seed.HRCSI} {
		if status != store.StatusNotRequired {
			t.Fatalf("%s = %q, want Not Required", track, status)
		}
	}
	if seed.USINT != store.StatusSigned {
		t.Fatalf("usint = %q, want Signed", seed.USINT)
	}
	if seed.USINTSigner == nil || *seed.USINTSigner != "u1" {
		t.Fatalf("usint signer = %v, want u1", seed.USINTSigner)
	}
	if seed.USINTTime == nil || *seed.USINTTime != testNow.Unix() {
		t.Fatalf("usint time = %v, want %d", seed.USINTTime, testNow.Unix())
	}
	if len(captured.Originals) != 0 || len(captured.Requests) != 0 {
		t.Fatalf("asis revision should carry no value rows, got %d/%d", len(captured.Originals), len(captured.Requests))
	}
	if captured.Notes != nil {
		t.Fatalf("asis revision notes = %v, want nil", *captured.Notes)
	}
}

func TestSubmitRevisionAsisAndRemoveSendApprovalStateNotice(t *testing.T) {
	cases := []struct {
		kind    string
		verdict string
		subject string
	}{
		{"asis", "VERIFIED OK AS IS", "(Approved)"},
		{"remove", "VERIFIED REMOVED", "(Removed)"},
	}
	for _, tc := range cases {
		st := &fakeStore{createRevisionFn: func(_ context.Context, nr store.NewRevision) (store.Revision, error) {
			return store.Revision{ID: "rev1", Obsid: nr.Obsid, RevisionNumber: 2, Kind: nr.Kind, CreatedAt: testNow}, nil
		}}
		mail := &fakeMailer{configured: true}
		svc := newTestService(st, &fakeSource{}, mail)

		if _, err := svc.SubmitRevision(context.Background(), usintSession(), 26123, SubmitRevisionInput{Kind: tc.kind}); err != nil {
			t.Fatalf("SubmitRevision(%s) error = %v", tc.kind, err)
		}
		if len(mail.sends) != 1 {
			t.Fatalf("%s submission sent %d notifications, want 1", tc.kind, len(mail.sends))
		}
		sent := mail.sends[0]
		if !strings.Contains(sent.subject, "26123.002") || !strings.Contains(sent.subject, tc.subject) {
			t.Fatalf("%s subject = %q", tc.kind, sent.subject)
		}
		if !strings.Contains(sent.body, tc.verdict) {
			t.Fatalf("%s body = %q, want %q", tc.kind, sent.body, tc.verdict)
		}
		found := false
		for _, addr := range sent.to {
			if addr == "mta@cfa.harvard.edu" {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s recipients = %v, want the submitter", tc.kind, sent.to)
		}
	}
}

func TestDeriveSignoffSeedIgnoresOrder(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeSource{}, nil)
	forward := svc.deriveSignoffSeed("norm", []string{"si_mode", "targname", "hrc_si_mode"}, "u1", 0)
	backward := svc.deriveSignoffSeed("norm", []string{"hrc_si_mode", "targname", "si_mode"}, "u1", 0)
	if forward != backward {
		t.Fatalf("seed depends on request order: %+v vs %+v", forward, backward)
	}
	if forward.General != store.StatusPending || forward.ACISSI != store.StatusPending || forward.HRCSI != store.StatusPending {
		t.Fatalf("seed = %+v, want general/acis_si/hrc_si Pending", forward)
	}
	if forward.ACIS != store.StatusNotRequired {
		t.Fatalf("acis = %q, want Not Required", forward.ACIS)
	}
}

func TestPerformSignoffRequiresMatchingGroup(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeSource{}, nil)
	session := Session{UserID: "u2", Username: "hrcdude", Groups: "hrc"}
	_, err := svc.PerformSignoff(context.Background(), session, "so1", "acis")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusForbidden {
		t.Fatalf("PerformSignoff() error = %v, want forbidden", err)
	}
}

func TestPerformSignoffSignsTrack(t *testing.T) {
	var gotTrack, gotSigner string
	st := &fakeStore{
		signTrackFn: func(_ context.Context, signoffID, track, signerID string, epoch int64) error {
			gotTrack, gotSigner = track, signerID
			return nil
		},
		getSignoffFn: func(_ context.Context, signoffID string) (store.Signoff, error) {
			return store.Signoff{ID: signoffID, RevisionID: "rev1", General: store.TrackState{Status: store.StatusSigned}}, nil
		},
	}
	svc := newTestService(st, &fakeSource{}, nil)

	payload, err := svc.PerformSignoff(context.Background(), usintSession(), "so1", "general")
	if err != nil {
		t.Fatalf("PerformSignoff() error = %v", err)
	}
	if gotTrack != "general" || gotSigner != "u1" {
		t.Fatalf("SignTrack got (%q, %q), want (general, u1)", gotTrack, gotSigner)
	}
	if payload["signoff"] == nil {
		t.Fatalf("payload missing signoff: %v", payload)
	}
}

func TestApproveAlreadyApprovedSkipsRevision(t *testing.T) {
	approveCalls := 0
	mail := &fakeMailer{configured: true}
	st := &fakeStore{
		getSignoffFn: func(_ context.Context, signoffID string) (store.Signoff, error) {
			return store.Signoff{ID: signoffID, RevisionID: "rev1"}, nil
		},
		getRevisionFn: func(_ context.Context, revisionID string) (store.Revision, error) {
			return store.Revision{ID: revisionID, Obsid: 26123, RevisionNumber: 4}, nil
		},
		approveRevisionFn: func(context.Context, string, string, int64) (store.ApprovalResult, error) {
			approveCalls++
			return store.ApprovalResult{AlreadyApproved: true}, nil
		},
	}
	svc := newTestService(st, &fakeSource{}, mail)

	payload, err := svc.PerformSignoff(context.Background(), usintSession(), "so1", "approve")
	if err != nil {
		t.Fatalf("PerformSignoff() error = %v", err)
	}
	if approveCalls != 1 {
		t.Fatalf("ApproveRevision calls = %d, want 1", approveCalls)
	}
	if _, ok := payload["asisRevision"]; ok {
		t.Fatalf("already approved obsid must not get an asis revision: %v", payload)
	}
	warning, _ := payload["warning"].(string)
	if !strings.Contains(warning, "already approved") {
		t.Fatalf("warning = %q, want already-approved notice", warning)
	}
	if len(mail.sends) != 0 {
		t.Fatalf("no notification expected, got %d", len(mail.sends))
	}
}

func TestApproveCreatesAsisAndNotifies(t *testing.T) {
	mail := &fakeMailer{configured: true}
	st := &fakeStore{
		getSignoffFn: func(_ context.Context, signoffID string) (store.Signoff, error) {
			return store.Signoff{ID: signoffID, RevisionID: "rev1"}, nil
		},
		getRevisionFn: func(_ context.Context, revisionID string) (store.Revision, error) {
			return store.Revision{ID: revisionID, Obsid: 26123, RevisionNumber: 4, Submitter: "mta"}, nil
		},
		approveRevisionFn: func(context.Context, string, string, int64) (store.ApprovalResult, error) {
			return store.ApprovalResult{AsisRevision: &store.Revision{ID: "rev2", Obsid: 26123, RevisionNumber: 5, Kind: store.KindAsis, CreatedAt: testNow}}, nil
		},
	}
	svc := newTestService(st, &fakeSource{}, mail)

	payload, err := svc.PerformSignoff(context.Background(), usintSession(), "so1", "approve")
	if err != nil {
		t.Fatalf("PerformSignoff() error = %v", err)
	}
	asis, _ := payload["asisRevision"].(map[string]any)
	if asis == nil || asis["kind"] != store.KindAsis {
		t.Fatalf("asisRevision = %v, want asis view", payload["asisRevision"])
	}
	if len(mail.sends) != 1 {
		t.Fatalf("notification sends = %d, want 1", len(mail.sends))
	}
	sent := mail.sends[0]
	if !strings.Contains(sent.subject, "26123") {
		t.Fatalf("subject = %q, want obsid reference", sent.subject)
	}
	if !strings.Contains(sent.body, "26123.004") || !strings.Contains(sent.body, "26123.005") {
		t.Fatalf("body = %q, want signed and asis revision numbers", sent.body)
	}
}

func TestRevertSignoffTrackRules(t *testing.T) {
	signer := "u1"
	recent := testNow.Add(-time.Hour).Unix()
	stale := testNow.Add(-40 * time.Hour).Unix()

	cases := []struct {
		name     string
		state    store.TrackState
		wantCode string
	}{
		{name: "not signed", state: store.TrackState{Status: store.StatusPending}, wantCode: "NOT_SIGNED"},
		{name: "someone else signed", state: store.TrackState{Status: store.StatusSigned, Signer: ptr("u9"), Time: &recent}, wantCode: "FORBIDDEN"},
		{name: "window closed", state: store.TrackState{Status: store.StatusSigned, Signer: &signer, Time: &stale}, wantCode: "REVERT_WINDOW_CLOSED"},
		{name: "allowed", state: store.TrackState{Status: store.StatusSigned, Signer: &signer, Time: &recent}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := &fakeStore{getSignoffFn: func(_ context.Context, signoffID string) (store.Signoff, error) {
				return store.Signoff{ID: signoffID, RevisionID: "rev1", USINT: tc.state}, nil
			}}
			svc := newTestService(st, &fakeSource{}, nil)
			_, err := svc.RevertSignoffTrack(context.Background(), usintSession(), "so1", "usint")
			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("RevertSignoffTrack() error = %v", err)
				}
				return
			}
			var domainErr *DomainError
			if !errors.As(err, &domainErr) || domainErr.Code != tc.wantCode {
				t.Fatalf("RevertSignoffTrack() error = %v, want code %s", err, tc.wantCode)
			}
		})
	}
}

func TestRemoveSubmissionRules(t *testing.T) {
	signedByOther := store.Signoff{General: store.TrackState{Status: store.StatusSigned, Signer: ptr("u9")}}

	cases := []struct {
		name     string
		revision store.Revision
		signoff  store.Signoff
		wantCode string
	}{
		{name: "wrong submitter", revision: store.Revision{ID: "rev1", SubmitterID: "u9", CreatedAt: testNow.Add(-time.Hour)}, wantCode: "FORBIDDEN"},
		{name: "too old", revision: store.Revision{ID: "rev1", SubmitterID: "u1", CreatedAt: testNow.Add(-40 * time.Hour)}, wantCode: "REMOVE_WINDOW_CLOSED"},
		{name: "signed by other", revision: store.Revision{ID: "rev1", SubmitterID: "u1", CreatedAt: testNow.Add(-time.Hour)}, signoff: signedByOther, wantCode: "ALREADY_SIGNED"},
		{name: "allowed", revision: store.Revision{ID: "rev1", SubmitterID: "u1", CreatedAt: testNow.Add(-time.Hour)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deleted := false
			st := &fakeStore{
				getRevisionFn: func(context.Context, string) (store.Revision, error) { return tc.revision, nil },
				getSignoffByRevisionFn: func(context.Context, string) (store.Signoff, error) {
					return tc.signoff, nil
				},
				deleteRevisionFn: func(context.Context, string) error {
					deleted = true
					return nil
				},
			}
			svc := newTestService(st, &fakeSource{}, nil)
			err := svc.RemoveSubmission(context.Background(), usintSession(), "rev1")
			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("RemoveSubmission() error = %v", err)
				}
				if !deleted {
					t.Fatal("revision was not deleted")
				}
				return
			}
			var domainErr *DomainError
			if !errors.As(err, &domainErr) || domainErr.Code != tc.wantCode {
				t.Fatalf("RemoveSubmission() error = %v, want code %s", err, tc.wantCode)
			}
			if deleted {
				t.Fatal("revision deleted despite rule violation")
			}
		})
	}
}

func TestExpressApproveSkipsApprovedAndMissing(t *testing.T) {
	var submitted []int
	st := &fakeStore{
		isApprovedFn: func(_ context.Context, obsid int) (bool, error) {
			return obsid == 100, nil
		},
		createRevisionFn: func(_ context.Context, nr store.NewRevision) (store.Revision, error) {
			submitted = append(submitted, nr.Obsid)
			return store.Revision{ID: fmt.Sprintf("rev-%d", nr.Obsid), Obsid: nr.Obsid, RevisionNumber: 1, Kind: nr.Kind, CreatedAt: testNow}, nil
		},
	}
	src := &fakeSource{getObservationFn: func(_ context.Context, obsid int) (map[string]any, error) {
		if obsid == 102 {
			return nil, fmt.Errorf("obsid %d: %w", obsid, obscat.ErrNotFound)
		}
		return map[string]any{}, nil
	}}
	svc := newTestService(st, src, nil)

	payload, err := svc.ExpressApprove(context.Background(), usintSession(), "100, 101, 102:103")
	if err != nil {
		t.Fatalf("ExpressApprove() error = %v", err)
	}
	if len(submitted) != 2 || submitted[0] != 101 || submitted[1] != 103 {
		t.Fatalf("submitted = %v, want [101 103]", submitted)
	}
	warnings, _ := payload["warnings"].([]string)
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want two", warnings)
	}
}

func TestStatusPartitionsOpenAndClosed(t *testing.T) {
	var gotClosedSince time.Time
	open := store.StatusEntry{
		Revision: store.Revision{ID: "rev1", Obsid: 26123, RevisionNumber: 1},
		Signoff:  store.Signoff{ID: "so1", RevisionID: "rev1", USINT: store.TrackState{Status: store.StatusPending}},
	}
	closed := store.StatusEntry{
		Revision: store.Revision{ID: "rev2", Obsid: 26124, RevisionNumber: 1},
		Signoff:  store.Signoff{ID: "so2", RevisionID: "rev2", USINT: store.TrackState{Status: store.StatusSigned}},
	}
	st := &fakeStore{listStatusFn: func(_ context.Context, closedSince time.Time) ([]store.StatusEntry, error) {
		gotClosedSince = closedSince
		return []store.StatusEntry{open, closed}, nil
	}}
	svc := newTestService(st, &fakeSource{}, nil)

	payload, err := svc.Status(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if want := testNow.Add(-recentWindow); !gotClosedSince.Equal(want) {
		t.Fatalf("closedSince = %v, want %v", gotClosedSince, want)
	}
	openViews, _ := payload["open"].([]map[string]any)
	closedViews, _ := payload["closed"].([]map[string]any)
	if len(openViews) != 1 || len(closedViews) != 1 {
		t.Fatalf("partition = %d open / %d closed, want 1/1", len(openViews), len(closedViews))
	}
}

func TestCheckRevisionRejectsBadReference(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeSource{}, nil)
	for _, ref := range []string{"", "26123", "26123.", "a.b", "26123.0"} {
		_, err := svc.CheckRevision(context.Background(), ref)
		var domainErr *DomainError
		if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnprocessableEntity {
			t.Fatalf("CheckRevision(%q) error = %v, want validation error", ref, err)
		}
	}
}

func TestCheckRevisionReturnsValues(t *testing.T) {
	st := &fakeStore{
		getRevisionByNumberFn: func(_ context.Context, obsid, revisionNumber int) (store.Revision, error) {
			return store.Revision{ID: "rev1", Obsid: obsid, RevisionNumber: revisionNumber, Kind: store.KindNorm}, nil
		},
		listValuesFn: func(context.Context, string) ([]store.ParamValue, []store.ParamValue, error) {
			originals := []store.ParamValue{{Name: "targname", Value: `"M31"`}}
			requests := []store.ParamValue{{Name: "targname", Value: `"M31 Core"`}, {Name: "tstart", Null: true}}
			return originals, requests, nil
		},
	}
	svc := newTestService(st, &fakeSource{}, nil)

	payload, err := svc.CheckRevision(context.Background(), "26123.2")
	if err != nil {
		t.Fatalf("CheckRevision() error = %v", err)
	}
	requests, _ := payload["requests"].([]map[string]any)
	if len(requests) != 2 {
		t.Fatalf("requests = %v, want two entries", requests)
	}
	if requests[1]["value"] != nil || requests[1]["null"] != true {
		t.Fatalf("explicit null request rendered as %v", requests[1])
	}
}

func TestResolveSessionRequiresUsername(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeSource{}, nil)
	_, err := svc.ResolveSession(context.Background(), "  ")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnauthorized {
		t.Fatalf("ResolveSession() error = %v, want unauthorized", err)
	}
}

func ptr[T any](v T) *T { return &v }
