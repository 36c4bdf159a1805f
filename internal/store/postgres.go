package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// createRetries bounds the revision-number collision retry loop. Collisions
// only happen when two submissions for the same obsid race, so one or two
// retries is plenty in practice.
const createRetries = 3

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) EnsureUserByUsername(ctx context.Context, username string) (User, error) {
	const findUser = `SELECT id, username, full_name, email, groups FROM users WHERE username = $1`
	var user User
	err := s.db.QueryRowContext(ctx, findUser, username).Scan(&user.ID, &user.Username, &user.FullName, &user.Email, &user.Groups)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	const insertUser = `
		INSERT INTO users (username, email)
		VALUES ($1, CONCAT($1::text, '@cfa.harvard.edu'))
		ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		RETURNING id, username, full_name, email, groups
	`
	if err := s.db.QueryRowContext(ctx, insertUser, username).Scan(&user.ID, &user.Username, &user.FullName, &user.Email, &user.Groups); err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `SELECT id, username, full_name, email, groups FROM users WHERE id=$1`, userID).
		Scan(&user.ID, &user.Username, &user.FullName, &user.Email, &user.Groups)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) SetUserGroups(ctx context.Context, userID, groups string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET groups=$2 WHERE id=$1`, userID, groups); err != nil {
		return fmt.Errorf("set user groups: %w", err)
	}
	return nil
}

// CreateRevision assigns the next revision number for the obsid and persists
// the revision, its signoff, and its parameter snapshot in one transaction.
// The unique constraint on (obsid, revision_number) backstops the read-then-
// insert race; a collision re-reads the max and retries.
func (s *PostgresStore) CreateRevision(ctx context.Context, nr NewRevision) (Revision, error) {
	var created Revision
	for attempt := 0; attempt < createRetries; attempt++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return Revision{}, fmt.Errorf("begin revision tx: %w", err)
		}
		created, err = insertRevisionTx(ctx, tx, nr)
		if err != nil {
			_ = tx.Rollback()
			if isUniqueViolation(err) {
				continue
			}
			return Revision{}, err
		}
		if err := tx.Commit(); err != nil {
			return Revision{}, fmt.Errorf("commit revision tx: %w", err)
		}
		return created, nil
	}
	return Revision{}, fmt.Errorf("revision number contention for obsid %d: retries exhausted", nr.Obsid)
}

func insertRevisionTx(ctx context.Context, tx *sql.Tx, nr NewRevision) (Revision, error) {
	var maxRev int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(revision_number), 0) FROM revisions WHERE obsid=$1`, nr.Obsid).Scan(&maxRev); err != nil {
		return Revision{}, fmt.Errorf("read max revision number: %w", err)
	}

	rev := Revision{
		Obsid:          nr.Obsid,
		RevisionNumber: maxRev + 1,
		Kind:           nr.Kind,
		SequenceNumber: nr.SequenceNumber,
		SubmitterID:    nr.SubmitterID,
		RevTime:        nr.RevTime,
		Notes:          nr.Notes,
	}
	const insertRevision = `
		INSERT INTO revisions (obsid, revision_number, kind, sequence_number, submitter_id, rev_time, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	if err := tx.QueryRowContext(ctx, insertRevision,
		rev.Obsid, rev.RevisionNumber, rev.Kind, rev.SequenceNumber, rev.SubmitterID, rev.RevTime, rev.Notes,
	).Scan(&rev.ID, &rev.CreatedAt); err != nil {
		return Revision{}, fmt.Errorf("insert revision: %w", err)
	}

	const insertSignoff = `
		INSERT INTO signoffs (
			revision_id,
			general_status, acis_status, acis_si_status, hrc_si_status,
			usint_status, usint_signer, usint_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	seed := nr.Signoff
	if _, err := tx.ExecContext(ctx, insertSignoff,
		rev.ID, seed.General, seed.ACIS, seed.ACISSI, seed.HRCSI, seed.USINT, seed.USINTSigner, seed.USINTTime,
	); err != nil {
		return Revision{}, fmt.Errorf("insert signoff: %w", err)
	}

	for _, original := range nr.Originals {
		if original.Null {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO originals (revision_id, parameter_name, value) VALUES ($1, $2, $3)`,
			rev.ID, original.Name, original.Value,
		); err != nil {
			return Revision{}, fmt.Errorf("insert original %s: %w", original.Name, err)
		}
	}
	for _, request := range nr.Requests {
		value := sql.NullString{String: request.Value, Valid: !request.Null}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO requests (revision_id, parameter_name, value) VALUES ($1, $2, $3)`,
			rev.ID, request.Name, value,
		); err != nil {
			return Revision{}, fmt.Errorf("insert request %s: %w", request.Name, err)
		}
	}
	return rev, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const revisionColumns = `
	r.id, r.obsid, r.revision_number, r.kind, r.sequence_number,
	r.submitter_id, u.username, r.rev_time, r.notes, r.created_at
`

func scanRevision(row interface{ Scan(...any) error }) (Revision, error) {
	var rev Revision
	err := row.Scan(&rev.ID, &rev.Obsid, &rev.RevisionNumber, &rev.Kind, &rev.SequenceNumber,
		&rev.SubmitterID, &rev.Submitter, &rev.RevTime, &rev.Notes, &rev.CreatedAt)
	return rev, err
}

func (s *PostgresStore) GetRevision(ctx context.Context, revisionID string) (Revision, error) {
	query := `SELECT ` + revisionColumns + ` FROM revisions r JOIN users u ON u.id = r.submitter_id WHERE r.id=$1`
	return scanRevision(s.db.QueryRowContext(ctx, query, revisionID))
}

func (s *PostgresStore) GetRevisionByNumber(ctx context.Context, obsid, revisionNumber int) (Revision, error) {
	query := `SELECT ` + revisionColumns + ` FROM revisions r JOIN users u ON u.id = r.submitter_id WHERE r.obsid=$1 AND r.revision_number=$2`
	return scanRevision(s.db.QueryRowContext(ctx, query, obsid, revisionNumber))
}

// ListRevisions returns all revisions for an obsid in ascending revision
// number order. The ordering is load-bearing for approval-state scans.
func (s *PostgresStore) ListRevisions(ctx context.Context, obsid int) ([]Revision, error) {
	query := `SELECT ` + revisionColumns + ` FROM revisions r JOIN users u ON u.id = r.submitter_id WHERE r.obsid=$1 ORDER BY r.revision_number ASC`
	rows, err := s.db.QueryContext(ctx, query, obsid)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var revisions []Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revisions = append(revisions, rev)
	}
	return revisions, rows.Err()
}

// IsApproved folds the obsid's revision kinds in ascending revision number
// order: asis approves, remove un-approves, everything else is neutral.
func (s *PostgresStore) IsApproved(ctx context.Context, obsid int) (bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind FROM revisions WHERE obsid=$1 ORDER BY revision_number ASC`, obsid)
	if err != nil {
		return false, fmt.Errorf("list revision kinds: %w", err)
	}
	defer rows.Close()
	approved := false
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return false, fmt.Errorf("scan revision kind: %w", err)
		}
		approved = foldApproval(approved, kind)
	}
	return approved, rows.Err()
}

func foldApproval(approved bool, kind string) bool {
	switch kind {
	case KindAsis:
		return true
	case KindRemove:
		return false
	}
	return approved
}

func (s *PostgresStore) HasOpenRevision(ctx context.Context, obsid int) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM signoffs s
			JOIN revisions r ON r.id = s.revision_id
			WHERE r.obsid = $1 AND 'Pending' IN (
				s.general_status, s.acis_status, s.acis_si_status, s.hrc_si_status, s.usint_status
			)
		)
	`
	var open bool
	if err := s.db.QueryRowContext(ctx, query, obsid).Scan(&open); err != nil {
		return false, fmt.Errorf("check open revision: %w", err)
	}
	return open, nil
}

const signoffColumns = `
	s.id, s.revision_id,
	s.general_status, s.general_signer, s.general_time,
	s.acis_status, s.acis_signer, s.acis_time,
	s.acis_si_status, s.acis_si_signer, s.acis_si_time,
	s.hrc_si_status, s.hrc_si_signer, s.hrc_si_time,
	s.usint_status, s.usint_signer, s.usint_time
`

func scanSignoff(row interface{ Scan(...any) error }) (Signoff, error) {
	var so Signoff
	err := row.Scan(&so.ID, &so.RevisionID,
		&so.General.Status, &so.General.Signer, &so.General.Time,
		&so.ACIS.Status, &so.ACIS.Signer, &so.ACIS.Time,
		&so.ACISSI.Status, &so.ACISSI.Signer, &so.ACISSI.Time,
		&so.HRCSI.Status, &so.HRCSI.Signer, &so.HRCSI.Time,
		&so.USINT.Status, &so.USINT.Signer, &so.USINT.Time)
	return so, err
}

func (s *PostgresStore) GetSignoff(ctx context.Context, signoffID string) (Signoff, error) {
	query := `SELECT ` + signoffColumns + ` FROM signoffs s WHERE s.id=$1`
	return scanSignoff(s.db.QueryRowContext(ctx, query, signoffID))
}

func (s *PostgresStore) GetSignoffByRevision(ctx context.Context, revisionID string) (Signoff, error) {
	query := `SELECT ` + signoffColumns + ` FROM signoffs s WHERE s.revision_id=$1`
	return scanSignoff(s.db.QueryRowContext(ctx, query, revisionID))
}

// trackColumns maps a track key to its status/signer/time column prefix.
// Only keys present here ever reach SQL text.
var trackColumns = map[string]string{
	TrackGeneral: "general",
	TrackACIS:    "acis",
	TrackACISSI:  "acis_si",
	TrackHRCSI:   "hrc_si",
	TrackUSINT:   "usint",
}

// SignTrack marks one track Signed. Re-signing an already-Signed track
// overwrites signer and time; last writer wins.
func (s *PostgresStore) SignTrack(ctx context.Context, signoffID, track, signerID string, epoch int64) error {
	prefix, ok := trackColumns[track]
	if !ok {
		return fmt.Errorf("unknown signoff track %q", track)
	}
	query := fmt.Sprintf(
		`UPDATE signoffs SET %s_status=$2, %s_signer=$3, %s_time=$4 WHERE id=$1`,
		prefix, prefix, prefix,
	)
	result, err := s.db.ExecContext(ctx, query, signoffID, StatusSigned, signerID, epoch)
	if err != nil {
		return fmt.Errorf("sign %s track: %w", track, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RevertSignoff resets one track back to Pending, clearing signer and time.
func (s *PostgresStore) RevertSignoff(ctx context.Context, signoffID, track string) error {
	prefix, ok := trackColumns[track]
	if !ok {
		return fmt.Errorf("unknown signoff track %q", track)
	}
	query := fmt.Sprintf(
		`UPDATE signoffs SET %s_status=$2, %s_signer=NULL, %s_time=NULL WHERE id=$1`,
		prefix, prefix, prefix,
	)
	result, err := s.db.ExecContext(ctx, query, signoffID, StatusPending)
	if err != nil {
		return fmt.Errorf("revert %s track: %w", track, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApproveRevision performs the USINT signoff and, when the obsid is not yet
// approved, creates the terminal asis revision with its auto-signed signoff.
// Everything runs in one transaction with the obsid's revision rows locked,
// so two racing approvals cannot both create an asis revision.
func (s *PostgresStore) ApproveRevision(ctx context.Context, signoffID, userID string, epoch int64) (ApprovalResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ApprovalResult{}, fmt.Errorf("begin approve tx: %w", err)
	}
	defer tx.Rollback()

	var obsid int
	var sequenceNumber *int
	const findTarget = `
		SELECT r.obsid, r.sequence_number
		FROM signoffs s JOIN revisions r ON r.id = s.revision_id
		WHERE s.id = $1
	`
	if err := tx.QueryRowContext(ctx, findTarget, signoffID).Scan(&obsid, &sequenceNumber); err != nil {
		return ApprovalResult{}, err
	}

	const signUsint = `UPDATE signoffs SET usint_status=$2, usint_signer=$3, usint_time=$4 WHERE id=$1`
	if _, err := tx.ExecContext(ctx, signUsint, signoffID, StatusSigned, userID, epoch); err != nil {
		return ApprovalResult{}, fmt.Errorf("sign usint track: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT kind FROM revisions WHERE obsid=$1 ORDER BY revision_number ASC FOR UPDATE`, obsid)
	if err != nil {
		return ApprovalResult{}, fmt.Errorf("lock revision kinds: %w", err)
	}
	approved := false
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			rows.Close()
			return ApprovalResult{}, fmt.Errorf("scan revision kind: %w", err)
		}
		approved = foldApproval(approved, kind)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return ApprovalResult{}, err
	}
	rows.Close()

	if approved {
		if err := tx.Commit(); err != nil {
			return ApprovalResult{}, fmt.Errorf("commit approve tx: %w", err)
		}
		return ApprovalResult{AlreadyApproved: true}, nil
	}

	asis, err := insertRevisionTx(ctx, tx, NewRevision{
		Obsid:          obsid,
		Kind:           KindAsis,
		SequenceNumber: sequenceNumber,
		SubmitterID:    userID,
		RevTime:        epoch,
		Signoff: SignoffSeed{
			General:     StatusNotRequired,
			ACIS:        StatusNotRequired,
			ACISSI:      StatusNotRequired,
			HRCSI:       StatusNotRequired,
			USINT:       StatusSigned,
			USINTSigner: &userID,
			USINTTime:   &epoch,
		},
	})
	if err != nil {
		return ApprovalResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return ApprovalResult{}, fmt.Errorf("commit approve tx: %w", err)
	}
	return ApprovalResult{AsisRevision: &asis}, nil
}

// ListValues returns a revision's Original and Request snapshots.
func (s *PostgresStore) ListValues(ctx context.Context, revisionID string) (originals, requests []ParamValue, err error) {
	originals, err = s.listParamValues(ctx, `SELECT parameter_name, value FROM originals WHERE revision_id=$1 ORDER BY parameter_name`, revisionID, false)
	if err != nil {
		return nil, nil, fmt.Errorf("list originals: %w", err)
	}
	requests, err = s.listParamValues(ctx, `SELECT parameter_name, value FROM requests WHERE revision_id=$1 ORDER BY parameter_name`, revisionID, true)
	if err != nil {
		return nil, nil, fmt.Errorf("list requests: %w", err)
	}
	return originals, requests, nil
}

func (s *PostgresStore) listParamValues(ctx context.Context, query, revisionID string, nullable bool) ([]ParamValue, error) {
	rows, err := s.db.QueryContext(ctx, query, revisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []ParamValue
	for rows.Next() {
		var pv ParamValue
		if nullable {
			var value sql.NullString
			if err := rows.Scan(&pv.Name, &value); err != nil {
				return nil, err
			}
			pv.Value = value.String
			pv.Null = !value.Valid
		} else {
			if err := rows.Scan(&pv.Name, &pv.Value); err != nil {
				return nil, err
			}
		}
		values = append(values, pv)
	}
	return values, rows.Err()
}

// ListStatus returns every open revision plus closed revisions created at or
// after closedSince, newest first.
func (s *PostgresStore) ListStatus(ctx context.Context, closedSince time.Time) ([]StatusEntry, error) {
	query := `
		SELECT ` + revisionColumns + `, ` + signoffColumns + `
		FROM revisions r
		JOIN users u ON u.id = r.submitter_id
		JOIN signoffs s ON s.revision_id = r.id
		WHERE 'Pending' IN (s.general_status, s.acis_status, s.acis_si_status, s.hrc_si_status, s.usint_status)
			OR r.created_at >= $1
		ORDER BY r.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, closedSince)
	if err != nil {
		return nil, fmt.Errorf("list status: %w", err)
	}
	defer rows.Close()

	var entries []StatusEntry
	for rows.Next() {
		var entry StatusEntry
		if err := rows.Scan(
			&entry.Revision.ID, &entry.Revision.Obsid, &entry.Revision.RevisionNumber, &entry.Revision.Kind,
			&entry.Revision.SequenceNumber, &entry.Revision.SubmitterID, &entry.Revision.Submitter,
			&entry.Revision.RevTime, &entry.Revision.Notes, &entry.Revision.CreatedAt,
			&entry.Signoff.ID, &entry.Signoff.RevisionID,
			&entry.Signoff.General.Status, &entry.Signoff.General.Signer, &entry.Signoff.General.Time,
			&entry.Signoff.ACIS.Status, &entry.Signoff.ACIS.Signer, &entry.Signoff.ACIS.Time,
			&entry.Signoff.ACISSI.Status, &entry.Signoff.ACISSI.Signer, &entry.Signoff.ACISSI.Time,
			&entry.Signoff.HRCSI.Status, &entry.Signoff.HRCSI.Signer, &entry.Signoff.HRCSI.Time,
			&entry.Signoff.USINT.Status, &entry.Signoff.USINT.Signer, &entry.Signoff.USINT.Time,
		); err != nil {
			return nil, fmt.Errorf("scan status entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListRevisionsFiltered is the Postgres fallback for revision search; Text
// matches the notes column case-insensitively.
func (s *PostgresStore) ListRevisionsFiltered(ctx context.Context, filter RevisionFilter) ([]Revision, error) {
	query := `SELECT ` + revisionColumns + ` FROM revisions r JOIN users u ON u.id = r.submitter_id WHERE 1=1`
	var args []any
	if filter.Obsid != nil {
		args = append(args, *filter.Obsid)
		query += fmt.Sprintf(" AND r.obsid=$%d", len(args))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += fmt.Sprintf(" AND r.kind=$%d", len(args))
	}
	if filter.SubmitterID != "" {
		args = append(args, filter.SubmitterID)
		query += fmt.Sprintf(" AND r.submitter_id=$%d", len(args))
	}
	if strings.TrimSpace(filter.Text) != "" {
		args = append(args, "%"+strings.TrimSpace(filter.Text)+"%")
		query += fmt.Sprintf(" AND (r.notes ILIKE $%d OR u.username ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY r.created_at DESC"
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list revisions filtered: %w", err)
	}
	defer rows.Close()

	var revisions []Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revisions = append(revisions, rev)
	}
	return revisions, rows.Err()
}

// DeleteRevision removes a revision; signoff and parameter snapshots cascade.
func (s *PostgresStore) DeleteRevision(ctx context.Context, revisionID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM revisions WHERE id=$1`, revisionID)
	if err != nil {
		return fmt.Errorf("delete revision: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) UpsertParameter(ctx context.Context, p Parameter) error {
	const query = `
		INSERT INTO parameters (name, category, modifiable, data_type, tracks)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			category = EXCLUDED.category,
			modifiable = EXCLUDED.modifiable,
			data_type = EXCLUDED.data_type,
			tracks = EXCLUDED.tracks
	`
	if _, err := s.db.ExecContext(ctx, query, p.Name, p.Category, p.Modifiable, p.DataType, p.Tracks); err != nil {
		return fmt.Errorf("upsert parameter %s: %w", p.Name, err)
	}
	return nil
}

func (s *PostgresStore) ListParameters(ctx context.Context) ([]Parameter, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, category, modifiable, data_type, tracks FROM parameters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list parameters: %w", err)
	}
	defer rows.Close()

	var parameters []Parameter
	for rows.Next() {
		var p Parameter
		if err := rows.Scan(&p.Name, &p.Category, &p.Modifiable, &p.DataType, &p.Tracks); err != nil {
			return nil, fmt.Errorf("scan parameter: %w", err)
		}
		parameters = append(parameters, p)
	}
	return parameters, rows.Err()
}

const scheduleColumns = `
	sc.id, sc.sort_order, sc.assignee_id, COALESCE(u.full_name, ''), sc.assigner_id, sc.start_at, sc.stop_at
`

func (s *PostgresStore) ListSchedule(ctx context.Context) ([]ScheduleSlot, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules sc LEFT JOIN users u ON u.id = sc.assignee_id ORDER BY sc.sort_order ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list schedule: %w", err)
	}
	defer rows.Close()

	var slots []ScheduleSlot
	for rows.Next() {
		var slot ScheduleSlot
		if err := rows.Scan(&slot.ID, &slot.SortOrder, &slot.AssigneeID, &slot.Assignee, &slot.AssignerID, &slot.StartAt, &slot.StopAt); err != nil {
			return nil, fmt.Errorf("scan schedule slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (s *PostgresStore) CreateScheduleSlot(ctx context.Context, slot ScheduleSlot) (ScheduleSlot, error) {
	const query = `
		INSERT INTO schedules (sort_order, assignee_id, assigner_id, start_at, stop_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	if err := s.db.QueryRowContext(ctx, query,
		slot.SortOrder, slot.AssigneeID, slot.AssignerID, slot.StartAt, slot.StopAt,
	).Scan(&slot.ID); err != nil {
		return ScheduleSlot{}, fmt.Errorf("create schedule slot: %w", err)
	}
	return slot, nil
}

func (s *PostgresStore) AssignScheduleSlot(ctx context.Context, slotID, assigneeID, assignerID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE schedules SET assignee_id=$2, assigner_id=$3 WHERE id=$1`,
		slotID, assigneeID, assignerID)
	if err != nil {
		return fmt.Errorf("assign schedule slot: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteScheduleSlot(ctx context.Context, slotID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id=$1`, slotID)
	if err != nil {
		return fmt.Errorf("delete schedule slot: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
