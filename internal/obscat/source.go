// Package obscat reads the authoritative observation catalog from a
// read-only Postgres mirror. It flattens the per-obsid target row and its
// satellite tables (dither, time/roll constraints, ACIS and HRC setups, TOO)
// into one parameter map keyed the way the rest of the system names
// parameters.
package obscat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("observation not found")
	ErrAmbiguous = errors.New("more than one catalog row for obsid")
)

type Source struct {
	db *sql.DB
}

func New(db *sql.DB) *Source {
	return &Source{db: db}
}

func (s *Source) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// columnRenames maps catalog column names onto the parameter names the
// workflow uses. The catalog's "type" column would also shadow too.type, so
// both get explicit names.
var columnRenames = map[string]string{
	"mp_remarks": "comments",
	"type":       "obs_type",
}

// GetObservation returns the full authoritative parameter map for one obsid.
func (s *Source) GetObservation(ctx context.Context, obsid int) (map[string]any, error) {
	params, err := s.targetRow(ctx, obsid)
	if err != nil {
		return nil, err
	}

	dither, err := s.rowMap(ctx, `SELECT y_amp, y_freq, y_phase, z_amp, z_freq, z_phase FROM dither WHERE obsid=$1`, obsid)
	if err != nil {
		return nil, fmt.Errorf("read dither for obsid %d: %w", obsid, err)
	}
	mergeInto(params, dither)

	if err := s.rankColumns(ctx, params, `SELECT window_constraint, tstart, tstop FROM timereq WHERE obsid=$1 ORDER BY ordr`, obsid); err != nil {
		return nil, fmt.Errorf("read time constraints for obsid %d: %w", obsid, err)
	}
	if err := s.rankColumns(ctx, params, `SELECT roll_constraint, roll_180, roll, roll_tolerance FROM rollreq WHERE obsid=$1 ORDER BY ordr`, obsid); err != nil {
		return nil, fmt.Errorf("read roll constraints for obsid %d: %w", obsid, err)
	}
	if err := s.rankColumns(ctx, params, `SELECT chip, start_row, start_column, width, height, lower_threshold, pha_range, sample FROM aciswin WHERE obsid=$1 ORDER BY ordr`, obsid); err != nil {
		return nil, fmt.Errorf("read acis windows for obsid %d: %w", obsid, err)
	}

	if id, ok := params["acisid"].(int64); ok && id != 0 {
		acis, err := s.rowMap(ctx, `SELECT * FROM acisparam WHERE acisid=$1`, int(id))
		if err != nil {
			return nil, fmt.Errorf("read acis setup for obsid %d: %w", obsid, err)
		}
		delete(acis, "acisid")
		mergeInto(params, acis)
	}
	if id, ok := params["hrcid"].(int64); ok && id != 0 {
		hrc, err := s.rowMap(ctx, `SELECT hrc_si_mode, hrc_zero_block, hrc_timing_mode FROM hrcparam WHERE hrcid=$1`, int(id))
		if err != nil {
			return nil, fmt.Errorf("read hrc setup for obsid %d: %w", obsid, err)
		}
		mergeInto(params, hrc)
	}
	if id, ok := params["tooid"].(int64); ok && id != 0 {
		too, err := s.rowMap(ctx, `SELECT type AS too_type, trig AS too_trig, start AS too_start, stop AS too_stop, followup AS too_followup, remarks AS too_remarks FROM too WHERE tooid=$1`, int(id))
		if err != nil {
			return nil, fmt.Errorf("read too for obsid %d: %w", obsid, err)
		}
		mergeInto(params, too)
	}

	return params, nil
}

func (s *Source) targetRow(ctx context.Context, obsid int) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM target WHERE obsid=$1`, obsid)
	if err != nil {
		return nil, fmt.Errorf("read target for obsid %d: %w", obsid, err)
	}
	defer rows.Close()

	var params map[string]any
	count := 0
	for rows.Next() {
		count++
		if count > 1 {
			return nil, fmt.Errorf("obsid %d: %w", obsid, ErrAmbiguous)
		}
		params, err = scanRowMap(rows)
		if err != nil {
			return nil, fmt.Errorf("scan target for obsid %d: %w", obsid, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("obsid %d: %w", obsid, ErrNotFound)
	}

	for from, to := range columnRenames {
		if v, ok := params[from]; ok {
			params[to] = v
			delete(params, from)
		}
	}
	return params, nil
}

// rowMap reads at most one row into a column-keyed map; a missing row
// contributes nothing.
func (s *Source) rowMap(ctx context.Context, query string, arg any) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanRowMap(rows)
}

// rankColumns reads a rank-ordered table into per-column value lists under
// each column's name. Tables with no ranks contribute nothing, so the flag
// gating alone decides whether the group participates in a diff.
func (s *Source) rankColumns(ctx context.Context, params map[string]any, query string, obsid int) error {
	rows, err := s.db.QueryContext(ctx, query, obsid)
	if err != nil {
		return err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	lists := make(map[string][]any, len(columns))
	for rows.Next() {
		record, err := scanRowMap(rows)
		if err != nil {
			return err
		}
		for _, column := range columns {
			lists[column] = append(lists[column], record[column])
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for column, list := range lists {
		params[column] = list
	}
	return nil
}

func scanRowMap(rows *sql.Rows) (map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make(map[string]any, len(columns))
	for i, column := range columns {
		row[column] = normalizeDriverValue(values[i])
	}
	return row, nil
}

// normalizeDriverValue flattens driver-specific value types down to the
// plain forms the coercion layer understands.
func normalizeDriverValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case float32:
		return float64(val)
	case int32:
		return int64(val)
	default:
		return v
	}
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}
