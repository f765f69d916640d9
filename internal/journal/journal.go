package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/cyfral-controller/internal/intercom"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	idPrefix         = "evt-"
)

// ErrInvalidRetention is returned by Prune for a non-positive retention.
var ErrInvalidRetention = errors.New("retention must be positive")

// Entry is one journal row.
type Entry struct {
	ID         string               `json:"id"`
	DeviceID   string               `json:"device_id"`
	Kind       intercom.EventKind   `json:"kind"`
	Source     intercom.EventSource `json:"source"`
	Detail     string               `json:"detail,omitempty"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// Filter selects entries for List. Zero fields match everything.
type Filter struct {
	Kind   intercom.EventKind
	Source intercom.EventSource
	Since  time.Time // inclusive
	Until  time.Time // exclusive
	Limit  int       // default 50, max 500
	Offset int
}

// ListResult is one page of entries, newest first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Journal reads and writes the intercom_events table.
type Journal struct {
	db       *sql.DB
	deviceID string
	now      func() time.Time
}

// New returns a Journal writing rows tagged with deviceID.
//
// Parameters:
//   - db: Open SQLite connection with the intercom_events migration applied
//   - deviceID: Identifier of this intercom, stored on every row
//
// Returns:
//   - *Journal: Ready for use; satisfies intercom.Recorder
func New(db *sql.DB, deviceID string) *Journal {
	return &Journal{db: db, deviceID: deviceID, now: time.Now}
}

// Record appends evt to the journal. A zero event time is replaced by now.
func (j *Journal) Record(ctx context.Context, evt intercom.Event) error {
	at := evt.Time
	if at.IsZero() {
		at = j.now()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO intercom_events (id, device_id, kind, source, detail, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		idPrefix+uuid.NewString(), j.deviceID,
		string(evt.Kind), string(evt.Source), evt.Detail,
		at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

// List returns entries matching filter, newest first, with the total count
// of matching rows for pagination.
func (j *Journal) List(ctx context.Context, filter Filter) (*ListResult, error) {
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	where, args := filter.where()

	var total int
	countQuery := "SELECT COUNT(*) FROM intercom_events" + where //nolint:gosec // where holds only ? placeholders
	if err := j.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting journal entries: %w", err)
	}

	query := "SELECT id, device_id, kind, source, detail, occurred_at FROM intercom_events" + //nolint:gosec // as above
		where + " ORDER BY occurred_at DESC, id LIMIT ? OFFSET ?"
	rows, err := j.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying journal entries: %w", err)
	}
	defer rows.Close()

	result := &ListResult{
		Entries: make([]Entry, 0, filter.Limit),
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}
	for rows.Next() {
		var (
			e      Entry
			kind   string
			source string
			millis int64
		)
		if err := rows.Scan(&e.ID, &e.DeviceID, &kind, &source, &e.Detail, &millis); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		e.Kind = intercom.EventKind(kind)
		e.Source = intercom.EventSource(source)
		e.OccurredAt = time.UnixMilli(millis).UTC()
		result.Entries = append(result.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal entries: %w", err)
	}
	return result, nil
}

// Prune deletes entries older than retention and reports how many went.
func (j *Journal) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := j.now().Add(-retention).UnixMilli()
	res, err := j.db.ExecContext(ctx, "DELETE FROM intercom_events WHERE occurred_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultListLimit
	case n > maxListLimit:
		return maxListLimit
	default:
		return n
	}
}

func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, string(f.Source))
	}
	if !f.Since.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.Since.UnixMilli())
	}
	if !f.Until.IsZero() {
		conds = append(conds, "occurred_at < ?")
		args = append(args, f.Until.UnixMilli())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
