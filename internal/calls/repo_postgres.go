package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"baitboard/pkg/utils"
)

// Schema kept next to the repository that owns it; applied idempotently at
// startup. Segments cascade-delete with their parent call.
const schema = `
CREATE TABLE IF NOT EXISTS calls (
    id               UUID PRIMARY KEY,
    provider_call_id TEXT NOT NULL UNIQUE,
    from_number      TEXT NOT NULL DEFAULT '',
    to_number        TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL,
    duration_seconds INT,
    recording_url    TEXT NOT NULL DEFAULT '',
    transcript_sid   TEXT NOT NULL DEFAULT '',
    title            TEXT NOT NULL DEFAULT '',
    notes            TEXT NOT NULL DEFAULT '',
    rating           INT,
    tags             JSONB NOT NULL DEFAULT '[]',
    public           BOOLEAN NOT NULL DEFAULT FALSE,
    featured         BOOLEAN NOT NULL DEFAULT FALSE,
    persona_id       TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_calls_status ON calls (status);
CREATE INDEX IF NOT EXISTS idx_calls_created_at ON calls (created_at DESC);

CREATE TABLE IF NOT EXISTS call_segments (
    id             UUID PRIMARY KEY,
    call_id        UUID NOT NULL REFERENCES calls (id) ON DELETE CASCADE,
    speaker        TEXT NOT NULL,
    text           TEXT NOT NULL,
    offset_seconds INT NOT NULL DEFAULT 0,
    created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_call_segments_call_id ON call_segments (call_id);
`

// PostgresRepo implements Repository on database/sql over pgx.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// EnsureSchema applies the call store DDL. Safe to run on every start.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

const callColumns = `id, provider_call_id, from_number, to_number, status, duration_seconds,
recording_url, transcript_sid, title, notes, rating, tags, public, featured,
persona_id, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, c Call) error {
	const q = `
INSERT INTO calls (` + callColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
`
	tags, err := tagsJSON(c.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q,
		c.ID,
		c.ProviderCallID,
		c.FromNumber,
		c.ToNumber,
		c.Status,
		c.DurationSeconds,
		c.RecordingURL,
		c.TranscriptSID,
		c.Title,
		c.Notes,
		c.Rating,
		tags,
		c.Public,
		c.Featured,
		c.PersonaID,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Call, error) {
	const q = `SELECT ` + callColumns + ` FROM calls WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) GetByProviderCallID(ctx context.Context, providerCallID string) (Call, error) {
	const q = `SELECT ` + callColumns + ` FROM calls WHERE provider_call_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, providerCallID))
}

func (r *PostgresRepo) List(ctx context.Context, f ListFilter) ([]Call, int, error) {
	where, args := buildWhere(f)

	countQ := `SELECT COUNT(*) FROM calls` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + callColumns + ` FROM calls` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := r.scanOne(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, c Call) error {
	const q = `
UPDATE calls SET
  status = $2, duration_seconds = $3, recording_url = $4, transcript_sid = $5,
  title = $6, notes = $7, rating = $8, tags = $9, public = $10, featured = $11,
  persona_id = $12, updated_at = $13
WHERE id = $1
`
	tags, err := tagsJSON(c.Tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q,
		c.ID,
		c.Status,
		c.DurationSeconds,
		c.RecordingURL,
		c.TranscriptSID,
		c.Title,
		c.Notes,
		c.Rating,
		tags,
		c.Public,
		c.Featured,
		c.PersonaID,
		c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM calls WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddSegments writes a batch atomically: a webhook redelivery after a partial
// insert would otherwise duplicate the surviving rows.
func (r *PostgresRepo) AddSegments(ctx context.Context, segs []CallSegment) error {
	const q = `
INSERT INTO call_segments (id, call_id, speaker, text, offset_seconds, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		for _, s := range segs {
			if _, err := tx.ExecContext(ctx, q, s.ID, s.CallID, s.Speaker, s.Text, s.OffsetSeconds, s.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRepo) ListSegments(ctx context.Context, callID string) ([]CallSegment, error) {
	const q = `
SELECT id, call_id, speaker, text, offset_seconds, created_at
FROM call_segments
WHERE call_id = $1
ORDER BY offset_seconds ASC, created_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallSegment
	for rows.Next() {
		var s CallSegment
		if err := rows.Scan(&s.ID, &s.CallID, &s.Speaker, &s.Text, &s.OffsetSeconds, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepo) scanOne(row rowScanner) (Call, error) {
	var c Call
	var tags []byte
	err := row.Scan(
		&c.ID,
		&c.ProviderCallID,
		&c.FromNumber,
		&c.ToNumber,
		&c.Status,
		&c.DurationSeconds,
		&c.RecordingURL,
		&c.TranscriptSID,
		&c.Title,
		&c.Notes,
		&c.Rating,
		&tags,
		&c.Public,
		&c.Featured,
		&c.PersonaID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	if err != nil {
		return Call{}, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &c.Tags); err != nil {
			return Call{}, fmt.Errorf("decode tags: %w", err)
		}
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return c, nil
}

func buildWhere(f ListFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Public != nil {
		add("public = $%d", *f.Public)
	}
	if f.Featured != nil {
		add("featured = $%d", *f.Featured)
	}
	if f.PersonaID != "" {
		add("persona_id = $%d", f.PersonaID)
	}
	if f.Tag != "" {
		raw, _ := json.Marshal([]string{f.Tag})
		add("tags @> $%d", string(raw))
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		args = append(args, pattern)
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR notes ILIKE $%d OR from_number ILIKE $%d)", n, n, n))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func tagsJSON(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
