package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLStore persists jobs in a sqlite/libsql database.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLStore)(nil)

// OpenSQL opens (and creates if needed) the job database and applies the
// schema.
//
// Notes:
// - Local file paths are created if parent directories do not exist.
// - For local DBs, WAL and busy_timeout are applied.
func OpenSQL(ctx context.Context, cfg SQLConfig) (*SQLStore, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLStore(db), nil
}

// NewSQLStore wraps an already-migrated database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const jobColumns = `id, avatar_video_path, demo_video_path, hook_text, hook_position, font_style,
	status, combined_video_path, error_message, created_at, updated_at`

func (s *SQLStore) Create(ctx context.Context, j *Job) error {
	if err := j.Validate(); err != nil {
		return err
	}
	createdAt := j.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	updatedAt := j.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO videos (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.AvatarPath, nullString(j.DemoPath), nullString(j.CaptionText),
		string(j.CaptionPosition), string(j.CaptionFont), string(j.Status),
		nullString(j.OutputReference), nullString(j.ErrorMessage),
		formatTime(createdAt), formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	j.CreatedAt, j.UpdatedAt = createdAt, updatedAt
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM videos WHERE id = ?`, strings.TrimSpace(id))
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *SQLStore) Update(ctx context.Context, id string, u Update) error {
	if err := u.Validate(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE videos
		SET status = ?, combined_video_path = ?, error_message = ?, updated_at = ?
		WHERE id = ?`,
		string(u.Status), nullString(u.OutputReference), nullString(u.ErrorMessage),
		formatTime(s.now()), strings.TrimSpace(id),
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete job rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, opts ListOptions) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM videos`
	var args []any
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	var demo, caption, output, errMsg sql.NullString
	var position, font, status, createdAt, updatedAt string
	if err := row.Scan(&j.ID, &j.AvatarPath, &demo, &caption, &position, &font,
		&status, &output, &errMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	j.DemoPath = demo.String
	j.CaptionText = caption.String
	j.CaptionPosition = CaptionPosition(position)
	j.CaptionFont = CaptionFont(font)
	j.Status = Status(status)
	j.OutputReference = output.String
	j.ErrorMessage = errMsg.String
	j.CreatedAt = parseTime(createdAt)
	j.UpdatedAt = parseTime(updatedAt)
	return &j, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// timeLayout is fixed-width so lexical order matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
