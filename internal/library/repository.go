package library

import (
	"context"
	"database/sql"
	"time"

	"github.com/scribesearch/scribe-agent/internal/backend"
)

type Repository interface {
	UpsertMedia(ctx context.Context, rec *MediaRecord) error
	GetMedia(ctx context.Context, id string) (*MediaRecord, error)
	ListMedia(ctx context.Context) ([]*MediaRecord, error)
	CountMedia(ctx context.Context) (int, error)
	UpdateMediaStatus(ctx context.Context, id string, status backend.MediaStatus) error
	DeleteMediaNotIn(ctx context.Context, ids []string) error

	SaveSearch(ctx context.Context, rec *SearchRecord) error
	ListSearches(ctx context.Context, limit int) ([]*SearchRecord, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// UpsertMedia inserts or refreshes one mirror row. An empty incoming model
// keeps the stored value; the backend media list does not carry the model.
func (r *SQLiteRepository) UpsertMedia(ctx context.Context, m *MediaRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media (id, file_name, content_type, file_size_bytes, status, duration_seconds, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_name = excluded.file_name,
			content_type = excluded.content_type,
			file_size_bytes = excluded.file_size_bytes,
			status = excluded.status,
			duration_seconds = excluded.duration_seconds,
			model = CASE WHEN excluded.model = '' THEN media.model ELSE excluded.model END,
			updated_at = excluded.updated_at
	`, m.ID, m.FileName, m.ContentType, m.FileSizeBytes, string(m.Status), nullFloat(m.DurationSeconds),
		m.Model, m.CreatedAt.Format(time.RFC3339), m.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetMedia(ctx context.Context, id string) (*MediaRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, file_name, content_type, file_size_bytes, status, duration_seconds, model, created_at, updated_at
		FROM media WHERE id = ?
	`, id)
	return scanMedia(row.Scan)
}

func (r *SQLiteRepository) ListMedia(ctx context.Context) ([]*MediaRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, file_name, content_type, file_size_bytes, status, duration_seconds, model, created_at, updated_at
		FROM media ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*MediaRecord
	for rows.Next() {
		rec, err := scanMedia(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *SQLiteRepository) CountMedia(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) UpdateMediaStatus(ctx context.Context, id string, status backend.MediaStatus) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE media SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now().Format(time.RFC3339), id)
	return err
}

// DeleteMediaNotIn removes rows absent from ids; the mirror is replaced
// wholesale on every sync.
func (r *SQLiteRepository) DeleteMediaNotIn(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		_, err := r.db.ExecContext(ctx, "DELETE FROM media")
		return err
	}

	placeholders := make([]byte, 0, len(ids)*2)
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, id)
	}

	_, err := r.db.ExecContext(ctx,
		"DELETE FROM media WHERE id NOT IN ("+string(placeholders)+")", args...)
	return err
}

func scanMedia(scan func(dest ...interface{}) error) (*MediaRecord, error) {
	var m MediaRecord
	var status string
	var duration sql.NullFloat64
	var createdAt, updatedAt string

	err := scan(&m.ID, &m.FileName, &m.ContentType, &m.FileSizeBytes, &status, &duration, &m.Model, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	m.Status = backend.MediaStatus(status)
	if duration.Valid {
		m.DurationSeconds = &duration.Float64
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &m, nil
}

func (r *SQLiteRepository) SaveSearch(ctx context.Context, rec *SearchRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO searches (id, question, request_json, answer, source_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Question, rec.RequestJSON, rec.Answer, rec.SourceCount, rec.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) ListSearches(ctx context.Context, limit int) ([]*SearchRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, question, request_json, answer, source_count, created_at
		FROM searches ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*SearchRecord
	for rows.Next() {
		var rec SearchRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Question, &rec.RequestJSON, &rec.Answer, &rec.SourceCount, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
