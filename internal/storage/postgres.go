package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyssa-prince/student-progress-system/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const studentColumns = `
	id, name, email, phone, cf_handle,
	current_rating, max_rating, cf_rank, avatar, title_photo,
	contest_history, problem_stats, last_synced_at,
	reminder_count, reminder_disabled,
	created_at, updated_at
`

// CreateStudent creates a new student record
func (r *PostgresRepository) CreateStudent(ctx context.Context, st *models.Student) error {
	contestJSON, err := json.Marshal(st.ContestHistory)
	if err != nil {
		return fmt.Errorf("failed to marshal contest history: %w", err)
	}

	statsJSON, err := marshalStats(st.ProblemStats)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO students (id, name, email, phone, cf_handle,
			current_rating, max_rating, cf_rank, avatar, title_photo,
			contest_history, problem_stats, last_synced_at,
			reminder_count, reminder_disabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = r.pool.Exec(ctx, query,
		st.ID,
		st.Name,
		st.Email,
		nullString(st.Phone),
		nullString(st.Handle),
		st.CurrentRating,
		st.MaxRating,
		nullString(st.Rank),
		nullString(st.Avatar),
		nullString(st.TitlePhoto),
		contestJSON,
		statsJSON,
		nullTime(st.LastSyncedAt),
		st.ReminderCount,
		st.ReminderDisabled,
		st.CreatedAt,
		st.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// GetStudent retrieves a student by ID
func (r *PostgresRepository) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	st, err := scanStudent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	return st, nil
}

// UpdateStudent applies the mutable profile fields; empty fields keep their
// current value.
func (r *PostgresRepository) UpdateStudent(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.Student, error) {
	query := `
		UPDATE students
		SET name = COALESCE(NULLIF($2, ''), name),
		    email = COALESCE(NULLIF($3, ''), email),
		    phone = COALESCE(NULLIF($4, ''), phone),
		    cf_handle = COALESCE(NULLIF($5, ''), cf_handle),
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, req.Name, req.Email, req.Phone, req.Handle)
	if err != nil {
		return nil, fmt.Errorf("failed to update student: %w", err)
	}

	if result.RowsAffected() == 0 {
		return nil, ErrStudentNotFound
	}

	return r.GetStudent(ctx, id)
}

// DeleteStudent deletes a student by ID
func (r *PostgresRepository) DeleteStudent(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrStudentNotFound
	}

	return nil
}

// ListStudents returns students matching filters
func (r *PostgresRepository) ListStudents(ctx context.Context, filters models.ListFilters) ([]*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students ORDER BY created_at ASC`
	args := make([]interface{}, 0)
	argNum := 1

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []*models.Student

	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating students: %w", err)
	}

	return students, nil
}

// ApplySyncResult replaces all synced fields of a student in one statement.
// The single-row UPDATE is the atomic commit point of a sync: contest
// history, statistics, rating fields and the sync timestamp change together
// or not at all.
func (r *PostgresRepository) ApplySyncResult(ctx context.Context, id string, res *SyncResult) error {
	contestJSON, err := json.Marshal(res.ContestHistory)
	if err != nil {
		return fmt.Errorf("failed to marshal contest history: %w", err)
	}

	statsJSON, err := marshalStats(res.ProblemStats)
	if err != nil {
		return err
	}

	query := `
		UPDATE students
		SET current_rating = $2,
		    max_rating = $3,
		    cf_rank = $4,
		    avatar = $5,
		    title_photo = $6,
		    contest_history = $7,
		    problem_stats = $8,
		    last_synced_at = $9,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		id,
		res.CurrentRating,
		res.MaxRating,
		nullString(res.Rank),
		nullString(res.Avatar),
		nullString(res.TitlePhoto),
		contestJSON,
		statsJSON,
		res.SyncedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to apply sync result: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrStudentNotFound
	}

	return nil
}

// IncrementReminderCount bumps the reminder counter by exactly one.
func (r *PostgresRepository) IncrementReminderCount(ctx context.Context, id string) error {
	query := `UPDATE students SET reminder_count = reminder_count + 1, updated_at = NOW() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment reminder count: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrStudentNotFound
	}

	return nil
}

// SetReminderDisabled sets the reminder opt-out flag.
func (r *PostgresRepository) SetReminderDisabled(ctx context.Context, id string, disabled bool) error {
	query := `UPDATE students SET reminder_disabled = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, disabled)
	if err != nil {
		return fmt.Errorf("failed to set reminder flag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrStudentNotFound
	}

	return nil
}

// rowScanner covers pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStudent(row rowScanner) (*models.Student, error) {
	var st models.Student
	var phone, handle, rank, avatar, titlePhoto sql.NullString
	var lastSynced sql.NullTime
	var contestJSON, statsJSON []byte

	err := row.Scan(
		&st.ID,
		&st.Name,
		&st.Email,
		&phone,
		&handle,
		&st.CurrentRating,
		&st.MaxRating,
		&rank,
		&avatar,
		&titlePhoto,
		&contestJSON,
		&statsJSON,
		&lastSynced,
		&st.ReminderCount,
		&st.ReminderDisabled,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	st.Phone = phone.String
	st.Handle = handle.String
	st.Rank = rank.String
	st.Avatar = avatar.String
	st.TitlePhoto = titlePhoto.String

	if lastSynced.Valid {
		t := lastSynced.Time
		st.LastSyncedAt = &t
	}

	if contestJSON != nil {
		if err := json.Unmarshal(contestJSON, &st.ContestHistory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contest history: %w", err)
		}
	}

	if statsJSON != nil {
		var stats models.ProblemStats
		if err := json.Unmarshal(statsJSON, &stats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal problem stats: %w", err)
		}
		st.ProblemStats = &stats
	}

	return &st, nil
}

func marshalStats(stats *models.ProblemStats) ([]byte, error) {
	if stats == nil {
		return nil, nil
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal problem stats: %w", err)
	}
	return data, nil
}

// Helper functions for nullable values

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
