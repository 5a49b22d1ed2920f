package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"SmartEnergy/internal/domain/models"
	domrepo "SmartEnergy/internal/domain/repository"
	"SmartEnergy/pkg/postgres"
)

// UserMigrations creates the users table.
var UserMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		phone         TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		eco_score     INTEGER,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS users_eco_score_idx ON users (eco_score DESC NULLS LAST)`,
}

const userColumns = `id, name, email, phone, password_hash, eco_score, created_at`

// PostgresUserStore implements UserStore on lib/pq.
type PostgresUserStore struct {
	client *postgres.Client
	db     *sql.DB
}

// NewPostgresUserStore creates a new PostgresUserStore.
func NewPostgresUserStore(client *postgres.Client) *PostgresUserStore {
	return &PostgresUserStore{client: client, db: client.DB()}
}

var _ domrepo.UserStore = (*PostgresUserStore)(nil)

// Init creates the users table if missing.
func (s *PostgresUserStore) Init(ctx context.Context) error {
	return s.client.Migrate(ctx, UserMigrations)
}

// Create inserts u, mapping unique violations to ErrDuplicateEmail.
func (s *PostgresUserStore) Create(ctx context.Context, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO users (id, name, email, phone, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.ExecContext(ctx, q, u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, u.CreatedAt)
	if postgres.IsUniqueViolation(err) {
		return domrepo.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u     models.User
		score sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &score, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domrepo.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if score.Valid {
		v := int(score.Int64)
		u.EcoScore = &v
	}
	return &u, nil
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PostgresUserStore) First(ctx context.Context) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC LIMIT 1`))
}

func (s *PostgresUserStore) UpdateEcoScore(ctx context.Context, id string, score int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET eco_score = $1 WHERE id = $2`, score, id)
	if err != nil {
		return fmt.Errorf("update eco score: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domrepo.ErrNotFound
	}
	return nil
}

// TopByEcoScore returns scored users ordered by eco score.
func (s *PostgresUserStore) TopByEcoScore(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	q := `SELECT name, email, eco_score FROM users WHERE eco_score IS NOT NULL ORDER BY eco_score DESC, created_at ASC`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("top eco scores: %w", err)
	}
	defer rows.Close()

	out := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.Email, &e.EcoScore); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresUserStore) Close() error {
	return s.client.Close()
}
