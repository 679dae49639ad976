package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type postgresService struct {
	Dbpool *pgxpool.Pool
}

var _ Service = (*postgresService)(nil)

// NewPostgresService connects a pgx pool and makes sure the users table exists.
func NewPostgresService(ctx context.Context, connStr string) (Service, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	_, err = pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            saved_diet TEXT NOT NULL DEFAULT 'None',
            saved_allergies TEXT[] NOT NULL DEFAULT '{}',
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &postgresService{Dbpool: pool}, nil
}

// Health checks the health of the database connection.
func (s *postgresService) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := map[string]string{"driver": "postgres"}

	if err := s.Dbpool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		log.Error().Err(err).Msg("db down")
		return stats
	}

	poolStats := s.Dbpool.Stat()
	stats["status"] = "up"
	stats["total_conns"] = strconv.Itoa(int(poolStats.TotalConns()))
	stats["idle_conns"] = strconv.Itoa(int(poolStats.IdleConns()))
	stats["acquired_conns"] = strconv.Itoa(int(poolStats.AcquiredConns()))
	stats["max_conns"] = strconv.Itoa(int(poolStats.MaxConns()))
	stats["acquire_count"] = strconv.FormatInt(poolStats.AcquireCount(), 10)
	stats["acquire_duration_ms"] = strconv.FormatInt(poolStats.AcquireDuration().Milliseconds(), 10)
	stats["empty_acquire_count"] = strconv.FormatInt(poolStats.EmptyAcquireCount(), 10)

	if poolStats.AcquiredConns() > (poolStats.MaxConns() * 8 / 10) { // 80% capacity
		stats["message"] = "The database connection pool is experiencing heavy load."
	}
	if poolStats.EmptyAcquireCount() > 0 {
		stats["message"] = "The application has tried to acquire a connection from an empty pool. Consider increasing max connections."
	}
	return stats
}

func (s *postgresService) Close() {
	log.Info().Msg("disconnected from database")
	s.Dbpool.Close()
}

func (s *postgresService) CreateUser(ctx context.Context, u *User) error {
	u.Email = NormalizeEmail(u.Email)
	err := s.Dbpool.QueryRow(ctx, `
        INSERT INTO users (id, name, email, password_hash, saved_diet, saved_allergies)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.SavedDiet, nonNil(u.SavedAllergies),
	).Scan(&u.CreatedAt, &u.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const pgUserColumns = `id, name, email, password_hash, saved_diet, saved_allergies, created_at, updated_at`

func (s *postgresService) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.queryUser(ctx, `SELECT `+pgUserColumns+` FROM users WHERE id = $1`, id)
}

func (s *postgresService) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.queryUser(ctx, `SELECT `+pgUserColumns+` FROM users WHERE email = $1`, NormalizeEmail(email))
}

func (s *postgresService) UpdatePreferences(ctx context.Context, id, diet string, allergies []string) (*User, error) {
	return s.queryUser(ctx, `
        UPDATE users SET saved_diet = $2, saved_allergies = $3, updated_at = now()
        WHERE id = $1
        RETURNING `+pgUserColumns, id, diet, nonNil(allergies))
}

func (s *postgresService) queryUser(ctx context.Context, query string, args ...any) (*User, error) {
	var u User
	err := s.Dbpool.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.SavedDiet, &u.SavedAllergies, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}
