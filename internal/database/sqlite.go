package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type sqliteService struct {
	db   *sql.DB
	path string
}

var _ Service = (*sqliteService)(nil)

// NewSQLiteService opens (or creates) the database file at path.
func NewSQLiteService(path string) (Service, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; ":memory:" databases are per connection
	db.SetMaxOpenConns(1)

	s := &sqliteService{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *sqliteService) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        email TEXT NOT NULL UNIQUE,
        password_hash TEXT NOT NULL,
        saved_diet TEXT NOT NULL DEFAULT 'None',
        saved_allergies TEXT NOT NULL DEFAULT '[]',
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );
    `
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *sqliteService) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	stats := map[string]string{"driver": "sqlite"}
	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}
	var users int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&users); err == nil {
		stats["users"] = fmt.Sprint(users)
	}
	stats["status"] = "up"
	stats["open_connections"] = fmt.Sprint(s.db.Stats().OpenConnections)
	return stats
}

func (s *sqliteService) Close() {
	s.db.Close()
}

func (s *sqliteService) CreateUser(ctx context.Context, u *User) error {
	allergies, err := json.Marshal(nonNil(u.SavedAllergies))
	if err != nil {
		return fmt.Errorf("failed to encode allergies: %w", err)
	}
	now := time.Now().UTC()
	u.Email = NormalizeEmail(u.Email)

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO users (id, name, email, password_hash, saved_diet, saved_allergies, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `, u.ID, u.Name, u.Email, u.PasswordHash, u.SavedDiet, string(allergies), now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

const sqliteUserColumns = `id, name, email, password_hash, saved_diet, saved_allergies, created_at, updated_at`

func (s *sqliteService) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id)
	return scanSQLiteUser(row)
}

func (s *sqliteService) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE email = ?`, NormalizeEmail(email))
	return scanSQLiteUser(row)
}

func (s *sqliteService) UpdatePreferences(ctx context.Context, id, diet string, allergies []string) (*User, error) {
	encoded, err := json.Marshal(nonNil(allergies))
	if err != nil {
		return nil, fmt.Errorf("failed to encode allergies: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET saved_diet = ?, saved_allergies = ?, updated_at = ? WHERE id = ?`,
		diet, string(encoded), time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetUserByID(ctx, id)
}

func scanSQLiteUser(row *sql.Row) (*User, error) {
	var u User
	var allergies string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.SavedDiet, &allergies, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if err := json.Unmarshal([]byte(allergies), &u.SavedAllergies); err != nil {
		return nil, fmt.Errorf("failed to decode allergies: %w", err)
	}
	return &u, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
