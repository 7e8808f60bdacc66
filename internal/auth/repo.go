package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"nombre"`
	Email        string    `json:"email"`
	Role         Role      `json:"rol"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"creado"`
}

type UserRepo struct{ DB *pgxpool.Pool }

func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash string, role Role) (User, error) {
	u := User{ID: uuid.NewString(), Name: name, Email: email, Role: role, PasswordHash: passwordHash}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO users(id, name, email, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`, u.ID, u.Name, u.Email, u.Role, u.PasswordHash).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, email, role, password_hash, created_at
		FROM users WHERE email=$1`, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

// EnsureAdmin creates the bootstrap admin account if the email is free. An
// existing account is promoted to admin but its password is left alone.
func (r *UserRepo) EnsureAdmin(ctx context.Context, email, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO users(id, name, email, role, password_hash)
		VALUES ($1, 'Administrador', $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role`,
		uuid.NewString(), email, RoleAdmin, hash)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	return nil
}
