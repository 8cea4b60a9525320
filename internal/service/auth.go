package service

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"comanda/internal/model"
)

type AuthService struct {
	db *sql.DB
}

func NewAuthService(db *sql.DB) *AuthService {
	return &AuthService{db: db}
}

func (s *AuthService) Register(ctx context.Context, login, password string) (*model.Staff, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	query := `INSERT INTO staff (login, password_hash) VALUES ($1, $2) RETURNING id, login, created_at`
	row := s.db.QueryRowContext(ctx, query, login, hash)

	var staff model.Staff
	if err := row.Scan(&staff.ID, &staff.Login, &staff.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrLoginTaken
		}
		return nil, fmt.Errorf("insert staff: %w", err)
	}
	staff.PasswordHash = hash

	return &staff, nil
}

func (s *AuthService) Authenticate(ctx context.Context, login, password string) (*model.Staff, error) {
	query := `SELECT id, login, password_hash, created_at FROM staff WHERE login = $1`
	row := s.db.QueryRowContext(ctx, query, login)

	var staff model.Staff
	if err := row.Scan(&staff.ID, &staff.Login, &staff.PasswordHash, &staff.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get staff: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(staff.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &staff, nil
}
