package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"modestanalytics/api/models"
)

type OwnerStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewOwnerStore(db *sqlx.DB, logger *zap.Logger) *OwnerStore {
	return &OwnerStore{db: db, logger: logger}
}

// Create inserts a new owner with a freshly minted tracking token.
func (s *OwnerStore) Create(ctx context.Context, email, token string) (*models.Owner, error) {
	owner := &models.Owner{}
	query := `
		INSERT INTO owners (email, token)
		VALUES ($1, $2)
		RETURNING id, email, token, verification_code, verification_code_expiry, created_at;
	`
	if err := s.db.GetContext(ctx, owner, query, email, token); err != nil {
		return nil, fmt.Errorf("failed to create owner: %w", err)
	}

	s.logger.Info("Owner created",
		zap.Int("owner_id", owner.ID),
		zap.String("email", owner.Email),
	)
	return owner, nil
}

func (s *OwnerStore) FindByEmail(ctx context.Context, email string) (*models.Owner, error) {
	owner := &models.Owner{}
	query := `
		SELECT id, email, token, verification_code, verification_code_expiry, created_at
		FROM owners
		WHERE email = $1;
	`
	if err := s.db.GetContext(ctx, owner, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrOwnerNotFound
		}
		return nil, fmt.Errorf("failed to get owner by email: %w", err)
	}
	return owner, nil
}

func (s *OwnerStore) FindByToken(ctx context.Context, token string) (*models.Owner, error) {
	owner := &models.Owner{}
	query := `
		SELECT id, email, token, verification_code, verification_code_expiry, created_at
		FROM owners
		WHERE token = $1;
	`
	if err := s.db.GetContext(ctx, owner, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrOwnerNotFound
		}
		return nil, fmt.Errorf("failed to get owner by token: %w", err)
	}
	return owner, nil
}

// SetVerification stores a pending verification code and its expiry,
// replacing any previous pending code.
func (s *OwnerStore) SetVerification(ctx context.Context, ownerID int, code string, expiry time.Time) error {
	query := `
		UPDATE owners
		SET verification_code = $2, verification_code_expiry = $3
		WHERE id = $1;
	`
	if _, err := s.db.ExecContext(ctx, query, ownerID, code, expiry); err != nil {
		return fmt.Errorf("failed to set verification code: %w", err)
	}
	return nil
}

// ClearVerification removes the pending code after a successful verify.
func (s *OwnerStore) ClearVerification(ctx context.Context, ownerID int) error {
	query := `
		UPDATE owners
		SET verification_code = NULL, verification_code_expiry = NULL
		WHERE id = $1;
	`
	if _, err := s.db.ExecContext(ctx, query, ownerID); err != nil {
		return fmt.Errorf("failed to clear verification code: %w", err)
	}
	return nil
}

func (s *OwnerStore) List(ctx context.Context) ([]models.Owner, error) {
	var owners []models.Owner
	query := `
		SELECT id, email, token, verification_code, verification_code_expiry, created_at
		FROM owners
		ORDER BY id;
	`
	if err := s.db.SelectContext(ctx, &owners, query); err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	return owners, nil
}
