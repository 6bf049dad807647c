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

type PageviewStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPageviewStore(db *sqlx.DB, logger *zap.Logger) *PageviewStore {
	return &PageviewStore{db: db, logger: logger}
}

// Record inserts a pageview with dwell 0 and the given correlation
// token, stamped with the current UTC instant.
func (s *PageviewStore) Record(ctx context.Context, ownerID int, domain, path, referrer, token string) (*models.Pageview, error) {
	pv := &models.Pageview{}
	query := `
		INSERT INTO pageviews (owner_id, timestamp, domain, path, referrer, dwell_seconds, token)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		RETURNING id, owner_id, timestamp, domain, path, referrer, dwell_seconds, token;
	`
	now := time.Now().UTC()
	if err := s.db.GetContext(ctx, pv, query, ownerID, now, domain, path, referrer, token); err != nil {
		return nil, fmt.Errorf("failed to record pageview: %w", err)
	}

	s.logger.Debug("Pageview recorded",
		zap.Int("owner_id", ownerID),
		zap.String("domain", domain),
		zap.String("path", path),
	)
	return pv, nil
}

// UpdateDwell rewrites the dwell time of the pageview correlated by
// token. Every other field is immutable after Record.
func (s *PageviewStore) UpdateDwell(ctx context.Context, token string, dwellSeconds int) error {
	query := `
		UPDATE pageviews
		SET dwell_seconds = $2
		WHERE token = $1;
	`
	res, err := s.db.ExecContext(ctx, query, token, dwellSeconds)
	if err != nil {
		return fmt.Errorf("failed to update dwell time: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return models.ErrPageviewNotFound
	}
	return nil
}

func (s *PageviewStore) FindByToken(ctx context.Context, token string) (*models.Pageview, error) {
	pv := &models.Pageview{}
	query := `
		SELECT id, owner_id, timestamp, domain, path, referrer, dwell_seconds, token
		FROM pageviews
		WHERE token = $1;
	`
	if err := s.db.GetContext(ctx, pv, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrPageviewNotFound
		}
		return nil, fmt.Errorf("failed to get pageview by token: %w", err)
	}
	return pv, nil
}

// QueryWindow returns one owner's pageviews with start <= timestamp < end,
// oldest first.
func (s *PageviewStore) QueryWindow(ctx context.Context, ownerID int, start, end time.Time) ([]models.Pageview, error) {
	var views []models.Pageview
	query := `
		SELECT id, owner_id, timestamp, domain, path, referrer, dwell_seconds, token
		FROM pageviews
		WHERE owner_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp, id;
	`
	if err := s.db.SelectContext(ctx, &views, query, ownerID, start, end); err != nil {
		return nil, fmt.Errorf("failed to query pageviews: %w", err)
	}
	return views, nil
}
