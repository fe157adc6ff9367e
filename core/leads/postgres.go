package leads

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/hmbot/core/logger"
)

const component = "leads"

const (
	insertRequest = `INSERT INTO policy_requests
    (id, sender_id, full_name, national_id, birth_date, insurance_type, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`

	selectRecent = `SELECT id, sender_id, full_name, national_id, birth_date, insurance_type, created_at
FROM policy_requests
ORDER BY created_at DESC
LIMIT $1`

	defaultListLimit = 50
)

// PostgresRepository stores requests in the policy_requests table.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository wraps db.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save implements Repository. Saving the same id twice is a no-op.
func (p *PostgresRepository) Save(ctx context.Context, r Request) error {
	if err := r.Validate(); err != nil {
		return err
	}
	start := time.Now()
	_, err := p.db.ExecContext(ctx, insertRequest,
		r.ID, r.SenderID, r.FullName, r.NationalID, r.BirthDate, r.InsuranceType, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("leads: insert request: %w", err)
	}
	logger.Debug(ctx, component, "request.saved",
		slog.String("id", r.ID.String()),
		slog.String("sender", r.SenderID),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// ListRecent returns up to limit requests, newest first. limit <= 0 selects 50.
func (p *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]Request, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var out []Request
	if err := p.db.SelectContext(ctx, &out, selectRecent, limit); err != nil {
		return nil, fmt.Errorf("leads: list recent: %w", err)
	}
	return out, nil
}
