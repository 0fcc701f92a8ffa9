package repository

import (
	"context"
	"errors"
	"time"

	"github.com/contactlearncert-blip/prospection/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgProspectRepository is the PostgreSQL implementation of ProspectRepository.
type PgProspectRepository struct {
	pool *pgxpool.Pool
}

// NewPgProspectRepository creates a PgProspectRepository backed by the given pool.
func NewPgProspectRepository(pool *pgxpool.Pool) *PgProspectRepository {
	return &PgProspectRepository{pool: pool}
}

// Ensure PgProspectRepository implements ProspectRepository at compile time.
var _ ProspectRepository = (*PgProspectRepository)(nil)

const prospectSelectCols = `id, user_id, name, company, industry, location,
	email, COALESCE(phone, ''), website, online_presence, avatar,
	status, last_contacted, created_at, updated_at`

func scanProspect(scan func(...any) error) (*model.Prospect, error) {
	var p model.Prospect
	if err := scan(
		&p.ID, &p.UserID, &p.Name, &p.Company, &p.Industry, &p.Location,
		&p.Contact.Email, &p.Contact.Phone, &p.Contact.Website, &p.OnlinePresence, &p.Avatar,
		&p.Status, &p.LastContacted, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a prospect. The caller assigns p.ID; timestamps come from
// the RETURNING clause.
func (r *PgProspectRepository) Create(ctx context.Context, p *model.Prospect) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO prospects (id, user_id, name, company, industry, location,
		                        email, phone, website, online_presence, avatar,
		                        status, last_contacted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12, $13)
		 RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.Name, p.Company, p.Industry, p.Location,
		p.Contact.Email, p.Contact.Phone, p.Contact.Website, p.OnlinePresence, p.Avatar,
		p.Status, p.LastContacted,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

// FindByID returns one prospect of the user.
func (r *PgProspectRepository) FindByID(ctx context.Context, userID, id string) (*model.Prospect, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+prospectSelectCols+` FROM prospects WHERE id = $1 AND user_id = $2`, id, userID)
	p, err := scanProspect(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// ListByUser returns all prospects of the user in creation order.
func (r *PgProspectRepository) ListByUser(ctx context.Context, userID string) ([]*model.Prospect, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+prospectSelectCols+` FROM prospects WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prospects []*model.Prospect
	for rows.Next() {
		p, err := scanProspect(rows.Scan)
		if err != nil {
			return nil, err
		}
		prospects = append(prospects, p)
	}
	return prospects, rows.Err()
}

// UpdateStatus writes status and last_contacted in one statement.
func (r *PgProspectRepository) UpdateStatus(ctx context.Context, userID, id string, status model.Status, at time.Time) (*model.Prospect, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE prospects SET status = $1, last_contacted = $2, updated_at = NOW()
		 WHERE id = $3 AND user_id = $4
		 RETURNING `+prospectSelectCols,
		status, at, id, userID)
	p, err := scanProspect(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}
