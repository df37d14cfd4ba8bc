package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/realty-crm/internal/domain"
)

// ClientFilter captures client listing parameters. Visibility narrowing is
// applied by the caller over the fetched snapshot; this filter only expresses
// the explicit list controls (search box, agent dropdown, stage column).
type ClientFilter struct {
	OwnerID    *string
	Stage      *domain.FunnelStage
	SearchTerm *string
}

// ClientRepository encapsulates client persistence.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	Update(ctx context.Context, client *domain.Client) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	List(ctx context.Context, filter ClientFilter) ([]domain.Client, error)
}

type clientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository instantiates repository.
func NewClientRepository(pool *pgxpool.Pool) ClientRepository {
	return &clientRepository{pool: pool}
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	const query = `
        INSERT INTO clients (full_name, phone, email, funnel_status, notes, user_id, property_of_interest_id, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		client.FullName,
		client.Phone,
		client.Email,
		client.FunnelStatus,
		client.Notes,
		client.UserID,
		client.PropertyOfInterestID,
		client.ClosedAt,
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
}

func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	const query = `
        UPDATE clients SET full_name=$1, phone=$2, email=$3, funnel_status=$4, notes=$5,
            user_id=$6, property_of_interest_id=$7, closed_at=$8, updated_at=$9
        WHERE id=$10`
	cmd, err := r.pool.Exec(ctx, query,
		client.FullName,
		client.Phone,
		client.Email,
		client.FunnelStatus,
		client.Notes,
		client.UserID,
		client.PropertyOfInterestID,
		client.ClosedAt,
		client.UpdatedAt,
		client.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *clientRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *clientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	const query = `
        SELECT id, full_name, phone, email, funnel_status, notes, user_id,
               property_of_interest_id, closed_at, created_at, updated_at
        FROM clients WHERE id=$1`

	var client domain.Client
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&client.ID,
		&client.FullName,
		&client.Phone,
		&client.Email,
		&client.FunnelStatus,
		&client.Notes,
		&client.UserID,
		&client.PropertyOfInterestID,
		&client.ClosedAt,
		&client.CreatedAt,
		&client.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context, filter ClientFilter) ([]domain.Client, error) {
	base := `SELECT id, full_name, phone, email, funnel_status, notes, user_id,
                    property_of_interest_id, closed_at, created_at, updated_at
             FROM clients`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.Stage != nil {
		args = append(args, *filter.Stage)
		clauses = append(clauses, fmt.Sprintf("funnel_status=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(full_name) LIKE %s OR LOWER(COALESCE(email, '')) LIKE %s OR COALESCE(phone, '') LIKE %s)", placeholder, placeholder, placeholder))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC`, base, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClients(rows)
}

func scanClients(rows pgx.Rows) ([]domain.Client, error) {
	var result []domain.Client
	for rows.Next() {
		var client domain.Client
		if err := rows.Scan(
			&client.ID,
			&client.FullName,
			&client.Phone,
			&client.Email,
			&client.FunnelStatus,
			&client.Notes,
			&client.UserID,
			&client.PropertyOfInterestID,
			&client.ClosedAt,
			&client.CreatedAt,
			&client.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, client)
	}
	return result, rows.Err()
}
