package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/realty-crm/internal/domain"
)

// ClientNoteRepository stores append-only client annotations.
type ClientNoteRepository interface {
	Create(ctx context.Context, note *domain.ClientNote) error
	ListByClient(ctx context.Context, clientID string) ([]domain.ClientNote, error)
}

type clientNoteRepository struct {
	pool *pgxpool.Pool
}

// NewClientNoteRepository instantiates repository.
func NewClientNoteRepository(pool *pgxpool.Pool) ClientNoteRepository {
	return &clientNoteRepository{pool: pool}
}

func (r *clientNoteRepository) Create(ctx context.Context, note *domain.ClientNote) error {
	const query = `
        INSERT INTO client_notes (client_id, user_id, user_name, note)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		note.ClientID,
		note.UserID,
		note.UserName,
		note.Note,
	).Scan(&note.ID, &note.CreatedAt)
}

func (r *clientNoteRepository) ListByClient(ctx context.Context, clientID string) ([]domain.ClientNote, error) {
	const query = `
        SELECT id, client_id, user_id, user_name, note, created_at
        FROM client_notes WHERE client_id=$1
        ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ClientNote
	for rows.Next() {
		var note domain.ClientNote
		if err := rows.Scan(
			&note.ID,
			&note.ClientID,
			&note.UserID,
			&note.UserName,
			&note.Note,
			&note.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}
