package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizora/quizora-backend/internal/model"
)

var ErrDuplicateEmail = errors.New("proctor with this email already exists")

// ProctorRepository handles proctor account data access.
type ProctorRepository struct {
	pool *pgxpool.Pool
}

// NewProctorRepository creates a new ProctorRepository.
func NewProctorRepository(pool *pgxpool.Pool) *ProctorRepository {
	return &ProctorRepository{pool: pool}
}

// GetByID retrieves a proctor by ID.
func (r *ProctorRepository) GetByID(ctx context.Context, id int) (*model.Proctor, error) {
	p := &model.Proctor{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at
		 FROM proctors WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByEmail retrieves a proctor by their unique email.
func (r *ProctorRepository) GetByEmail(ctx context.Context, email string) (*model.Proctor, error) {
	p := &model.Proctor{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at
		 FROM proctors WHERE email = $1`, email,
	).Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new proctor.
func (r *ProctorRepository) Create(ctx context.Context, p *model.Proctor) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO proctors (name, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		p.Name, p.Email, p.PasswordHash,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}
