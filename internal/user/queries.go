package user

import (
	"context"

	"surveyhub/survey-backend/internal"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Role      internal.Role
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

const userColumns = `id, email, name, role, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

type UpsertParams struct {
	Email string
	Name  string
	Role  internal.Role
}

const upsertQuery = `
INSERT INTO users (email, name, role)
VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE
SET name = EXCLUDED.name, role = EXCLUDED.role, updated_at = now()
RETURNING ` + userColumns

func (q *Queries) Upsert(ctx context.Context, arg UpsertParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, upsertQuery, arg.Email, arg.Name, arg.Role))
}

const getByIDQuery = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getByIDQuery, id))
}
