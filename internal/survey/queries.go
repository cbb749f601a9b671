package survey

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

type Survey struct {
	ID                       uuid.UUID
	Name                     string
	Description              string
	Slug                     string
	IsEditable               bool
	AllowMultipleSubmissions bool
	Published                bool
	CreatedBy                uuid.UUID
	RecipientEmails          []string
	AccessPassword           pgtype.Text
	CreatedAt                pgtype.Timestamptz
	UpdatedAt                pgtype.Timestamptz
}

const surveyColumns = `id, name, description, slug, is_editable, allow_multiple_submissions, published, created_by, recipient_emails, access_password, created_at, updated_at`

func scanSurvey(row pgx.Row) (Survey, error) {
	var s Survey
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Description,
		&s.Slug,
		&s.IsEditable,
		&s.AllowMultipleSubmissions,
		&s.Published,
		&s.CreatedBy,
		&s.RecipientEmails,
		&s.AccessPassword,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

const createSurvey = `
INSERT INTO surveys (name, description, slug, is_editable, allow_multiple_submissions, published, created_by, recipient_emails, access_password)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + surveyColumns

type CreateParams struct {
	Name                     string
	Description              string
	Slug                     string
	IsEditable               bool
	AllowMultipleSubmissions bool
	Published                bool
	CreatedBy                uuid.UUID
	RecipientEmails          []string
	AccessPassword           pgtype.Text
}

func (q *Queries) Create(ctx context.Context, arg CreateParams) (Survey, error) {
	row := q.db.QueryRow(ctx, createSurvey,
		arg.Name,
		arg.Description,
		arg.Slug,
		arg.IsEditable,
		arg.AllowMultipleSubmissions,
		arg.Published,
		arg.CreatedBy,
		arg.RecipientEmails,
		arg.AccessPassword,
	)
	return scanSurvey(row)
}

const updateSurvey = `
UPDATE surveys
SET name = $2,
    description = $3,
    slug = $4,
    allow_multiple_submissions = $5,
    recipient_emails = $6,
    access_password = $7,
    updated_at = now()
WHERE id = $1
RETURNING ` + surveyColumns

type UpdateParams struct {
	ID                       uuid.UUID
	Name                     string
	Description              string
	Slug                     string
	AllowMultipleSubmissions bool
	RecipientEmails          []string
	AccessPassword           pgtype.Text
}

func (q *Queries) Update(ctx context.Context, arg UpdateParams) (Survey, error) {
	row := q.db.QueryRow(ctx, updateSurvey,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Slug,
		arg.AllowMultipleSubmissions,
		arg.RecipientEmails,
		arg.AccessPassword,
	)
	return scanSurvey(row)
}

const setPublished = `
UPDATE surveys
SET published = TRUE, updated_at = now()
WHERE id = $1
RETURNING ` + surveyColumns

func (q *Queries) SetPublished(ctx context.Context, id uuid.UUID) (Survey, error) {
	return scanSurvey(q.db.QueryRow(ctx, setPublished, id))
}

const deleteSurvey = `
DELETE FROM surveys WHERE id = $1`

func (q *Queries) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteSurvey, id)
	return err
}

const getSurveyByID = `
SELECT ` + surveyColumns + ` FROM surveys WHERE id = $1`

func (q *Queries) GetByID(ctx context.Context, id uuid.UUID) (Survey, error) {
	return scanSurvey(q.db.QueryRow(ctx, getSurveyByID, id))
}

const getSurveyBySlug = `
SELECT ` + surveyColumns + ` FROM surveys WHERE slug = $1`

func (q *Queries) GetBySlug(ctx context.Context, slug string) (Survey, error) {
	return scanSurvey(q.db.QueryRow(ctx, getSurveyBySlug, slug))
}

const getIDBySlug = `
SELECT id FROM surveys WHERE slug = $1`

func (q *Queries) GetIDBySlug(ctx context.Context, slug string) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, getIDBySlug, slug).Scan(&id)
	return id, err
}

const listSurveys = `
SELECT ` + surveyColumns + ` FROM surveys ORDER BY created_at DESC`

func (q *Queries) List(ctx context.Context) ([]Survey, error) {
	rows, err := q.db.Query(ctx, listSurveys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Survey
	for rows.Next() {
		s, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
