package question

import (
	"context"

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

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

type Question struct {
	ID           uuid.UUID
	SurveyID     uuid.UUID
	Label        string
	FieldType    FieldType
	Choices      []string
	IsRequired   bool
	DisplayOrder int32
	Dimension    string
	Area         string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

const questionColumns = `id, survey_id, label, field_type, choices, is_required, display_order, dimension, area, created_at, updated_at`

func scanQuestion(row pgx.Row) (Question, error) {
	var i Question
	err := row.Scan(
		&i.ID,
		&i.SurveyID,
		&i.Label,
		&i.FieldType,
		&i.Choices,
		&i.IsRequired,
		&i.DisplayOrder,
		&i.Dimension,
		&i.Area,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type CreateParams struct {
	SurveyID     uuid.UUID
	Label        string
	FieldType    FieldType
	Choices      []string
	IsRequired   bool
	DisplayOrder int32
	Dimension    string
	Area         string
}

const createQuery = `
INSERT INTO questions (survey_id, label, field_type, choices, is_required, display_order, dimension, area)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + questionColumns

func (q *Queries) Create(ctx context.Context, arg CreateParams) (Question, error) {
	row := q.db.QueryRow(ctx, createQuery,
		arg.SurveyID,
		arg.Label,
		arg.FieldType,
		arg.Choices,
		arg.IsRequired,
		arg.DisplayOrder,
		arg.Dimension,
		arg.Area,
	)
	return scanQuestion(row)
}

type UpdateParams struct {
	ID           uuid.UUID
	Label        string
	FieldType    FieldType
	Choices      []string
	IsRequired   bool
	DisplayOrder int32
	Dimension    string
	Area         string
}

const updateQuery = `
UPDATE questions
SET label = $2, field_type = $3, choices = $4, is_required = $5, display_order = $6, dimension = $7, area = $8, updated_at = now()
WHERE id = $1
RETURNING ` + questionColumns

func (q *Queries) Update(ctx context.Context, arg UpdateParams) (Question, error) {
	row := q.db.QueryRow(ctx, updateQuery,
		arg.ID,
		arg.Label,
		arg.FieldType,
		arg.Choices,
		arg.IsRequired,
		arg.DisplayOrder,
		arg.Dimension,
		arg.Area,
	)
	return scanQuestion(row)
}

const shiftOrderQuery = `
UPDATE questions
SET display_order = display_order + 1, updated_at = now()
WHERE survey_id = $1 AND display_order >= $2 AND id <> $3`

// ShiftOrderFrom opens a slot at the given position by pushing later
// questions down one place.
func (q *Queries) ShiftOrderFrom(ctx context.Context, surveyID uuid.UUID, from int32, exclude uuid.UUID) error {
	_, err := q.db.Exec(ctx, shiftOrderQuery, surveyID, from, exclude)
	return err
}

const deleteQuery = `DELETE FROM questions WHERE id = $1`

func (q *Queries) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteQuery, id)
	return err
}

const getByIDQuery = `SELECT ` + questionColumns + ` FROM questions WHERE id = $1`

func (q *Queries) GetByID(ctx context.Context, id uuid.UUID) (Question, error) {
	return scanQuestion(q.db.QueryRow(ctx, getByIDQuery, id))
}

const listBySurveyIDQuery = `
SELECT ` + questionColumns + `
FROM questions
WHERE survey_id = $1
ORDER BY display_order, created_at`

func (q *Queries) ListBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]Question, error) {
	rows, err := q.db.Query(ctx, listBySurveyIDQuery, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Question
	for rows.Next() {
		i, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countBySurveyIDQuery = `SELECT count(*) FROM questions WHERE survey_id = $1`

func (q *Queries) CountBySurveyID(ctx context.Context, surveyID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countBySurveyIDQuery, surveyID).Scan(&count)
	return count, err
}
