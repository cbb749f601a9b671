package response

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

// Response is one submission of a survey. RespondentID is null for
// anonymous submissions on surveys without an allow-list.
type Response struct {
	ID              uuid.UUID
	SurveyID        uuid.UUID
	RespondentID    pgtype.UUID
	RespondentEmail string
	CreatedAt       pgtype.Timestamptz
}

type Answer struct {
	ID         uuid.UUID
	ResponseID uuid.UUID
	QuestionID uuid.UUID
	Value      string
	CreatedAt  pgtype.Timestamptz
}

const responseColumns = `id, survey_id, respondent_id, respondent_email, created_at`

func scanResponse(row pgx.Row) (Response, error) {
	var r Response
	err := row.Scan(&r.ID, &r.SurveyID, &r.RespondentID, &r.RespondentEmail, &r.CreatedAt)
	return r, err
}

type CreateResponseParams struct {
	SurveyID        uuid.UUID
	RespondentID    pgtype.UUID
	RespondentEmail string
}

const createResponseQuery = `
INSERT INTO responses (survey_id, respondent_id, respondent_email)
VALUES ($1, $2, $3)
RETURNING ` + responseColumns

func (q *Queries) CreateResponse(ctx context.Context, arg CreateResponseParams) (Response, error) {
	row := q.db.QueryRow(ctx, createResponseQuery, arg.SurveyID, arg.RespondentID, arg.RespondentEmail)
	return scanResponse(row)
}

type CreateAnswerParams struct {
	ResponseID uuid.UUID
	QuestionID uuid.UUID
	Value      string
}

const createAnswerQuery = `
INSERT INTO answers (response_id, question_id, value)
VALUES ($1, $2, $3)
RETURNING id, response_id, question_id, value, created_at`

func (q *Queries) CreateAnswer(ctx context.Context, arg CreateAnswerParams) (Answer, error) {
	var a Answer
	err := q.db.QueryRow(ctx, createAnswerQuery, arg.ResponseID, arg.QuestionID, arg.Value).
		Scan(&a.ID, &a.ResponseID, &a.QuestionID, &a.Value, &a.CreatedAt)
	return a, err
}

const existsQuery = `
SELECT EXISTS (
	SELECT 1 FROM responses WHERE survey_id = $1 AND respondent_id = $2
)`

func (q *Queries) ExistsBySurveyAndRespondent(ctx context.Context, surveyID, respondentID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, existsQuery, surveyID, respondentID).Scan(&exists)
	return exists, err
}

const getQuery = `SELECT ` + responseColumns + ` FROM responses WHERE id = $1`

func (q *Queries) Get(ctx context.Context, id uuid.UUID) (Response, error) {
	return scanResponse(q.db.QueryRow(ctx, getQuery, id))
}

const listBySurveyIDQuery = `
SELECT ` + responseColumns + `
FROM responses
WHERE survey_id = $1
ORDER BY created_at`

func (q *Queries) ListBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]Response, error) {
	rows, err := q.db.Query(ctx, listBySurveyIDQuery, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResponses(rows)
}

const listBySurveyIDAndRespondentQuery = `
SELECT ` + responseColumns + `
FROM responses
WHERE survey_id = $1 AND respondent_id = $2
ORDER BY created_at`

func (q *Queries) ListBySurveyIDAndRespondent(ctx context.Context, surveyID, respondentID uuid.UUID) ([]Response, error) {
	rows, err := q.db.Query(ctx, listBySurveyIDAndRespondentQuery, surveyID, respondentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResponses(rows)
}

func collectResponses(rows pgx.Rows) ([]Response, error) {
	var items []Response
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listAnswersByResponseIDsQuery = `
SELECT id, response_id, question_id, value, created_at
FROM answers
WHERE response_id = ANY($1::uuid[])
ORDER BY created_at`

func (q *Queries) ListAnswersByResponseIDs(ctx context.Context, responseIDs []uuid.UUID) ([]Answer, error) {
	rows, err := q.db.Query(ctx, listAnswersByResponseIDsQuery, responseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Answer
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.ResponseID, &a.QuestionID, &a.Value, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const deleteQuery = `DELETE FROM responses WHERE id = $1`

// Delete removes a response; its answers go with it via FK cascade.
func (q *Queries) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteQuery, id)
	return err
}
