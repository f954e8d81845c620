package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"polls-service/internal/domain"
)

// SchemaLoader reads poll schemas straight from Postgres.
type SchemaLoader struct {
	pool *pgxpool.Pool
}

func NewSchemaLoader(pool *pgxpool.Pool) *SchemaLoader {
	return &SchemaLoader{pool: pool}
}

const schemaQuery = `
SELECT q.id, q.q_type, c.id
FROM questions q
LEFT JOIN choices c ON c.question_id = q.id
WHERE q.poll_id = $1
ORDER BY q.id, c.id`

func (l *SchemaLoader) LoadSchema(ctx context.Context, pollID int64) (domain.PollSchema, error) {
	var exists bool
	err := l.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM polls WHERE id = $1)`, pollID).Scan(&exists)
	if err != nil {
		return domain.PollSchema{}, fmt.Errorf("load poll: %w: %w", domain.ErrStorage, err)
	}
	if !exists {
		return domain.PollSchema{}, domain.ErrPollNotFound
	}

	rows, err := l.pool.Query(ctx, schemaQuery, pollID)
	if err != nil {
		return domain.PollSchema{}, fmt.Errorf("load schema: %w: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	schema := domain.PollSchema{PollID: pollID, Questions: []domain.SchemaQuestion{}}
	for rows.Next() {
		var (
			questionID int64
			qType      int
			choiceID   *int64
		)
		if err := rows.Scan(&questionID, &qType, &choiceID); err != nil {
			return domain.PollSchema{}, fmt.Errorf("scan schema: %w: %w", domain.ErrStorage, err)
		}
		n := len(schema.Questions)
		if n == 0 || schema.Questions[n-1].ID != questionID {
			schema.Questions = append(schema.Questions, domain.SchemaQuestion{
				ID:        questionID,
				Type:      domain.QuestionType(qType),
				ChoiceIDs: []int64{},
			})
			n++
		}
		if choiceID != nil {
			schema.Questions[n-1].ChoiceIDs = append(schema.Questions[n-1].ChoiceIDs, *choiceID)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.PollSchema{}, fmt.Errorf("read schema: %w: %w", domain.ErrStorage, err)
	}
	return schema, nil
}
