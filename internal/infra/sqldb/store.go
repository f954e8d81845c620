package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"polls-service/internal/app"
	"polls-service/internal/domain"
)

// maxTxAttempts bounds how often a transaction that lost a serialization
// conflict is re-run.
const maxTxAttempts = 5

// Store implements app.Store on top of bun.
type Store struct {
	*queries
	db        *bun.DB
	txOpts    *sql.TxOptions
	retryable func(error) bool
	backoff   time.Duration
}

var _ app.Store = (*Store)(nil)

// NewStore wraps db. On Postgres, transactions run SERIALIZABLE so that two
// concurrent submissions for the same user and poll cannot both commit.
func NewStore(db *bun.DB) *Store {
	var opts *sql.TxOptions
	if db.Dialect().Name() == dialect.PG {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return &Store{
		queries:   &queries{db: db},
		db:        db,
		txOpts:    opts,
		retryable: isSerializationFailure,
		backoff:   10 * time.Millisecond,
	}
}

// RunInTx runs fn in a transaction. Serialization failures re-run fn from
// scratch, up to maxTxAttempts times; fn must not keep state across attempts.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, q app.Queries) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.db.RunInTx(ctx, s.txOpts, func(ctx context.Context, tx bun.Tx) error {
			return fn(ctx, &queries{db: tx})
		})
		if err == nil || !s.retryable(err) || attempt == maxTxAttempts {
			break
		}
		slog.Warn("transaction conflict, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return storageError("transaction", ctx.Err())
		case <-time.After(time.Duration(attempt) * s.backoff):
		}
	}
	if err == nil {
		return nil
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrStorage) {
		return err
	}
	return storageError("transaction", err)
}

func (s *Store) ListPolls(ctx context.Context) ([]domain.Poll, error) {
	var rows []*pollRow
	err := s.db.NewSelect().
		Model(&rows).
		Relation("Questions", orderByID).
		Relation("Questions.Choices", orderByID).
		OrderExpr("p.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, storageError("list polls", err)
	}
	polls := make([]domain.Poll, 0, len(rows))
	for _, r := range rows {
		polls = append(polls, r.toDomain())
	}
	return polls, nil
}

func (s *Store) ListAnswerRecords(ctx context.Context, userID int64) ([]domain.AnswerRecord, error) {
	var rows []*answerRow
	err := s.db.NewSelect().
		Model(&rows).
		Relation("Poll").
		Relation("Question").
		Relation("Choice").
		Where("a.user_id = ?", userID).
		OrderExpr("a.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, storageError("list answers", err)
	}
	records := make([]domain.AnswerRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toRecord())
	}
	return records, nil
}

// LoadSchema implements app.SchemaLoader.
func (s *Store) LoadSchema(ctx context.Context, pollID int64) (domain.PollSchema, error) {
	poll, err := s.GetPoll(ctx, pollID)
	if err != nil {
		return domain.PollSchema{}, err
	}
	return domain.SchemaOf(poll), nil
}

// queries runs against either the database or an open transaction.
type queries struct {
	db bun.IDB
}

func orderByID(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("?TableAlias.id ASC")
}

func (q *queries) GetPoll(ctx context.Context, pollID int64) (domain.Poll, error) {
	row := new(pollRow)
	err := q.db.NewSelect().
		Model(row).
		Relation("Questions", orderByID).
		Relation("Questions.Choices", orderByID).
		Where("p.id = ?", pollID).
		Scan(ctx)
	if err != nil {
		return domain.Poll{}, notFoundOr(err, domain.ErrPollNotFound, "get poll")
	}
	return row.toDomain(), nil
}

func (q *queries) CreatePoll(ctx context.Context, poll *domain.Poll) error {
	row := &pollRow{
		Title:       poll.Title,
		Description: poll.Description,
		StartDate:   poll.StartDate,
		EndDate:     poll.EndDate,
	}
	if _, err := q.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return storageError("create poll", err)
	}
	poll.ID = row.ID
	return nil
}

func (q *queries) UpdatePoll(ctx context.Context, poll domain.Poll) error {
	row := &pollRow{
		ID:          poll.ID,
		Title:       poll.Title,
		Description: poll.Description,
		StartDate:   poll.StartDate,
		EndDate:     poll.EndDate,
	}
	res, err := q.db.NewUpdate().Model(row).Column("title", "description", "end_date").WherePK().Exec(ctx)
	if err != nil {
		return storageError("update poll", err)
	}
	return affectedOr(res, domain.ErrPollNotFound, "update poll")
}

func (q *queries) DeletePoll(ctx context.Context, pollID int64) error {
	res, err := q.db.NewDelete().Model((*pollRow)(nil)).Where("id = ?", pollID).Exec(ctx)
	if err != nil {
		return storageError("delete poll", err)
	}
	return affectedOr(res, domain.ErrPollNotFound, "delete poll")
}

func (q *queries) ListQuestions(ctx context.Context, pollID int64) ([]domain.Question, error) {
	var rows []*questionRow
	err := q.db.NewSelect().
		Model(&rows).
		Relation("Choices", orderByID).
		Where("q.poll_id = ?", pollID).
		OrderExpr("q.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, storageError("list questions", err)
	}
	questions := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, r.toDomain())
	}
	return questions, nil
}

func (q *queries) GetQuestion(ctx context.Context, pollID, questionID int64) (domain.Question, error) {
	row := new(questionRow)
	err := q.db.NewSelect().
		Model(row).
		Relation("Choices", orderByID).
		Where("q.id = ?", questionID).
		Where("q.poll_id = ?", pollID).
		Scan(ctx)
	if err != nil {
		return domain.Question{}, notFoundOr(err, domain.ErrQuestionNotFound, "get question")
	}
	return row.toDomain(), nil
}

func (q *queries) CreateQuestion(ctx context.Context, question *domain.Question) error {
	row := &questionRow{PollID: question.PollID, Text: question.Text, QType: int(question.Type)}
	if _, err := q.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return storageError("create question", err)
	}
	question.ID = row.ID
	return nil
}

func (q *queries) UpdateQuestion(ctx context.Context, question domain.Question) error {
	row := &questionRow{ID: question.ID, PollID: question.PollID, Text: question.Text, QType: int(question.Type)}
	res, err := q.db.NewUpdate().Model(row).Column("text", "q_type").WherePK().Exec(ctx)
	if err != nil {
		return storageError("update question", err)
	}
	return affectedOr(res, domain.ErrQuestionNotFound, "update question")
}

func (q *queries) DeleteQuestion(ctx context.Context, pollID, questionID int64) error {
	res, err := q.db.NewDelete().
		Model((*questionRow)(nil)).
		Where("id = ?", questionID).
		Where("poll_id = ?", pollID).
		Exec(ctx)
	if err != nil {
		return storageError("delete question", err)
	}
	return affectedOr(res, domain.ErrQuestionNotFound, "delete question")
}

func (q *queries) GetChoice(ctx context.Context, choiceID int64) (domain.Choice, error) {
	row := new(choiceRow)
	if err := q.db.NewSelect().Model(row).Where("c.id = ?", choiceID).Scan(ctx); err != nil {
		return domain.Choice{}, notFoundOr(err, domain.ErrChoiceNotFound, "get choice")
	}
	return row.toDomain(), nil
}

func (q *queries) CountChoices(ctx context.Context, questionID int64) (int, error) {
	n, err := q.db.NewSelect().Model((*choiceRow)(nil)).Where("c.question_id = ?", questionID).Count(ctx)
	if err != nil {
		return 0, storageError("count choices", err)
	}
	return n, nil
}

// CreateChoices inserts one row per choice, in order, so ids follow insertion order.
func (q *queries) CreateChoices(ctx context.Context, choices []domain.Choice) ([]domain.Choice, error) {
	created := make([]domain.Choice, 0, len(choices))
	for _, c := range choices {
		row := &choiceRow{QuestionID: c.QuestionID, Text: c.Text}
		if _, err := q.db.NewInsert().Model(row).Exec(ctx); err != nil {
			return nil, storageError("create choice", err)
		}
		created = append(created, row.toDomain())
	}
	return created, nil
}

func (q *queries) DeleteChoices(ctx context.Context, questionID int64) error {
	if _, err := q.db.NewDelete().Model((*choiceRow)(nil)).Where("question_id = ?", questionID).Exec(ctx); err != nil {
		return storageError("delete choices", err)
	}
	return nil
}

func (q *queries) HasAnswered(ctx context.Context, userID, pollID int64) (bool, error) {
	exists, err := q.db.NewSelect().
		Model((*answerRow)(nil)).
		Where("a.user_id = ?", userID).
		Where("a.poll_id = ?", pollID).
		Exists(ctx)
	if err != nil {
		return false, storageError("check answers", err)
	}
	return exists, nil
}

func (q *queries) CreateAnswers(ctx context.Context, answers []domain.Answer) (int, error) {
	for _, a := range answers {
		if _, err := q.db.NewInsert().Model(newAnswerRow(a)).Exec(ctx); err != nil {
			return 0, storageError("create answer", err)
		}
	}
	return len(answers), nil
}

func notFoundOr(err, notFound error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return storageError(op, err)
}

func affectedOr(res sql.Result, notFound error, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageError(op, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// isSerializationFailure reports whether Postgres aborted the transaction with
// SQLSTATE 40001 (serialization_failure) or 40P01 (deadlock_detected).
func isSerializationFailure(err error) bool {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return false
	}
	code := pgErr.Field('C')
	return code == "40001" || code == "40P01"
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}
