package app

import (
	"context"

	"polls-service/internal/domain"
)

// Queries is the set of storage operations available both on the store and
// inside a transaction.
type Queries interface {
	GetPoll(ctx context.Context, pollID int64) (domain.Poll, error)
	CreatePoll(ctx context.Context, poll *domain.Poll) error
	UpdatePoll(ctx context.Context, poll domain.Poll) error
	DeletePoll(ctx context.Context, pollID int64) error

	ListQuestions(ctx context.Context, pollID int64) ([]domain.Question, error)
	GetQuestion(ctx context.Context, pollID, questionID int64) (domain.Question, error)
	CreateQuestion(ctx context.Context, question *domain.Question) error
	UpdateQuestion(ctx context.Context, question domain.Question) error
	DeleteQuestion(ctx context.Context, pollID, questionID int64) error

	GetChoice(ctx context.Context, choiceID int64) (domain.Choice, error)
	CountChoices(ctx context.Context, questionID int64) (int, error)
	CreateChoices(ctx context.Context, choices []domain.Choice) ([]domain.Choice, error)
	DeleteChoices(ctx context.Context, questionID int64) error

	HasAnswered(ctx context.Context, userID, pollID int64) (bool, error)
	CreateAnswers(ctx context.Context, answers []domain.Answer) (int, error)
}

// Store is the relational schema store.
type Store interface {
	Queries
	ListPolls(ctx context.Context) ([]domain.Poll, error)
	ListAnswerRecords(ctx context.Context, userID int64) ([]domain.AnswerRecord, error)
	// RunInTx runs fn inside one transaction. Any error returned by fn rolls back every write.
	RunInTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
}

// SchemaLoader reads the question/choice layout of a poll from the backing store.
type SchemaLoader interface {
	LoadSchema(ctx context.Context, pollID int64) (domain.PollSchema, error)
}

// SchemaRepository serves poll schemas, usually from a cache.
type SchemaRepository interface {
	GetSchema(ctx context.Context, pollID int64) (domain.PollSchema, error)
	Invalidate(ctx context.Context, pollID int64) error
}
