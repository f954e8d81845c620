package app

import (
	"context"
	"fmt"

	"polls-service/internal/domain"
)

// AnswerService accepts answer submissions and rebuilds per-user summaries.
type AnswerService struct {
	store   Store
	schemas SchemaRepository
}

func NewAnswerService(store Store, schemas SchemaRepository) *AnswerService {
	return &AnswerService{store: store, schemas: schemas}
}

// SubmitAnswers validates sub against the poll and writes every answer in one
// transaction. The duplicate check runs inside the same transaction.
//
// The cached schema is checked against the poll as read inside the
// transaction; when they differ the transaction's view wins and the cache
// entry is dropped.
func (s *AnswerService) SubmitAnswers(ctx context.Context, pollID int64, sub domain.Submission) (int, error) {
	// Loaded before the transaction starts: the loader may need its own connection.
	cached, err := s.schemas.GetSchema(ctx, pollID)
	if err != nil {
		return 0, err
	}

	written, stale := 0, false
	err = s.store.RunInTx(ctx, func(ctx context.Context, q Queries) error {
		poll, err := q.GetPoll(ctx, pollID)
		if err != nil {
			return err
		}
		schema := domain.SchemaOf(poll)
		stale = !schema.Matches(cached)

		answers, err := NewAnswerValidator(q).Validate(ctx, schema, sub)
		if err != nil {
			return err
		}
		written, err = q.CreateAnswers(ctx, toAnswers(pollID, sub.UserID, answers))
		return err
	})
	if stale {
		invalidate(ctx, s.schemas, pollID)
	}
	if err != nil {
		return 0, err
	}
	return written, nil
}

// SavedMessage is the confirmation returned to clients after a submission.
func SavedMessage(count int) string {
	return fmt.Sprintf("Answers saved: %d.", count)
}

func toAnswers(pollID, userID int64, validated []domain.ValidatedAnswer) []domain.Answer {
	answers := make([]domain.Answer, 0, len(validated))
	for _, v := range validated {
		answers = append(answers, domain.Answer{
			UserID:     userID,
			PollID:     pollID,
			QuestionID: v.QuestionID,
			Value:      v.Value,
		})
	}
	return answers
}

// AnswersForUser groups every stored answer of userID by poll, then by question,
// both in first-seen order.
func (s *AnswerService) AnswersForUser(ctx context.Context, userID int64) ([]domain.PollSummary, error) {
	records, err := s.store.ListAnswerRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	return groupAnswers(records), nil
}

func groupAnswers(records []domain.AnswerRecord) []domain.PollSummary {
	summaries := make([]domain.PollSummary, 0)
	pollIdx := make(map[int64]int)
	questionIdx := make(map[int64]int)

	for _, r := range records {
		pi, ok := pollIdx[r.Poll.ID]
		if !ok {
			pi = len(summaries)
			pollIdx[r.Poll.ID] = pi
			summaries = append(summaries, domain.PollSummary{
				ID:          r.Poll.ID,
				Title:       r.Poll.Title,
				Description: r.Poll.Description,
				Questions:   []domain.QuestionSummary{},
			})
		}
		poll := &summaries[pi]

		qi, ok := questionIdx[r.Question.ID]
		if !ok {
			qi = len(poll.Questions)
			questionIdx[r.Question.ID] = qi
			poll.Questions = append(poll.Questions, domain.QuestionSummary{
				ID:      r.Question.ID,
				Text:    r.Question.Text,
				Choices: []string{},
			})
		}
		question := &poll.Questions[qi]
		question.Choices = append(question.Choices, displayValue(r))
	}
	return summaries
}

func displayValue(r domain.AnswerRecord) string {
	if r.Arbitrary != nil {
		return *r.Arbitrary
	}
	return r.ChoiceText
}
