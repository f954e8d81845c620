package app

import (
	"context"

	"polls-service/internal/domain"
)

// QuestionService edits questions and their nested choices.
type QuestionService struct {
	store   Store
	schemas SchemaRepository
}

func NewQuestionService(store Store, schemas SchemaRepository) *QuestionService {
	return &QuestionService{store: store, schemas: schemas}
}

// List returns the questions of a poll.
func (s *QuestionService) List(ctx context.Context, pollID int64) ([]domain.Question, error) {
	if _, err := s.store.GetPoll(ctx, pollID); err != nil {
		return nil, err
	}
	return s.store.ListQuestions(ctx, pollID)
}

// Get returns a question of a poll.
func (s *QuestionService) Get(ctx context.Context, pollID, questionID int64) (domain.Question, error) {
	return s.store.GetQuestion(ctx, pollID, questionID)
}

// Create stores a question and, unless it is ARBITRARY, its choices.
func (s *QuestionService) Create(ctx context.Context, pollID int64, in domain.QuestionInput) (domain.Question, error) {
	if _, err := s.store.GetPoll(ctx, pollID); err != nil {
		return domain.Question{}, err
	}

	verr := &domain.ValidationError{}
	checkText(verr, "text", in.Text, domain.MaxQuestionText)
	checkQuestionType(verr, in.Type)
	if in.Type.HasChoices() && len(in.Choices) == 0 {
		verr.Add("q_type", domain.CodeChoicesRequired, "Choices are required for this question type.")
	}
	checkChoices(verr, in.Choices)
	if err := verr.OrNil(); err != nil {
		return domain.Question{}, err
	}

	var created domain.Question
	err := s.store.RunInTx(ctx, func(ctx context.Context, q Queries) error {
		question := domain.Question{PollID: pollID, Text: in.Text, Type: in.Type}
		if err := q.CreateQuestion(ctx, &question); err != nil {
			return err
		}
		choices, err := replaceChoices(ctx, q, question, in.Choices, false)
		if err != nil {
			return err
		}
		question.Choices = choices
		created = question
		return nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	invalidate(ctx, s.schemas, pollID)
	return created, nil
}

// Update applies a partial update. Supplied choices replace the existing ones;
// switching to ARBITRARY removes them.
func (s *QuestionService) Update(ctx context.Context, pollID, questionID int64, patch domain.QuestionPatch) (domain.Question, error) {
	var updated domain.Question
	err := s.store.RunInTx(ctx, func(ctx context.Context, q Queries) error {
		question, err := q.GetQuestion(ctx, pollID, questionID)
		if err != nil {
			return err
		}

		verr := &domain.ValidationError{}
		if patch.Text != nil {
			checkText(verr, "text", *patch.Text, domain.MaxQuestionText)
			question.Text = *patch.Text
		}
		if patch.Type != nil {
			checkQuestionType(verr, *patch.Type)
			if patch.Type.HasChoices() && len(patch.Choices) == 0 {
				existing, err := q.CountChoices(ctx, question.ID)
				if err != nil {
					return err
				}
				if existing == 0 {
					verr.Add("q_type", domain.CodeChoicesRequired, "Choices are required for this question type.")
				}
			}
			question.Type = *patch.Type
		}
		checkChoices(verr, patch.Choices)
		if err := verr.OrNil(); err != nil {
			return err
		}

		if err := q.UpdateQuestion(ctx, question); err != nil {
			return err
		}
		replace := len(patch.Choices) > 0 || question.Type == domain.Arbitrary
		if _, err := replaceChoices(ctx, q, question, patch.Choices, replace); err != nil {
			return err
		}
		updated, err = q.GetQuestion(ctx, pollID, questionID)
		return err
	})
	if err != nil {
		return domain.Question{}, err
	}
	invalidate(ctx, s.schemas, pollID)
	return updated, nil
}

// Delete removes a question of a poll with its choices and answers.
func (s *QuestionService) Delete(ctx context.Context, pollID, questionID int64) error {
	if err := s.store.DeleteQuestion(ctx, pollID, questionID); err != nil {
		return err
	}
	invalidate(ctx, s.schemas, pollID)
	return nil
}

// replaceChoices optionally clears the question's choices, then inserts the
// given ones when the question type takes choices.
func replaceChoices(ctx context.Context, q Queries, question domain.Question, in []domain.ChoiceInputText, clear bool) ([]domain.Choice, error) {
	if clear {
		if err := q.DeleteChoices(ctx, question.ID); err != nil {
			return nil, err
		}
	}
	if !question.Type.HasChoices() || len(in) == 0 {
		return []domain.Choice{}, nil
	}
	staged := make([]domain.Choice, 0, len(in))
	for _, c := range in {
		staged = append(staged, domain.Choice{QuestionID: question.ID, Text: c.Text})
	}
	return q.CreateChoices(ctx, staged)
}
