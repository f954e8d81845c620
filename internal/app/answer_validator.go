package app

import (
	"context"
	"errors"
	"fmt"

	"polls-service/internal/domain"
)

// AnswerLookup is what the validator needs from storage.
type AnswerLookup interface {
	HasAnswered(ctx context.Context, userID, pollID int64) (bool, error)
	GetChoice(ctx context.Context, choiceID int64) (domain.Choice, error)
}

// AnswerValidator checks a submission against a poll schema.
type AnswerValidator struct {
	lookup AnswerLookup
}

func NewAnswerValidator(lookup AnswerLookup) *AnswerValidator {
	return &AnswerValidator{lookup: lookup}
}

// Validate returns the normalized answers of sub, or a *domain.ValidationError
// listing the first violation of each field. Entries pointing at questions
// outside the poll are dropped.
func (v *AnswerValidator) Validate(ctx context.Context, schema domain.PollSchema, sub domain.Submission) ([]domain.ValidatedAnswer, error) {
	verr := &domain.ValidationError{}

	answered, err := v.lookup.HasAnswered(ctx, sub.UserID, schema.PollID)
	if err != nil {
		return nil, err
	}
	if answered {
		verr.Add("user_id", domain.CodeDuplicateSubmission, "You've already answered this poll.")
	}

	answers, ferr, err := v.validateAnswers(ctx, schema, sub.Answers)
	if err != nil {
		return nil, err
	}
	if ferr != nil {
		verr.Fields = append(verr.Fields, *ferr)
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return answers, nil
}

func (v *AnswerValidator) validateAnswers(ctx context.Context, schema domain.PollSchema, raw []domain.RawAnswer) ([]domain.ValidatedAnswer, *domain.FieldError, error) {
	if len(raw) == 0 {
		return nil, answersError(domain.CodeEmptySubmission, "Please, provide some answers."), nil
	}

	valid := make([]domain.ValidatedAnswer, 0, len(raw))
	found := make(map[int64]struct{}, len(schema.Questions))
	for _, r := range raw {
		if !r.HasQuestionID {
			continue
		}
		question, ok := schema.Question(r.QuestionID)
		if !ok {
			continue
		}

		if _, seen := found[question.ID]; seen && !question.Type.AllowsMultiple() {
			return nil, answersError(domain.CodeDuplicateSingleAnswer,
				fmt.Sprintf("Only single choice allowed for question id %d.", question.ID)), nil
		}
		found[question.ID] = struct{}{}

		if question.Type == domain.Arbitrary {
			if r.Choice.Kind != domain.ChoiceText {
				return nil, answersError(domain.CodeTypeMismatch,
					fmt.Sprintf("Answer to question id %d must be a string.", question.ID)), nil
			}
			valid = append(valid, domain.ValidatedAnswer{QuestionID: question.ID, Value: domain.TextValue(r.Choice.Text)})
			continue
		}

		if r.Choice.Kind != domain.ChoiceID {
			return nil, answersError(domain.CodeTypeMismatch,
				fmt.Sprintf("Answer to question id %d must be an integer id of a choice.", question.ID)), nil
		}
		ferr, err := v.checkChoice(ctx, question, r.Choice.ID)
		if err != nil || ferr != nil {
			return nil, ferr, err
		}
		valid = append(valid, domain.ValidatedAnswer{QuestionID: question.ID, Value: domain.ChoiceValue(r.Choice.ID)})
	}

	if len(found) != len(schema.Questions) {
		missing := make([]int64, 0, len(schema.Questions)-len(found))
		for _, q := range schema.Questions {
			if _, ok := found[q.ID]; !ok {
				missing = append(missing, q.ID)
			}
		}
		return nil, answersError(domain.CodeIncompleteSubmission,
			fmt.Sprintf("Please, provide answers to questions: %v.", missing)), nil
	}
	return valid, nil, nil
}

// checkChoice resolves choiceID. The schema may be served from a cache, so a
// choice it does not list is looked up in storage before being rejected.
func (v *AnswerValidator) checkChoice(ctx context.Context, question domain.SchemaQuestion, choiceID int64) (*domain.FieldError, error) {
	if question.OwnsChoice(choiceID) {
		return nil, nil
	}
	choice, err := v.lookup.GetChoice(ctx, choiceID)
	if errors.Is(err, domain.ErrNotFound) {
		return answersError(domain.CodeUnknownChoice, fmt.Sprintf("Choice id %d not found.", choiceID)), nil
	}
	if err != nil {
		return nil, err
	}
	if choice.QuestionID != question.ID {
		return answersError(domain.CodeUnknownChoice, fmt.Sprintf("Choice id %d is for another question.", choiceID)), nil
	}
	return nil, nil
}

func answersError(code, message string) *domain.FieldError {
	return &domain.FieldError{Field: "answers", Code: code, Message: message}
}
