package app

import (
	"context"
	"log/slog"
	"time"

	"polls-service/internal/domain"
)

// PollService handles the poll lifecycle.
type PollService struct {
	store   Store
	schemas SchemaRepository
}

func NewPollService(store Store, schemas SchemaRepository) *PollService {
	return &PollService{store: store, schemas: schemas}
}

// List returns every poll with its questions and choices.
func (s *PollService) List(ctx context.Context) ([]domain.Poll, error) {
	return s.store.ListPolls(ctx)
}

// Get returns one poll with its questions and choices.
func (s *PollService) Get(ctx context.Context, pollID int64) (domain.Poll, error) {
	return s.store.GetPoll(ctx, pollID)
}

// Create validates and stores a new poll.
func (s *PollService) Create(ctx context.Context, in domain.PollInput) (domain.Poll, error) {
	verr := &domain.ValidationError{}
	checkText(verr, "title", in.Title, domain.MaxPollTitle)
	checkText(verr, "description", in.Description, domain.MaxPollDescription)
	if in.StartDate.IsZero() {
		verr.Add("start_date", domain.CodeRequired, "This field is required.")
	}
	if in.EndDate.IsZero() {
		verr.Add("end_date", domain.CodeRequired, "This field is required.")
	}
	if !verr.Has("start_date") && !verr.Has("end_date") {
		checkDates(verr, in.StartDate, in.EndDate)
	}
	if err := verr.OrNil(); err != nil {
		return domain.Poll{}, err
	}

	poll := domain.Poll{
		Title:       in.Title,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Questions:   []domain.Question{},
	}
	if err := s.store.CreatePoll(ctx, &poll); err != nil {
		return domain.Poll{}, err
	}
	return poll, nil
}

// Update applies a partial update. start_date cannot change after creation and
// is silently dropped; it still takes part in the end_date check when supplied.
func (s *PollService) Update(ctx context.Context, pollID int64, patch domain.PollPatch) (domain.Poll, error) {
	var updated domain.Poll
	err := s.store.RunInTx(ctx, func(ctx context.Context, q Queries) error {
		poll, err := q.GetPoll(ctx, pollID)
		if err != nil {
			return err
		}

		verr := &domain.ValidationError{}
		if patch.Title != nil {
			checkText(verr, "title", *patch.Title, domain.MaxPollTitle)
			poll.Title = *patch.Title
		}
		if patch.Description != nil {
			checkText(verr, "description", *patch.Description, domain.MaxPollDescription)
			poll.Description = *patch.Description
		}
		if patch.EndDate != nil {
			start := poll.StartDate
			if patch.StartDate != nil {
				start = *patch.StartDate
			}
			checkDates(verr, start, *patch.EndDate)
			poll.EndDate = *patch.EndDate
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		if err := q.UpdatePoll(ctx, poll); err != nil {
			return err
		}
		updated = poll
		return nil
	})
	return updated, err
}

// Delete removes a poll together with its questions, choices and answers.
func (s *PollService) Delete(ctx context.Context, pollID int64) error {
	if err := s.store.DeletePoll(ctx, pollID); err != nil {
		return err
	}
	invalidate(ctx, s.schemas, pollID)
	return nil
}

func checkDates(verr *domain.ValidationError, start, end time.Time) {
	if end.Before(start) {
		verr.Add(domain.NonFieldErrors, domain.CodeEndBeforeStart, "End date must be after start date.")
	}
}

// invalidate drops the cached schema of a poll after a committed change.
func invalidate(ctx context.Context, schemas SchemaRepository, pollID int64) {
	if err := schemas.Invalidate(ctx, pollID); err != nil {
		slog.Warn("schema cache invalidation failed", "poll_id", pollID, "error", err)
	}
}
