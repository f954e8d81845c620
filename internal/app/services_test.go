package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"polls-service/internal/app"
	"polls-service/internal/domain"
	"polls-service/internal/infra/memory"
	"polls-service/internal/infra/sqldb/sqldbtest"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type services struct {
	polls     *app.PollService
	questions *app.QuestionService
	answers   *app.AnswerService
}

func newTestServices(t *testing.T) services {
	t.Helper()
	store := sqldbtest.NewStore(t)
	schemas := memory.NewSchemaRepository(store, 5*time.Minute)
	return services{
		polls:     app.NewPollService(store, schemas),
		questions: app.NewQuestionService(store, schemas),
		answers:   app.NewAnswerService(store, schemas),
	}
}

func createPoll(t *testing.T, s services) domain.Poll {
	t.Helper()
	poll, err := s.polls.Create(context.Background(), domain.PollInput{
		Title:       "Test Poll",
		Description: "Poll description.",
		StartDate:   t0,
		EndDate:     t0,
	})
	if err != nil {
		t.Fatalf("create poll: %v", err)
	}
	return poll
}

func createSingleQuestion(t *testing.T, s services, pollID int64) domain.Question {
	t.Helper()
	question, err := s.questions.Create(context.Background(), pollID, domain.QuestionInput{
		Text: "Test question",
		Type: domain.Single,
		Choices: []domain.ChoiceInputText{
			{Text: "Choice 1"}, {Text: "Choice 2"}, {Text: "Choice 3"},
		},
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	return question
}

func choice(questionID, choiceID int64) domain.RawAnswer {
	return domain.RawAnswer{QuestionID: questionID, HasQuestionID: true, Choice: domain.ChoiceInput{Kind: domain.ChoiceID, ID: choiceID}}
}

func TestSubmitAndSummarize(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	poll := createPoll(t, s)
	question := createSingleQuestion(t, s, poll.ID)

	if poll.ID != 1 || question.ID != 1 || len(question.Choices) != 3 || question.Choices[0].ID != 1 {
		t.Fatalf("unexpected ids: poll=%d question=%+v", poll.ID, question)
	}

	sub := domain.Submission{UserID: 1, Answers: []domain.RawAnswer{choice(1, 1)}}
	written, err := s.answers.SubmitAnswers(ctx, poll.ID, sub)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if msg := app.SavedMessage(written); msg != "Answers saved: 1." {
		t.Fatalf("unexpected message %q", msg)
	}

	if _, err := s.answers.SubmitAnswers(ctx, poll.ID, sub); !domain.HasCode(err, domain.CodeDuplicateSubmission) {
		t.Fatalf("expected duplicate submission, got %v", err)
	}

	summaries, err := s.answers.AnswersForUser(ctx, 1)
	if err != nil {
		t.Fatalf("answers for user: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 poll summary, got %d", len(summaries))
	}
	got := summaries[0]
	if got.ID != poll.ID || got.Title != "Test Poll" || got.Description != "Poll description." {
		t.Fatalf("unexpected summary %+v", got)
	}
	if len(got.Questions) != 1 || got.Questions[0].Text != "Test question" {
		t.Fatalf("unexpected questions %+v", got.Questions)
	}
	if c := got.Questions[0].Choices; len(c) != 1 || c[0] != "Choice 1" {
		t.Fatalf("unexpected choices %v", c)
	}

	again, err := s.answers.AnswersForUser(ctx, 1)
	if err != nil {
		t.Fatalf("answers for user again: %v", err)
	}
	if len(again) != 1 || again[0].Questions[0].Choices[0] != "Choice 1" {
		t.Fatalf("expected identical reads, got %+v", again)
	}
}

func TestSubmitManyAnswersAndGrouping(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)

	first := createPoll(t, s)
	many, err := s.questions.Create(ctx, first.ID, domain.QuestionInput{
		Text:    "Pick some",
		Type:    domain.Many,
		Choices: []domain.ChoiceInputText{{Text: "Red"}, {Text: "Green"}, {Text: "Blue"}},
	})
	if err != nil {
		t.Fatalf("create many: %v", err)
	}
	free, err := s.questions.Create(ctx, first.ID, domain.QuestionInput{Text: "Why?", Type: domain.Arbitrary})
	if err != nil {
		t.Fatalf("create arbitrary: %v", err)
	}

	second := createPoll(t, s)
	single := createSingleQuestion(t, s, second.ID)

	written, err := s.answers.SubmitAnswers(ctx, first.ID, domain.Submission{UserID: 9, Answers: []domain.RawAnswer{
		choice(many.ID, many.Choices[2].ID),
		{QuestionID: free.ID, HasQuestionID: true, Choice: domain.ChoiceInput{Kind: domain.ChoiceText, Text: "just because"}},
		choice(many.ID, many.Choices[0].ID),
	}})
	if err != nil {
		t.Fatalf("submit first: %v", err)
	}
	if written != 3 {
		t.Fatalf("expected 3 answers written, got %d", written)
	}
	if _, err := s.answers.SubmitAnswers(ctx, second.ID, domain.Submission{UserID: 9, Answers: []domain.RawAnswer{
		choice(single.ID, single.Choices[1].ID),
	}}); err != nil {
		t.Fatalf("submit second: %v", err)
	}

	summaries, err := s.answers.AnswersForUser(ctx, 9)
	if err != nil {
		t.Fatalf("answers for user: %v", err)
	}
	if len(summaries) != 2 || summaries[0].ID != first.ID || summaries[1].ID != second.ID {
		t.Fatalf("expected polls in first-seen order, got %+v", summaries)
	}
	qs := summaries[0].Questions
	if len(qs) != 2 || qs[0].ID != many.ID || qs[1].ID != free.ID {
		t.Fatalf("expected questions in first-seen order, got %+v", qs)
	}
	if c := qs[0].Choices; len(c) != 2 || c[0] != "Blue" || c[1] != "Red" {
		t.Fatalf("expected answer order Blue, Red; got %v", c)
	}
	if c := qs[1].Choices; len(c) != 1 || c[0] != "just because" {
		t.Fatalf("unexpected arbitrary value %v", c)
	}
	if c := summaries[1].Questions[0].Choices; len(c) != 1 || c[0] != "Choice 2" {
		t.Fatalf("unexpected second poll value %v", c)
	}
}

func TestSubmitFailuresWriteNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	poll := createPoll(t, s)
	question := createSingleQuestion(t, s, poll.ID)

	_, err := s.answers.SubmitAnswers(ctx, poll.ID, domain.Submission{UserID: 2, Answers: []domain.RawAnswer{choice(question.ID, 999)}})
	if !domain.HasCode(err, domain.CodeUnknownChoice) {
		t.Fatalf("expected unknown choice, got %v", err)
	}
	_, err = s.answers.SubmitAnswers(ctx, poll.ID, domain.Submission{UserID: 2, Answers: []domain.RawAnswer{
		{QuestionID: question.ID, HasQuestionID: true, Choice: domain.ChoiceInput{Kind: domain.ChoiceText, Text: "text"}},
	}})
	if !domain.HasCode(err, domain.CodeTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}

	summaries, err := s.answers.AnswersForUser(ctx, 2)
	if err != nil {
		t.Fatalf("answers for user: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("expected nothing stored, got %+v", summaries)
	}
}

func TestSubmitToMissingPoll(t *testing.T) {
	s := newTestServices(t)
	_, err := s.answers.SubmitAnswers(context.Background(), 42, domain.Submission{UserID: 1, Answers: []domain.RawAnswer{choice(1, 1)}})
	if !errors.Is(err, domain.ErrPollNotFound) {
		t.Fatalf("expected poll not found, got %v", err)
	}
}

func TestSubmitSeesQuestionAddedAfterCaching(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	poll := createPoll(t, s)
	first := createSingleQuestion(t, s, poll.ID)

	// Fills the schema cache with one question.
	if _, err := s.answers.SubmitAnswers(ctx, poll.ID, domain.Submission{UserID: 1, Answers: []domain.RawAnswer{choice(first.ID, first.Choices[0].ID)}}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	second := createSingleQuestion(t, s, poll.ID)
	_, err := s.answers.SubmitAnswers(ctx, poll.ID, domain.Submission{UserID: 2, Answers: []domain.RawAnswer{choice(first.ID, first.Choices[0].ID)}})
	if !domain.HasCode(err, domain.CodeIncompleteSubmission) {
		t.Fatalf("expected the new question %d to be required, got %v", second.ID, err)
	}
}
