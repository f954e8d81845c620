package sqldb

import (
	"time"

	"github.com/uptrace/bun"

	"polls-service/internal/domain"
)

type pollRow struct {
	bun.BaseModel `bun:"table:polls,alias:p"`

	ID          int64          `bun:"id,pk,autoincrement"`
	Title       string         `bun:"title,notnull"`
	Description string         `bun:"description,notnull"`
	StartDate   time.Time      `bun:"start_date,notnull"`
	EndDate     time.Time      `bun:"end_date,notnull"`
	Questions   []*questionRow `bun:"rel:has-many,join:id=poll_id"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID      int64        `bun:"id,pk,autoincrement"`
	PollID  int64        `bun:"poll_id,notnull"`
	Text    string       `bun:"text,notnull"`
	QType   int          `bun:"q_type,notnull"`
	Choices []*choiceRow `bun:"rel:has-many,join:id=question_id"`
}

type choiceRow struct {
	bun.BaseModel `bun:"table:choices,alias:c"`

	ID         int64  `bun:"id,pk,autoincrement"`
	QuestionID int64  `bun:"question_id,notnull"`
	Text       string `bun:"text,notnull"`
}

// answerRow keeps arbitrary text and choice_id as a nullable pair; exactly one is set.
type answerRow struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	ID         int64   `bun:"id,pk,autoincrement"`
	UserID     int64   `bun:"user_id,notnull"`
	PollID     int64   `bun:"poll_id,notnull"`
	QuestionID int64   `bun:"question_id,notnull"`
	ChoiceID   *int64  `bun:"choice_id"`
	Arbitrary  *string `bun:"arbitrary"`

	Poll     *pollRow     `bun:"rel:belongs-to,join:poll_id=id"`
	Question *questionRow `bun:"rel:belongs-to,join:question_id=id"`
	Choice   *choiceRow   `bun:"rel:belongs-to,join:choice_id=id"`
}

func (r *pollRow) toDomain() domain.Poll {
	poll := domain.Poll{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Questions:   make([]domain.Question, 0, len(r.Questions)),
	}
	for _, q := range r.Questions {
		poll.Questions = append(poll.Questions, q.toDomain())
	}
	return poll
}

func (r *questionRow) toDomain() domain.Question {
	question := domain.Question{
		ID:      r.ID,
		PollID:  r.PollID,
		Text:    r.Text,
		Type:    domain.QuestionType(r.QType),
		Choices: make([]domain.Choice, 0, len(r.Choices)),
	}
	for _, c := range r.Choices {
		question.Choices = append(question.Choices, c.toDomain())
	}
	return question
}

func (r *choiceRow) toDomain() domain.Choice {
	return domain.Choice{ID: r.ID, QuestionID: r.QuestionID, Text: r.Text}
}

func newAnswerRow(a domain.Answer) *answerRow {
	row := &answerRow{UserID: a.UserID, PollID: a.PollID, QuestionID: a.QuestionID}
	if id, ok := a.Value.ChoiceID(); ok {
		row.ChoiceID = &id
	} else {
		text, _ := a.Value.Text()
		row.Arbitrary = &text
	}
	return row
}

func (r *answerRow) toRecord() domain.AnswerRecord {
	rec := domain.AnswerRecord{Arbitrary: r.Arbitrary}
	if r.Poll != nil {
		rec.Poll = domain.Poll{ID: r.Poll.ID, Title: r.Poll.Title, Description: r.Poll.Description}
	}
	if r.Question != nil {
		rec.Question = domain.Question{ID: r.Question.ID, PollID: r.Question.PollID, Text: r.Question.Text, Type: domain.QuestionType(r.Question.QType)}
	}
	if r.Choice != nil {
		rec.ChoiceText = r.Choice.Text
	}
	return rec
}
