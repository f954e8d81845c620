package domain

import "time"

// ChoiceKind tells how the raw "choice" of a submitted answer was encoded.
type ChoiceKind int

const (
	ChoiceInvalid ChoiceKind = iota
	ChoiceText
	ChoiceID
)

// ChoiceInput is the raw "choice" field of a submitted answer.
type ChoiceInput struct {
	Kind ChoiceKind
	Text string
	ID   int64
}

// RawAnswer is one entry of a submission before validation.
// HasQuestionID is false when question_id was missing or not an integer.
type RawAnswer struct {
	QuestionID    int64
	HasQuestionID bool
	Choice        ChoiceInput
}

// Submission is a user's full answer set for a poll.
type Submission struct {
	UserID  int64
	Answers []RawAnswer
}

// PollInput carries the fields of a new poll.
type PollInput struct {
	Title       string
	Description string
	StartDate   time.Time
	EndDate     time.Time
}

// PollPatch carries a partial poll update. Nil fields are left untouched.
type PollPatch struct {
	Title       *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
}

// ChoiceInputText is a nested choice of a question create/update request.
type ChoiceInputText struct {
	Text string
}

// QuestionInput carries the fields of a new question.
type QuestionInput struct {
	Text    string
	Type    QuestionType
	Choices []ChoiceInputText
}

// QuestionPatch carries a partial question update. A nil Choices slice means
// choices were not supplied.
type QuestionPatch struct {
	Text    *string
	Type    *QuestionType
	Choices []ChoiceInputText
}
