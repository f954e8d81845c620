package domain

import "time"

// QuestionType is the closed set of question kinds.
type QuestionType int

const (
	Arbitrary QuestionType = 0
	Single    QuestionType = 1
	Many      QuestionType = 2
)

// QuestionTypes lists the valid codes in ascending order.
func QuestionTypes() []QuestionType {
	return []QuestionType{Arbitrary, Single, Many}
}

// Valid reports whether t is a known code.
func (t QuestionType) Valid() bool {
	return t >= Arbitrary && t <= Many
}

// HasChoices reports whether questions of this type are answered by picking choices.
func (t QuestionType) HasChoices() bool {
	return t == Single || t == Many
}

// AllowsMultiple reports whether one user may give several answers to the question.
func (t QuestionType) AllowsMultiple() bool {
	return t == Many
}

func (t QuestionType) String() string {
	switch t {
	case Arbitrary:
		return "ARBITRARY"
	case Single:
		return "SINGLE"
	case Many:
		return "MANY"
	default:
		return "UNKNOWN"
	}
}

// Field length limits.
const (
	MaxPollTitle       = 128
	MaxPollDescription = 4098
	MaxQuestionText    = 4098
	MaxChoiceText      = 255
)

// Poll is a questionnaire with an active time window.
type Poll struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	Questions   []Question `json:"questions"`
}

// Question is one prompt of a poll.
type Question struct {
	ID      int64        `json:"id"`
	PollID  int64        `json:"-"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"q_type"`
	Choices []Choice     `json:"choices"`
}

// Choice is a selectable option of a SINGLE or MANY question.
type Choice struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"-"`
	Text       string `json:"text"`
}

// AnswerValue is either free text or a reference to a choice. Exactly one is set.
type AnswerValue struct {
	text     string
	choiceID int64
	isChoice bool
}

// TextValue builds a free-text answer value.
func TextValue(text string) AnswerValue {
	return AnswerValue{text: text}
}

// ChoiceValue builds an answer value pointing at a choice.
func ChoiceValue(choiceID int64) AnswerValue {
	return AnswerValue{choiceID: choiceID, isChoice: true}
}

// Text returns the free text and true when the value is textual.
func (v AnswerValue) Text() (string, bool) {
	return v.text, !v.isChoice
}

// ChoiceID returns the referenced choice and true when the value is a choice reference.
func (v AnswerValue) ChoiceID() (int64, bool) {
	return v.choiceID, v.isChoice
}

// Answer is one persisted response of a user to a question.
type Answer struct {
	ID         int64
	UserID     int64
	PollID     int64
	QuestionID int64
	Value      AnswerValue
}

// ValidatedAnswer is a normalized answer ready to be written.
type ValidatedAnswer struct {
	QuestionID int64
	Value      AnswerValue
}

// PollSchema is the question/choice layout of a poll used for answer validation.
type PollSchema struct {
	PollID    int64            `json:"poll_id"`
	Questions []SchemaQuestion `json:"questions"`
}

// SchemaQuestion is a question entry of a PollSchema.
type SchemaQuestion struct {
	ID        int64        `json:"id"`
	Type      QuestionType `json:"q_type"`
	ChoiceIDs []int64      `json:"choice_ids"`
}

// SchemaOf builds the schema of a loaded poll.
func SchemaOf(poll Poll) PollSchema {
	schema := PollSchema{PollID: poll.ID, Questions: make([]SchemaQuestion, 0, len(poll.Questions))}
	for _, q := range poll.Questions {
		sq := SchemaQuestion{ID: q.ID, Type: q.Type, ChoiceIDs: make([]int64, 0, len(q.Choices))}
		for _, c := range q.Choices {
			sq.ChoiceIDs = append(sq.ChoiceIDs, c.ID)
		}
		schema.Questions = append(schema.Questions, sq)
	}
	return schema
}

// Matches reports whether both schemas list the same questions, types and
// choices in the same order.
func (s PollSchema) Matches(other PollSchema) bool {
	if s.PollID != other.PollID || len(s.Questions) != len(other.Questions) {
		return false
	}
	for i, q := range s.Questions {
		o := other.Questions[i]
		if q.ID != o.ID || q.Type != o.Type || len(q.ChoiceIDs) != len(o.ChoiceIDs) {
			return false
		}
		for j, id := range q.ChoiceIDs {
			if o.ChoiceIDs[j] != id {
				return false
			}
		}
	}
	return true
}

// Question returns the question with the given id.
func (s PollSchema) Question(id int64) (SchemaQuestion, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return SchemaQuestion{}, false
}

// OwnsChoice reports whether choiceID belongs to the question.
func (q SchemaQuestion) OwnsChoice(choiceID int64) bool {
	for _, id := range q.ChoiceIDs {
		if id == choiceID {
			return true
		}
	}
	return false
}

// PollSummary is the per-user view of an answered poll.
type PollSummary struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Questions   []QuestionSummary `json:"questions"`
}

// QuestionSummary lists the displayed values a user gave to a question, in answer order.
type QuestionSummary struct {
	ID      int64    `json:"id"`
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
}

// AnswerRecord is a stored answer joined with its poll, question and choice.
type AnswerRecord struct {
	Poll       Poll
	Question   Question
	Arbitrary  *string
	ChoiceText string
}
