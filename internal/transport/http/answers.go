package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"polls-service/internal/app"
	"polls-service/internal/domain"
)

type submissionRequest struct {
	UserID  *int64            `json:"user_id" binding:"required"`
	Answers []json.RawMessage `json:"answers" binding:"required"`
}

type resultResponse struct {
	Result string `json:"result"`
}

// SubmitAnswers handles POST /polls/:poll_id/answer/
func (h *Handler) SubmitAnswers(c *gin.Context) {
	pollID, ok := pathID(c, "poll_id")
	if !ok {
		return
	}
	if !h.requirePoll(c, "submit answers", pollID) {
		return
	}
	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "submit answers", bindError(err))
		return
	}
	answers, err := parseRawAnswers(req.Answers)
	if err != nil {
		fail(c, "submit answers", err)
		return
	}

	written, err := h.answers.SubmitAnswers(c.Request.Context(), pollID, domain.Submission{
		UserID:  *req.UserID,
		Answers: answers,
	})
	if err != nil {
		fail(c, "submit answers", err)
		return
	}
	c.JSON(http.StatusCreated, resultResponse{Result: app.SavedMessage(written)})
}

// UserAnswers handles GET /users/:user_id/
func (h *Handler) UserAnswers(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	summaries, err := h.answers.AnswersForUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, "user answers", err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// parseRawAnswers decodes answer entries. question_id and choice keep their
// JSON kind so the validator can tell text from choice ids.
func parseRawAnswers(entries []json.RawMessage) ([]domain.RawAnswer, error) {
	answers := make([]domain.RawAnswer, 0, len(entries))
	for i, entry := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
			return nil, domain.NewValidationError(fmt.Sprintf("answers[%d]", i), domain.CodeInvalid, "Expected an object.")
		}

		var raw domain.RawAnswer
		if v, ok := decodeNumberOrString(fields["question_id"]); ok {
			if n, isNum := v.(json.Number); isNum {
				if id, err := n.Int64(); err == nil {
					raw.QuestionID, raw.HasQuestionID = id, true
				}
			}
		}
		raw.Choice = parseChoice(fields["choice"])
		answers = append(answers, raw)
	}
	return answers, nil
}

func parseChoice(data json.RawMessage) domain.ChoiceInput {
	v, ok := decodeNumberOrString(data)
	if !ok {
		return domain.ChoiceInput{Kind: domain.ChoiceInvalid}
	}
	switch val := v.(type) {
	case string:
		return domain.ChoiceInput{Kind: domain.ChoiceText, Text: val}
	case json.Number:
		if id, err := val.Int64(); err == nil {
			return domain.ChoiceInput{Kind: domain.ChoiceID, ID: id}
		}
	}
	return domain.ChoiceInput{Kind: domain.ChoiceInvalid}
}

func decodeNumberOrString(data json.RawMessage) (any, bool) {
	if len(data) == 0 {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}
