package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"polls-service/internal/domain"
)

type choiceRequest struct {
	Text string `json:"text" binding:"required,max=255"`
}

type questionRequest struct {
	Text    string          `json:"text" binding:"required,max=4098"`
	QType   *int            `json:"q_type" binding:"required"`
	Choices []choiceRequest `json:"choices" binding:"omitempty,dive"`
}

type questionPatchRequest struct {
	Text    *string         `json:"text" binding:"omitempty,max=4098"`
	QType   *int            `json:"q_type"`
	Choices []choiceRequest `json:"choices" binding:"omitempty,dive"`
}

func toChoiceInputs(in []choiceRequest) []domain.ChoiceInputText {
	if in == nil {
		return nil
	}
	out := make([]domain.ChoiceInputText, 0, len(in))
	for _, c := range in {
		out = append(out, domain.ChoiceInputText{Text: c.Text})
	}
	return out
}

// ListQuestions handles GET /polls/:poll_id/questions/
func (h *Handler) ListQuestions(c *gin.Context) {
	pollID, ok := pathID(c, "poll_id")
	if !ok {
		return
	}
	questions, err := h.questions.List(c.Request.Context(), pollID)
	if err != nil {
		fail(c, "list questions", err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

// CreateQuestion handles POST /polls/:poll_id/questions/
func (h *Handler) CreateQuestion(c *gin.Context) {
	pollID, ok := pathID(c, "poll_id")
	if !ok {
		return
	}
	if !h.requirePoll(c, "create question", pollID) {
		return
	}
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "create question", bindError(err))
		return
	}

	question, err := h.questions.Create(c.Request.Context(), pollID, domain.QuestionInput{
		Text:    req.Text,
		Type:    domain.QuestionType(*req.QType),
		Choices: toChoiceInputs(req.Choices),
	})
	if err != nil {
		fail(c, "create question", err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

// GetQuestion handles GET /polls/:poll_id/questions/:question_id/
func (h *Handler) GetQuestion(c *gin.Context) {
	pollID, ok := pathID(c, "poll_id")
	if !ok {
		return
	}
	questionID, ok := pathID(c, "question_id")
	if !ok {
		return
	}
	question, err := h.questions.Get(c.Request.Context(), pollID, questionID)
	if err != nil {
		fail(c, "get question", err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// UpdateQuestion handles PATCH /polls/:poll_id/questions/:question_id/
func (h *Handler) UpdateQuestion(c *gin.Context) {
	pollID, ok := pathID(c, "poll_id")
	if !ok {
		return
	}
	questionID, ok := pathID(c, "question_id")
	if !ok {
		return
	}
	if !h.requireQuestion(c, "update question", pollID, questionID) {
		return
	}
	var req questionPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "update question", bindError(err))
		return
	}

	patch := domain.QuestionPatch{Text: req.Text, Choices: toChoiceInputs(req.Choices)}
	if req.QType != nil {
		t := domain.QuestionType(*req.QType)
		patch.Type = &t
	}
	question, err := h.questions.Update(c.Request.Context(), pollID, questionID, patch)
	if err != nil {
		fail(c, "update question", err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// DeleteQuestion handles DELETE /polls/:poll_id/questions/:question_id/
func (h *Handler) DeleteQuestion(c *gin.Context) {
	pollID, ok := pathID(c, "poll_id")
	if !ok {
		return
	}
	questionID, ok := pathID(c, "question_id")
	if !ok {
		return
	}
	if err := h.questions.Delete(c.Request.Context(), pollID, questionID); err != nil {
		fail(c, "delete question", err)
		return
	}
	c.Status(http.StatusNoContent)
}
