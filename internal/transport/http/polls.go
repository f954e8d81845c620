package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"polls-service/internal/domain"
)

type pollRequest struct {
	Title       string    `json:"title" binding:"required,max=128"`
	Description string    `json:"description" binding:"required,max=4098"`
	StartDate   time.Time `json:"start_date" binding:"required"`
	EndDate     time.Time `json:"end_date" binding:"required"`
}

type pollPatchRequest struct {
	Title       *string    `json:"title" binding:"omitempty,max=128"`
	Description *string    `json:"description" binding:"omitempty,max=4098"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// ListPolls handles GET /polls/
func (h *Handler) ListPolls(c *gin.Context) {
	polls, err := h.polls.List(c.Request.Context())
	if err != nil {
		fail(c, "list polls", err)
		return
	}
	c.JSON(http.StatusOK, polls)
}

// CreatePoll handles POST /polls/
func (h *Handler) CreatePoll(c *gin.Context) {
	var req pollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "create poll", bindError(err))
		return
	}

	poll, err := h.polls.Create(c.Request.Context(), domain.PollInput{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		fail(c, "create poll", err)
		return
	}
	c.JSON(http.StatusCreated, poll)
}

// GetPoll handles GET /polls/:poll_id/
func (h *Handler) GetPoll(c *gin.Context) {
	pollID, ok := pathID(c, "poll_id")
	if !ok {
		return
	}
	poll, err := h.polls.Get(c.Request.Context(), pollID)
	if err != nil {
		fail(c, "get poll", err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

// UpdatePoll handles PATCH /polls/:poll_id/
func (h *Handler) UpdatePoll(c *gin.Context) {
	pollID, ok := pathID(c, "poll_id")
	if !ok {
		return
	}
	if !h.requirePoll(c, "update poll", pollID) {
		return
	}
	var req pollPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "update poll", bindError(err))
		return
	}

	poll, err := h.polls.Update(c.Request.Context(), pollID, domain.PollPatch{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		fail(c, "update poll", err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

// DeletePoll handles DELETE /polls/:poll_id/
func (h *Handler) DeletePoll(c *gin.Context) {
	pollID, ok := pathID(c, "poll_id")
	if !ok {
		return
	}
	if err := h.polls.Delete(c.Request.Context(), pollID); err != nil {
		fail(c, "delete poll", err)
		return
	}
	c.Status(http.StatusNoContent)
}
