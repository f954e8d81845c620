package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"polls-service/internal/app"
)

// Handler exposes the poll use cases over REST.
type Handler struct {
	polls     *app.PollService
	questions *app.QuestionService
	answers   *app.AnswerService
}

func NewHandler(polls *app.PollService, questions *app.QuestionService, answers *app.AnswerService) *Handler {
	return &Handler{polls: polls, questions: questions, answers: answers}
}

// requirePoll writes the error response and returns false unless the poll
// exists. Handlers call it before binding so a missing poll is a 404 whatever
// the body looks like.
func (h *Handler) requirePoll(c *gin.Context, op string, pollID int64) bool {
	if _, err := h.polls.Get(c.Request.Context(), pollID); err != nil {
		fail(c, op, err)
		return false
	}
	return true
}

func (h *Handler) requireQuestion(c *gin.Context, op string, pollID, questionID int64) bool {
	if _, err := h.questions.Get(c.Request.Context(), pollID, questionID); err != nil {
		fail(c, op, err)
		return false
	}
	return true
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	registerValidatorNames()

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	polls := router.Group("/polls")
	{
		polls.GET("/", h.ListPolls)
		polls.POST("/", h.CreatePoll)
		polls.GET("/:poll_id/", h.GetPoll)
		polls.PATCH("/:poll_id/", h.UpdatePoll)
		polls.DELETE("/:poll_id/", h.DeletePoll)

		polls.GET("/:poll_id/questions/", h.ListQuestions)
		polls.POST("/:poll_id/questions/", h.CreateQuestion)
		polls.GET("/:poll_id/questions/:question_id/", h.GetQuestion)
		polls.PATCH("/:poll_id/questions/:question_id/", h.UpdateQuestion)
		polls.DELETE("/:poll_id/questions/:question_id/", h.DeleteQuestion)

		polls.POST("/:poll_id/answer/", h.SubmitAnswers)
	}

	router.GET("/users/:user_id/", h.UserAnswers)
	return router
}
