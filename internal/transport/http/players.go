package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

type playerHandler struct {
	games  *app.GameService
	logger *zap.Logger
}

type joinRequest struct {
	PINCode string `json:"pinCode" binding:"required"`
	Name    string `json:"name" binding:"required"`
}

// answerRequest accepts responseTimeMs for compatibility; the server clock decides.
type answerRequest struct {
	PlayerID       int64  `json:"playerId" binding:"required"`
	QuestionID     int64  `json:"questionId" binding:"required"`
	Answer         string `json:"answer"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
}

func (h *playerHandler) join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	result, err := h.games.Join(c.Request.Context(), req.PINCode, req.Name)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *playerHandler) view(c *gin.Context) {
	playerID, err := strconv.ParseInt(c.Query("playerId"), 10, 64)
	if err != nil || playerID <= 0 {
		writeError(c, h.logger, domain.Validation("playerId is required"))
		return
	}
	state, err := h.games.PlayerView(c.Request.Context(), playerID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *playerHandler) answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	submission, err := h.games.SubmitAnswer(c.Request.Context(), req.PlayerID, req.QuestionID, req.Answer)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, submission)
}

func (h *playerHandler) answers(c *gin.Context) {
	playerID, err := strconv.ParseInt(c.Query("playerId"), 10, 64)
	if err != nil || playerID <= 0 {
		writeError(c, h.logger, domain.Validation("playerId is required"))
		return
	}
	answers, err := h.games.PlayerAnswers(c.Request.Context(), playerID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answers": answers})
}
