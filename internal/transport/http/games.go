package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/spreadsheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Host actions accepted by PUT /api/games/:id.
const (
	ActionStart           = "start"
	ActionNextQuestion    = "next_question"
	ActionShowResults     = "show_results"
	ActionFinish          = "finish"
	ActionReplayRound     = "replay_round"
	ActionInvalidateRound = "invalidate_round"
	ActionReset           = "reset"
	ActionResume          = "resume"
)

type gameHandler struct {
	games    *app.GameService
	reporter *app.Reporter
	logger   *zap.Logger
}

type createGameRequest struct {
	QuizID int64 `json:"quizId" binding:"required"`
}

type lookupQuery struct {
	PINCode string `form:"pinCode" binding:"omitempty,pin"`
	UserID  int64  `form:"userId"`
}

type actionRequest struct {
	Action string `json:"action" binding:"required,oneof=start next_question show_results finish replay_round invalidate_round reset resume"`
}

func (h *gameHandler) gameID(c *gin.Context) (int64, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		writeError(c, h.logger, domain.Validation("invalid game id"))
	}
	return id, ok
}

func (h *gameHandler) create(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	game, err := h.games.CreateGame(c.Request.Context(), req.QuizID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, game)
}

// lookup serves GET /api/games?pinCode= and GET /api/games?userId=.
func (h *gameHandler) lookup(c *gin.Context) {
	var q lookupQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	switch {
	case q.PINCode != "":
		game, err := h.games.GetGameByPIN(c.Request.Context(), q.PINCode)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, game)
	case q.UserID > 0:
		games, err := h.games.ListGamesByOwner(c.Request.Context(), q.UserID)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, games)
	default:
		writeError(c, h.logger, domain.Validation("pinCode or userId is required"))
	}
}

func (h *gameHandler) hostView(c *gin.Context) {
	id, ok := h.gameID(c)
	if !ok {
		return
	}
	state, err := h.games.HostView(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *gameHandler) action(c *gin.Context) {
	id, ok := h.gameID(c)
	if !ok {
		return
	}
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	ctx := c.Request.Context()
	var (
		result any
		err    error
	)
	switch req.Action {
	case ActionStart:
		result, err = h.games.Start(ctx, id)
	case ActionNextQuestion:
		result, err = h.games.Advance(ctx, id)
	case ActionShowResults:
		result, err = h.games.ShowResults(ctx, id)
	case ActionFinish:
		result, err = h.games.Finish(ctx, id)
	case ActionReplayRound:
		result, err = h.games.Replay(ctx, id)
	case ActionInvalidateRound:
		result, err = h.games.Invalidate(ctx, id)
	case ActionReset:
		result, err = h.games.Reset(ctx, id)
	case ActionResume:
		result, err = h.games.Resume(ctx, id)
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *gameHandler) stats(c *gin.Context) {
	id, ok := h.gameID(c)
	if !ok {
		return
	}
	stats, err := h.reporter.GameStats(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *gameHandler) results(c *gin.Context) {
	id, ok := h.gameID(c)
	if !ok {
		return
	}
	results, err := h.reporter.GameResults(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// answers is the host's raw ledger for one question of the game.
func (h *gameHandler) answers(c *gin.Context) {
	id, ok := h.gameID(c)
	if !ok {
		return
	}
	questionID, err := strconv.ParseInt(c.Query("questionId"), 10, 64)
	if err != nil || questionID <= 0 {
		writeError(c, h.logger, domain.Validation("questionId is required"))
		return
	}
	if _, err := h.games.GetGame(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	answers, err := h.games.AnswersForQuestion(c.Request.Context(), id, questionID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answers": answers})
}

func (h *gameHandler) export(c *gin.Context) {
	id, ok := h.gameID(c)
	if !ok {
		return
	}
	report, err := h.reporter.GameReport(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var buf bytes.Buffer
	if err := spreadsheet.WriteGameReport(&buf, report); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="game-%s.xlsx"`, strconv.FormatInt(id, 10)))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *gameHandler) globalStats(c *gin.Context) {
	stats, err := h.reporter.GlobalStats(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
