package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/spreadsheet"
)

// maxImportSize bounds uploaded question sheets.
const maxImportSize = 5 << 20

type quizHandler struct {
	catalog *app.CatalogService
	games   *app.GameService
	logger  *zap.Logger
}

type createQuizRequest struct {
	UserID      int64  `json:"userId" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	TimeLimit   int    `json:"timeLimit"`
}

type updateQuizRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
	TimeLimit   *int    `json:"timeLimit"`
}

type questionRequest struct {
	QuestionText  string   `json:"questionText" binding:"required"`
	QuestionType  string   `json:"questionType" binding:"required,qtype"`
	CorrectAnswer string   `json:"correctAnswer" binding:"required"`
	Options       []string `json:"options"`
}

func (r questionRequest) draft() domain.QuestionDraft {
	return domain.QuestionDraft{
		Text:          r.QuestionText,
		Type:          domain.QuestionType(r.QuestionType),
		CorrectAnswer: r.CorrectAnswer,
		Options:       r.Options,
	}
}

// updateQuestionsRequest either reorders the whole quiz or edits one question.
type updateQuestionsRequest struct {
	Reorder     bool    `json:"reorder"`
	QuestionIDs []int64 `json:"questionIds"`
	QuestionID  int64   `json:"questionId"`
	questionRequest
}

func (h *quizHandler) quizID(c *gin.Context) (int64, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		writeError(c, h.logger, domain.Validation("invalid quiz id"))
	}
	return id, ok
}

func (h *quizHandler) list(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(c, h.logger, domain.Validation("userId is required"))
		return
	}
	quizzes, err := h.catalog.ListQuizzes(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *quizHandler) create(c *gin.Context) {
	var req createQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	quiz, err := h.catalog.CreateQuiz(c.Request.Context(), app.QuizInput{
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		TimeLimit:   req.TimeLimit,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *quizHandler) get(c *gin.Context) {
	id, ok := h.quizID(c)
	if !ok {
		return
	}
	quiz, err := h.catalog.GetQuiz(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *quizHandler) update(c *gin.Context) {
	id, ok := h.quizID(c)
	if !ok {
		return
	}
	var req updateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	quiz, err := h.catalog.UpdateQuiz(c.Request.Context(), id, app.QuizUpdate{
		Title:       req.Title,
		Description: req.Description,
		TimeLimit:   req.TimeLimit,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *quizHandler) delete(c *gin.Context) {
	id, ok := h.quizID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteQuiz(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *quizHandler) listQuestions(c *gin.Context) {
	id, ok := h.quizID(c)
	if !ok {
		return
	}
	questions, err := h.catalog.ListQuestions(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *quizHandler) createQuestion(c *gin.Context) {
	id, ok := h.quizID(c)
	if !ok {
		return
	}
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	question, err := h.catalog.CreateQuestion(c.Request.Context(), id, req.draft())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

func (h *quizHandler) updateQuestions(c *gin.Context) {
	id, ok := h.quizID(c)
	if !ok {
		return
	}
	var req updateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !req.Reorder {
		writeError(c, h.logger, bindError(err))
		return
	}

	if req.Reorder {
		questions, err := h.catalog.ReorderQuestions(c.Request.Context(), id, req.QuestionIDs)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, questions)
		return
	}

	if req.QuestionID <= 0 {
		writeError(c, h.logger, domain.Validation("questionId is required"))
		return
	}
	question, err := h.catalog.UpdateQuestion(c.Request.Context(), id, req.QuestionID, req.draft())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *quizHandler) deleteQuestion(c *gin.Context) {
	id, ok := h.quizID(c)
	if !ok {
		return
	}
	questionID, err := strconv.ParseInt(c.Query("questionId"), 10, 64)
	if err != nil || questionID <= 0 {
		writeError(c, h.logger, domain.Validation("questionId is required"))
		return
	}
	if err := h.catalog.DeleteQuestion(c.Request.Context(), id, questionID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *quizHandler) importQuestions(c *gin.Context) {
	id, ok := h.quizID(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)
	header, err := c.FormFile("file")
	if err != nil {
		writeError(c, h.logger, domain.Validation("file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	defer file.Close()

	drafts, err := spreadsheet.ReadQuestions(file)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	report, err := h.catalog.ImportQuestions(c.Request.Context(), id, drafts)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *quizHandler) activeGames(c *gin.Context) {
	id, ok := h.quizID(c)
	if !ok {
		return
	}
	games, err := h.games.ListActiveGames(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, games)
}
