package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/notify"
)

// Deps is everything the HTTP surface talks to.
type Deps struct {
	Games    *app.GameService
	Catalog  *app.CatalogService
	Reporter *app.Reporter
	Hub      *notify.Hub
	Logger   *zap.Logger
}

// NewRouter builds the gin engine with the REST API, the push channel and health check.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if err := RegisterValidators(); err != nil {
		deps.Logger.Warn("register validators", zap.Error(err))
	}

	router := gin.New()
	router.Use(RequestID(), AccessLog(deps.Logger), Recovery(deps.Logger))

	users := &userHandler{catalog: deps.Catalog, logger: deps.Logger}
	quizzes := &quizHandler{catalog: deps.Catalog, games: deps.Games, logger: deps.Logger}
	games := &gameHandler{games: deps.Games, reporter: deps.Reporter, logger: deps.Logger}
	players := &playerHandler{games: deps.Games, logger: deps.Logger}
	ws := NewWSHandler(deps.Games, deps.Hub, deps.Logger)

	api := router.Group("/api")
	{
		api.POST("/users", users.findOrCreate)
		api.GET("/users", users.getByEmail)
		api.DELETE("/users/:id", users.delete)

		api.GET("/quizzes", quizzes.list)
		api.POST("/quizzes", quizzes.create)
		api.GET("/quizzes/:id", quizzes.get)
		api.PUT("/quizzes/:id", quizzes.update)
		api.DELETE("/quizzes/:id", quizzes.delete)
		api.GET("/quizzes/:id/questions", quizzes.listQuestions)
		api.POST("/quizzes/:id/questions", quizzes.createQuestion)
		api.PUT("/quizzes/:id/questions", quizzes.updateQuestions)
		api.DELETE("/quizzes/:id/questions", quizzes.deleteQuestion)
		api.POST("/quizzes/:id/import", quizzes.importQuestions)
		api.GET("/quizzes/:id/games", quizzes.activeGames)

		api.POST("/games", games.create)
		api.GET("/games", games.lookup)
		api.GET("/games/:id", games.hostView)
		api.PUT("/games/:id", games.action)
		api.GET("/games/:id/stats", games.stats)
		api.GET("/games/:id/results", games.results)
		api.GET("/games/:id/answers", games.answers)
		api.GET("/games/:id/export", games.export)

		api.POST("/players", players.join)
		api.GET("/players", players.view)
		api.POST("/players/answer", players.answer)
		api.GET("/players/answers", players.answers)

		api.GET("/stats", games.globalStats)
	}

	router.GET("/ws", ws.ServeWS)
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

// idParam reads a positive integer path parameter.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
