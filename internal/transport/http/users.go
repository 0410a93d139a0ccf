package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

type userHandler struct {
	catalog *app.CatalogService
	logger  *zap.Logger
}

type userRequest struct {
	Email  string `json:"email" binding:"required"`
	Locale string `json:"locale"`
}

type userResponse struct {
	User    domain.User `json:"user"`
	Created bool        `json:"created"`
}

func (h *userHandler) findOrCreate(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	user, created, err := h.catalog.FindOrCreateUser(c.Request.Context(), req.Email, req.Locale)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, userResponse{User: user, Created: created})
}

func (h *userHandler) getByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		writeError(c, h.logger, domain.Validation("email is required"))
		return
	}
	user, err := h.catalog.GetUserByEmail(c.Request.Context(), email)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *userHandler) delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		writeError(c, h.logger, domain.Validation("invalid user id"))
		return
	}
	if err := h.catalog.DeleteUser(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
