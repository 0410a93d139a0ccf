package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"live-quiz-service/internal/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func statusOf(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindPrecondition:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with the status its Kind maps to. Errors outside the
// domain taxonomy are logged and hidden behind a generic message.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind == domain.KindInternal {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", requestID(c)),
			zap.Error(err),
		)
		code := "internal_error"
		if de != nil {
			code = de.Code
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: code, Message: "Internal server error"})
		return
	}
	c.AbortWithStatusJSON(statusOf(de.Kind), ErrorResponse{Error: de.Code, Message: de.Message})
}

// bindError turns a gin binding failure into a validation error.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Validation("Invalid request body")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return domain.Validation(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "pin":
		return fmt.Sprintf("%s must be 6 digits", fe.Field())
	case "qtype":
		return fmt.Sprintf("%s must be one of true_false, mcq, multiple_mcq, number, free_text", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
