package http

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// RegisterValidators adds the "pin" and "qtype" tags to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		return app.ValidPIN(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("qtype", func(fl validator.FieldLevel) bool {
		return domain.QuestionType(fl.Field().String()).Valid()
	})
}
