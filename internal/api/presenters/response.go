package presenters

import (
	"errors"
	"fmt"

	"foodgram/domain"
	"foodgram/internal/logging"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Status  bool                `json:"status"`
	Message string              `json:"message"`
	Code    string              `json:"code,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Data    any                 `json:"data,omitempty"`
}

func SuccessResponse(c *fiber.Ctx, data any, statusCode int, message string) error {
	if statusCode == fiber.StatusNoContent {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(statusCode).JSON(Response{
		Status:  true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse renders err. Domain errors carry their own status; statusCode
// is the fallback for anything unclassified.
func ErrorResponse(c *fiber.Ctx, statusCode int, message string, err error) error {
	status := StatusFromError(err, statusCode)
	res := Response{Status: false, Message: message}

	var ve *domain.ValidationError
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &ve):
		res.Code = ve.Code
		res.Errors = map[string][]string{ve.Field: {ve.Message}}
	case errors.As(err, &fieldErrs):
		res.Code = "invalid"
		res.Errors = make(map[string][]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			res.Errors[fe.Field()] = append(res.Errors[fe.Field()], fieldMessage(fe))
		}
	case status >= fiber.StatusInternalServerError:
		logging.Ctx(c.Context()).Error().Err(err).Str("path", c.Path()).Msg(message)
	case err != nil:
		res.Errors = map[string][]string{"detail": {err.Error()}}
	}

	return c.Status(status).JSON(res)
}

func StatusFromError(err error, fallback int) int {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindConflict:
		return fiber.StatusBadRequest
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindPermission:
		return fiber.StatusForbidden
	case domain.KindUnauthorized:
		return fiber.StatusUnauthorized
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return fiber.StatusBadRequest
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fallback
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("ensure this field has at least %s characters", fe.Param())
	case "email":
		return "enter a valid email address"
	case "username":
		return "enter a valid username"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
