package api

import (
	"net/http"

	"github.com/jjjimenez100/backend-coding-test/internal/models"
	"github.com/jjjimenez100/backend-coding-test/internal/search"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Error codes returned in ErrorResponse.ErrorCode
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeServer         = "SERVER_ERROR"
	CodeSearchDisabled = "SEARCH_DISABLED"
)

// FieldError describes one rejected input field
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ErrorResponse defines the structure of an error response
type ErrorResponse struct {
	ErrorCode string       `json:"error_code"`
	Message   string       `json:"message"`
	Errors    []FieldError `json:"errors,omitempty"`
}

// errInvalidBody is reported when the request body is not a JSON object
var errInvalidBody = &models.ValidationError{
	Field:  "body",
	Reason: "Request body must be a JSON object",
}

// ErrorHandler writes the last error a handler attached with c.Error
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		WriteError(c, c.Errors.Last().Err)
	}
}

// WriteError maps err to a status code and body. Validation failures are
// client errors; anything unclassified is logged and reported without detail.
func WriteError(c *gin.Context, err error) {
	if verrs, ok := models.AsValidationErrors(err); ok && len(verrs) > 0 {
		fields := make([]FieldError, 0, len(verrs))
		for _, v := range verrs {
			fields = append(fields, FieldError{Field: v.Field, Reason: v.Reason})
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			ErrorCode: CodeValidation,
			Message:   verrs[0].Reason,
			Errors:    fields,
		})
		return
	}

	if errors.Is(err, search.ErrSearchDisabled) {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			ErrorCode: CodeSearchDisabled,
			Message:   "Search is not available",
		})
		return
	}

	log.Error().
		Err(err).
		Str("kind", models.KindOf(err).String()).
		Str("request_id", c.GetString(requestIDKey)).
		Str("path", c.Request.URL.Path).
		Msg("Encountered error")

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		ErrorCode: CodeServer,
		Message:   "Unknown error",
	})
}
