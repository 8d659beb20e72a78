package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ValidationError renders ozzo-validation field errors as a 400 with a field->issue map.
func ValidationError(c *gin.Context, err error) {
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]string, len(fieldErrs))
		for field, fieldErr := range fieldErrs {
			details[field] = fieldErr.Error()
		}
		Error(c, http.StatusBadRequest, "validation_error", "invalid request", details)
		return
	}
	Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
}
