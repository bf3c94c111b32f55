package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/utils"
)

var registerOnce sync.Once

// registerValidators adds the custom binding rules to gin's validator.
// Safe to call more than once.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("nohtml", validateNoHTML)
	})
}

// validateNoHTML rejects strings that contain markup
func validateNoHTML(fl validator.FieldLevel) bool {
	return !utils.ContainsMarkup(fl.Field().String())
}

// validationDetails renders field errors as "field: rule" pairs
func validationDetails(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// bindJSON decodes and validates the request body, writing a 400 on failure
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		abort(c, http.StatusBadRequest, "Invalid request", validationDetails(verr))
		return false
	}
	abort(c, http.StatusBadRequest, "Invalid request", err.Error())
	return false
}
