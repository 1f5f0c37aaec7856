package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// requestValidator adapts go-playground/validator to echo.Validator.
type requestValidator struct {
	validate *validator.Validate
}

// customRules are the request tags registered on top of the built-in ones.
var customRules = map[string]validator.Func{
	"crmstatus":    validateStatus,
	"notecategory": validateCategory,
}

// newRequestValidator panics if a custom rule cannot be registered.
func newRequestValidator() *requestValidator {
	v := validator.New()
	for tag, fn := range customRules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("registering validation %q: %v", tag, err))
		}
	}
	return &requestValidator{validate: v}
}

// Validate implements echo.Validator.
func (rv *requestValidator) Validate(i any) error {
	return rv.validate.Struct(i)
}

// validateStatus accepts members of the full status enumeration.
func validateStatus(fl validator.FieldLevel) bool {
	return types.IsValidStatus(fl.Field().String())
}

// validateCategory accepts the known note categories.
func validateCategory(fl validator.FieldLevel) bool {
	return types.NormalizeCategory(fl.Field().String()) == fl.Field().String()
}

// bindAndValidate decodes the request into dst and validates it.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	return c.Validate(dst)
}
