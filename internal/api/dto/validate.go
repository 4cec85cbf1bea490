package dto

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/hse-tools/permit-service/pkg/util/errorutil"
)

// Validate is the shared validator instance for request payloads.
var Validate = validator.New()

// Check validates payload. Failed "required" rules surface as MISSING_FIELD, anything else as
// VALIDATION_FAILED; both carry a field-to-rule map in details.
func Check(payload any) error {
	err := Validate.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	details := make(map[string]any, len(fieldErrs))
	missing := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fe.Tag()
		if strings.HasPrefix(fe.Tag(), "required") {
			missing = append(missing, fe.Field())
		}
	}
	if len(missing) == len(fieldErrs) {
		return apperrors.NewDomainError(apperrors.CodeMissingField, "missing required fields: "+strings.Join(missing, ", "), http.StatusBadRequest, details)
	}
	return apperrors.NewValidationError("invalid payload", details)
}
