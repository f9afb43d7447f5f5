package httpx

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dokan-pos/dokan-pos/internal/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct tag validation on a decoded request DTO and wraps
// failures in shared.ErrValidation so RespondError maps them to 400.
func Validate(target any) error {
	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		ok := false
		if e, isVErr := err.(validator.ValidationErrors); isVErr {
			verrs = e
			ok = true
		}
		if ok && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("%w: field %s failed on %s", shared.ErrValidation, first.Field(), first.Tag())
		}
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return nil
}
