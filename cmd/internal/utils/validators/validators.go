package validators

import (
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"smallcrm/cmd/internal/domain/entity"
)

// IsIso8601 accepts RFC 3339 timestamps such as "2025-08-14T14:00:00Z".
func IsIso8601(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.RFC3339, fl.Field().String())
	return err == nil
}

// IsDate accepts calendar dates in "YYYY-MM-DD" form.
func IsDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.DateOnly, fl.Field().String())
	return err == nil
}

// IsClock accepts wall-clock times in "HH:MM" form.
func IsClock(fl validator.FieldLevel) bool {
	_, err := entity.ParseTimeOfDay(fl.Field().String())
	return err == nil
}

// Non-negative amounts with at most two decimal places.
var decimalPattern = regexp.MustCompile(`^\d{1,8}(\.\d{1,2})?$`)

func IsDecimal(fl validator.FieldLevel) bool {
	return decimalPattern.MatchString(fl.Field().String())
}

// Register installs every custom tag on validate.
func Register(validate *validator.Validate) {
	_ = validate.RegisterValidation("iso8601", IsIso8601)
	_ = validate.RegisterValidation("isodate", IsDate)
	_ = validate.RegisterValidation("clock", IsClock)
	_ = validate.RegisterValidation("money", IsDecimal)
}
