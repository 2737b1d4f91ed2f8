package contact

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// PhoneTag is the binding rule name for DDD-DDD-DDDD phone numbers.
const PhoneTag = "phone"

var phonePattern = regexp.MustCompile(`^[0-9]{3}-[0-9]{3}-[0-9]{4}$`)

func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// RegisterValidators installs the contact-specific rules on v.
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation(PhoneTag, func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
}
