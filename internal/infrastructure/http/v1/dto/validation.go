package dto

import (
	"fmt"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// sayadiPattern matches the 16-digit national check tracking code.
var sayadiPattern = regexp.MustCompile(`^[0-9]{16}$`)

// ValidSayadi reports whether s is a well-formed national tracking code.
func ValidSayadi(s string) bool {
	return sayadiPattern.MatchString(s)
}

// RegisterValidators installs the custom binding rules on gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("sayadi", func(fl validator.FieldLevel) bool {
		return ValidSayadi(fl.Field().String())
	})
}
