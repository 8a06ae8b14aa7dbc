package application

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-quorum/infrastructure/source"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterConfigValidators(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterConfigValidators registers the custom tags used by Config:
// sourceid, providertype and modelname.
func RegisterConfigValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("sourceid", validateSourceID); err != nil {
		return fmt.Errorf("failed to register sourceid validator: %w", err)
	}
	if err := v.RegisterValidation("providertype", validateProviderType); err != nil {
		return fmt.Errorf("failed to register providertype validator: %w", err)
	}
	if err := v.RegisterValidation("modelname", validateModelName); err != nil {
		return fmt.Errorf("failed to register modelname validator: %w", err)
	}
	return nil
}

var sourceIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// validateSourceID accepts short lowercase identifiers such as "chatgpt" or
// "claude-3".
func validateSourceID(fl validator.FieldLevel) bool {
	return sourceIDPattern.MatchString(fl.Field().String())
}

// validateProviderType accepts providers that have a registered backend.
func validateProviderType(fl validator.FieldLevel) bool {
	return source.IsRegisteredProvider(fl.Field().String())
}

// validateModelName accepts provider model identifiers such as
// "gpt-4o-mini", "claude-3-5-sonnet-20241022" or "models/gemini-2.0-flash".
// Path segments may not be empty and whitespace is rejected.
func validateModelName(fl validator.FieldLevel) bool {
	model := fl.Field().String()
	if model == "" {
		return true
	}
	if strings.ContainsAny(model, " \t\r\n") {
		return false
	}
	for _, segment := range strings.Split(model, "/") {
		if segment == "" {
			return false
		}
	}
	return true
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "sourceid":
		return fmt.Sprintf("%s %q must be lowercase letters, digits, '-' or '_'", fe.Namespace(), fe.Value())
	case "providertype":
		return fmt.Sprintf("%s %q is not a supported provider (supported: %v)",
			fe.Namespace(), fe.Value(), source.RegisteredProviders())
	case "modelname":
		return fmt.Sprintf("%s %q is not a valid model name", fe.Namespace(), fe.Value())
	case "unique":
		return fmt.Sprintf("%s must have unique %s values", fe.Namespace(), fe.Param())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
	}
}
