package httpx

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"pipehealth/internal/entity"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterValidation("platform", validatePlatform)
	validate.RegisterValidation("pipeline_type", validatePipelineType)
	validate.RegisterValidation("run_status", validateRunStatus)
	validate.RegisterValidation("rule_type", validateRuleType)
	validate.RegisterValidation("channel", validateChannel)
	validate.RegisterValidation("environment", validateEnvironment)
}

func validatePlatform(fl validator.FieldLevel) bool {
	return entity.Platform(fl.Field().String()).Valid()
}

func validatePipelineType(fl validator.FieldLevel) bool {
	return entity.PipelineType(fl.Field().String()).Valid()
}

func validateRunStatus(fl validator.FieldLevel) bool {
	return entity.RunStatus(fl.Field().String()).Valid()
}

func validateRuleType(fl validator.FieldLevel) bool {
	return entity.RuleType(fl.Field().String()).Valid()
}

func validateChannel(fl validator.FieldLevel) bool {
	return entity.Channel(fl.Field().String()).Valid()
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "dev", "staging", "prod":
		return true
	}
	return false
}

// ValidateStruct validates a request payload and returns envelope-ready
// field errors, or nil when the payload is valid.
func ValidateStruct(s interface{}) []ErrorDetail {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var details []ErrorDetail
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		param := err.Param()

		var message string
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s", field, param)
		case "max":
			message = fmt.Sprintf("%s must be at most %s", field, param)
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", field, param)
		case "gte":
			message = fmt.Sprintf("%s must be at least %s", field, param)
		case "platform", "pipeline_type", "run_status", "rule_type", "channel", "environment":
			message = fmt.Sprintf("%s must be a known %s value", field, err.Tag())
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}

		fieldName := strings.ToLower(field[:1]) + field[1:]
		details = append(details, ErrorDetail{
			Field:   fieldName,
			Message: message,
		})
	}

	return details
}
