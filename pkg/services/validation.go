package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateModel checks an entity against the validate tags of its model before it is
// stored. Fields listed in except are skipped, for values the transaction fills in.
func validateModel(op string, model any, except ...string) error {
	var err error

	if len(except) > 0 {
		err = validate.StructExcept(model, except...)
	} else {
		err = validate.Struct(model)
	}

	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fieldError(op, fieldErrors[0])
}

// validatePatch checks the fields of a partial update. Empty fields are left unchanged,
// so only the length limits apply.
func validatePatch(op, name, description string) error {
	err := validate.Var(name, fmt.Sprintf("max=%d", models.MaxNameLength))
	if err != nil {
		return NewValidationError(op, "name_too_long",
			fmt.Sprintf("name must be at most %d characters", models.MaxNameLength), ErrNameTooLong)
	}

	err = validate.Var(description, fmt.Sprintf("max=%d", models.MaxDescriptionLength))
	if err != nil {
		return NewValidationError(op, "description_too_long",
			fmt.Sprintf("description must be at most %d characters", models.MaxDescriptionLength), ErrDescriptionTooLong)
	}

	return nil
}

// fieldError maps the first failing field to the service error reported for it.
func fieldError(op string, fe validator.FieldError) error {
	namespace := fe.StructNamespace()

	switch {
	case strings.Contains(namespace, ".Grantee."):
		return NewValidationError(op, "invalid_grantee", "grantee type must be role or user", ErrInvalidRequest)
	case strings.Contains(namespace, ".Target."):
		return NewValidationError(op, "invalid_target", "target type must be workflow or stage", ErrInvalidRequest)
	}

	switch fe.StructField() {
	case "Name", "UserName":
		if fe.Tag() == "required" {
			return NewValidationError(op, "name_required", "name is required", ErrNameRequired)
		}

		return NewValidationError(op, "name_too_long",
			fmt.Sprintf("name must be at most %d characters", models.MaxNameLength), ErrNameTooLong)
	case "Description":
		return NewValidationError(op, "description_too_long",
			fmt.Sprintf("description must be at most %d characters", models.MaxDescriptionLength), ErrDescriptionTooLong)
	case "Access":
		return NewValidationError(op, "invalid_access_level",
			fmt.Sprintf("access must be %d or %d", models.AccessRead, models.AccessWrite), ErrInvalidAccessLevel)
	case "Email":
		return NewValidationError(op, "invalid_email", "email is not a valid address", ErrInvalidRequest)
	}

	return NewValidationError(op, "invalid_"+strings.ToLower(fe.StructField()),
		fmt.Sprintf("%s failed the %q rule", fe.Field(), fe.Tag()), ErrInvalidRequest)
}
