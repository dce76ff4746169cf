package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks request DTOs and renders failures with per-field
// messages.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Check returns nil when dst is valid.
func (v *Validator) Check(dst any) []FieldIssue {
	err := v.v.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldIssue{{Message: err.Error()}}
	}
	issues := make([]FieldIssue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, FieldIssue{Field: fe.Field(), Message: issueMessage(fe)})
	}
	return issues
}

// fieldMessages overrides the generic wording for known field/tag pairs.
var fieldMessages = map[string]string{
	"uname.required":     "Name is required",
	"uname.min":          "Name must be at least 3 characters",
	"uname.max":          "Name cannot exceed 30 characters",
	"email.required":     "Email is required",
	"email.email":        "Please provide a valid email",
	"password.required":  "Password is required",
	"password.min":       "Password must be at least 6 characters",
	"name.required":      "Name is required",
	"name.min":           "Name must be at least 3 characters",
	"name.max":           "Name cannot exceed 100 characters",
	"description.max":    "Description cannot exceed 500 characters",
	"hourlyRate.gte":     "Hourly rate must be at least 0.01",
	"projectId.required": "Project ID is required",
	"projectId.uuid":     "Invalid project id",
	"startTime.required": "Start time is required",
	"endTime.required":   "End time is required",
}

// entryDescriptionMessages applies to time entry descriptions, which have
// their own limits.
var entryDescriptionMessages = map[string]string{
	"required": "Description is required",
	"min":      "Description is required",
	"max":      "Description cannot exceed 1000 characters",
}

func issueMessage(fe validator.FieldError) string {
	owner, _, _ := strings.Cut(fe.StructNamespace(), ".")
	if strings.HasSuffix(owner, "EntryRequest") && fe.Field() == "description" {
		if m, ok := entryDescriptionMessages[fe.Tag()]; ok {
			return m
		}
	}
	if m, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return m
	}
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " cannot exceed " + fe.Param() + " characters"
	}
	return fe.Field() + " is invalid"
}
