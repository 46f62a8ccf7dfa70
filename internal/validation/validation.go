package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kjstillabower/weather-records-service/internal/models"
)

// Human-readable messages returned in 400 responses.
const (
	MsgDateFormat       = "Date must be in YYYY-MM-DD format"
	MsgLocationEmpty    = "Location cannot be empty"
	MsgLocationTooShort = "Location must be at least 2 characters"
	MsgNotesTooLong     = "Notes cannot exceed 500 characters"
)

// Error describes a rejected create request. Field is the offending JSON field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var validate = validator.New()

// ValidateCreate trims the location and checks req against its struct tags.
// Returns the normalized request, or an *Error suitable for a 400 response.
func ValidateCreate(req models.CreateRequest) (models.CreateRequest, error) {
	req.Location = NormalizeLocation(req.Location)

	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return models.CreateRequest{}, toError(fieldErrs[0])
		}
		return models.CreateRequest{}, &Error{Message: err.Error()}
	}
	return req, nil
}

// NormalizeLocation trims surrounding whitespace from a requested location.
func NormalizeLocation(location string) string {
	return strings.TrimSpace(location)
}

// IsValidationError reports whether err is (or wraps) an *Error.
func IsValidationError(err error) bool {
	var vErr *Error
	return errors.As(err, &vErr)
}

func toError(fe validator.FieldError) *Error {
	switch fe.Field() {
	case "Date":
		return &Error{Field: "date", Message: MsgDateFormat}
	case "Location":
		if fe.Tag() == "required" {
			return &Error{Field: "location", Message: MsgLocationEmpty}
		}
		return &Error{Field: "location", Message: MsgLocationTooShort}
	case "Notes":
		return &Error{Field: "notes", Message: MsgNotesTooLong}
	}
	return &Error{Field: strings.ToLower(fe.Field()), Message: fe.Error()}
}
