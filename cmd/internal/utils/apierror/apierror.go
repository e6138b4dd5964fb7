package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is an error that knows the HTTP status it should be rendered with.
type ErrorResponse interface {
	error
	Code() int
}

type SimpleError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func NewSimple(code int, message string) *SimpleError {
	return &SimpleError{Status: code, Message: message}
}

func (e *SimpleError) Error() string {
	return e.Message
}

func (e *SimpleError) Code() int {
	return e.Status
}

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

type ValidationError struct {
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s (%d fields)", e.Message, len(e.Fields))
}

func (e *ValidationError) Code() int {
	return http.StatusBadRequest
}

// FromValidationError converts validator errors into a field-by-field response.
func FromValidationError(err error) ErrorResponse {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return MalformedBodyError
	}

	fields := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()}
	}
	return &ValidationError{Message: "Request validation failed", Fields: fields}
}

func NewMissingParamError(name string) ErrorResponse {
	return NewSimple(http.StatusBadRequest, fmt.Sprintf("Missing required parameter '%s'", name))
}

func NewInvalidParamTypeError(name, expected string) ErrorResponse {
	return NewSimple(http.StatusBadRequest, fmt.Sprintf("Parameter '%s' must be of type %s", name, expected))
}

func NewInvalidParamError(name, reason string) ErrorResponse {
	return NewSimple(http.StatusBadRequest, fmt.Sprintf("Invalid parameter '%s': %s", name, reason))
}

var (
	InternalServerError   = NewSimple(http.StatusInternalServerError, "Internal server error")
	MalformedBodyError    = NewSimple(http.StatusBadRequest, "Malformed request body")
	NotFoundError         = NewSimple(http.StatusNotFound, "Resource not found")
	InvalidAuthTokenError = NewSimple(http.StatusUnauthorized, "Invalid or missing auth token")
	UnknownCallerError    = NewSimple(http.StatusForbidden, "Caller is not a registered staff member")
	AdminOnlyError        = NewSimple(http.StatusForbidden, "Only administrators can perform this action")

	UserAlreadyExistsError = NewSimple(http.StatusConflict, "A user with this email already exists")

	CustomerEmailTakenError  = NewSimple(http.StatusConflict, "This email is already used by another customer")
	CustomerNotBookableError = NewSimple(http.StatusUnprocessableEntity,
		"Appointments can only be booked for active or prospect customers")
	InvalidImportFileError     = NewSimple(http.StatusBadRequest, "Import file must be a CSV of at most 5MB")
	SegmentExistsError         = NewSimple(http.StatusConflict, "A segment with this name already exists")
	AppointmentTypeExistsError = NewSimple(http.StatusConflict, "An appointment type with this name already exists")

	InvalidIntervalError           = NewSimple(http.StatusBadRequest, "End time must be after start time")
	AppointmentInPastError         = NewSimple(http.StatusBadRequest, "Appointments cannot be scheduled in the past")
	AppointmentConflictError       = NewSimple(http.StatusConflict, "The assigned staff member already has an appointment at this time")
	AppointmentNotCancellableError = NewSimple(http.StatusUnprocessableEntity, "This appointment can no longer be cancelled")
	UnknownResourceError           = NewSimple(http.StatusUnprocessableEntity, "Assigned staff member does not exist or is inactive")
	UnknownAppointmentTypeError    = NewSimple(http.StatusUnprocessableEntity, "Appointment type does not exist")
	UnknownCustomerError           = NewSimple(http.StatusUnprocessableEntity, "Customer does not exist")
	InvalidDateError               = NewSimple(http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD")
	InvalidDurationError           = NewSimple(http.StatusBadRequest, "Slot duration must be a positive number of minutes")

	AvailabilityExistsError = NewSimple(http.StatusConflict,
		"An availability window already starts at this time on this weekday")
)
