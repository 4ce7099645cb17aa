package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/harentsoaR/hospital-api/internal/models"
)

const dateLayout = "2006-01-02"

// parseDate accepts a calendar date or an RFC 3339 timestamp and returns the
// instant in UTC.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// NewValidator returns a validator that reads field names from json tags and
// knows the domain rules: digits, department, timeslot and calendardate.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = RegisterValidators(v)
	return v
}

// RegisterValidators adds the domain validation tags to v.
func RegisterValidators(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"digits": func(fl validator.FieldLevel) bool {
			for _, r := range fl.Field().String() {
				if r < '0' || r > '9' {
					return false
				}
			}
			return true
		},
		"department": func(fl validator.FieldLevel) bool {
			return models.IsDepartment(fl.Field().String())
		},
		"timeslot": func(fl validator.FieldLevel) bool {
			return IsSlot(fl.Field().String())
		},
		"calendardate": func(fl validator.FieldLevel) bool {
			_, err := parseDate(fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

var fieldLabels = map[string]string{
	"firstName":        "First Name",
	"lastName":         "Last Name",
	"email":            "Email",
	"phone":            "Phone Number",
	"nic":              "NIC",
	"dob":              "Date Of Birth",
	"gender":           "Gender",
	"password":         "Password",
	"appointment_date": "Appointment Date",
	"select_time":      "Appointment Time",
	"department":       "Department",
	"doctorDepartment": "Doctor Department",
	"message":          "Message",
	"status":           "Status",
}

// describe turns the first validator failure into a client-facing error.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	var msg string
	switch fe.Tag() {
	case "min":
		msg = fmt.Sprintf("%s Must Contain At Least %s Characters!", label, fe.Param())
	case "len":
		msg = fmt.Sprintf("%s Must Contain Exactly %s Digits!", label, fe.Param())
	case "digits":
		msg = fmt.Sprintf("%s Must Contain Only Digits!", label)
	case "email":
		msg = "Please Provide A Valid Email!"
	case "oneof", "department", "timeslot":
		msg = fmt.Sprintf("Invalid %s!", label)
	case "calendardate":
		msg = fmt.Sprintf("Invalid %s", label)
	default:
		msg = fmt.Sprintf("%s Is Invalid!", label)
	}
	return validationError(msg)
}

// allSet reports whether every value is non-empty.
func allSet(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}
