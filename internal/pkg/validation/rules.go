package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/yigit/unisync/internal/pkg/apperrors"
)

// Validation rule patterns
var (
	// Enrollment record: two-digit cohort year, degree letter, four digits (e.g. 21B4821)
	EnrollmentRecordPattern = `^\d{2}[BMA]\d{4}$`

	// Group name: program prefix, two-digit number, two-digit cohort year (e.g. IKBO-03-21)
	GroupNamePattern = `^[A-Z]+-\d{2}-\d{2}$`

	// Specialty code: three dotted two-digit parts (e.g. 09.03.04)
	SpecialtyCodePattern = `^\d{2}\.\d{2}\.\d{2}$`
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	EnrollmentRecord *regexp.Regexp
	GroupName        *regexp.Regexp
	SpecialtyCode    *regexp.Regexp
}{
	EnrollmentRecord: regexp.MustCompile(EnrollmentRecordPattern),
	GroupName:        regexp.MustCompile(GroupNamePattern),
	SpecialtyCode:    regexp.MustCompile(SpecialtyCodePattern),
}

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the domain tags registered:
// enrollment_record, group_name and specialty_code.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		mustRegister(v, "enrollment_record", CompiledPatterns.EnrollmentRecord)
		mustRegister(v, "group_name", CompiledPatterns.GroupName)
		mustRegister(v, "specialty_code", CompiledPatterns.SpecialtyCode)
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

// Struct validates s and flattens field errors into one readable validation error.
func Struct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error(), err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return apperrors.NewValidationError(strings.Join(msgs, "; "), err)
}

// Var validates a single value against a tag expression.
func Var(field interface{}, tag string) error {
	if err := Validator().Var(field, tag); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("value %v failed on '%s'", field, tag), err)
	}
	return nil
}
