package buyers

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	"github.com/jordanlanch/leadbook/pkg/domain"
	"github.com/jordanlanch/leadbook/pkg/enums"
	"github.com/jordanlanch/leadbook/pkg/models"
)

var phonePattern = regexp.MustCompile(`^\d{10,15}$`)

// Validator normalizes and validates buyer input. Normalization runs
// first so enum fields are canonical before structural and cross-field
// checks; all failures are accumulated into one validation error rather
// than stopping at the first.
type Validator struct {
	validate *validator.Validate
	norm     *enums.Normalizer
}

// NewValidator creates a buyer validator over the given enum vocabulary.
func NewValidator(norm *enums.Normalizer) *Validator {
	v := validator.New()

	// Report failures under the json field name, not the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v, norm: norm}
}

// ValidateAndNormalize checks the input and rewrites its enum fields to
// canonical codes in place. On failure it returns a validation error
// carrying every field problem found.
func (v *Validator) ValidateAndNormalize(input *models.BuyerInput) error {
	var fields []domain.FieldError

	fields = append(fields, v.normalizeEnums(input)...)
	fields = append(fields, v.structural(input)...)
	fields = append(fields, v.phone(input)...)
	fields = append(fields, v.crossField(input)...)

	if len(fields) > 0 {
		return domain.NewValidationError(fields...)
	}
	return nil
}

func (v *Validator) normalizeEnums(input *models.BuyerInput) []domain.FieldError {
	var fields []domain.FieldError

	// Status and priority default when absent; the other enum fields are
	// required and an empty value is reported by the structural pass.
	if input.Status == "" {
		input.Status = v.norm.DefaultFor(enums.FieldStatus)
	}
	if input.Priority == "" {
		input.Priority = v.norm.DefaultFor(enums.FieldPriority)
	}

	norm := func(field string, value *string) {
		if *value == "" {
			return
		}
		canonical, err := v.norm.ToCanonical(field, *value)
		if err != nil {
			fields = append(fields, domain.ValidationFields(err)...)
			return
		}
		*value = canonical
	}

	norm(enums.FieldCity, &input.City)
	norm(enums.FieldPropertyType, &input.PropertyType)
	norm(enums.FieldBHK, &input.BHK)
	norm(enums.FieldPurpose, &input.Purpose)
	norm(enums.FieldTimeline, &input.Timeline)
	norm(enums.FieldSource, &input.Source)
	norm(enums.FieldStatus, &input.Status)
	norm(enums.FieldPriority, &input.Priority)

	return fields
}

func (v *Validator) structural(input *models.BuyerInput) []domain.FieldError {
	err := v.validate.Struct(input)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []domain.FieldError{{Field: "input", Message: err.Error()}}
	}

	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, domain.FieldError{
			Field:   fe.Field(),
			Message: tagMessage(fe),
		})
	}
	return fields
}

func (v *Validator) phone(input *models.BuyerInput) []domain.FieldError {
	if input.Phone == "" {
		return nil // structural already reports the missing value
	}

	digits := phonenumbers.NormalizeDigitsOnly(input.Phone)
	if !phonePattern.MatchString(digits) {
		return []domain.FieldError{{
			Field:   "phone",
			Message: "must contain 10 to 15 digits",
		}}
	}
	input.Phone = digits
	return nil
}

func (v *Validator) crossField(input *models.BuyerInput) []domain.FieldError {
	var fields []domain.FieldError

	if input.BudgetMin != nil && input.BudgetMax != nil && *input.BudgetMax < *input.BudgetMin {
		fields = append(fields, domain.FieldError{
			Field:   "budget_max",
			Message: "must be greater than or equal to budget_min",
		})
	}

	needsBHK := input.PropertyType == enums.PropertyApartment || input.PropertyType == enums.PropertyVilla
	if needsBHK && input.BHK == "" {
		fields = append(fields, domain.FieldError{
			Field:   "bhk",
			Message: "is required for Apartment and Villa properties",
		})
	}

	return fields
}

// tagMessage translates a validator tag failure into a human message.
func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
