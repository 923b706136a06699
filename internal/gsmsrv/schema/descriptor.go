package schema

import (
	"encoding/json"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// V returns the singleton validator used for descriptor validation.
func V() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterValidation("semverExact", validateSemverExact)
	})
	return validate
}

// validateSemverExact accepts only strict x.y.z semantic versions.
func validateSemverExact(fl validator.FieldLevel) bool {
	_, err := semver.StrictNewVersion(fl.Field().String())
	return err == nil
}

// CatalogueDescriptor is the metadata document submitted with an upload. The
// version it names becomes the catalogue version on commit.
type CatalogueDescriptor struct {
	Version       string  `json:"version" validate:"required,semverExact"`
	CatalogueName string  `json:"catalogue_name" validate:"required,max=128"`
	Description   string  `json:"description" validate:"required,max=1024"`
	RefFreq       float64 `json:"ref_freq" validate:"required,gt=0"`
	Epoch         string  `json:"epoch" validate:"required,max=32"`
	Author        string  `json:"author,omitempty" validate:"max=256"`
	Reference     string  `json:"reference,omitempty" validate:"max=512"`
	Notes         string  `json:"notes,omitempty" validate:"max=2048"`
}

// ParseCatalogueDescriptor decodes and validates a descriptor document.
func ParseCatalogueDescriptor(data []byte) (*CatalogueDescriptor, ValidationErrors) {
	var d CatalogueDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, ValidationErrors{{Field: "metadata", ErrStr: "unable to parse descriptor: " + err.Error()}}
	}
	if errs := d.Validate(); errs != nil {
		return nil, errs
	}
	return &d, nil
}

// Validate checks the descriptor fields and returns one error per bad field.
func (d *CatalogueDescriptor) Validate() ValidationErrors {
	err := V().Struct(d)
	if err == nil {
		return nil
	}
	var errs ValidationErrors
	if ves, ok := err.(validator.ValidationErrors); ok {
		for _, ve := range ves {
			errs = append(errs, ValidationError{
				Field:  jsonFieldName(ve.Field()),
				ErrStr: descriptorErrStr(ve),
			})
		}
		return errs
	}
	return ValidationErrors{{Field: "metadata", ErrStr: err.Error()}}
}

func descriptorErrStr(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required field is missing"
	case "semverExact":
		return "must be a semantic version of the form x.y.z"
	case "max":
		return "exceeds maximum length"
	case "gt":
		return "must be positive"
	default:
		return "invalid value"
	}
}

// jsonFieldName maps struct field names to their wire names.
func jsonFieldName(field string) string {
	switch field {
	case "Version":
		return "version"
	case "CatalogueName":
		return "catalogue_name"
	case "Description":
		return "description"
	case "RefFreq":
		return "ref_freq"
	case "Epoch":
		return "epoch"
	case "Author":
		return "author"
	case "Reference":
		return "reference"
	case "Notes":
		return "notes"
	default:
		return field
	}
}
