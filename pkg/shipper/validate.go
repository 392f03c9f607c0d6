package shipper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CheckRequirements returns a configuration error listing every required
// credential key that is empty in creds.
func CheckRequirements(carrier string, required []string, creds map[string]string) error {
	var missing []string
	for _, key := range required {
		if strings.TrimSpace(creds[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return ConfigurationError(carrier, "missing required credentials: "+strings.Join(missing, ", "))
	}
	return nil
}

// ValidateLocation checks the address fields. When requireCountry is set the
// country must be present.
func ValidateLocation(carrier, role string, loc Location, requireCountry bool) error {
	if requireCountry && loc.Country == "" {
		return ValidationError(carrier, "INVALID_ADDRESS", role+" country is required")
	}
	if err := validate.Struct(loc); err != nil {
		return ValidationError(carrier, "INVALID_ADDRESS", role+" "+describe(err)).WithCause(err)
	}
	return nil
}

// ValidatePackages checks that at least one package is given and that every
// weight and dimension is non-negative.
func ValidatePackages(carrier string, packages []Package) error {
	if len(packages) == 0 {
		return ValidationError(carrier, "NO_PACKAGES", "at least one package is required")
	}
	for i, pkg := range packages {
		if err := validate.Struct(pkg); err != nil {
			return ValidationError(carrier, "INVALID_PACKAGE", fmt.Sprintf("package %d %s", i, describe(err))).WithCause(err)
		}
	}
	return nil
}

// ValidateItems checks package line items.
func ValidateItems(carrier string, items []PackageItem) error {
	for i, item := range items {
		if err := validate.Struct(item); err != nil {
			return ValidationError(carrier, "INVALID_ITEM", fmt.Sprintf("item %d %s", i, describe(err))).WithCause(err)
		}
	}
	return nil
}

func describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "iso3166_1_alpha2":
		return field + " must be an ISO 3166-1 alpha-2 code"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
