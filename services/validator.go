package services

import (
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"hpi-affordability/models"
	"hpi-affordability/utils"
)

// RowValidator enforces the output table schema row by row.
type RowValidator struct {
	validate *validator.Validate
	logger   *utils.Logger
}

// NewRowValidator creates a RowValidator with the schema rules registered.
func NewRowValidator(logger *utils.Logger) *RowValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("notblank", notBlank)
	_ = v.RegisterValidation("finite", finite)
	return &RowValidator{validate: v, logger: logger}
}

// Validate returns the rows that satisfy the schema and how many did not.
func (v *RowValidator) Validate(rows []models.AffordabilityRow) ([]models.AffordabilityRow, int) {
	valid := make([]models.AffordabilityRow, 0, len(rows))
	invalid := 0
	for _, row := range rows {
		if err := v.validate.Struct(row); err != nil {
			invalid++
			v.logger.Debug("[validator] Rejected %s/%s: %v", row.RegionName, row.DateString(), err)
			continue
		}
		valid = append(valid, row)
	}

	if invalid > 0 {
		v.logger.Warn("[validator] Validation complete. Found %d invalid rows (not loaded), %d valid", invalid, len(valid))
	} else {
		v.logger.Info("[validator] Validation successful. All %d rows are valid", len(valid))
	}
	return valid, invalid
}

func notBlank(fl validator.FieldLevel) bool {
	f := fl.Field()
	return f.Kind() == reflect.String && strings.TrimSpace(f.String()) != ""
}

func finite(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() == reflect.Ptr {
		if f.IsNil() {
			return true
		}
		f = f.Elem()
	}
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		x := f.Float()
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	default:
		return false
	}
}
