package types

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// Airline designator (2-3 chars) followed by a 1-4 digit flight number and an optional suffix.
	callSignPattern = regexp.MustCompile(`^[A-Z0-9]{2,3}[0-9]{1,4}[A-Z]?$`)
	// IATA (3) or ICAO (4) airport code.
	airportPattern = regexp.MustCompile(`^[A-Z]{3,4}$`)
)

var entityValidator = newEntityValidator()

func newEntityValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("callsign", func(fl validator.FieldLevel) bool {
		return callSignPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("airport", func(fl validator.FieldLevel) bool {
		return airportPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
		e, ok := fl.Field().Interface().(interface{ Valid() bool })
		return ok && e.Valid()
	})
	return v
}

// ValidateStruct runs the struct tag rules and converts the first failure into a
// validation AppError naming the offending field by its JSON path.
func ValidateStruct(s any) error {
	err := entityValidator.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewAppError(ErrCodeValidationInvalidEntity, err.Error(), err)
	}
	fe := verrs[0]
	return NewValidationError(fieldPath(fe.Namespace()), describeTag(fe))
}

// fieldPath drops the root type name from a validator namespace ("Flight.position.lat").
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "enum":
		return fmt.Sprintf("unknown value %q", fmt.Sprint(fe.Value()))
	case "callsign":
		return "is not a valid call sign"
	case "airport":
		return "is not a valid airport code"
	case "gte", "gt", "lte", "lt", "min", "max":
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// Validate checks field ranges and the airborne-only kinematics rule.
func (f Flight) Validate() error {
	if err := ValidateStruct(f); err != nil {
		return err
	}
	if f.Status != FlightAirborne {
		if f.Altitude != 0 {
			return NewValidationError("altitude", "must be zero unless airborne")
		}
		if f.Speed != 0 {
			return NewValidationError("speed", "must be zero unless airborne")
		}
	}
	return nil
}

// Validate checks field ranges and that maintenance status and operation agree.
func (r Runway) Validate() error {
	if err := ValidateStruct(r); err != nil {
		return err
	}
	if (r.Status == RunwayMaintenance) != (r.Operation == OperationMaintenance) {
		return NewValidationError("operation", "must be maintenance exactly when status is maintenance")
	}
	return nil
}

// Validate checks weather value ranges.
func (w WeatherSnapshot) Validate() error {
	return ValidateStruct(w)
}

// NewFlight returns f if it satisfies every flight invariant.
func NewFlight(f Flight) (Flight, error) {
	if err := f.Validate(); err != nil {
		return Flight{}, err
	}
	return f, nil
}

// NewRunway returns r if it satisfies every runway invariant.
func NewRunway(r Runway) (Runway, error) {
	if err := r.Validate(); err != nil {
		return Runway{}, err
	}
	return r, nil
}

// NewWeatherSnapshot returns w if its values are in range.
func NewWeatherSnapshot(w WeatherSnapshot) (WeatherSnapshot, error) {
	if err := w.Validate(); err != nil {
		return WeatherSnapshot{}, err
	}
	return w, nil
}

// ValidateSnapshot checks every entity and the cross-entity references of s.
// Field names in the returned error are prefixed with the collection and index.
func ValidateSnapshot(s *Snapshot) error {
	runways := make(map[string]struct{}, len(s.Runways))
	for i, r := range s.Runways {
		if err := r.Validate(); err != nil {
			return prefixField(err, fmt.Sprintf("runways[%d]", i))
		}
		if _, dup := runways[r.ID]; dup {
			return NewValidationError(fmt.Sprintf("runways[%d].id", i), "duplicate runway id")
		}
		runways[r.ID] = struct{}{}
	}

	callSigns := make(map[string]struct{}, len(s.Flights))
	for i, f := range s.Flights {
		if err := f.Validate(); err != nil {
			return prefixField(err, fmt.Sprintf("flights[%d]", i))
		}
		if _, dup := callSigns[f.CallSign]; dup {
			return NewValidationError(fmt.Sprintf("flights[%d].callSign", i), "duplicate call sign")
		}
		callSigns[f.CallSign] = struct{}{}
		if f.AssignedRunway != "" {
			if _, ok := runways[f.AssignedRunway]; !ok {
				return NewValidationError(fmt.Sprintf("flights[%d].assignedRunway", i), "references unknown runway")
			}
		}
	}

	if err := s.Weather.Validate(); err != nil {
		return prefixField(err, "weather")
	}
	for i, w := range s.Forecast {
		if err := w.Validate(); err != nil {
			return prefixField(err, fmt.Sprintf("forecast[%d]", i))
		}
	}
	return nil
}

func prefixField(err error, prefix string) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return err
	}
	field := FieldOf(err)
	if field == "" {
		return err
	}
	return appErr.WithDetails(map[string]any{"field": prefix + "." + field})
}
