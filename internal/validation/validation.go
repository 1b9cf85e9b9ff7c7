package validation

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kjstillabower/weather-report-service/internal/models"
)

// ErrCoordinateMissing is returned when lat or lon is empty after trim.
var ErrCoordinateMissing = errors.New("lat and lon are required")

// ErrCoordinateNotNumber is returned when lat or lon is not a finite decimal number.
var ErrCoordinateNotNumber = errors.New("lat and lon must be decimal numbers")

// ErrLatitudeRange is returned when lat is outside [-90, 90].
var ErrLatitudeRange = errors.New("lat must be between -90 and 90")

// ErrLongitudeRange is returned when lon is outside [-180, 180].
var ErrLongitudeRange = errors.New("lon must be between -180 and 180")

// ErrUnitsInvalid is returned when units is neither metric nor imperial.
var ErrUnitsInvalid = errors.New("units must be metric or imperial")

var validate = validator.New()

// ValidateCoordinates parses query-string coordinates into a Point. Errors are
// suitable for 400 INVALID_COORDINATES responses.
func ValidateCoordinates(lat, lon string) (models.Point, error) {
	lat, lon = strings.TrimSpace(lat), strings.TrimSpace(lon)
	if lat == "" || lon == "" {
		return models.Point{}, ErrCoordinateMissing
	}
	latV, err := parseFinite(lat)
	if err != nil {
		return models.Point{}, err
	}
	lonV, err := parseFinite(lon)
	if err != nil {
		return models.Point{}, err
	}

	p := models.Point{Lat: latV, Lon: lonV}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Lon" {
			return models.Point{}, ErrLongitudeRange
		}
		return models.Point{}, ErrLatitudeRange
	}
	return p, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrCoordinateNotNumber
	}
	return v, nil
}

// ParseUnits maps the units query value to the metric flag. Empty means metric.
func ParseUnits(units string) (metric bool, err error) {
	switch strings.ToLower(strings.TrimSpace(units)) {
	case "", "metric":
		return true, nil
	case "imperial":
		return false, nil
	default:
		return false, ErrUnitsInvalid
	}
}
