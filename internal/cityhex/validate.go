package cityhex

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mohammed-shakir/h3-cities/internal/core/model"
)

func ValidateResolution(res int) error {
	if res < model.MinRes || res > model.MaxRes {
		return fmt.Errorf("%w: resolution must be an integer between %d and %d (got %d)",
			ErrInvalidArgument, model.MinRes, model.MaxRes, res)
	}
	return nil
}

func ValidatePlace(place string) error {
	if !utf8.ValidString(place) {
		return fmt.Errorf("%w: place name must be valid text", ErrInvalidArgument)
	}
	if strings.TrimSpace(place) == "" {
		return fmt.Errorf("%w: place name must not be empty", ErrInvalidArgument)
	}
	return nil
}

// ParseResolution parses and range-checks a raw resolution value.
func ParseResolution(raw string) (int, error) {
	res, err := model.ParseResolution(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v; resolution must be an integer between %d and %d",
			ErrInvalidArgument, err, model.MinRes, model.MaxRes)
	}
	if err := ValidateResolution(res); err != nil {
		return 0, err
	}
	return res, nil
}
