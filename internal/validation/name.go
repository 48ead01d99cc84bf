package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrInvalidName = errors.New("invalid name")

// ValidateName validates the first name shown in the drive
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}

	if utf8.RuneCountInString(trimmed) > 100 {
		return fmt.Errorf("%w: name is too long (max 100 characters)", ErrInvalidName)
	}

	return nil
}

// ValidateOptionalName accepts an empty value, otherwise applies ValidateName.
func ValidateOptionalName(name string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	return ValidateName(name)
}
