package validator

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
)

var (
	// ErrEmptyBadge indicates the badge hex is empty after trimming
	ErrEmptyBadge = errors.New("badge hex cannot be empty")

	// ErrOddLength indicates the badge hex does not describe whole bytes
	ErrOddLength = errors.New("badge hex must have an even number of digits")

	// ErrInvalidHex indicates the badge hex contains non-hex characters
	ErrInvalidHex = errors.New("badge hex can only contain 0-9 and A-F")

	// ErrUndecodable indicates the badge bytes are not readable UTF-8 text
	ErrUndecodable = errors.New("badge hex does not decode to text")
)

// hexRegex matches upper-case hex digits only
var hexRegex = regexp.MustCompile(`^[0-9A-F]+$`)

// BadgeValidator handles validation of hex-encoded badge identifiers
type BadgeValidator struct{}

// NewBadgeValidator creates a new badge validator instance
func NewBadgeValidator() *BadgeValidator {
	return &BadgeValidator{}
}

// Validate checks a badge hex string and returns its canonical upper-case form
func (v *BadgeValidator) Validate(badge string) (string, error) {
	sanitized := v.Sanitize(badge)

	if sanitized == "" {
		return "", ErrEmptyBadge
	}

	if !hexRegex.MatchString(sanitized) {
		return "", ErrInvalidHex
	}

	if len(sanitized)%2 != 0 {
		return "", ErrOddLength
	}

	return sanitized, nil
}

// Sanitize trims surrounding whitespace and upper-cases the hex digits
func (v *BadgeValidator) Sanitize(badge string) string {
	return strings.ToUpper(strings.TrimSpace(badge))
}

// Decode interprets a badge hex as UTF-8 text, as written by badges that carry the holder's name.
// Trailing NUL padding is stripped. Empty, blank or non-UTF-8 results are rejected, as is text
// that still contains a NUL or another control character.
func (v *BadgeValidator) Decode(badge string) (string, error) {
	sanitized, err := v.Validate(badge)
	if err != nil {
		return "", err
	}

	raw, err := hex.DecodeString(sanitized)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}

	if !utf8.Valid(raw) {
		return "", ErrUndecodable
	}

	text := strings.TrimRight(string(raw), "\x00")
	if strings.TrimSpace(text) == "" {
		return "", ErrUndecodable
	}
	if strings.IndexFunc(text, unicode.IsControl) >= 0 {
		return "", ErrUndecodable
	}

	return text, nil
}

// Encode returns the upper-case hex of the UTF-8 bytes of text
func (v *BadgeValidator) Encode(text string) string {
	return strings.ToUpper(hex.EncodeToString([]byte(text)))
}

// IsValid is a convenience method that returns true if the badge hex is well formed
func (v *BadgeValidator) IsValid(badge string) bool {
	_, err := v.Validate(badge)
	return err == nil
}

// badgeHexField is the go-playground validation func behind the `badgehex` binding tag
func badgeHexField(fl playground.FieldLevel) bool {
	return NewBadgeValidator().IsValid(fl.Field().String())
}

// RegisterBindings registers the custom binding tags on gin's validator engine.
// It must run before the router serves requests.
func RegisterBindings() error {
	engine, ok := binding.Validator.Engine().(*playground.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	if err := engine.RegisterValidation("badgehex", badgeHexField); err != nil {
		return fmt.Errorf("failed to register badgehex validation: %w", err)
	}
	return nil
}
