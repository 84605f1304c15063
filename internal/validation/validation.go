package validation

import (
	"errors"
	"strings"
)

// Station id bounds for personal weather stations (e.g. KMIGLENA6).
const (
	StationIDMinLen = 4
	StationIDMaxLen = 16
)

// BuoyIDLen is the length of an NDBC station id (e.g. 45183, SBIO1).
const BuoyIDLen = 5

// ErrIDEmpty is returned when an id is empty or whitespace-only after trim.
var ErrIDEmpty = errors.New("id is required")

// ErrIDTooShort is returned when an id is below the minimum length.
var ErrIDTooShort = errors.New("id too short")

// ErrIDTooLong is returned when an id exceeds the maximum length.
var ErrIDTooLong = errors.New("id too long")

// ErrIDInvalidChars is returned when an id contains anything but ASCII letters and digits.
var ErrIDInvalidChars = errors.New("id contains invalid characters")

// ValidateStationID trims and upper-cases input and checks it is 4 to 16 ASCII
// letters or digits. The normalized id is what appears in page URLs and file names.
func ValidateStationID(input string) (string, error) {
	return validateID(input, StationIDMinLen, StationIDMaxLen)
}

// ValidateBuoyID trims and upper-cases input and checks it is a 5 character NDBC id.
func ValidateBuoyID(input string) (string, error) {
	return validateID(input, BuoyIDLen, BuoyIDLen)
}

func validateID(input string, minLen, maxLen int) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(input))
	n := len(s)
	if n == 0 {
		return "", ErrIDEmpty
	}
	for i := 0; i < n; i++ {
		if !isAllowedIDByte(s[i]) {
			return "", ErrIDInvalidChars
		}
	}
	if minLen > 0 && n < minLen {
		return "", ErrIDTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrIDTooLong
	}
	return s, nil
}

// isAllowedIDByte returns true for A-Z and 0-9. Input is already upper-cased.
func isAllowedIDByte(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
