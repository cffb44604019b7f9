package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultProfileImage is used when a registration carries no avatar.
const DefaultProfileImage = "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=150&h=150&fit=crop&crop=face"

var mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// NormalizePhone strips formatting and the +91 country code and checks the
// result is a 10 digit mobile number starting with 6-9.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 12 && strings.HasPrefix(digits, "91") {
		digits = digits[2:]
	}
	if !mobilePattern.MatchString(digits) {
		return "", fmt.Errorf("%w: enter a valid mobile number (10 digits starting with 6, 7, 8, or 9)", ErrValidation)
	}
	return digits, nil
}

// ValidateName enforces the 2..50 character display name rule.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return "", fmt.Errorf("%w: name must be between 2 and 50 characters", ErrValidation)
	}
	return name, nil
}

// ValidateProfileImage accepts absolute http(s) URLs and falls back to the
// default avatar for an empty value.
func ValidateProfileImage(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultProfileImage, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: enter a valid image URL", ErrValidation)
	}
	return raw, nil
}
