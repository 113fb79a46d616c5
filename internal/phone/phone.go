// Package phone canonicalizes Sri Lankan phone numbers and derives the
// synthetic email used as the auth identifier for phone-only accounts.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

const (
	CountryCode     = "94"
	AuthEmailDomain = "toolntask.app"
)

var ErrInvalidPhone = errors.New("invalid phone number")

var (
	separators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "\t", "")
	e164       = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)
	sriLankan  = regexp.MustCompile(`^\+94\d{9}$`)
	digitsOnly = regexp.MustCompile(`^\d+$`)
)

// Normalize maps user input such as "077 123-4567", "0094771234567" or
// "94771234567" to "+94771234567". Numbers already carrying a "+" are kept
// as-is after validation.
func Normalize(raw string) (string, error) {
	p := separators.Replace(strings.TrimSpace(raw))
	if p == "" {
		return "", ErrInvalidPhone
	}

	if strings.HasPrefix(p, "+") {
		if !e164.MatchString(p) {
			return "", ErrInvalidPhone
		}
		if strings.HasPrefix(p, "+"+CountryCode) && !sriLankan.MatchString(p) {
			return "", ErrInvalidPhone
		}
		return p, nil
	}

	if !digitsOnly.MatchString(p) {
		return "", ErrInvalidPhone
	}

	switch {
	case strings.HasPrefix(p, "00"+CountryCode):
		p = "+" + strings.TrimPrefix(p, "00")
	case strings.HasPrefix(p, "0"):
		p = "+" + CountryCode + strings.TrimPrefix(p, "0")
	case strings.HasPrefix(p, CountryCode) && len(p) == 11:
		p = "+" + p
	default:
		p = "+" + CountryCode + p
	}

	if !sriLankan.MatchString(p) {
		return "", ErrInvalidPhone
	}
	return p, nil
}

// AuthEmail returns "<digits>@toolntask.app" for the canonical form of raw.
func AuthEmail(raw string) (string, error) {
	p, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(p, "+") + "@" + AuthEmailDomain, nil
}

// IsSyntheticEmail reports whether email was derived by AuthEmail.
func IsSyntheticEmail(email string) bool {
	return strings.HasSuffix(strings.ToLower(email), "@"+AuthEmailDomain)
}

// Variants lists the formats a canonical Sri Lankan number may have been
// stored under by older clients. Non-Sri Lankan numbers have one variant.
func Variants(canonical string) []string {
	if !sriLankan.MatchString(canonical) {
		return []string{canonical}
	}
	subscriber := strings.TrimPrefix(canonical, "+"+CountryCode)
	return []string{
		canonical,
		CountryCode + subscriber,
		"0" + subscriber,
		subscriber,
	}
}
