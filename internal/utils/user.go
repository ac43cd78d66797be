package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"

	"campusdesk/internal/authz"
)

// RoleForEmail assigns student to institute addresses and public to everyone else.
func RoleForEmail(email, campusDomain string) authz.Role {
	email = strings.ToLower(strings.TrimSpace(email))
	if campusDomain != "" && strings.HasSuffix(email, "@"+strings.ToLower(campusDomain)) {
		return authz.RoleStudent
	}
	return authz.RolePublic
}

// DigitCount counts the digits in a phone number, ignoring separators.
func DigitCount(phone string) int {
	n := 0
	for _, r := range phone {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// ValidPhone reports whether phone carries at least 10 digits and nothing
// but digits, spaces, dashes and a leading plus.
func ValidPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	for i, r := range phone {
		switch {
		case unicode.IsDigit(r), r == ' ', r == '-':
		case r == '+' && i == 0:
		default:
			return false
		}
	}
	return DigitCount(phone) >= 10
}

// GenerateVerifyCode returns a 6 digit numeric code.
func GenerateVerifyCode() string {
	const digits = "0123456789"
	b := make([]byte, 6)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			b[i] = '0'
			continue
		}
		b[i] = digits[n.Int64()]
	}
	return string(b)
}
