package utils

import "golang.org/x/crypto/bcrypt"

// OTPHashCost keeps verification fast; codes live for minutes and guesses
// are capped by the attempt limiter.
const OTPHashCost = bcrypt.MinCost + 4

func CompareHashAndPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func GenerateFromPassword(password string, cost int) (string, bool) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(h), err == nil
}

// HashOTP hashes a one-time code for storage in phoneVerifications.
func HashOTP(otp string) (string, bool) {
	return GenerateFromPassword(otp, OTPHashCost)
}
