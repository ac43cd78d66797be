package services

import (
	"fmt"
	"math/rand/v2"
)

// CaptchaService issues the arithmetic challenge shown on sign-up.
type CaptchaService struct{}

func NewCaptchaService() *CaptchaService {
	return &CaptchaService{}
}

// GenerateMathProblem returns a question such as "7 - 3" and its answer.
// The answer is kept server-side in the session.
func (s *CaptchaService) GenerateMathProblem() (string, int) {
	a, b := rand.IntN(10), rand.IntN(10)
	if rand.IntN(2) == 0 {
		return fmt.Sprintf("%d + %d", a, b), a + b
	}
	if a < b {
		a, b = b, a
	}
	return fmt.Sprintf("%d - %d", a, b), a - b
}
