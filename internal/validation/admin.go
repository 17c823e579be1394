package validation

import (
	"regexp"
	"strings"

	"scwatch/internal/domain"
)

var emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email normalizes and checks an address used to grant admin access.
func Email(raw string) (string, error) {
	e := strings.TrimSpace(raw)
	verr := &domain.ValidationError{}
	switch {
	case e == "":
		verr.Add("email", "Email is required")
	case !emailRx.MatchString(e):
		verr.Add("email", "Invalid email format")
	}
	return e, verr.Err()
}

// RejectionReason requires a non-blank reason and returns it verbatim.
func RejectionReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		verr := &domain.ValidationError{}
		verr.Add("rejectionReason", "Rejection reason is required")
		return verr
	}
	return nil
}
