package validation

import (
	"fmt"
	"strings"
)

// ValidateRedemptionName checks the redemption name is not blank
func ValidateRedemptionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("invalid redemption name. Name cannot be empty")
	}
	return nil
}

// ValidateCredentials checks login answers are usable
func ValidateCredentials(username, password string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	return nil
}
