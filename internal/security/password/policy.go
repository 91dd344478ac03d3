// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package password

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
	"unicode"
)

//go:embed common_passwords.txt
var commonPasswordsFS embed.FS

var commonPasswords map[string]struct{}

func init() {
	commonPasswords = make(map[string]struct{})
	file, err := commonPasswordsFS.Open("common_passwords.txt")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		pw := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if pw != "" {
			commonPasswords[pw] = struct{}{}
		}
	}
}

// Validator validates new passwords against the account policy.
type Validator struct {
	MinLength            int
	CheckCommonPasswords bool
	CheckUserSimilarity  bool
}

// DefaultValidator returns a validator with sensible defaults.
func DefaultValidator() *Validator {
	return &Validator{
		MinLength:            10,
		CheckCommonPasswords: true,
		CheckUserSimilarity:  true,
	}
}

// ValidationError represents a single password validation error.
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// PolicyError wraps all validation errors of one attempt.
type PolicyError struct {
	Errors []ValidationError
}

func (e *PolicyError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return e.Errors[0].Message
}

// Messages returns all error messages.
func (e *PolicyError) Messages() []string {
	messages := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		messages[i] = err.Message
	}
	return messages
}

// Validate checks a candidate password. userAttributes (email, name) feed the
// similarity check. A nil return means the password is acceptable.
func (v *Validator) Validate(candidate string, userAttributes ...string) error {
	var errs []ValidationError

	if len(candidate) < v.MinLength {
		errs = append(errs, ValidationError{
			Code:    "min_length",
			Message: fmt.Sprintf("Password must be at least %d characters long.", v.MinLength),
		})
	}

	if isEntirelyNumeric(candidate) {
		errs = append(errs, ValidationError{
			Code:    "entirely_numeric",
			Message: "Password cannot be entirely numeric.",
		})
	}

	if v.CheckCommonPasswords {
		if _, common := commonPasswords[strings.ToLower(candidate)]; common {
			errs = append(errs, ValidationError{
				Code:    "common_password",
				Message: "This password is too common. Please choose a more secure password.",
			})
		}
	}

	if v.CheckUserSimilarity && isSimilarToUserAttributes(candidate, userAttributes) {
		errs = append(errs, ValidationError{
			Code:    "too_similar",
			Message: "Password is too similar to your personal information.",
		})
	}

	if len(errs) > 0 {
		return &PolicyError{Errors: errs}
	}
	return nil
}

func isEntirelyNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

func isSimilarToUserAttributes(candidate string, attributes []string) bool {
	candidateLower := strings.ToLower(candidate)

	for _, attr := range attributes {
		if attr == "" {
			continue
		}
		attrLower := strings.ToLower(attr)

		if strings.Contains(candidateLower, attrLower) || strings.Contains(attrLower, candidateLower) {
			return true
		}
	}

	return false
}
