package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	domainauth "github.com/NordCoder/Gatehouse/internal/domain/auth"
)

type PasswordPolicy struct {
	MinLength      int
	MaxLength      int // bytes; bcrypt ignores everything past 72
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
	SpecialChars   string // empty means any non letter/digit
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:      12,
		MaxLength:      72,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		RequireSpecial: true,
		SpecialChars:   "@$!%*?&",
	}
}

// Check returns nil or a *domainauth.PolicyViolation naming every failed rule.
func (p PasswordPolicy) Check(password string) error {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
		if p.isSpecial(r) {
			special = true
		}
	}

	var rules []string
	if p.MinLength > 0 && utf8.RuneCountInString(password) < p.MinLength {
		rules = append(rules, fmt.Sprintf("be at least %d characters long", p.MinLength))
	}
	if p.MaxLength > 0 && len(password) > p.MaxLength {
		rules = append(rules, fmt.Sprintf("be at most %d bytes long", p.MaxLength))
	}
	if p.RequireUpper && !upper {
		rules = append(rules, "contain an uppercase letter")
	}
	if p.RequireLower && !lower {
		rules = append(rules, "contain a lowercase letter")
	}
	if p.RequireDigit && !digit {
		rules = append(rules, "contain a digit")
	}
	if p.RequireSpecial && !special {
		if p.SpecialChars != "" {
			rules = append(rules, "contain one of "+p.SpecialChars)
		} else {
			rules = append(rules, "contain a special character")
		}
	}
	if len(rules) > 0 {
		return &domainauth.PolicyViolation{Rules: rules}
	}
	return nil
}

func (p PasswordPolicy) isSpecial(r rune) bool {
	if p.SpecialChars != "" {
		return strings.ContainsRune(p.SpecialChars, r)
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
}
