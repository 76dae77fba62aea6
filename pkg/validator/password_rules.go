package validator

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	uppercaseRegex   = regexp.MustCompile(`[A-Z]`)
	lowercaseRegex   = regexp.MustCompile(`[a-z]`)
	digitRegex       = regexp.MustCompile(`[0-9]`)
	specialCharRegex = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?~` + "`" + `]`)

	// Common weak passwords - curated list of frequently compromised passwords
	commonPasswords = map[string]bool{
		"password":      true,
		"123456":        true,
		"12345678":      true,
		"123456789":     true,
		"1234567890":    true,
		"password123":   true,
		"password1":     true,
		"password12":    true,
		"password!":     true,
		"qwerty":        true,
		"qwerty123":     true,
		"qwertyuiop":    true,
		"abc123":        true,
		"abcd1234":      true,
		"letmein":       true,
		"welcome":       true,
		"monkey":        true,
		"dragon":        true,
		"sunshine":      true,
		"iloveyou":      true,
		"princess":      true,
		"football":      true,
		"baseball":      true,
		"admin":         true,
		"admin123":      true,
		"administrator": true,
		"root":          true,
		"toor":          true,
		"guest":         true,
		"test":          true,
		"testing":       true,
		"user":          true,
		"login":         true,
		"master":        true,
		"secret":        true,
		"trustno1":      true,
		"superman":      true,
		"batman":        true,
		"pokemon":       true,
		"shadow":        true,
		"111111":        true,
		"000000":        true,
		"123123":        true,
		"654321":        true,
		"1q2w3e4r":      true,
		"1qaz2wsx":      true,
		"zaq12wsx":      true,
		"qazwsx":        true,
		"asdfghjkl":     true,
		"zxcvbnm":       true,
		"123qwe":        true,
		"qwe123":        true,
	}
)

// PasswordPolicy defines length bounds for password validation.
type PasswordPolicy struct {
	MinLength int
	MaxLength int
}

// DefaultPasswordPolicy returns the platform policy: 8-128 characters with all
// four character classes required.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength: 8,
		MaxLength: 128,
	}
}

func PasswordMinLength(field, value string, min int) Rule {
	return Rule{
		Check: func() bool {
			return len(value) >= min
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("password must be at least %d characters long", min),
		},
	}
}

func PasswordMaxLength(field, value string, max int) Rule {
	return Rule{
		Check: func() bool {
			return len(value) <= max
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("password must be no longer than %d characters", max),
		},
	}
}

func PasswordUppercase(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return uppercaseRegex.MatchString(value)
		},
		Error: ValidationError{
			Field:   field,
			Message: "password must contain at least one uppercase letter",
		},
	}
}

func PasswordLowercase(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return lowercaseRegex.MatchString(value)
		},
		Error: ValidationError{
			Field:   field,
			Message: "password must contain at least one lowercase letter",
		},
	}
}

func PasswordDigit(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return digitRegex.MatchString(value)
		},
		Error: ValidationError{
			Field:   field,
			Message: "password must contain at least one digit",
		},
	}
}

func PasswordSpecialChar(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return specialCharRegex.MatchString(value)
		},
		Error: ValidationError{
			Field:   field,
			Message: "password must contain at least one special character",
		},
	}
}

func NotCommonPassword(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return !commonPasswords[strings.ToLower(value)]
		},
		Error: ValidationError{
			Field:   field,
			Message: "password is too common, please choose a different one",
		},
	}
}

// PasswordRules bundles the full policy so callers get every violation at once.
func PasswordRules(field, value string, policy PasswordPolicy) []Rule {
	return []Rule{
		PasswordMinLength(field, value, policy.MinLength),
		PasswordMaxLength(field, value, policy.MaxLength),
		PasswordLowercase(field, value),
		PasswordUppercase(field, value),
		PasswordDigit(field, value),
		PasswordSpecialChar(field, value),
		NotCommonPassword(field, value),
	}
}
