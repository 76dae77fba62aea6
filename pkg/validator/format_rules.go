package validator

import (
	"net/mail"
	"regexp"
	"strings"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

// ValidEmail validates that a string is a usable email address. The mail
// parser accepts addresses that typical web forms should not (no dot in the
// domain, display names), so additional checks narrow it down.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if strings.TrimSpace(value) == "" {
				return false
			}

			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value {
				return false
			}

			parts := strings.Split(addr.Address, "@")
			if len(parts) != 2 {
				return false
			}

			local := parts[0]
			domain := parts[1]

			if local == "" {
				return false
			}

			return strings.Contains(domain, ".") &&
				!strings.HasPrefix(domain, ".") &&
				!strings.HasSuffix(domain, ".")
		},
		Error: ValidationError{
			Field:   field,
			Message: "must be a valid email address",
		},
	}
}

// ValidUsername restricts usernames to word characters, 3-30 long.
func ValidUsername(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return usernameRegex.MatchString(value)
		},
		Error: ValidationError{
			Field:   field,
			Message: "must be 3-30 characters of letters, digits, or underscores",
		},
	}
}

// Required rejects empty or whitespace-only values.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return strings.TrimSpace(value) != ""
		},
		Error: ValidationError{
			Field:   field,
			Message: "is required",
		},
	}
}
