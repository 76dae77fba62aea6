// Package validator provides rule-based input validation with aggregated
// errors.
//
// A Rule pairs a check closure with the ValidationError reported when the
// check fails. Apply runs every rule and collects all violations into a
// ValidationErrors value, so a caller can present the complete list of
// problems instead of failing on the first one.
//
// # Usage
//
//	err := validator.Apply(
//		validator.ValidEmail("email", email),
//		validator.Required("username", username),
//	)
//	if ve := validator.ExtractValidationErrors(err); ve != nil {
//		// map ve to a 422 response
//	}
//
// Password rules implement the platform password policy: length bounds, the
// four character classes, and a deny-list of commonly compromised passwords.
package validator
