// Package password provides one-way password hashing and verification backed
// by bcrypt, the platform password-strength policy, and generation of opaque
// random tokens.
//
// Strength validation never returns an internal error: a failing password
// yields validator.ValidationErrors listing every violated rule, suitable for
// rendering a complete checklist in a client.
package password
