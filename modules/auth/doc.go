// Package auth is the HTTP surface of the session service: a chi router with
// the register/login/refresh/logout endpoints, the password reset and email
// verification flows, and the bearer-token middleware.
//
// Status codes are part of the contract: 201 on registration, 409 for taken
// identifiers, 422 with per-field details for weak passwords, 401 for
// credential and access/refresh token failures, and 400 for unusable one-time
// tokens. Reset and verification failures share one generic body regardless of
// whether the token was unknown, expired, or already used.
package auth
