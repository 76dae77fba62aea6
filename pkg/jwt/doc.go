// Package jwt signs and verifies the two classes of stateless bearer tokens
// used by the auth service: short-lived access tokens and long-lived refresh
// tokens.
//
// Both classes carry the same minimal claim set (user ID, email, role plus
// the registered issuer/audience/expiry claims) but are signed with distinct
// HMAC-SHA256 secrets, so compromise of one signing key does not allow minting
// tokens of the other class.
//
// Verification distinguishes an expired token (valid signature, past expiry)
// from an invalid one (malformed, bad signature, wrong issuer or audience).
// Callers rely on this split: expired access tokens prompt a refresh, invalid
// ones force a re-login.
//
// DecodeUnsafe exists for diagnostics only and must never feed an
// authorization decision.
package jwt
