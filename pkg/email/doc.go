// Package email provides the outbound mail contract for the auth service: a
// provider-agnostic EmailSender interface, a Postmark-backed implementation
// for production, a file-writing DevSender for local development, and the
// rendered messages used by the auth flows (welcome, verification, password
// reset, password-changed notification).
//
// Sending is best-effort from the caller's perspective: auth operations log
// mailer failures but never roll back because of them.
package email
