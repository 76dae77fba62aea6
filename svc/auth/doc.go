// Package auth implements the session lifecycle of the Stackblog platform:
// registration, login, access-token refresh, logout (single and all-device),
// password change and reset, email verification, and account deletion.
//
// The service composes four collaborators, all injected at construction:
//
//   - a jwt.Service that signs and verifies the stateless access and refresh
//     tokens with distinct secrets,
//   - a password.Hasher for bcrypt hashing and the strength policy,
//   - a Storage implementation persisting identities and the three classes of
//     single-use tokens (refresh, password reset, email verification),
//   - an email.EmailSender for best-effort notification mail.
//
// Two rules shape every operation. First, the persisted store is
// authoritative: access tokens are re-resolved against the datastore on every
// request, and a refresh token whose row is gone fails even with a valid
// signature, so revocation takes effect immediately. Second, errors leak
// nothing an attacker can use: login failures are indistinguishable, password
// reset requests for unknown emails still report success, and unknown,
// expired, and already-used one-time tokens share a single generic error.
//
// Redemption of a reset or verification token and the state change it
// authorizes (new password hash, verified flag) are applied by the Storage
// implementation as one atomic unit, so a crash cannot leave a replayable
// token behind an applied change or a consumed token with no change.
package auth
