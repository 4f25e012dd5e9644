// Package authgate provides the authentication core for the Daw Manager
// backend: credential issuance and verification, TOTP-based two-factor
// enrollment with one-time recovery codes, and a store-backed sliding-window
// brute-force guard keyed by source IP.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// the [CredentialStore] contract, and value types (UserView, AttemptStats,
// TwoFactorSetup, etc.). Internal coordination (two-factor flow orchestration,
// attempt-window arithmetic) lives under internal/ and is never exported.
// Durable storage is the caller's concern: any [CredentialStore]
// implementation works, and store/postgres plus store/memory ship with the
// module.
//
// # What this package must NOT do
//
//   - Frame HTTP requests, validate request schemas, or set cookies itself.
//     The boundary maps Engine results to status codes and cookie writes
//     (helpers in cookie.go build the cookie values, nothing more).
//   - Fall open when the credential store is unreachable. A security decision
//     that cannot be made is reported as an error, never as "allow".
//   - Retry store failures internally. Errors surface typed to the caller.
package authgate
