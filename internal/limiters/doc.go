// Package limiters implements the brute-force guards that sit in front of
// credential verification. The login limiter is a sliding window over
// durable attempt rows, not an in-process counter: concurrent logins from
// the same IP are counted by the store, so no writes are lost across
// processes.
package limiters
