// Package session holds the redis-backed token revocation table. The engine
// stays stateless about issued tokens except for this side table: logout
// writes the token's digest with a TTL equal to the token's remaining
// lifetime, and authentication consults the table before trusting a
// signature. The table is best effort by design; redis being down degrades
// logout to "token valid until expiry", never to an outage.
package session
