// Package identity implements credential based account management: password
// registration with one-time passcode activation, HMAC signed bearer tokens,
// and the lifecycle operations (activate, login, change password, update
// profile, delete) built on top of them.
//
// Downstream services that need to honor tokens minted here without sharing
// the signing key can use middleware/delegated, which validates bearer tokens
// against this service's /validateToken endpoint.
package identity
