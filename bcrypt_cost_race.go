//go:build race

package identity

import "golang.org/x/crypto/bcrypt"

// Hashing at cost 14 makes race-enabled test runs crawl.
func passwordHashCost() int {
	return bcrypt.DefaultCost
}
