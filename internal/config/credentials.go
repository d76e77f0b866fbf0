package config

import (
	"crypto/subtle"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// DefaultDashboardUsername is used when DASHBOARD_USERNAME is unset.
const DefaultDashboardUsername = "admin"

// Credentials holds the dashboard operator login used to obtain API tokens.
type Credentials struct {
	Username     string
	PasswordHash string
	BcryptCost   int
	Pepper       string // optional global secret appended before hashing
}

// NewCredentials reads the dashboard login from environment variables:
// DASHBOARD_USERNAME (default: admin), DASHBOARD_PASSWORD_HASH, BCRYPT_COST
// (default: 12) and PASSWORD_PEPPER.
func NewCredentials() (*Credentials, error) {
	costStr := os.Getenv("BCRYPT_COST")
	if costStr == "" {
		costStr = "12" // default
	}

	cost, err := strconv.Atoi(costStr)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %v", err)
	}

	username := os.Getenv("DASHBOARD_USERNAME")
	if username == "" {
		username = DefaultDashboardUsername
	}

	creds := &Credentials{
		Username:     username,
		PasswordHash: os.Getenv("DASHBOARD_PASSWORD_HASH"),
		BcryptCost:   cost,
		Pepper:       os.Getenv("PASSWORD_PEPPER"),
	}

	if err := creds.normalize(); err != nil {
		return nil, err
	}

	return creds, nil
}

// normalize validates the configuration.
func (c *Credentials) normalize() error {
	if c.BcryptCost < 10 || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", c.BcryptCost)
	}
	return nil
}

// Configured reports whether a password hash is set.
func (c *Credentials) Configured() bool {
	return c.PasswordHash != ""
}

// HashPassword hashes a password using bcrypt (with optional pepper).
func (c *Credentials) HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw+c.Pepper), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// Verify checks a login against the configured username and password hash.
// It always fails when no hash is configured.
func (c *Credentials) Verify(username, pw string) bool {
	if !c.Configured() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1
	err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(pw+c.Pepper))
	return userOK && err == nil
}
