package types

// TokenRequest is the dashboard login used to obtain an API token.
type TokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries a signed API token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// UpdateStrategyRequest replaces the sections of a stored document.
// Markdown takes precedence over Sections when both are set.
type UpdateStrategyRequest struct {
	Markdown string   `json:"markdown,omitempty"`
	Sections Sections `json:"sections,omitempty"`
}
