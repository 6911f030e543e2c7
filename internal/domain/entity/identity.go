package entity

// Identity is the authenticated caller resolved from an access token.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}
