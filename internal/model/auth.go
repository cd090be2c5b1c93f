package model

// Error codes returned by the auth middleware. Access tokens are issued by
// the account service; this backend only verifies them.
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
)
