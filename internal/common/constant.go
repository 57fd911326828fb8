package common

const (
	// AuthorizationHeaderName carries the bearer credential on task requests.
	AuthorizationHeaderName = "Authorization"

	// BearerScheme is the authorization scheme expected by the auth gate.
	BearerScheme = "Bearer"
)
