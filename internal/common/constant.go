// Package common contains shared constants and sentinel errors used across
// the circulation server and its admin client.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound and outbound requests.
const AccessTokenHeaderName = "access_token"

// Holder roles carried in access token claims.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
