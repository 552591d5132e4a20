// Package client is the gRPC client of the library server used by the
// admin CLI.
//
// GRPCClient keeps the access and refresh tokens of the logged-in holder,
// attaches the access token to every call and, when the server reports an
// expired access token, rotates the pair once and retries the call.
//
// gRPC status codes are mapped to the sentinel errors in errors.go so
// callers can match them with errors.Is.
package client
