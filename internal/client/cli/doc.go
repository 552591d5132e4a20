// Package cli implements the library admin command-line client.
//
// Each invocation runs a single command against the server and exits:
//
//	librarian-cli -a 127.0.0.1:50051 login
//	librarian-cli -at <access> -rt <refresh> refresh
//	librarian-cli -at <access> checkout <copy-id> [holder-id] [days]
//	librarian-cli -at <access> return <copy-id>
//	librarian-cli -at <access> reclaim
//	librarian-cli -at <access> sweep
//
// login and refresh print the issued token pair to stdout; later commands
// take it back through -at and -rt. When the access token has expired and a
// refresh token is supplied, the client rotates the pair transparently.
package cli
