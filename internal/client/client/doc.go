// Package client is the device's remote transport: a gRPC client for the
// checkpost server.
//
// # Overview
//
// The Client interface lists the operations the sync engine and the REPL
// need: login and token refresh, passage push, unmatched-passage pull, the
// authoritative match call, segment bounds and photo upload URLs.
// GRPCClient implements it over a single connection using the JSON codec
// registered by internal/proto. An interceptor attaches the access token to
// every call and, when the server answers "token expired", rotates the
// token pair once and retries.
//
// # Error Handling
//
// gRPC status codes are mapped to sentinel errors matched with errors.Is:
//
//	Unauthenticated, PermissionDenied -> ErrUnauthorized
//	Unavailable, DeadlineExceeded     -> ErrUnavailable
//	AlreadyExists                     -> ErrConflict
//	InvalidArgument                   -> ErrRejected (ErrInvalidPair from Match)
//	NotFound                          -> ErrNotFound
//
// GRPCClient is safe for concurrent use.
package client
