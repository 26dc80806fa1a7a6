package client

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrConflict     = errors.New("passage already matched")
	ErrInvalidPair  = errors.New("invalid passage pair")
	ErrRejected     = errors.New("rejected by server")
	ErrNotFound     = errors.New("not found on server")
	ErrNoSavedLogin = errors.New("no saved login")
)
