package core

import "errors"

var (
	ErrAlreadyDisconnected = errors.New("already disconnected")
	ErrAlreadyJoined       = errors.New("already joined")
)
