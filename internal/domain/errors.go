package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNoChallenges   = errors.New("no challenges")
	ErrStorageCorrupt = errors.New("storage corrupt")
	ErrStorageIO      = errors.New("storage io")
)
