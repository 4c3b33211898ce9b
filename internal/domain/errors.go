package domain

import "errors"

var (
	ErrCapsuleNotFound       = errors.New("capsule not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrDuplicateResponse     = errors.New("response already recorded for this date")
	ErrCapsuleRevealed       = errors.New("capsule already revealed")
	ErrCapsuleNotRevealed    = errors.New("capsule not revealed yet")
	ErrCreationCancelled     = errors.New("capsule creation cancelled")
	ErrClassifierUnavailable = errors.New("sentiment classifier unavailable")
)
