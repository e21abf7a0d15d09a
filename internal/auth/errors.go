package auth

import "errors"

var (
	ErrInvalidInput   = errors.New("auth: invalid input")
	ErrNotFound       = errors.New("auth: not found")
	ErrAmbiguous      = errors.New("auth: ambiguous result")
	ErrAlreadyExists  = errors.New("auth: already exists")
	ErrUnauthorized   = errors.New("auth: unauthorized")
	ErrRotationFailed = errors.New("auth: refresh token rotation failed")
	ErrConflict       = errors.New("auth: resource conflict")
)

// ErrInvalidToken indicates the token failed signature or claim validation.
var ErrInvalidToken = errors.New("auth: invalid token")
