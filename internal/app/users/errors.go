package users

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrUserNotFound   = errors.New("user_not_found")
	ErrUserExists     = errors.New("user_exists")
	ErrEmailTaken     = errors.New("email_taken")
)
