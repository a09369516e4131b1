package instances

import "errors"

var (
	ErrInvalidRequest   = errors.New("invalid_request")
	ErrForbidden        = errors.New("forbidden")
	ErrBotNotFound      = errors.New("bot_not_found")
	ErrBotExists        = errors.New("bot_exists")
	ErrInstanceNotFound = errors.New("instance_not_found")
	ErrControlFailed    = errors.New("control_failed")
)
