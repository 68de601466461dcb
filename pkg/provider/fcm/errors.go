package fcm

import "errors"

var (
	// ErrInvalidConfig indicates missing or malformed FCM configuration.
	ErrInvalidConfig = errors.New("invalid fcm config")
	// ErrInvalidCredentials indicates the service-account JSON could not be
	// parsed or is missing required fields.
	ErrInvalidCredentials = errors.New("invalid fcm credentials")
)
