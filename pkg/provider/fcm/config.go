package fcm

import "fmt"

// Config holds Firebase Cloud Messaging settings.
type Config struct {
	// ProjectID is the Firebase project identifier in the v1 endpoint path.
	ProjectID string `env:"FCM_PROJECT_ID"`
	// CredentialsJSON is the raw service-account key JSON.
	CredentialsJSON string `env:"FCM_CREDENTIALS_JSON"`
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("%w: ProjectID is required", ErrInvalidConfig)
	}
	if c.CredentialsJSON == "" {
		return fmt.Errorf("%w: CredentialsJSON is required", ErrInvalidConfig)
	}
	return nil
}
