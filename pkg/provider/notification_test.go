package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/provider"
)

func TestNotification_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		n       provider.Notification
		wantErr bool
	}{
		{
			name: "token with title",
			n:    provider.Notification{Token: "tok", Title: "hi"},
		},
		{
			name: "topic with body",
			n:    provider.Notification{Topic: "news", Body: "update"},
		},
		{
			name: "token with data only",
			n:    provider.Notification{Token: "tok", Data: map[string]string{"k": "v"}},
		},
		{
			name:    "no recipient",
			n:       provider.Notification{Title: "hi"},
			wantErr: true,
		},
		{
			name:    "token and topic both set",
			n:       provider.Notification{Token: "tok", Topic: "news", Title: "hi"},
			wantErr: true,
		},
		{
			name:    "no content",
			n:       provider.Notification{Token: "tok"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.n.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, provider.ErrInvalidNotification)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotification_BuilderCopies(t *testing.T) {
	t.Parallel()

	base := provider.Notification{Title: "Order update"}.
		WithBody("Shipped").
		WithData("order_id", "42")

	alice := base.WithToken("alice-token").WithData("user", "alice")
	bob := base.WithToken("bob-token").WithData("user", "bob")

	assert.Empty(t, base.Token)
	assert.Equal(t, "alice-token", alice.Token)
	assert.Equal(t, "bob-token", bob.Token)

	// Data maps must not be shared between copies.
	assert.Equal(t, "alice", alice.Data["user"])
	assert.Equal(t, "bob", bob.Data["user"])
	assert.NotContains(t, base.Data, "user")
	assert.Equal(t, "42", alice.Data["order_id"])
	assert.Equal(t, "42", bob.Data["order_id"])
}

func TestNotification_TokenTopicExclusive(t *testing.T) {
	t.Parallel()

	n := provider.Notification{Title: "hi"}.WithToken("tok")
	require.NoError(t, n.Validate())

	n = n.WithTopic("news")
	assert.Empty(t, n.Token)
	assert.Equal(t, "news", n.Topic)
	require.NoError(t, n.Validate())
}
