package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"

	"github.com/dmitrymomot/pushkit/pkg/provider"
	"github.com/dmitrymomot/pushkit/pkg/retry"
)

const (
	defaultEndpoint = "https://fcm.googleapis.com"
	messagingScope  = "https://www.googleapis.com/auth/firebase.messaging"

	// FCM v1 allows up to 500 messages per batch request; bulk sends here
	// issue sequential requests, the cap bounds chunk sizes upstream.
	maxBatchSize = 500

	requestTimeout = 30 * time.Second
)

// Client sends notifications through the FCM HTTP v1 API.
type Client struct {
	projectID string
	endpoint  string
	http      *http.Client
}

// Option configures the FCM client.
type Option func(*Client)

// WithEndpoint overrides the FCM API base URL. Used by tests to point at a
// local server.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient replaces the OAuth-authenticated HTTP client entirely.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// serviceAccount is the subset of a Google service-account key file the
// client needs for the JWT flow.
type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// New creates an FCM client from the given config. The service-account key
// is parsed eagerly so credential mistakes fail at construction time.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var sa serviceAccount
	if err := json.Unmarshal([]byte(cfg.CredentialsJSON), &sa); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("%w: client_email and private_key are required", ErrInvalidCredentials)
	}
	if sa.TokenURI == "" {
		sa.TokenURI = "https://oauth2.googleapis.com/token"
	}

	jwtCfg := &jwt.Config{
		Email:      sa.ClientEmail,
		PrivateKey: []byte(sa.PrivateKey),
		Scopes:     []string{messagingScope},
		TokenURL:   sa.TokenURI,
	}

	c := &Client{
		projectID: cfg.ProjectID,
		endpoint:  defaultEndpoint,
		http:      oauth2.NewClient(context.Background(), jwtCfg.TokenSource(context.Background())),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.Timeout = requestTimeout

	return c, nil
}

// Name implements provider.Provider.
func (c *Client) Name() string {
	return "fcm"
}

// Capabilities implements provider.Provider.
func (c *Client) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		MaxBatchSize:   maxBatchSize,
		SupportsTopics: true,
		SupportsImages: true,
	}
}

// v1 wire shapes, see
// https://firebase.google.com/docs/reference/fcm/rest/v1/projects.messages
type sendRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token,omitempty"`
	Topic        string            `json:"topic,omitempty"`
	Notification *fcmNotification  `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	Image string `json:"image,omitempty"`
}

type sendResponse struct {
	Name string `json:"name"`
}

type errorResponse struct {
	Error struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Send implements provider.Provider.
func (c *Client) Send(ctx context.Context, n provider.Notification) (provider.SendResult, error) {
	if err := n.Validate(); err != nil {
		perr := provider.NewError(provider.CodeInvalidMessage, "notification rejected before send", false, err)
		return provider.SendResult{Err: perr}, perr
	}

	msg := fcmMessage{
		Token: n.Token,
		Topic: n.Topic,
		Data:  n.Data,
	}
	if n.Title != "" || n.Body != "" || n.ImageURL != "" {
		msg.Notification = &fcmNotification{
			Title: n.Title,
			Body:  n.Body,
			Image: n.ImageURL,
		}
	}

	body, err := json.Marshal(sendRequest{Message: msg})
	if err != nil {
		perr := provider.NewError(provider.CodeInternal, "failed to encode request", false, err)
		return provider.SendResult{Err: perr}, perr
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.endpoint, c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		perr := provider.NewError(provider.CodeInternal, "failed to build request", false, err)
		return provider.SendResult{Err: perr}, perr
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return provider.SendResult{Err: ctx.Err()}, ctx.Err()
		}
		perr := provider.NewError(provider.CodeUnavailable, "fcm request failed", true, err)
		return provider.SendResult{Err: perr}, perr
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		perr := provider.NewError(provider.CodeUnavailable, "failed to read fcm response", true, err)
		return provider.SendResult{Err: perr}, perr
	}

	if resp.StatusCode != http.StatusOK {
		perr := statusError(resp.StatusCode, raw)
		return provider.SendResult{Err: perr}, perr
	}

	var out sendResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		perr := provider.NewError(provider.CodeInternal, "failed to decode fcm response", false, err)
		return provider.SendResult{Err: perr}, perr
	}

	return provider.SendResult{MessageID: out.Name, Success: true}, nil
}

// SendBulk implements provider.Provider by issuing sequential v1 sends.
// It stops early only on context cancellation.
func (c *Client) SendBulk(ctx context.Context, ns []provider.Notification) (provider.BulkResult, error) {
	res := provider.BulkResult{Results: make([]provider.SendResult, 0, len(ns))}
	for _, n := range ns {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		r, err := c.Send(ctx, n)
		if err != nil {
			res.FailureCount++
		} else {
			res.SuccessCount++
		}
		res.Results = append(res.Results, r)
	}
	return res, nil
}

// statusError maps FCM HTTP status codes onto the shared error taxonomy.
// The retryable flag follows the shared status classification; 404 and
// 410 mean the registration token is stale and will never work again.
func statusError(status int, raw []byte) *provider.Error {
	var body errorResponse
	_ = json.Unmarshal(raw, &body)

	message := body.Error.Message
	if message == "" {
		message = http.StatusText(status)
	}
	cause := fmt.Errorf("fcm: %d %s", status, body.Error.Status)
	retryable := retry.RetryableStatus(status)

	switch {
	case status == http.StatusNotFound, status == http.StatusGone:
		return provider.NewError(provider.CodeUnregistered, message, retryable, cause)
	case status == http.StatusTooManyRequests:
		return provider.NewError(provider.CodeRateLimited, message, retryable, cause)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return provider.NewError(provider.CodeInvalidCredentials, message, retryable, cause)
	case status == http.StatusBadRequest:
		return provider.NewError(provider.CodeInvalidMessage, message, retryable, cause)
	case status == http.StatusRequestTimeout:
		return provider.NewError(provider.CodeTimeout, message, retryable, cause)
	case status >= 500:
		return provider.NewError(provider.CodeUnavailable, message, retryable, cause)
	default:
		return provider.NewError(provider.CodeInternal, message, retryable, cause)
	}
}
