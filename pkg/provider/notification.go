package provider

import (
	"fmt"
	"maps"
)

// Notification is a provider-agnostic push message. Exactly one of Token or
// Topic addresses the recipient; at least one of Title, Body, or Data must
// carry content.
//
// The With* builders use value semantics: each returns a modified copy with
// its own Data map, so a base notification can be fanned out to many
// recipients without shared mutable state.
type Notification struct {
	Token    string            `json:"token,omitempty"`
	Topic    string            `json:"topic,omitempty"`
	Title    string            `json:"title,omitempty"`
	Body     string            `json:"body,omitempty"`
	ImageURL string            `json:"image_url,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

// Validate checks addressing and content requirements.
func (n Notification) Validate() error {
	if n.Token == "" && n.Topic == "" {
		return fmt.Errorf("%w: either token or topic is required", ErrInvalidNotification)
	}
	if n.Token != "" && n.Topic != "" {
		return fmt.Errorf("%w: token and topic are mutually exclusive", ErrInvalidNotification)
	}
	if n.Title == "" && n.Body == "" && len(n.Data) == 0 {
		return fmt.Errorf("%w: notification has no content", ErrInvalidNotification)
	}
	return nil
}

// WithToken returns a copy addressed to a single device token.
func (n Notification) WithToken(token string) Notification {
	c := n.clone()
	c.Token = token
	c.Topic = ""
	return c
}

// WithTopic returns a copy addressed to a topic.
func (n Notification) WithTopic(topic string) Notification {
	c := n.clone()
	c.Topic = topic
	c.Token = ""
	return c
}

// WithTitle returns a copy with the given title.
func (n Notification) WithTitle(title string) Notification {
	c := n.clone()
	c.Title = title
	return c
}

// WithBody returns a copy with the given body text.
func (n Notification) WithBody(body string) Notification {
	c := n.clone()
	c.Body = body
	return c
}

// WithImage returns a copy with the given image URL.
func (n Notification) WithImage(url string) Notification {
	c := n.clone()
	c.ImageURL = url
	return c
}

// WithData returns a copy with the key set in its data payload.
func (n Notification) WithData(key, value string) Notification {
	c := n.clone()
	if c.Data == nil {
		c.Data = make(map[string]string, 1)
	}
	c.Data[key] = value
	return c
}

// clone copies the notification including its Data map.
func (n Notification) clone() Notification {
	c := n
	if n.Data != nil {
		c.Data = maps.Clone(n.Data)
	}
	return c
}
