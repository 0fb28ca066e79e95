// Package notify delivers publish notifications off the request path.
//
// The lifecycle manager hands a Notification to a Dispatcher and moves on.
// Delivery happens on worker goroutines; failures are logged and counted,
// never reported back to the publisher.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

var (
	// ErrQueueFull is returned by Dispatch when the buffer has no room.
	ErrQueueFull = errors.New("notification queue is full")

	// ErrQueueClosed is returned by Dispatch after the workers stopped.
	ErrQueueClosed = errors.New("notification queue is closed")

	// ErrNoRecipient is returned by senders for users without an email address.
	ErrNoRecipient = errors.New("notification has no recipient")
)

// Result labels reported to an Observer.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
)

// User is the recipient of a notification.
type User struct {
	ID    string
	Name  string
	Email string
}

// Notification announces that a draft became a published record.
type Notification struct {
	ID          string
	Template    string
	User        User
	ConceptID   string
	RevisionID  string
	ShortName   string
	DraftType   string
	PublishedAt time.Time
}

// Dispatcher accepts notifications for asynchronous delivery.
// Dispatch must not block on delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// Sender delivers a single notification.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Observer is told the outcome of every notification.
type Observer interface {
	NotificationProcessed(template, result string)
}

// Noop discards notifications. Used when notifications are disabled.
type Noop struct{}

func (Noop) Dispatch(ctx context.Context, n Notification) error {
	slog.Debug("[Notify] Notifications disabled, dropping", "template", n.Template, "concept_id", n.ConceptID)
	return nil
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, n Notification) error {
	slog.Info("[Notify] Publish notification",
		"id", n.ID,
		"template", n.Template,
		"user_id", n.User.ID,
		"email", n.User.Email,
		"concept_id", n.ConceptID,
		"revision_id", n.RevisionID,
		"short_name", n.ShortName)
	return nil
}

// deliver sends n and reports the outcome. Errors stop here.
func deliver(ctx context.Context, sender Sender, observer Observer, n Notification) error {
	err := sender.Send(ctx, n)
	result := ResultSent
	if err != nil {
		result = ResultFailed
		slog.Error("[Notify] Failed to send notification",
			"error", err,
			"id", n.ID,
			"template", n.Template,
			"concept_id", n.ConceptID,
			"user_id", n.User.ID)
	}
	if observer != nil {
		observer.NotificationProcessed(n.Template, result)
	}
	return err
}

// values flattens n into stream fields.
func (n Notification) values() map[string]interface{} {
	return map[string]interface{}{
		"id":           n.ID,
		"template":     n.Template,
		"user_id":      n.User.ID,
		"user_name":    n.User.Name,
		"user_email":   n.User.Email,
		"concept_id":   n.ConceptID,
		"revision_id":  n.RevisionID,
		"short_name":   n.ShortName,
		"draft_type":   n.DraftType,
		"published_at": strconv.FormatInt(n.PublishedAt.UTC().UnixMilli(), 10),
	}
}

// notificationFromValues is the inverse of values. go-redis returns field
// values as strings.
func notificationFromValues(v map[string]interface{}) (Notification, error) {
	get := func(key string) string {
		s, _ := v[key].(string)
		return s
	}

	n := Notification{
		ID:       get("id"),
		Template: get("template"),
		User: User{
			ID:    get("user_id"),
			Name:  get("user_name"),
			Email: get("user_email"),
		},
		ConceptID:  get("concept_id"),
		RevisionID: get("revision_id"),
		ShortName:  get("short_name"),
		DraftType:  get("draft_type"),
	}
	if n.Template == "" {
		return Notification{}, fmt.Errorf("stream message has no template")
	}
	if raw := get("published_at"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Notification{}, fmt.Errorf("invalid published_at %q: %w", raw, err)
		}
		n.PublishedAt = time.UnixMilli(ms).UTC()
	}
	return n, nil
}
