package store

import (
	"context"
	"time"

	"github.com/jackiedee967/episoda-sub002/internal/models"
)

// MentionInput is one mention row to persist against a parent entity.
type MentionInput struct {
	MentionedUserID   string
	MentionedUsername string
}

// ContentStore creates parent content rows. Each call returns the new row id.
type ContentStore interface {
	CreatePost(ctx context.Context, authorID, body string) (string, error)
	CreateComment(ctx context.Context, postID, authorID, body string) (string, error)
	CreateHelpDeskPost(ctx context.Context, authorID, title, body, category string) (string, error)
	CreateHelpDeskComment(ctx context.Context, postID, authorID, body string) (string, error)
}

// MentionSink persists mention and notification rows. Both inserts are
// batched and return the number of rows actually written.
type MentionSink interface {
	InsertMentions(ctx context.Context, parent models.ParentRef, mentions []MentionInput) (int, error)
	InsertNotifications(ctx context.Context, notifications []models.Notification) (int, error)
}

// NotificationStore serves the notification inbox.
type NotificationStore interface {
	NotificationsFor(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
	DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DirectoryStore backs identity and follow-graph lookups.
type DirectoryStore interface {
	FollowingIDs(ctx context.Context, viewerID string) ([]string, error)
	SearchProfilesByPrefix(ctx context.Context, prefix, excludeID string, limit int) ([]models.CandidateUser, error)
	UserIDsByUsernames(ctx context.Context, usernames []string) (map[string]string, error)
}

// DigestStore collects unread mention notifications for the email digest.
type DigestStore interface {
	UnreadMentionDigest(ctx context.Context, olderThan time.Duration) ([]models.DigestEntry, error)
}

// StoreInterface is the full contract for the relational data store. It is
// the only seam between this service and the hosted backend's tables; every
// other package talks to it, never to SQL directly.
type StoreInterface interface {
	ContentStore
	MentionSink
	NotificationStore
	DirectoryStore
	DigestStore
}
