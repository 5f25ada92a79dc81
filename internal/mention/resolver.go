package mention

import (
	"context"

	"github.com/jackiedee967/episoda-sub002/internal/directory"
	"github.com/jackiedee967/episoda-sub002/internal/models"
	"github.com/jackiedee967/episoda-sub002/internal/store"
	"github.com/sirupsen/logrus"
)

// Result reports what a resolution pass accomplished.
type Result struct {
	PersistedCount  int      `json:"persisted"`
	NotifiedUserIDs []string `json:"notified_user_ids"`
}

// Resolver turns submitted text into durable mention rows and notifications.
// The whole pipeline is best effort: mentions enrich content, they never
// block it, so failures are logged and swallowed rather than returned.
type Resolver struct {
	directory directory.DirectoryInterface
	sink      store.MentionSink
}

// NewResolver creates a resolver over the given collaborators.
func NewResolver(dir directory.DirectoryInterface, sink store.MentionSink) *Resolver {
	return &Resolver{directory: dir, sink: sink}
}

// Resolve re-extracts mentions from the final submitted text, resolves them
// to real accounts, persists one mention row per resolved username against
// the parent, and writes one notification per resolved user excluding the
// actor. Unknown usernames are dropped silently; "@" followed by text is
// never guaranteed to name a real account.
func (r *Resolver) Resolve(ctx context.Context, finalText string, parent models.ParentRef, actorID string) Result {
	usernames := Dedupe(Extract(finalText))
	if len(usernames) == 0 {
		return Result{}
	}

	ids, err := r.directory.ResolveUsernames(ctx, usernames)
	if err != nil {
		logrus.Errorf("Failed to resolve mentioned usernames: %v", err)
		return Result{}
	}
	if len(ids) == 0 {
		return Result{}
	}

	// First-seen order survives the map lookup.
	mentions := make([]store.MentionInput, 0, len(ids))
	for _, username := range usernames {
		if id, ok := ids[username]; ok {
			mentions = append(mentions, store.MentionInput{
				MentionedUserID:   id,
				MentionedUsername: username,
			})
		}
	}

	result := Result{}

	persisted, err := r.sink.InsertMentions(ctx, parent, mentions)
	if err != nil {
		logrus.Errorf("Failed to persist mentions for %s %s: %v", parent.Kind, parent.ID, err)
	}
	result.PersistedCount = persisted

	notifications := r.buildNotifications(mentions, parent, actorID)
	if len(notifications) == 0 {
		return result
	}

	if _, err := r.sink.InsertNotifications(ctx, notifications); err != nil {
		logrus.Errorf("Failed to create mention notifications for %s %s: %v", parent.Kind, parent.ID, err)
		return result
	}

	for _, n := range notifications {
		result.NotifiedUserIDs = append(result.NotifiedUserIDs, n.UserID)
	}
	return result
}

// buildNotifications produces one notification per mentioned user, skipping
// the actor mentioning themselves.
func (r *Resolver) buildNotifications(mentions []store.MentionInput, parent models.ParentRef, actorID string) []models.Notification {
	postID := parent.PostID
	commentID := ""
	switch parent.Kind {
	case models.ParentPost, models.ParentHelpDeskPost:
		postID = parent.ID
	case models.ParentComment, models.ParentHelpDeskComment:
		commentID = parent.ID
	}

	notificationType := parent.NotificationType()

	var notifications []models.Notification
	for _, m := range mentions {
		if m.MentionedUserID == actorID {
			continue
		}
		notifications = append(notifications, models.Notification{
			UserID:    m.MentionedUserID,
			Type:      notificationType,
			ActorID:   actorID,
			PostID:    postID,
			CommentID: commentID,
			IsRead:    false,
		})
	}
	return notifications
}
