package models

import "time"

// Notification types written for resolved mentions. The parent kind decides
// which one applies; the push pipeline keys its copy templates off these.
const (
	NotificationMentionPost    = "mention_post"
	NotificationMentionComment = "mention_comment"
)

// ParentKind identifies the entity a mention is attached to.
type ParentKind string

const (
	ParentPost            ParentKind = "post"
	ParentComment         ParentKind = "comment"
	ParentHelpDeskPost    ParentKind = "help_desk_post"
	ParentHelpDeskComment ParentKind = "help_desk_comment"
)

// ParentRef locates the content a batch of mentions belongs to. PostID is
// set for comment kinds so notifications can deep-link to the thread.
type ParentRef struct {
	Kind   ParentKind `json:"kind"`
	ID     string     `json:"id"`
	PostID string     `json:"post_id,omitempty"`
}

// NotificationType returns the notification tag for mentions under this parent.
func (p ParentRef) NotificationType() string {
	switch p.Kind {
	case ParentComment, ParentHelpDeskComment:
		return NotificationMentionComment
	default:
		return NotificationMentionPost
	}
}

// CandidateUser is one autocomplete suggestion row.
type CandidateUser struct {
	UserID            string `json:"user_id"`
	Username          string `json:"username"`
	DisplayName       string `json:"display_name,omitempty"`
	AvatarURL         string `json:"avatar_url,omitempty"`
	AvatarColorScheme int    `json:"avatar_color_scheme,omitempty"`
	AvatarIcon        string `json:"avatar_icon,omitempty"`
	MutualFriends     int    `json:"mutual_friends"`
	IsFollowing       bool   `json:"is_following"`
}

// Mention is a durable row linking a parent entity to a mentioned user.
// Created at submission time, never mutated, removed by cascade with the
// parent.
type Mention struct {
	ID                string    `json:"id"`
	MentionedUserID   string    `json:"mentioned_user_id"`
	MentionedUsername string    `json:"mentioned_username"`
	CreatedAt         time.Time `json:"created_at"`
}

// Notification is one row per (recipient, mention event). Recipients never
// include the actor.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	ActorID   string    `json:"actor_id"`
	PostID    string    `json:"post_id,omitempty"`
	CommentID string    `json:"comment_id,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// DigestItem is one unread mention summarized in an email digest.
type DigestItem struct {
	ActorUsername string    `json:"actor_username"`
	Type          string    `json:"type"`
	PostID        string    `json:"post_id,omitempty"`
	CommentID     string    `json:"comment_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// DigestEntry collects a user's unread mention notifications for one email.
type DigestEntry struct {
	UserID   string       `json:"user_id"`
	Username string       `json:"username"`
	Email    string       `json:"email"`
	Items    []DigestItem `json:"items"`
}
