package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackiedee967/episoda-sub002/internal/models"
	"github.com/sirupsen/logrus"
)

// PostgresStore implements StoreInterface against the hosted Postgres backend.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Ensure PostgresStore implements StoreInterface
var _ StoreInterface = (*PostgresStore)(nil)

// NewPostgresStore connects to the database and verifies the connection.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// CreatePost inserts a post row and returns its id.
func (s *PostgresStore) CreatePost(ctx context.Context, authorID, body string) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO posts (id, author_id, body) VALUES ($1, $2, $3)`,
		id, authorID, body)
	if err != nil {
		return "", fmt.Errorf("creating post: %w", err)
	}
	return id, nil
}

// CreateComment inserts a comment row under a post and returns its id.
func (s *PostgresStore) CreateComment(ctx context.Context, postID, authorID, body string) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO comments (id, post_id, author_id, body) VALUES ($1, $2, $3, $4)`,
		id, postID, authorID, body)
	if err != nil {
		return "", fmt.Errorf("creating comment: %w", err)
	}
	return id, nil
}

// CreateHelpDeskPost inserts a help desk post row and returns its id.
func (s *PostgresStore) CreateHelpDeskPost(ctx context.Context, authorID, title, body, category string) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO help_desk_posts (id, author_id, title, body, category) VALUES ($1, $2, $3, $4, $5)`,
		id, authorID, title, body, category)
	if err != nil {
		return "", fmt.Errorf("creating help desk post: %w", err)
	}
	return id, nil
}

// CreateHelpDeskComment inserts a help desk comment row and returns its id.
func (s *PostgresStore) CreateHelpDeskComment(ctx context.Context, postID, authorID, body string) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO help_desk_comments (id, post_id, author_id, body) VALUES ($1, $2, $3, $4)`,
		id, postID, authorID, body)
	if err != nil {
		return "", fmt.Errorf("creating help desk comment: %w", err)
	}
	return id, nil
}

// mentionTable maps a parent kind to its mention table and parent column.
func mentionTable(kind models.ParentKind) (table, parentColumn string, err error) {
	switch kind {
	case models.ParentPost:
		return "post_mentions", "post_id", nil
	case models.ParentComment:
		return "comment_mentions", "comment_id", nil
	case models.ParentHelpDeskPost:
		return "help_desk_post_mentions", "post_id", nil
	case models.ParentHelpDeskComment:
		return "help_desk_comment_mentions", "comment_id", nil
	default:
		return "", "", fmt.Errorf("unknown parent kind %q", kind)
	}
}

// InsertMentions writes one mention row per input against the parent entity.
// Duplicate (parent, username) pairs are skipped via the table's unique
// constraint; the returned count is the number of rows actually inserted.
func (s *PostgresStore) InsertMentions(ctx context.Context, parent models.ParentRef, mentions []MentionInput) (int, error) {
	if len(mentions) == 0 {
		return 0, nil
	}

	table, parentColumn, err := mentionTable(parent.Kind)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (id, %s, mentioned_user_id, mentioned_username)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (%s, mentioned_username) DO NOTHING`,
		table, parentColumn, parentColumn)

	batch := &pgx.Batch{}
	for _, m := range mentions {
		batch.Queue(query, uuid.NewString(), parent.ID, m.MentionedUserID, m.MentionedUsername)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range mentions {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("inserting mention into %s: %w", table, err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// InsertNotifications writes notification rows in one batch. Missing ids are
// generated; the returned count is the number of rows written.
func (s *PostgresStore) InsertNotifications(ctx context.Context, notifications []models.Notification) (int, error) {
	if len(notifications) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, n := range notifications {
		id := n.ID
		if id == "" {
			id = uuid.NewString()
		}
		batch.Queue(
			`INSERT INTO notifications (id, user_id, type, actor_id, post_id, comment_id, is_read)
			 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)`,
			id, n.UserID, n.Type, n.ActorID, n.PostID, n.CommentID, n.IsRead)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range notifications {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("inserting notification: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// NotificationsFor returns a user's notifications, newest first.
func (s *PostgresStore) NotificationsFor(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, type, actor_id, COALESCE(post_id::text, ''), COALESCE(comment_id::text, ''), is_read, created_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.ActorID, &n.PostID, &n.CommentID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkNotificationRead marks a single notification as read.
func (s *PostgresStore) MarkNotificationRead(ctx context.Context, notificationID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1`, notificationID)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}

// MarkAllNotificationsRead marks all of a user's unread notifications as read.
func (s *PostgresStore) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`, userID)
	if err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}
	return nil
}

// DeleteReadNotificationsBefore removes read notifications created before the
// cutoff and returns the number of rows deleted.
func (s *PostgresStore) DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE is_read = true AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting read notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FollowingIDs returns the ids of every user the viewer follows.
func (s *PostgresStore) FollowingIDs(ctx context.Context, viewerID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT following_id FROM follows WHERE follower_id = $1`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("querying follows: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning follow: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// escapeLikePattern escapes LIKE metacharacters so a typed search term is
// always treated literally.
func escapeLikePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}

// SearchProfilesByPrefix is the fallback candidate lookup: a case-insensitive
// username prefix match excluding the viewer, ordered by username. Follow and
// mutual ranking signals are left at their zero values for the caller to fill.
func (s *PostgresStore) SearchProfilesByPrefix(ctx context.Context, prefix, excludeID string, limit int) ([]models.CandidateUser, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, username, COALESCE(display_name, ''), COALESCE(avatar_url, ''),
		        COALESCE(avatar_color_scheme, 0), COALESCE(avatar_icon, '')
		 FROM profiles
		 WHERE username ILIKE $1 || '%' AND user_id <> $2
		 ORDER BY username
		 LIMIT $3`,
		escapeLikePattern(prefix), excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("searching profiles: %w", err)
	}
	defer rows.Close()

	var users []models.CandidateUser
	for rows.Next() {
		var u models.CandidateUser
		if err := rows.Scan(&u.UserID, &u.Username, &u.DisplayName, &u.AvatarURL, &u.AvatarColorScheme, &u.AvatarIcon); err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// UserIDsByUsernames resolves a batch of usernames to user ids. Usernames
// with no matching account are simply absent from the result; comparison is
// exact and case-sensitive, matching how usernames are stored.
func (s *PostgresStore) UserIDsByUsernames(ctx context.Context, usernames []string) (map[string]string, error) {
	if len(usernames) == 0 {
		return map[string]string{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT user_id, username FROM profiles WHERE username = ANY($1)`, usernames)
	if err != nil {
		return nil, fmt.Errorf("resolving usernames: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]string, len(usernames))
	for rows.Next() {
		var id, username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, fmt.Errorf("scanning profile id: %w", err)
		}
		ids[username] = id
	}

	return ids, rows.Err()
}

// UnreadMentionDigest collects unread mention notifications older than the
// given age, grouped per recipient, for the email digest. Recipients without
// an email address are skipped.
func (s *PostgresStore) UnreadMentionDigest(ctx context.Context, olderThan time.Duration) ([]models.DigestEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT n.user_id, p.username, p.email, a.username,
		        n.type, COALESCE(n.post_id::text, ''), COALESCE(n.comment_id::text, ''), n.created_at
		 FROM notifications n
		 JOIN profiles p ON p.user_id = n.user_id
		 JOIN profiles a ON a.user_id = n.actor_id
		 WHERE n.is_read = false
		   AND n.type IN ($1, $2)
		   AND n.created_at < $3
		   AND COALESCE(p.email, '') <> ''
		 ORDER BY n.user_id, n.created_at DESC`,
		models.NotificationMentionPost, models.NotificationMentionComment, time.Now().Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("querying digest: %w", err)
	}
	defer rows.Close()

	var entries []models.DigestEntry
	for rows.Next() {
		var userID, username, email string
		var item models.DigestItem
		if err := rows.Scan(&userID, &username, &email, &item.ActorUsername,
			&item.Type, &item.PostID, &item.CommentID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning digest row: %w", err)
		}

		if len(entries) == 0 || entries[len(entries)-1].UserID != userID {
			entries = append(entries, models.DigestEntry{UserID: userID, Username: username, Email: email})
		}
		last := &entries[len(entries)-1]
		last.Items = append(last.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	logrus.Debugf("Collected digest entries for %d users", len(entries))
	return entries, nil
}
