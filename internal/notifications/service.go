package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/jackiedee967/episoda-sub002/internal/config"
	"github.com/jackiedee967/episoda-sub002/internal/models"
	"github.com/jackiedee967/episoda-sub002/internal/store"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// minAge is how old an unread mention must be before it is digested; fresher
// ones are assumed to still be in flight through the push pipeline.
const minAge = time.Hour

// Service emails users a digest of their unread mention notifications. It
// reads the same notification rows the push pipeline consumes; push delivery
// itself is not this service's concern.
type Service struct {
	config *config.Config
	store  store.DigestStore
	dial   func(m ...*gomail.Message) error
}

// Ensure Service implements DigestInterface
var _ DigestInterface = (*Service)(nil)

// NewService creates a digest service.
func NewService(cfg *config.Config, st store.DigestStore) *Service {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	return &Service{
		config: cfg,
		store:  st,
		dial:   dialer.DialAndSend,
	}
}

// SendDigests emails every user with digestable unread mentions. Per-user
// failures are collected, not fatal; one user's bad address never blocks the
// rest.
func (s *Service) SendDigests(ctx context.Context) error {
	entries, err := s.store.UnreadMentionDigest(ctx, minAge)
	if err != nil {
		return fmt.Errorf("collecting digest entries: %w", err)
	}

	if len(entries) == 0 {
		logrus.Debug("No unread mentions to digest")
		return nil
	}

	var errors []string
	sent := 0
	for _, entry := range entries {
		if err := s.sendDigest(entry); err != nil {
			logrus.Errorf("Failed to send mention digest to %s: %v", entry.Username, err)
			errors = append(errors, fmt.Sprintf("%s: %v", entry.Username, err))
			continue
		}
		sent++
	}

	logrus.Infof("Sent %d mention digests (%d failed)", sent, len(errors))

	if len(errors) > 0 {
		return fmt.Errorf("digest errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (s *Service) sendDigest(entry models.DigestEntry) error {
	subject := fmt.Sprintf("You have %d unread mention%s on EPISODA",
		len(entry.Items), plural(len(entry.Items)))

	htmlBody, err := s.buildDigestHTML(entry)
	if err != nil {
		return fmt.Errorf("building digest HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.fromAddress())
	m.SetHeader("To", entry.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", s.buildDigestText(entry))
	m.AddAlternative("text/html", htmlBody)

	if err := s.dial(m); err != nil {
		return fmt.Errorf("sending digest email: %w", err)
	}

	return nil
}

func (s *Service) fromAddress() string {
	if s.config.DigestFrom != "" {
		return s.config.DigestFrom
	}
	return s.config.SMTPUsername
}

func (s *Service) buildDigestHTML(entry models.DigestEntry) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Unread mentions</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #6c47ff; color: white; padding: 20px; border-radius: 5px; }
        .item { border-left: 4px solid #6c47ff; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .item-meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Hi @{{.Username}}</h1>
        <p>You have {{len .Items}} unread mention{{if gt (len .Items) 1}}s{{end}}</p>
    </div>

    {{range .Items}}
    <div class="item">
        <div><strong>@{{.ActorUsername}}</strong> {{.Type | describe}}</div>
        <div class="item-meta">{{.CreatedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</div>
    </div>
    {{end}}

    <hr>
    <p><small>Open the app to read and reply. This digest covers mentions you haven't read yet.</small></p>
</body>
</html>
`

	t := template.New("digest").Funcs(template.FuncMap{
		"describe": describeType,
	})

	t, err := t.Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, entry); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildDigestText(entry models.DigestEntry) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Hi @%s\n\n", entry.Username))
	text.WriteString(fmt.Sprintf("You have %d unread mention%s:\n\n", len(entry.Items), plural(len(entry.Items))))

	for i, item := range entry.Items {
		text.WriteString(fmt.Sprintf("%d. @%s %s (%s)\n",
			i+1, item.ActorUsername, describeType(item.Type), item.CreatedAt.Format("Jan 2, 2006")))
	}

	text.WriteString("\nOpen the app to read and reply.\n")

	return text.String()
}

func describeType(notificationType string) string {
	switch notificationType {
	case models.NotificationMentionComment:
		return "mentioned you in a comment"
	default:
		return "mentioned you in a post"
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
