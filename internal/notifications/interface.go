package notifications

import "context"

// DigestInterface defines the contract for the notification digest sender
type DigestInterface interface {
	SendDigests(ctx context.Context) error
}
