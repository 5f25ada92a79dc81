package scheduler

import (
	"context"
	"time"

	"github.com/jackiedee967/episoda-sub002/internal/config"
	"github.com/jackiedee967/episoda-sub002/internal/notifications"
	"github.com/jackiedee967/episoda-sub002/internal/store"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service schedules the periodic maintenance jobs: the mention digest and
// notification retention.
type Service struct {
	config *config.Config
	digest notifications.DigestInterface
	store  store.NotificationStore
	cron   *cron.Cron
}

// NewService creates a scheduler service
func NewService(cfg *config.Config, digest notifications.DigestInterface, st store.NotificationStore) *Service {
	return &Service{
		config: cfg,
		digest: digest,
		store:  st,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// Start registers the jobs and begins the schedule.
func (s *Service) Start() error {
	if s.config.DigestEnabled {
		// Daily digest at 9 AM UTC
		_, err := s.cron.AddFunc("0 0 9 * * *", func() {
			logrus.Info("Starting scheduled mention digest run")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if err := s.digest.SendDigests(ctx); err != nil {
				logrus.Errorf("Scheduled digest run failed: %v", err)
			}
		})
		if err != nil {
			return err
		}
	}

	// Retention sweep nightly at 3:30 AM UTC
	_, err := s.cron.AddFunc("0 30 3 * * *", func() {
		cutoff := time.Now().AddDate(0, 0, -s.config.NotificationRetentionDays)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		deleted, err := s.store.DeleteReadNotificationsBefore(ctx, cutoff)
		if err != nil {
			logrus.Errorf("Notification retention sweep failed: %v", err)
			return
		}
		logrus.Infof("Retention sweep deleted %d read notifications older than %s",
			deleted, cutoff.Format("2006-01-02"))
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started (digest enabled: %t, retention: %d days)",
		s.config.DigestEnabled, s.config.NotificationRetentionDays)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
