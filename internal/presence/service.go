// Package presence rotates the bot's status text on a schedule.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Setter receives status updates. The channel manager fans them out to the
// channels that can show a status.
type Setter interface {
	SetPresence(ctx context.Context, status string)
}

// Service picks a random status every interval.
type Service struct {
	statuses []string
	interval time.Duration
	setter   Setter
	pick     func(n int) int

	mu      sync.Mutex
	current string
}

// NewService creates a presence Service. interval defaults to 10 seconds.
func NewService(statuses []string, interval time.Duration, setter Setter) *Service {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Service{
		statuses: statuses,
		interval: interval,
		setter:   setter,
		pick:     rand.IntN,
	}
}

// Current returns the last status set.
func (s *Service) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Rotate sets a new random status now.
func (s *Service) Rotate(ctx context.Context) {
	if len(s.statuses) == 0 || s.setter == nil {
		return
	}
	status := s.statuses[s.pick(len(s.statuses))]
	s.mu.Lock()
	s.current = status
	s.mu.Unlock()
	slog.Debug("presence: rotate", "status", status)
	s.setter.SetPresence(ctx, status)
}

// Start rotates the status until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if len(s.statuses) == 0 {
		slog.Info("presence: no statuses configured")
		<-ctx.Done()
		return ctx.Err()
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() { s.Rotate(ctx) }); err != nil {
		return fmt.Errorf("presence: schedule: %w", err)
	}
	s.Rotate(ctx)
	c.Start()
	slog.Info("presence: started", "interval", s.interval, "statuses", len(s.statuses))

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("presence: stopped")
	return ctx.Err()
}
