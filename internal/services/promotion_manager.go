package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"club-system/internal/status"
	"club-system/monitoring"
)

// PromotionManager runs the periodic waitlist sweep: one goroutine for all
// events. Hooks also trigger targeted passes through Trigger, so the sweep
// is the safety net that catches anything those missed (crashed worker,
// admin edits through the dashboard, capacity bumps).
type PromotionManager struct {
	waitlist *WaitlistService
	redis    *redis.Client
	monitor  *monitoring.Monitor
	logger   *slog.Logger
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewPromotionManager(waitlist *WaitlistService, redisClient *redis.Client, monitor *monitoring.Monitor, interval time.Duration, logger *slog.Logger) *PromotionManager {
	return &PromotionManager{
		waitlist: waitlist,
		redis:    redisClient,
		monitor:  monitor,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (m *PromotionManager) Start() {
	m.wg.Add(1)
	go m.sweeper()
	m.logger.Info("promotion manager started", "interval", m.interval)
}

func (m *PromotionManager) sweeper() {
	defer m.wg.Done()
	m.monitor.AddGoroutine()
	defer m.monitor.RemoveGoroutine()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopChan:
			m.logger.Info("promotion sweeper stopping")
			return
		}
	}
}

func (m *PromotionManager) sweep() {
	ctx := context.Background()

	events, err := m.redis.SMembers(ctx, waitlistEventsKey).Result()
	if err != nil {
		m.logger.Warn("promotion sweep could not list events", "error", err)
		return
	}

	for _, eventID := range events {
		promoted, err := m.waitlist.Promote(ctx, eventID)
		if errors.Is(err, status.ErrEventNotFound) {
			// event deleted, cascade already removed the attendees
			m.redis.SRem(ctx, waitlistEventsKey, eventID)
			continue
		}
		if err != nil {
			m.logger.Warn("promotion sweep failed", "event", eventID, "error", err)
			continue
		}
		if promoted > 0 {
			m.logger.Info("promotion sweep promoted", "event", eventID, "count", promoted)
		}
	}
}

// Trigger schedules an immediate promotion pass for one event, off the
// caller's request path.
func (m *PromotionManager) Trigger(eventID string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.monitor.AddGoroutine()
		defer m.monitor.RemoveGoroutine()

		if _, err := m.waitlist.Promote(context.Background(), eventID); err != nil && !errors.Is(err, status.ErrEventNotFound) {
			m.logger.Warn("triggered promotion failed", "event", eventID, "error", err)
		}
	}()
}

// Shutdown stops the sweeper and waits for in-flight passes to finish.
func (m *PromotionManager) Shutdown() {
	close(m.stopChan)

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("promotion manager stopped")
	case <-time.After(30 * time.Second):
		m.logger.Warn("timeout waiting for promotion goroutines")
	}
}
