// Package watcher turns Postgres change notifications on the leads table into
// reactor calls.
package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"agent-optimus/models"
	"agent-optimus/storage"
	"agent-optimus/utils"
)

const (
	minReconnect = 10 * time.Second
	maxReconnect = time.Minute
	idlePing     = 90 * time.Second
)

// ChangeHandler consumes one lead change.
type ChangeHandler interface {
	Handle(ctx context.Context, change models.LeadChange) error
}

// ChangeEvent is the payload of the notify_lead_change trigger.
type ChangeEvent struct {
	ID        string `json:"id"`
	BeforeLen int    `json:"before_len"`
}

// ParseEvent decodes a notification payload.
func ParseEvent(payload string) (*ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return nil, fmt.Errorf("watcher: decode payload: %w", err)
	}
	if ev.ID == "" {
		return nil, errors.New("watcher: payload without lead id")
	}
	if ev.BeforeLen < 0 {
		ev.BeforeLen = 0
	}
	return &ev, nil
}

// BeforeLead reconstructs the pre-update view of a lead from the number of
// messages it had. Conversations are append-only, so the prefix is exact.
func BeforeLead(after *models.Lead, beforeLen int) *models.Lead {
	before := *after
	if beforeLen > len(after.Conversation) {
		beforeLen = len(after.Conversation)
	}
	before.Conversation = after.Conversation[:beforeLen]
	return &before
}

// LeadListener listens on storage.LeadChangesChannel.
type LeadListener struct {
	dsn     string
	leads   storage.LeadStore
	handler ChangeHandler
	logger  *utils.Logger
}

func NewLeadListener(dsn string, leads storage.LeadStore, handler ChangeHandler, logger *utils.Logger) *LeadListener {
	return &LeadListener{dsn: dsn, leads: leads, handler: handler, logger: logger}
}

// Run blocks until ctx is cancelled. Handler errors are logged; they never
// stop the listener.
func (l *LeadListener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected:
			l.logger.Warn("[watcher] Disconnected: %v", err)
		case pq.ListenerEventReconnected:
			l.logger.Info("[watcher] Reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			l.logger.Warn("[watcher] Connection attempt failed: %v", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(storage.LeadChangesChannel); err != nil {
		return fmt.Errorf("watcher: listen %s: %w", storage.LeadChangesChannel, err)
	}
	l.logger.Info("[watcher] Listening on %s", storage.LeadChangesChannel)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("[watcher] Stopping")
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect; notifications sent while down are lost.
			if n == nil {
				continue
			}
			if err := l.Dispatch(ctx, n.Extra); err != nil {
				l.logger.Error("[watcher] %v", err)
			}
		case <-time.After(idlePing):
			if err := listener.Ping(); err != nil {
				l.logger.Warn("[watcher] Ping failed: %v", err)
			}
		}
	}
}

// Dispatch handles one notification payload.
func (l *LeadListener) Dispatch(ctx context.Context, payload string) error {
	ev, err := ParseEvent(payload)
	if err != nil {
		return err
	}

	after, err := l.leads.GetLead(ctx, ev.ID)
	if errors.Is(err, storage.ErrNotFound) {
		l.logger.Debug("[watcher] Lead %s gone before it was read", ev.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("watcher: load lead %s: %w", ev.ID, err)
	}

	return l.handler.Handle(ctx, models.LeadChange{
		Before: BeforeLead(after, ev.BeforeLen),
		After:  after,
	})
}
