package crm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type ContactSyncer interface {
	SyncContact(ctx context.Context, contactID string) error
}

// Dispatcher runs contact syncs in the background. Failures are logged and
// never reach the caller.
type Dispatcher struct {
	syncer  ContactSyncer
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(syncer ContactSyncer, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{syncer: syncer, timeout: timeout, logger: logger}
}

// Dispatch starts a sync for contactID and returns immediately.
func (d *Dispatcher) Dispatch(contactID string) {
	if d == nil || d.syncer == nil || contactID == "" {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("CRM sync skipped during shutdown", slog.String("contact_id", contactID))
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Panic recovered in CRM sync",
					slog.String("contact_id", contactID),
					slog.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.syncer.SyncContact(ctx, contactID); err != nil {
			d.logger.Warn("CRM sync failed",
				slog.String("contact_id", contactID),
				slog.Any("error", err))
		}
	}()
}

// Wait blocks until every dispatched sync has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting syncs and waits for in-flight ones until ctx is
// done.
func (d *Dispatcher) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("CRM syncs still running: %w", ctx.Err())
	}
}
