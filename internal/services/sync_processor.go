package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"screentime/internal/store"
)

// MirrorStore is a second copy of the records kept in step with the primary store.
type MirrorStore interface {
	store.RecordWriter
	store.RecordLoader
}

// SyncProcessorConfig tunes the reconciliation loop. Zero MaxRetries means
// one attempt per poll.
type SyncProcessorConfig struct {
	PollInterval time.Duration
	MaxRetries   int
	// RetryDelay grows linearly with each retry in a poll.
	RetryDelay time.Duration
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{PollInterval: 5 * time.Minute, MaxRetries: 3, RetryDelay: time.Second}
}

// SyncProcessor copies the primary store over the mirror whenever the two
// differ. It covers record events the worker never received.
type SyncProcessor struct {
	source store.RecordLoader
	mirror MirrorStore
	config SyncProcessorConfig

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewSyncProcessor(source store.RecordLoader, mirror MirrorStore, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{source: source, mirror: mirror, config: config}
}

// Start syncs once immediately, then every PollInterval until Stop or until
// ctx ends.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.running:
		return errors.New("sync processor is already running")
	case p.config.PollInterval <= 0:
		return fmt.Errorf("sync processor poll interval %v must be positive", p.config.PollInterval)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.running, p.cancel, p.done = true, cancel, make(chan struct{})
	go p.loop(loopCtx, p.done)

	slog.InfoContext(ctx, "Sync processor started", "poll_interval", p.config.PollInterval)
	return nil
}

// Stop cancels the loop and waits for an in-flight pass, up to ctx.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	slog.InfoContext(ctx, "Sync processor stopped")
	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	tick := time.NewTicker(p.config.PollInterval)
	defer tick.Stop()
	for {
		p.pass(ctx)
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

// pass retries SyncOnce until it succeeds or the retry budget runs out.
func (p *SyncProcessor) pass(ctx context.Context) {
	tries := max(p.config.MaxRetries, 0) + 1
	for try := 1; ; try++ {
		_, err := p.SyncOnce(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}
		if try == tries {
			slog.ErrorContext(ctx, "Mirror sync failed, waiting for next poll", "attempts", tries, "error", err)
			return
		}
		slog.WarnContext(ctx, "Mirror sync failed, retrying", "attempt", try, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.config.RetryDelay * time.Duration(try)):
		}
	}
}

// SyncOnce replaces the mirror contents with the primary store when they
// differ. It reports whether the mirror was written. An absent primary store
// leaves the mirror untouched.
func (p *SyncProcessor) SyncOnce(ctx context.Context) (bool, error) {
	records, found, err := p.source.LoadRecords(ctx)
	if err != nil {
		return false, fmt.Errorf("load primary store: %w", err)
	}
	if !found {
		return false, nil
	}

	mirrored, _, err := p.mirror.LoadRecords(ctx)
	if err != nil {
		return false, fmt.Errorf("load mirror: %w", err)
	}
	if slices.Equal(records, mirrored) {
		return false, nil
	}

	if err := p.mirror.ReplaceAllRecords(ctx, records); err != nil {
		return false, fmt.Errorf("replace mirror: %w", err)
	}
	slog.InfoContext(ctx, "Mirror resynchronised",
		"records", len(records),
		"previous", len(mirrored))
	return true, nil
}
