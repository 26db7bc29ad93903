// Package poller consumes order events and trims the ordered lines from the
// buyer's cart. It backs up the synchronous cart clear done at checkout.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fjod/go_storefront/internal/domain"
)

type CartReconciler interface {
	RemoveOrderedItems(ctx context.Context, userID, orderNumber string, lines []domain.OrderedLine) error
}

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const maxAttempts = 3

type Poller struct {
	carts   CartReconciler
	reader  MessageReader
	backoff time.Duration
}

func NewPoller(carts CartReconciler, topic, groupID string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return NewPollerWithReader(carts, reader)
}

func NewPollerWithReader(carts CartReconciler, reader MessageReader) *Poller {
	return &Poller{carts: carts, reader: reader, backoff: time.Second}
}

// Run consumes until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.handleNext(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.ErrorContext(ctx, "order event handling failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.backoff):
			}
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		slog.Error("error closing reader", "error", err)
	}
}

// handleNext processes one message. A failing cart update is retried a few
// times; after that the event is logged and skipped, since the checkout
// already cleared the cart once.
func (p *Poller) handleNext(ctx context.Context) error {
	m, err := p.reader.FetchMessage(ctx)
	if err != nil {
		return fmt.Errorf("fetch message: %w", err)
	}

	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil || event.UserID == "" {
		slog.WarnContext(ctx, "dropping malformed order event",
			"offset", m.Offset, "partition", m.Partition, "error", errors.Join(err, errMissingUser(event)))
		return p.commit(ctx, m)
	}

	if err := p.reconcile(ctx, event); err != nil {
		if ctx.Err() != nil {
			return err
		}
		slog.ErrorContext(ctx, "giving up on order event",
			"user_id", event.UserID, "order_number", event.OrderNumber, "error", err)
		return p.commit(ctx, m)
	}

	slog.InfoContext(ctx, "cart reconciled with order",
		"user_id", event.UserID, "order_number", event.OrderNumber, "lines", len(event.Lines))
	return p.commit(ctx, m)
}

func (p *Poller) reconcile(ctx context.Context, event domain.OrderPlacedEvent) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = p.carts.RemoveOrderedItems(ctx, event.UserID, event.OrderNumber, event.Lines)
		if err == nil {
			return nil
		}
		slog.WarnContext(ctx, "cart reconcile failed", "user_id", event.UserID, "attempt", attempt, "error", err)
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff):
		}
	}
	return fmt.Errorf("reconcile cart of user %s for order %s: %w", event.UserID, event.OrderNumber, err)
}

func (p *Poller) commit(ctx context.Context, m kafka.Message) error {
	if err := p.reader.CommitMessages(ctx, m); err != nil {
		return fmt.Errorf("commit offset %d: %w", m.Offset, err)
	}
	return nil
}

func errMissingUser(e domain.OrderPlacedEvent) error {
	if e.UserID == "" {
		return errors.New("missing user_id")
	}
	return nil
}
