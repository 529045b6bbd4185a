package service

import (
	"context"
	"sync"

	"venue-wallet-engine/internal/core/domain"
	"venue-wallet-engine/internal/core/ports"

	"github.com/rs/zerolog"
)

const defaultEventQueueSize = 256

// EventQueue is the one-way outbound channel between the processor and the
// notification sink. Publish never blocks the request path: when the buffer
// is full the event is dropped and counted. Dispatch failures are logged and
// swallowed; they can never affect a transaction outcome.
type EventQueue struct {
	dispatcher ports.NotificationDispatcher
	ch         chan domain.TransactionEvent
	metrics    *Metrics
	log        zerolog.Logger
	wg         sync.WaitGroup
}

// NewEventQueue creates an EventQueue with the given buffer size (0 =
// default).
func NewEventQueue(dispatcher ports.NotificationDispatcher, size int, metrics *Metrics, log zerolog.Logger) *EventQueue {
	if size <= 0 {
		size = defaultEventQueueSize
	}
	return &EventQueue{
		dispatcher: dispatcher,
		ch:         make(chan domain.TransactionEvent, size),
		metrics:    metrics,
		log:        log,
	}
}

// Start launches the consumer worker. It drains until Close is called and
// the buffer is empty, or ctx is cancelled.
func (q *EventQueue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.ch:
				if !ok {
					return
				}
				q.metrics.eventQueueDepth.Set(float64(len(q.ch)))
				if err := q.dispatcher.Send(ctx, event); err != nil {
					q.log.Warn().Err(err).
						Str("type", event.Type).
						Str("receipt_id", event.ReceiptID.String()).
						Msg("notification dispatch failed")
				}
			}
		}
	}()
}

// Publish enqueues an event without blocking.
func (q *EventQueue) Publish(event domain.TransactionEvent) {
	select {
	case q.ch <- event:
		q.metrics.eventQueueDepth.Set(float64(len(q.ch)))
	default:
		q.metrics.eventsDropped.Inc()
		q.log.Warn().
			Str("type", event.Type).
			Str("receipt_id", event.ReceiptID.String()).
			Msg("event queue full, dropping notification")
	}
}

// Close stops accepting events and waits for the worker to drain.
func (q *EventQueue) Close() {
	close(q.ch)
	q.wg.Wait()
}
