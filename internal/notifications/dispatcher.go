package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
	"github.com/angelmondragon/stashbot/pkg/logger"
	"github.com/angelmondragon/stashbot/pkg/metrics"
)

const (
	defaultQueueSize = 256
	defaultWorkers   = 2
	sinkTimeout      = 10 * time.Second
)

// Message is one outbound buyer or admin notification.
type Message struct {
	RecipientID int64
	Kind        enums.NotificationKind
	Text        string
	PaymentRef  string
	Payload     *Payload
}

// Payload is a stash item handed to the buyer.
type Payload struct {
	Kind    enums.PayloadKind
	Content string
	FileRef string
}

// Sink receives dispatched messages. Errors are logged and never retried here.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, msg Message) error

func (f SinkFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Dispatcher fans best-effort notices out to sinks from a bounded queue.
// Enqueueing never blocks: when the queue is full the message is dropped and
// logged. Stash deliveries never pass through it; see Delivery.
type Dispatcher struct {
	queue   chan Message
	sinks   []Sink
	workers int
	logg    *logger.Logger
	metrics *metrics.OrderMetrics

	mu     sync.RWMutex
	closed bool
}

// DispatcherOptions sizes the queue and worker pool.
type DispatcherOptions struct {
	QueueSize int
	Workers   int
	Metrics   *metrics.OrderMetrics
}

func NewDispatcher(logg *logger.Logger, opts DispatcherOptions, sinks ...Sink) (*Dispatcher, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if len(sinks) == 0 {
		return nil, errors.New("at least one sink required")
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Dispatcher{
		queue:   make(chan Message, opts.QueueSize),
		sinks:   sinks,
		workers: opts.Workers,
		logg:    logg,
		metrics: opts.Metrics,
	}, nil
}

// Notify queues a plain text message.
func (d *Dispatcher) Notify(ctx context.Context, recipientID int64, text string) {
	d.enqueue(ctx, Message{RecipientID: recipientID, Kind: enums.NotificationKindMessage, Text: text})
}

func (d *Dispatcher) enqueue(ctx context.Context, msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ctx, msg, "dispatcher closed")
		return
	}
	select {
	case d.queue <- msg:
	default:
		d.drop(ctx, msg, "notification queue full")
	}
}

func (d *Dispatcher) drop(ctx context.Context, msg Message, reason string) {
	d.metrics.IncDropped()
	ctx = d.logg.WithFields(ctx, map[string]any{
		"recipient_id": msg.RecipientID,
		"kind":         msg.Kind.String(),
		"payment_ref":  msg.PaymentRef,
	})
	d.logg.Warn(ctx, reason)
}

// Run drains the queue until ctx is canceled, then flushes what is left.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-d.queue:
					d.dispatch(ctx, msg)
				}
			}
		}()
	}
	<-ctx.Done()
	wg.Wait()

	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	flushCtx := context.WithoutCancel(ctx)
	for {
		select {
		case msg := <-d.queue:
			d.dispatch(flushCtx, msg)
		default:
			return nil
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, msg Message) {
	for _, sink := range d.sinks {
		sendCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
		err := sink.Send(sendCtx, msg)
		cancel()
		if err != nil {
			logCtx := d.logg.WithFields(ctx, map[string]any{
				"recipient_id": msg.RecipientID,
				"kind":         msg.Kind.String(),
				"payment_ref":  msg.PaymentRef,
			})
			d.logg.Error(logCtx, "notification sink failed", err)
		}
	}
}

// StoreSink persists messages to the outbox table for the chat transport.
func StoreSink(repo Repository) Sink {
	return SinkFunc(func(ctx context.Context, msg Message) error {
		return repo.Create(ctx, toModel(msg))
	})
}

// LogSink records every message in the structured log.
func LogSink(logg *logger.Logger) Sink {
	return SinkFunc(func(ctx context.Context, msg Message) error {
		ctx = logg.WithFields(ctx, map[string]any{
			"recipient_id": msg.RecipientID,
			"kind":         msg.Kind.String(),
			"payment_ref":  msg.PaymentRef,
		})
		logg.Debug(ctx, "notification dispatched")
		return nil
	})
}

// Delivery builds the outbox row that hands item to the buyer. Callers insert
// it in the transaction that verifies the order, so a verified order always has
// its delivery on record.
func Delivery(recipientID int64, item models.StashItem, paymentRef, text string) *models.Notification {
	payload := &Payload{Kind: item.PayloadKind, Content: item.Content}
	if item.FileRef != nil {
		payload.FileRef = *item.FileRef
	}
	return toModel(Message{
		RecipientID: recipientID,
		Kind:        enums.NotificationKindDelivery,
		Text:        text,
		PaymentRef:  paymentRef,
		Payload:     payload,
	})
}

func toModel(msg Message) *models.Notification {
	n := &models.Notification{
		RecipientID: msg.RecipientID,
		Kind:        msg.Kind,
		Message:     msg.Text,
	}
	if msg.PaymentRef != "" {
		ref := msg.PaymentRef
		n.PaymentRef = &ref
	}
	if msg.Payload != nil {
		kind := msg.Payload.Kind
		content := msg.Payload.Content
		n.PayloadKind = &kind
		n.Content = &content
		if msg.Payload.FileRef != "" {
			ref := msg.Payload.FileRef
			n.FileRef = &ref
		}
	}
	return n
}
