package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"hemolink/internal/notification/metrics"
	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
	"hemolink/pkg/platform/sentinel"
	"hemolink/pkg/requestcontext"
)

// Channel delivers a rendered message to one recipient. A nil error means the
// channel accepted the message; nothing beyond acceptance is tracked.
type Channel interface {
	Name() string
	Send(ctx context.Context, env Envelope) error
}

// ContactStore resolves recipients for a batch of donors. Donors missing from
// the returned map have no usable contact.
type ContactStore interface {
	FetchRecipients(ctx context.Context, ids []id.DonorID) (map[id.DonorID]Recipient, error)
}

// DeliveryStore is the append-only audit log of delivery attempts.
// Append returns sentinel.ErrConflict when the record's idempotency key is
// already taken.
type DeliveryStore interface {
	Append(ctx context.Context, record DeliveryRecord) error
	DeliveredKeys(ctx context.Context, keys []string) (map[string]bool, error)
}

const (
	defaultConcurrency = 8
	defaultTimeout     = 10 * time.Second
)

var (
	errNoContact           = errors.New("no contact for donor")
	errContactsUnavailable = errors.New("contact store unavailable")
)

var tracer = otel.Tracer("hemolink/internal/notification")

// Dispatcher sends one notification to many donors with bounded concurrency.
type Dispatcher struct {
	channel     Channel
	contacts    ContactStore
	deliveries  DeliveryStore
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
	clock       func() time.Time
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithConcurrency bounds the number of in-flight sends.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithDeliveryTimeout bounds each recipient's send and record write.
func WithDeliveryTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) {
		d.clock = clock
	}
}

func NewDispatcher(channel Channel, contacts ContactStore, deliveries DeliveryStore, opts ...Option) (*Dispatcher, error) {
	if channel == nil {
		return nil, fmt.Errorf("channel is required")
	}
	if contacts == nil {
		return nil, fmt.Errorf("contact store is required")
	}
	if deliveries == nil {
		return nil, fmt.Errorf("delivery store is required")
	}

	d := &Dispatcher{
		channel:     channel,
		contacts:    contacts,
		deliveries:  deliveries,
		concurrency: defaultConcurrency,
		timeout:     defaultTimeout,
		logger:      slog.New(slog.DiscardHandler),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

type job struct {
	index     int
	donorID   id.DonorID
	recipient Recipient
	reason    error
	subject   string
	message   string
	bulk      bool
	req       Request
}

type outcome struct {
	skipped bool
	err     error
}

// Dispatch notifies every donor in donorIDs. Duplicate IDs are contacted once.
//
// Failures are per recipient: the returned Result lists them and the error is
// only non-nil for invalid input. Cancelling ctx stops new sends and reports
// the remaining donors as failed; sends already accepted are not undone.
func (d *Dispatcher) Dispatch(ctx context.Context, donorIDs []id.DonorID, req Request) (*Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "notification.Dispatch", trace.WithAttributes(
		attribute.String("event_type", string(req.EventType)),
		attribute.String("blood_type", req.BloodType.String()),
		attribute.Int("recipients", len(donorIDs)),
	))
	defer span.End()
	defer func() { d.metrics.ObserveDispatchLatency(time.Since(start)) }()

	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}
	ids, err := uniqueDonors(donorIDs)
	if err != nil {
		span.SetStatus(codes.Error, "invalid recipients")
		return nil, err
	}

	result := &Result{
		RequestID: req.RequestID,
		Failures:  []id.DonorID{},
		Skipped:   []id.DonorID{},
		Errors:    map[id.DonorID]string{},
	}
	if len(ids) == 0 {
		return result, nil
	}

	subject, message := Render(req)
	delivered := d.deliveredKeys(ctx, req, ids)

	recipients, contactErr := d.contacts.FetchRecipients(ctx, ids)
	if contactErr != nil {
		d.logger.WarnContext(ctx, "contact lookup failed",
			"request_id", req.RequestID,
			"error", contactErr,
		)
	}

	outcomes := make([]outcome, len(ids))
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, donorID := range ids {
		if delivered[IdempotencyKey(req.RequestID, donorID)] {
			outcomes[i] = outcome{skipped: true}
			continue
		}
		j := job{
			index:   i,
			donorID: donorID,
			subject: subject,
			message: message,
			bulk:    len(ids) > 1,
			req:     req,
		}
		switch r, ok := recipients[donorID]; {
		case contactErr != nil:
			j.reason = errContactsUnavailable
		case !ok:
			j.reason = errNoContact
		default:
			j.recipient = r
		}
		g.Go(func() error {
			outcomes[j.index] = d.deliver(ctx, j)
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range outcomes {
		switch {
		case o.skipped:
			result.SuccessCount++
			result.Skipped = append(result.Skipped, ids[i])
			d.metrics.IncrementSkipped()
		case o.err != nil:
			result.Failures = append(result.Failures, ids[i])
			result.Errors[ids[i]] = o.err.Error()
		default:
			result.SuccessCount++
		}
	}

	span.SetAttributes(
		attribute.Int("success", result.SuccessCount),
		attribute.Int("failures", len(result.Failures)),
		attribute.Int("skipped", len(result.Skipped)),
	)
	if len(result.Failures) > 0 {
		span.SetStatus(codes.Error, "partial dispatch failure")
	}
	d.logger.InfoContext(ctx, "notifications dispatched",
		"request_id", req.RequestID,
		"http_request_id", requestcontext.RequestID(ctx),
		"event_type", req.EventType,
		"blood_type", req.BloodType,
		"channel", d.channel.Name(),
		"recipients", len(ids),
		"success", result.SuccessCount,
		"failures", len(result.Failures),
		"skipped", len(result.Skipped),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// deliver sends to a single recipient and appends its record. The record is
// written even when ctx was cancelled after the send was accepted.
func (d *Dispatcher) deliver(ctx context.Context, j job) outcome {
	if err := ctx.Err(); err != nil {
		return outcome{err: err}
	}

	recordID := uuid.New()
	sendErr := j.reason
	if sendErr == nil {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		sendErr = d.channel.Send(sendCtx, Envelope{
			RecordID:  recordID,
			RequestID: j.req.RequestID,
			Recipient: j.recipient,
			EventType: j.req.EventType,
			BloodType: j.req.BloodType,
			Units:     j.req.Units,
			Subject:   j.subject,
			Message:   j.message,
		})
		cancel()
	}

	record := DeliveryRecord{
		ID:          recordID,
		RecipientID: j.donorID,
		RequestID:   j.req.RequestID,
		Subject:     j.subject,
		Message:     j.message,
		EventType:   j.req.EventType,
		BloodType:   j.req.BloodType,
		Units:       j.req.Units,
		Bulk:        j.bulk,
		Status:      StatusSent,
		Channel:     d.channel.Name(),
		CreatedAt:   d.clock().UTC(),
	}
	if sendErr != nil {
		record.Status = StatusFailed
		record.Error = sendErr.Error()
	} else if j.req.Idempotent {
		record.IdempotencyKey = IdempotencyKey(j.req.RequestID, j.donorID)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	if err := d.deliveries.Append(writeCtx, record); err != nil {
		switch {
		case sendErr == nil && errors.Is(err, sentinel.ErrConflict):
			// a concurrent retry recorded the same delivery first
		case sendErr == nil:
			d.logger.ErrorContext(ctx, "failed to record delivery",
				"request_id", j.req.RequestID,
				"donor_id", j.donorID,
				"error", err,
			)
			d.metrics.IncrementDelivery(record.Channel, string(StatusFailed))
			return outcome{err: dErrors.Wrap(err, dErrors.CodeUnavailable, "record delivery")}
		default:
			d.logger.WarnContext(ctx, "failed to record failed delivery",
				"request_id", j.req.RequestID,
				"donor_id", j.donorID,
				"error", err,
			)
		}
	}

	d.metrics.IncrementDelivery(record.Channel, string(record.Status))
	if sendErr != nil {
		d.logger.WarnContext(ctx, "delivery failed",
			"request_id", j.req.RequestID,
			"donor_id", j.donorID,
			"channel", record.Channel,
			"error", sendErr,
		)
	}
	return outcome{err: sendErr}
}

// deliveredKeys looks up already delivered donors for idempotent requests. A
// failed lookup is logged and treated as "none delivered"; the store's key
// uniqueness still prevents duplicate sent records.
func (d *Dispatcher) deliveredKeys(ctx context.Context, req Request, ids []id.DonorID) map[string]bool {
	if !req.Idempotent {
		return nil
	}
	keys := make([]string, len(ids))
	for i, donorID := range ids {
		keys[i] = IdempotencyKey(req.RequestID, donorID)
	}
	delivered, err := d.deliveries.DeliveredKeys(ctx, keys)
	if err != nil {
		d.logger.WarnContext(ctx, "delivered key lookup failed",
			"request_id", req.RequestID,
			"error", err,
		)
		return nil
	}
	return delivered
}

func uniqueDonors(donorIDs []id.DonorID) ([]id.DonorID, error) {
	seen := make(map[id.DonorID]struct{}, len(donorIDs))
	out := make([]id.DonorID, 0, len(donorIDs))
	for _, donorID := range donorIDs {
		if donorID.IsNil() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "donor id cannot be empty")
		}
		if _, dup := seen[donorID]; dup {
			continue
		}
		seen[donorID] = struct{}{}
		out = append(out, donorID)
	}
	return out, nil
}
