package channel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/mock/gomock"
	"gopkg.in/gomail.v2"

	"hemolink/internal/notification"
	"hemolink/internal/notification/mocks"
	"hemolink/internal/notification/store"
	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
	"hemolink/pkg/platform/circuit"
	"hemolink/pkg/platform/sentinel"
)

func envelope() notification.Envelope {
	return notification.Envelope{
		RequestID: "req-1",
		Recipient: notification.Recipient{DonorID: "d1", Name: "Ada Lovelace", Email: "ada@example.org"},
		EventType: notification.EventBloodRequest,
		BloodType: "O+",
		Units:     2,
		Subject:   "Urgent Blood Donation Request: O+",
		Message:   "body",
	}
}

// =============================================================================
// Breaker
// =============================================================================

func TestBreaker_OpensAndUsesFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockChannel(ctrl)
	fallback := NewLog(nil)
	primary.EXPECT().Name().Return("smtp").AnyTimes()
	primary.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("relay down")).Times(2)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := circuit.New("smtp",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	ch := NewBreaker(primary, cb, WithFallback(fallback))

	ctx := context.Background()
	require.Error(t, ch.Send(ctx, envelope()))
	require.Error(t, ch.Send(ctx, envelope()))
	assert.True(t, cb.IsOpen())

	// open: primary is not called again until the cooldown elapses, and the
	// fallback copy does not count as a delivery
	assert.ErrorIs(t, ch.Send(ctx, envelope()), sentinel.ErrCircuitOpen)
}

func TestBreaker_FallbackFailureIsReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockChannel(ctrl)
	fallback := mocks.NewMockChannel(ctrl)
	primary.EXPECT().Name().Return("smtp").AnyTimes()
	primary.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("relay down"))
	fallback.EXPECT().Name().Return("log").AnyTimes()
	fallback.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	ch := NewBreaker(primary, circuit.New("smtp", circuit.WithFailureThreshold(1)), WithFallback(fallback))
	require.Error(t, ch.Send(context.Background(), envelope()))

	err := ch.Send(context.Background(), envelope())
	assert.ErrorIs(t, err, sentinel.ErrCircuitOpen)
	assert.ErrorContains(t, err, "disk full")
}

// switchableChannel fails every send while down is set.
type switchableChannel struct {
	down  atomic.Bool
	sends atomic.Int32
}

func (c *switchableChannel) Name() string { return "smtp" }

func (c *switchableChannel) Send(context.Context, notification.Envelope) error {
	c.sends.Add(1)
	if c.down.Load() {
		return errors.New("relay down")
	}
	return nil
}

type contactBook map[id.DonorID]notification.Recipient

func (b contactBook) FetchRecipients(_ context.Context, ids []id.DonorID) (map[id.DonorID]notification.Recipient, error) {
	out := make(map[id.DonorID]notification.Recipient, len(ids))
	for _, donorID := range ids {
		if r, ok := b[donorID]; ok {
			out[donorID] = r
		}
	}
	return out, nil
}

func TestBreaker_DispatchWhileOpenIsRetried(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	primary := &switchableChannel{}
	primary.down.Store(true)

	cb := circuit.New("smtp",
		circuit.WithFailureThreshold(1),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	deliveries := store.NewInMemory()
	contacts := contactBook{
		"a": {DonorID: "a", Email: "a@example.org"},
		"b": {DonorID: "b", Email: "b@example.org"},
		"c": {DonorID: "c", Email: "c@example.org"},
	}
	dispatcher, err := notification.NewDispatcher(
		NewBreaker(primary, cb, WithFallback(NewLog(nil))),
		contacts, deliveries,
		notification.WithConcurrency(1),
	)
	require.NoError(t, err)

	req := notification.Request{RequestID: "r1", BloodType: "O+", Units: 3, Idempotent: true}
	donors := []id.DonorID{"a", "b", "c"}

	result, err := dispatcher.Dispatch(ctx, donors, req)
	require.NoError(t, err)
	assert.Zero(t, result.SuccessCount)
	assert.ElementsMatch(t, donors, result.Failures)
	assert.Equal(t, int32(1), primary.sends.Load(), "circuit opens after the first failure")

	records := deliveries.Records()
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, notification.StatusFailed, r.Status)
		assert.Empty(t, r.IdempotencyKey)
	}

	// relay recovers and the cooldown elapses: the retry reaches everyone
	primary.down.Store(false)
	now = now.Add(2 * time.Minute)

	result, err = dispatcher.Dispatch(ctx, donors, req)
	require.NoError(t, err)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Empty(t, result.Failures)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, int32(4), primary.sends.Load())
}

func TestBreaker_WithoutFallbackReturnsCircuitOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockChannel(ctrl)
	primary.EXPECT().Name().Return("kafka").AnyTimes()
	primary.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	ch := NewBreaker(primary, circuit.New("kafka", circuit.WithFailureThreshold(1)))
	require.Error(t, ch.Send(context.Background(), envelope()))

	err := ch.Send(context.Background(), envelope())
	assert.ErrorIs(t, err, sentinel.ErrCircuitOpen)
}

func TestBreaker_InvalidRecipientDoesNotTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockChannel(ctrl)
	primary.EXPECT().Name().Return("smtp").AnyTimes()
	primary.EXPECT().Send(gomock.Any(), gomock.Any()).
		Return(dErrors.New(dErrors.CodeInvalidInput, "invalid recipient email")).Times(3)

	cb := circuit.New("smtp", circuit.WithFailureThreshold(1))
	ch := NewBreaker(primary, cb)
	for range 3 {
		assert.Error(t, ch.Send(context.Background(), envelope()))
	}
	assert.False(t, cb.IsOpen())
}

// =============================================================================
// Rate limiting
// =============================================================================

func TestRateLimited_RespectsContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockChannel(ctrl)
	next.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	ch := NewRateLimited(next, 0.001, 1)
	require.NoError(t, ch.Send(context.Background(), envelope()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, ch.Send(ctx, envelope()), "second send would wait far past the deadline")
}

func TestRateLimited_ZeroRateIsUnlimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockChannel(ctrl)
	next.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(5)

	ch := NewRateLimited(next, 0, 0)
	for range 5 {
		require.NoError(t, ch.Send(context.Background(), envelope()))
	}
}

// =============================================================================
// SMTP
// =============================================================================

type recordingSender struct {
	messages []*gomail.Message
	err      error
}

func (s *recordingSender) DialAndSend(m ...*gomail.Message) error {
	s.messages = append(s.messages, m...)
	return s.err
}

func TestSMTP_Send(t *testing.T) {
	sender := &recordingSender{}
	ch := &SMTPChannel{sender: sender, from: "alerts@hemolink.example"}

	require.NoError(t, ch.Send(context.Background(), envelope()))
	require.Len(t, sender.messages, 1)
	assert.Equal(t, []string{"Urgent Blood Donation Request: O+"}, sender.messages[0].GetHeader("Subject"))
	assert.Equal(t, []string{"req-1"}, sender.messages[0].GetHeader("X-Hemolink-Request"))
}

func TestSMTP_RejectsInvalidEmail(t *testing.T) {
	sender := &recordingSender{}
	ch := &SMTPChannel{sender: sender, from: "alerts@hemolink.example"}

	env := envelope()
	env.Recipient.Email = "not-an-address"
	err := ch.Send(context.Background(), env)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	assert.Empty(t, sender.messages)
}

func TestSMTP_RelayError(t *testing.T) {
	ch := &SMTPChannel{sender: &recordingSender{err: errors.New("421 try later")}, from: "alerts@hemolink.example"}
	err := ch.Send(context.Background(), envelope())
	assert.ErrorContains(t, err, "421 try later")
}

func TestNewSMTP_Validation(t *testing.T) {
	_, err := NewSMTP(SMTPConfig{From: "alerts@hemolink.example"})
	assert.Error(t, err)
	_, err = NewSMTP(SMTPConfig{Host: "localhost", From: "nope"})
	assert.Error(t, err)
	ch, err := NewSMTP(SMTPConfig{Host: "localhost", Port: 1025, From: "alerts@hemolink.example"})
	require.NoError(t, err)
	assert.Equal(t, "smtp", ch.Name())
}

// =============================================================================
// Kafka
// =============================================================================

type recordingProducer struct {
	records []*kgo.Record
	err     error
}

func (p *recordingProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		p.records = append(p.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestKafka_SendKeysByDonor(t *testing.T) {
	producer := &recordingProducer{}
	ch := &KafkaChannel{producer: producer, topic: "donor-notifications"}

	require.NoError(t, ch.Send(context.Background(), envelope()))
	require.Len(t, producer.records, 1)
	assert.Equal(t, "donor-notifications", producer.records[0].Topic)
	assert.Equal(t, []byte("d1"), producer.records[0].Key)
	assert.Contains(t, string(producer.records[0].Value), `"blood_type":"O+"`)
}

func TestKafka_ProduceError(t *testing.T) {
	ch := &KafkaChannel{producer: &recordingProducer{err: errors.New("not leader")}, topic: "t"}
	assert.ErrorContains(t, ch.Send(context.Background(), envelope()), "not leader")
}

func TestLogChannel_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewLog(nil).Send(ctx, envelope()), context.Canceled)
}
