//go:generate mockgen -source=dispatcher.go -destination=mocks/mocks.go -package=mocks Channel,ContactStore,DeliveryStore

package notification_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"hemolink/internal/notification"
	"hemolink/internal/notification/mocks"
	"hemolink/internal/notification/store"
	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
	"hemolink/pkg/platform/sentinel"
)

// =============================================================================
// Dispatcher Test Suite
// =============================================================================
// A scripted channel and the in-memory delivery store exercise the fan-out,
// idempotency and cancellation rules; gomock covers store edge cases.

type DispatcherSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	channel    *scriptedChannel
	contacts   staticContacts
	deliveries *store.InMemoryDeliveryStore
	dispatcher *notification.Dispatcher
	now        time.Time
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.channel = newScriptedChannel()
	s.contacts = staticContacts{
		"A": {DonorID: "A", Name: "Ada Lovelace", Email: "ada@example.org"},
		"B": {DonorID: "B", Name: "Ben Okri", Email: "ben@example.org"},
		"C": {DonorID: "C", Name: "Cleo Reyes", Email: "cleo@example.org"},
	}
	s.deliveries = store.NewInMemory()
	s.now = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	s.dispatcher = s.newDispatcher(s.channel)
}

func (s *DispatcherSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *DispatcherSuite) newDispatcher(ch notification.Channel, opts ...notification.Option) *notification.Dispatcher {
	opts = append([]notification.Option{notification.WithClock(func() time.Time { return s.now })}, opts...)
	d, err := notification.NewDispatcher(ch, s.contacts, s.deliveries, opts...)
	s.Require().NoError(err)
	return d
}

func (s *DispatcherSuite) bloodRequest() notification.Request {
	return notification.Request{
		RequestID:     "req-1",
		EventType:     notification.EventBloodRequest,
		BloodType:     id.BloodTypeOPos,
		Units:         2,
		RequesterName: "St. Mary's Hospital",
		Idempotent:    true,
	}
}

func (s *DispatcherSuite) sentRecordsFor(donorID id.DonorID) int {
	n := 0
	for _, r := range s.deliveries.Records() {
		if r.RecipientID == donorID && r.Status == notification.StatusSent {
			n++
		}
	}
	return n
}

// =============================================================================
// Partial failure and idempotent retry
// =============================================================================

func (s *DispatcherSuite) TestPartialFailureThenIdempotentRetry() {
	ctx := context.Background()
	s.channel.failFor("B", errors.New("mailbox unavailable"))

	first, err := s.dispatcher.Dispatch(ctx, []id.DonorID{"A", "B", "C"}, s.bloodRequest())
	s.Require().NoError(err)
	s.Equal(2, first.SuccessCount)
	s.Equal([]id.DonorID{"B"}, first.Failures)
	s.Empty(first.Skipped)
	s.Equal("mailbox unavailable", first.Errors["B"])
	s.True(first.Partial())

	records := s.deliveries.Records()
	s.Require().Len(records, 3)
	for _, r := range records {
		s.True(r.Bulk)
		s.Equal(s.now, r.CreatedAt)
		s.Equal("Urgent Blood Donation Request: O+", r.Subject)
		if r.RecipientID == "B" {
			s.Equal(notification.StatusFailed, r.Status)
			s.Empty(r.IdempotencyKey, "failed records never carry a key")
			continue
		}
		s.Equal(notification.StatusSent, r.Status)
		s.Equal("req-1:"+r.RecipientID.String(), r.IdempotencyKey)
	}

	s.channel.failFor("B", nil)
	second, err := s.dispatcher.Dispatch(ctx, []id.DonorID{"A", "B", "C"}, s.bloodRequest())
	s.Require().NoError(err)
	s.Equal(3, second.SuccessCount)
	s.Empty(second.Failures)
	s.Equal([]id.DonorID{"A", "C"}, second.Skipped)

	s.Equal(1, s.sentRecordsFor("A"))
	s.Equal(1, s.sentRecordsFor("B"))
	s.Equal(1, s.sentRecordsFor("C"))
	s.Equal(1, s.channel.sendsTo("A"))
	s.Equal(2, s.channel.sendsTo("B"))
}

func (s *DispatcherSuite) TestNonIdempotentRequestResends() {
	req := s.bloodRequest()
	req.Idempotent = false

	for range 2 {
		result, err := s.dispatcher.Dispatch(context.Background(), []id.DonorID{"A"}, req)
		s.Require().NoError(err)
		s.Equal(1, result.SuccessCount)
	}
	s.Equal(2, s.sentRecordsFor("A"))
	for _, r := range s.deliveries.Records() {
		s.Empty(r.IdempotencyKey)
	}
}

// =============================================================================
// Recipients
// =============================================================================

func (s *DispatcherSuite) TestDuplicateDonorsAreContactedOnce() {
	result, err := s.dispatcher.Dispatch(context.Background(), []id.DonorID{"A", "A", "C"}, s.bloodRequest())
	s.Require().NoError(err)
	s.Equal(2, result.SuccessCount)
	s.Equal(1, s.channel.sendsTo("A"))
	s.Len(s.deliveries.Records(), 2)
}

func (s *DispatcherSuite) TestSingleRecipientIsNotBulk() {
	_, err := s.dispatcher.Dispatch(context.Background(), []id.DonorID{"C"}, s.bloodRequest())
	s.Require().NoError(err)
	records := s.deliveries.Records()
	s.Require().Len(records, 1)
	s.False(records[0].Bulk)
	s.Equal("St. Mary's Hospital urgently needs 2 units of O+ blood. Please consider donating as soon as possible.", records[0].Message)
}

func (s *DispatcherSuite) TestEmptyRecipientListIsANoop() {
	result, err := s.dispatcher.Dispatch(context.Background(), nil, s.bloodRequest())
	s.Require().NoError(err)
	s.Zero(result.SuccessCount)
	s.Empty(result.Failures)
	s.Empty(s.deliveries.Records())
}

func (s *DispatcherSuite) TestDonorWithoutContactFails() {
	result, err := s.dispatcher.Dispatch(context.Background(), []id.DonorID{"A", "Z"}, s.bloodRequest())
	s.Require().NoError(err)
	s.Equal(1, result.SuccessCount)
	s.Equal([]id.DonorID{"Z"}, result.Failures)
	s.Equal("no contact for donor", result.Errors["Z"])
	s.Zero(s.channel.sendsTo("Z"))
}

func (s *DispatcherSuite) TestContactStoreFailureFailsEveryone() {
	contacts := mocks.NewMockContactStore(s.ctrl)
	contacts.EXPECT().FetchRecipients(gomock.Any(), []id.DonorID{"A", "B"}).
		Return(nil, sentinel.ErrUnavailable)
	d, err := notification.NewDispatcher(s.channel, contacts, s.deliveries)
	s.Require().NoError(err)

	result, err := d.Dispatch(context.Background(), []id.DonorID{"A", "B"}, s.bloodRequest())
	s.Require().NoError(err)
	s.Zero(result.SuccessCount)
	s.Equal([]id.DonorID{"A", "B"}, result.Failures)
	s.Zero(s.channel.total())
}

func (s *DispatcherSuite) TestEmptyDonorIDIsRejected() {
	_, err := s.dispatcher.Dispatch(context.Background(), []id.DonorID{"A", ""}, s.bloodRequest())
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// =============================================================================
// Validation
// =============================================================================

func (s *DispatcherSuite) TestInvalidRequests() {
	cases := map[string]func(*notification.Request){
		"unknown blood type": func(r *notification.Request) { r.BloodType = "C+" },
		"zero units":         func(r *notification.Request) { r.Units = 0 },
		"unknown event":      func(r *notification.Request) { r.EventType = "party" },
		"unknown urgency":    func(r *notification.Request) { r.Urgency = "extreme" },
	}
	for name, mutate := range cases {
		s.Run(name, func() {
			req := s.bloodRequest()
			mutate(&req)
			_, err := s.dispatcher.Dispatch(context.Background(), []id.DonorID{"A"}, req)
			s.True(dErrors.IsValidation(err), "got %v", err)
		})
	}
	s.Zero(s.channel.total())
}

func (s *DispatcherSuite) TestMissingRequestIDIsGenerated() {
	req := s.bloodRequest()
	req.RequestID = ""
	result, err := s.dispatcher.Dispatch(context.Background(), []id.DonorID{"A"}, req)
	s.Require().NoError(err)
	s.False(result.RequestID.IsNil())
	s.Equal(result.RequestID, s.deliveries.Records()[0].RequestID)
}

// =============================================================================
// Cancellation and timeouts
// =============================================================================

func (s *DispatcherSuite) TestCancelledContextFailsRemainingRecipients() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.dispatcher.Dispatch(ctx, []id.DonorID{"A", "B", "C"}, s.bloodRequest())
	s.Require().NoError(err)
	s.Zero(result.SuccessCount)
	s.Equal([]id.DonorID{"A", "B", "C"}, result.Failures)
	s.Equal("context canceled", result.Errors["B"])
	s.Zero(s.channel.total())
	s.Empty(s.deliveries.Records())
}

func (s *DispatcherSuite) TestSlowRecipientTimesOutAlone() {
	s.channel.blockFor("B")
	d := s.newDispatcher(s.channel, notification.WithDeliveryTimeout(20*time.Millisecond))

	result, err := d.Dispatch(context.Background(), []id.DonorID{"A", "B", "C"}, s.bloodRequest())
	s.Require().NoError(err)
	s.Equal(2, result.SuccessCount)
	s.Equal([]id.DonorID{"B"}, result.Failures)
	s.Equal(context.DeadlineExceeded.Error(), result.Errors["B"])
}

func (s *DispatcherSuite) TestConcurrencyIsBounded() {
	s.channel.delay = 5 * time.Millisecond
	d := s.newDispatcher(s.channel, notification.WithConcurrency(2))

	ids := make([]id.DonorID, 0, 12)
	for _, c := range "DEFGHIJKLMNO" {
		donorID := id.DonorID(string(c))
		s.contacts[donorID] = notification.Recipient{DonorID: donorID, Email: string(c) + "@example.org"}
		ids = append(ids, donorID)
	}

	result, err := d.Dispatch(context.Background(), ids, s.bloodRequest())
	s.Require().NoError(err)
	s.Equal(12, result.SuccessCount)
	s.LessOrEqual(s.channel.maxInFlight, 2)
}

// =============================================================================
// Delivery store interaction
// =============================================================================

func (s *DispatcherSuite) TestRecordWriteFailureCountsAsFailure() {
	req := s.bloodRequest()
	req.Idempotent = false
	s.deliveries.FailWith(sentinel.ErrUnavailable)

	result, err := s.dispatcher.Dispatch(context.Background(), []id.DonorID{"A"}, req)
	s.Require().NoError(err)
	s.Equal([]id.DonorID{"A"}, result.Failures)
	s.Contains(result.Errors["A"], "record delivery")
}

func (s *DispatcherSuite) TestConcurrentDuplicateRecordIsNotAFailure() {
	deliveries := mocks.NewMockDeliveryStore(s.ctrl)
	deliveries.EXPECT().DeliveredKeys(gomock.Any(), []string{"req-1:A"}).Return(map[string]bool{}, nil)
	deliveries.EXPECT().Append(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)

	d, err := notification.NewDispatcher(s.channel, s.contacts, deliveries)
	s.Require().NoError(err)

	result, err := d.Dispatch(context.Background(), []id.DonorID{"A"}, s.bloodRequest())
	s.Require().NoError(err)
	s.Equal(1, result.SuccessCount)
	s.Empty(result.Failures)
}

func (s *DispatcherSuite) TestDeliveredLookupFailureStillSends() {
	deliveries := mocks.NewMockDeliveryStore(s.ctrl)
	deliveries.EXPECT().DeliveredKeys(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrUnavailable)
	deliveries.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	d, err := notification.NewDispatcher(s.channel, s.contacts, deliveries)
	s.Require().NoError(err)

	result, err := d.Dispatch(context.Background(), []id.DonorID{"C"}, s.bloodRequest())
	s.Require().NoError(err)
	s.Equal(1, result.SuccessCount)
	s.Equal(1, s.channel.sendsTo("C"))
}

func (s *DispatcherSuite) TestConstructorRequiresCollaborators() {
	_, err := notification.NewDispatcher(nil, s.contacts, s.deliveries)
	s.Error(err)
	_, err = notification.NewDispatcher(s.channel, nil, s.deliveries)
	s.Error(err)
	_, err = notification.NewDispatcher(s.channel, s.contacts, nil)
	s.Error(err)
}

// =============================================================================
// Test doubles
// =============================================================================

type staticContacts map[id.DonorID]notification.Recipient

func (c staticContacts) FetchRecipients(_ context.Context, ids []id.DonorID) (map[id.DonorID]notification.Recipient, error) {
	out := make(map[id.DonorID]notification.Recipient, len(ids))
	for _, donorID := range ids {
		if r, ok := c[donorID]; ok {
			out[donorID] = r
		}
	}
	return out, nil
}

type scriptedChannel struct {
	mu          sync.Mutex
	failures    map[id.DonorID]error
	blocked     map[id.DonorID]bool
	sends       map[id.DonorID]int
	delay       time.Duration
	inFlight    int
	maxInFlight int
}

func newScriptedChannel() *scriptedChannel {
	return &scriptedChannel{
		failures: map[id.DonorID]error{},
		blocked:  map[id.DonorID]bool{},
		sends:    map[id.DonorID]int{},
	}
}

func (c *scriptedChannel) Name() string { return "scripted" }

func (c *scriptedChannel) failFor(donorID id.DonorID, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[donorID] = err
}

func (c *scriptedChannel) blockFor(donorID id.DonorID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocked[donorID] = true
}

func (c *scriptedChannel) sendsTo(donorID id.DonorID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sends[donorID]
}

func (c *scriptedChannel) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.sends {
		n += v
	}
	return n
}

func (c *scriptedChannel) Send(ctx context.Context, env notification.Envelope) error {
	donorID := env.Recipient.DonorID

	c.mu.Lock()
	c.sends[donorID]++
	c.inFlight++
	if c.inFlight > c.maxInFlight {
		c.maxInFlight = c.inFlight
	}
	blocked := c.blocked[donorID]
	failure := c.failures[donorID]
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()

	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return failure
}
