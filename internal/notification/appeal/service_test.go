package appeal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hemolink/internal/forecast"
	forecastStore "hemolink/internal/forecast/store"
	"hemolink/internal/inventory"
	inventoryStore "hemolink/internal/inventory/store"
	"hemolink/internal/matching"
	matchingStore "hemolink/internal/matching/store"
	"hemolink/internal/notification"
	"hemolink/internal/notification/adapters"
	"hemolink/internal/notification/appeal"
	"hemolink/internal/notification/channel"
	deliveryStore "hemolink/internal/notification/store"
	"hemolink/internal/urgency"
	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
	"hemolink/pkg/requestcontext"
)

// AppealSuite wires the real services over in-memory stores.
type AppealSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	units      *inventoryStore.InMemoryUnitStore
	donors     *matchingStore.InMemoryDonorStore
	deliveries *deliveryStore.InMemoryDeliveryStore
	service    *appeal.Service
}

func TestAppealSuite(t *testing.T) {
	suite.Run(t, new(AppealSuite))
}

func (s *AppealSuite) SetupTest() {
	s.now = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	s.units = inventoryStore.NewInMemory(
		inventory.Unit{BloodType: id.BloodTypeONeg, Units: 5},
		inventory.Unit{BloodType: id.BloodTypeAPos, Units: 54},
	)
	forecasts := forecastStore.NewInMemory(
		forecast.RawForecast{BloodType: "O-", ShortTermDemand: 20, Urgency: "critical", LastUpdated: s.now},
		forecast.RawForecast{BloodType: "A+", ShortTermDemand: 5, Urgency: "low", LastUpdated: s.now},
	)

	recent := s.now.AddDate(0, 0, -10)
	s.donors = matchingStore.NewInMemory()
	s.donors.Put(matching.Donor{ID: "eligible", BloodType: id.BloodTypeONeg},
		matching.Profile{FirstName: "Ola", LastName: "Neg", Email: "ola@example.org"})
	s.donors.Put(matching.Donor{ID: "recent", BloodType: id.BloodTypeONeg, LastDonation: &recent},
		matching.Profile{FirstName: "Rae", Email: "rae@example.org"})
	s.donors.Put(matching.Donor{ID: "other-type", BloodType: id.BloodTypeAPos},
		matching.Profile{FirstName: "Al", Email: "al@example.org"})

	inv, err := inventory.New(s.units)
	s.Require().NoError(err)
	fc, err := forecast.New(forecasts)
	s.Require().NoError(err)
	rec, err := urgency.New(inv, fc)
	s.Require().NoError(err)
	ranker, err := matching.New(s.donors, s.donors)
	s.Require().NoError(err)

	s.deliveries = deliveryStore.NewInMemory()
	dispatcher, err := notification.NewDispatcher(channel.NewLog(nil), adapters.NewProfileContacts(s.donors), s.deliveries)
	s.Require().NoError(err)

	s.service, err = appeal.New(rec, inv, ranker, dispatcher)
	s.Require().NoError(err)
}

func (s *AppealSuite) TestAppealsToEligibleDonorsOfCriticalType() {
	res, err := s.service.Run(s.ctx, appeal.Request{RequestID: "appeal-1", Idempotent: true})
	s.Require().NoError(err)

	s.True(res.Selected)
	s.Equal(id.BloodTypeONeg, res.Recommendation.BloodType)
	s.Equal(5, res.Stock.CurrentUnits)
	s.Equal(45, res.UnitsNeeded)
	s.Equal(1, res.Dispatch.SuccessCount)

	records := s.deliveries.Records()
	s.Require().Len(records, 1)
	r := records[0]
	s.Equal(id.DonorID("eligible"), r.RecipientID)
	s.Equal(notification.EventLowStock, r.EventType)
	s.Equal(5, r.Units)
	s.Equal("Urgent: O- Blood Stock is Low", r.Subject)
	s.Equal(urgency.MessageFor(urgency.AppealUrgent, id.BloodTypeONeg), r.Message)
	s.Equal("appeal-1:eligible", r.IdempotencyKey)
}

func (s *AppealSuite) TestRepeatedAppealIsIdempotent() {
	for range 2 {
		_, err := s.service.Run(s.ctx, appeal.Request{RequestID: "appeal-2", Idempotent: true})
		s.Require().NoError(err)
	}
	s.Len(s.deliveries.Records(), 1)
}

func (s *AppealSuite) TestExplicitBloodType() {
	bt := id.BloodTypeAPos
	res, err := s.service.Run(s.ctx, appeal.Request{BloodType: &bt})
	s.Require().NoError(err)
	s.False(res.Selected)
	s.Equal(id.BloodTypeAPos, res.Recommendation.BloodType)
	s.Equal(6, res.UnitsNeeded)
	s.Equal(1, res.Dispatch.SuccessCount)
}

func (s *AppealSuite) TestInventoryOutageFailsWithoutSending() {
	s.units.FailWith(errors.New("connection refused"))

	_, err := s.service.Run(s.ctx, appeal.Request{})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Empty(s.deliveries.Records())
}

func (s *AppealSuite) TestDonorOutageFailsWithoutSending() {
	s.donors.FailWith(errors.New("connection refused"))

	_, err := s.service.Run(s.ctx, appeal.Request{})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Empty(s.deliveries.Records())
}
