package urgency_test

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
	"hemolink/internal/urgency"
	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
	"hemolink/pkg/requestcontext"
)

type RecommendServiceSuite struct {
	suite.Suite
	units     *inventoryStore.InMemoryUnitStore
	forecasts *forecastStore.InMemoryForecastStore
	service   *urgency.Service
	ctx       context.Context
}

func TestRecommendServiceSuite(t *testing.T) {
	suite.Run(t, new(RecommendServiceSuite))
}

func (s *RecommendServiceSuite) SetupTest() {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), now)

	s.units = inventoryStore.NewInMemory(
		inventory.Unit{BloodType: id.BloodTypeONeg, Units: 5},
		inventory.Unit{BloodType: id.BloodTypeAPos, Units: 54},
	)
	s.forecasts = forecastStore.NewInMemory(
		forecast.RawForecast{BloodType: "O-", ShortTermDemand: 20, Urgency: "critical", LastUpdated: now},
		forecast.RawForecast{BloodType: "A+", ShortTermDemand: 5, Urgency: "low", LastUpdated: now},
	)

	inv, err := inventory.New(s.units)
	s.Require().NoError(err)
	fc, err := forecast.New(s.forecasts)
	s.Require().NoError(err)
	s.service, err = urgency.New(inv, fc)
	s.Require().NoError(err)
}

func (s *RecommendServiceSuite) TestRecommend() {
	s.Run("selects the most critical type when none is given", func() {
		res, err := s.service.Recommend(s.ctx, nil)
		s.Require().NoError(err)
		s.True(res.Selected)
		s.Equal(id.BloodTypeONeg, res.BloodType)
		s.Equal(urgency.AppealUrgent, res.Appeal)
		s.False(res.StoreUnavailable)
	})

	s.Run("explicit type", func() {
		bt := id.BloodTypeAPos
		res, err := s.service.Recommend(s.ctx, &bt)
		s.Require().NoError(err)
		s.False(res.Selected)
		s.Equal(urgency.AppealSteady, res.Appeal)
	})

	s.Run("invalid type is rejected", func() {
		bt := id.BloodType("O")
		_, err := s.service.Recommend(s.ctx, &bt)
		s.True(dErrors.IsValidation(err))
	})

	s.Run("store failure falls back to the generic appeal", func() {
		s.forecasts.FailWith(errors.New("down"))
		defer s.forecasts.FailWith(nil)

		res, err := s.service.Recommend(s.ctx, nil)
		s.Require().NoError(err)
		s.True(res.StoreUnavailable)
		s.Error(res.StoreErr)
		s.Equal("We always need blood donors of all types. Your donation can save up to three lives!", res.Message)
	})

	s.Run("corrupt forecast row is a validation error, not an outage", func() {
		inv, err := inventory.New(s.units)
		s.Require().NoError(err)
		fc, err := forecast.New(forecastStore.NewInMemory(
			forecast.RawForecast{BloodType: "Q+", ShortTermDemand: 3, Urgency: "high"},
		))
		s.Require().NoError(err)
		svc, err := urgency.New(inv, fc)
		s.Require().NoError(err)

		res, err := svc.Recommend(s.ctx, nil)
		s.Require().Error(err)
		s.Nil(res)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.False(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}
