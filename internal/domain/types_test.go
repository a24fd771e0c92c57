package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"blueway/internal/domain"
)

func TestLiveTrip_CloneIsIndependent(t *testing.T) {
	end := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	trip := domain.LiveTrip{
		ID:         "t1",
		Passengers: []domain.LivePassenger{{ID: "p1", Status: domain.PassengerWaiting}},
		EndTime:    &end,
	}

	c := trip.Clone()
	c.Passengers[0].Status = domain.PassengerBoarded
	*c.EndTime = end.Add(time.Hour)

	assert.Equal(t, domain.PassengerWaiting, trip.Passengers[0].Status)
	assert.Equal(t, end, *trip.EndTime)
}

func TestLiveTrip_CountByStatus(t *testing.T) {
	trip := domain.LiveTrip{Passengers: []domain.LivePassenger{
		{Status: domain.PassengerWaiting},
		{Status: domain.PassengerBoarded},
		{Status: domain.PassengerBoarded},
		{Status: domain.PassengerDroppedOff},
	}}

	assert.Equal(t, 3, trip.CountByStatus(domain.PassengerWaiting, domain.PassengerBoarded))
	assert.Equal(t, 2, trip.CountByStatus(domain.PassengerBoarded))
	assert.Equal(t, 0, trip.CountByStatus())
}

func TestRideStage_Animated(t *testing.T) {
	assert.True(t, domain.StageArriving.Animated())
	assert.True(t, domain.StageJourney.Animated())
	for _, s := range []domain.RideStage{domain.StageSearching, domain.StageFound, domain.StagePickup, domain.StageComplete, ""} {
		assert.False(t, s.Animated(), s)
	}
}
