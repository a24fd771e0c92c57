package routing_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blueway/internal/domain"
	"blueway/internal/geo"
	"blueway/internal/routing"
)

var (
	paulista = domain.Point{Lat: -23.563, Lng: -46.6543}
	moema    = domain.Point{Lat: -23.5913, Lng: -46.6652}
)

func TestRoute_EndpointsAndShape(t *testing.T) {
	r := routing.New(routing.WithSeed(1))

	res, err := r.Route(paulista, moema)
	require.NoError(t, err)

	pts := res.Coordinates
	require.GreaterOrEqual(t, len(pts), 25)
	require.LessOrEqual(t, len(pts), 37)
	assert.Equal(t, paulista, pts[0])
	assert.Equal(t, moema, pts[len(pts)-1])

	assert.InDelta(t, geo.Haversine(paulista, moema), res.DistanceMeters, 1e-6)
	wantDur := time.Duration(res.DistanceMeters / 8.33 * float64(time.Second))
	assert.Equal(t, wantDur, res.Duration)
}

func TestRoute_Cached(t *testing.T) {
	r := routing.New()

	a, err := r.Route(paulista, moema)
	require.NoError(t, err)
	b, err := r.Route(paulista, moema)
	require.NoError(t, err)
	assert.Equal(t, a.Coordinates, b.Coordinates)

	// callers get their own copy
	a.Coordinates[0] = domain.Point{}
	c, _ := r.Route(paulista, moema)
	assert.Equal(t, paulista, c.Coordinates[0])
}

func TestRoute_InvalidCoordinates(t *testing.T) {
	r := routing.New()

	tests := []struct {
		name string
		from domain.Point
		to   domain.Point
	}{
		{name: "nan origin", from: domain.Point{Lat: math.NaN()}, to: moema},
		{name: "latitude out of range", from: paulista, to: domain.Point{Lat: 91}},
		{name: "longitude out of range", from: paulista, to: domain.Point{Lng: -181}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Route(tt.from, tt.to)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRoute_SamePoint(t *testing.T) {
	res, err := routing.New().Route(paulista, paulista)
	require.NoError(t, err)
	assert.Equal(t, paulista, res.Coordinates[len(res.Coordinates)-1])
	assert.Zero(t, res.DistanceMeters)
}

func TestApproach(t *testing.T) {
	r := routing.New(routing.WithSeed(42))

	res, err := r.Approach(paulista)
	require.NoError(t, err)

	start := res.Coordinates[0]
	d := geo.PlanarDistance(start, paulista)
	assert.GreaterOrEqual(t, d, 0.01-1e-9)
	assert.LessOrEqual(t, d, 0.03+1e-9)
	assert.Equal(t, paulista, res.Coordinates[len(res.Coordinates)-1])

	_, err = r.Approach(domain.Point{Lat: 100})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
