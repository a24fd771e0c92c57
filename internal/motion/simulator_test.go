package motion_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blueway/internal/domain"
	"blueway/internal/motion"
	"blueway/internal/stops"
)

func pt(lat, lng float64) domain.Point { return domain.Point{Lat: lat, Lng: lng} }

func catalog(t *testing.T, sps ...domain.StopPoint) *stops.Catalog {
	t.Helper()
	c, err := stops.New(sps, nil)
	require.NoError(t, err)
	return c
}

func kinds(evs []motion.Event) []motion.EventKind {
	out := make([]motion.EventKind, len(evs))
	for i, e := range evs {
		out[i] = e.Kind
	}
	return out
}

func TestConfigure_EmptyRouteStaysIdle(t *testing.T) {
	sim := motion.NewSimulator()

	assert.Empty(t, sim.Configure(nil, domain.StageJourney))
	assert.Equal(t, motion.Idle, sim.State())
	assert.Empty(t, sim.Advance(time.Second))
}

func TestConfigure_StageWithoutMotionStaysIdle(t *testing.T) {
	sim := motion.NewSimulator()

	evs := sim.Configure([]domain.Point{pt(0, 0), pt(0, 1)}, domain.StagePickup)
	assert.Empty(t, evs)
	assert.Equal(t, motion.Idle, sim.State())
}

func TestConfigure_SinglePointCompletes(t *testing.T) {
	sim := motion.NewSimulator()

	evs := sim.Configure([]domain.Point{pt(1, 2)}, domain.StageArriving)
	require.Equal(t, []motion.EventKind{motion.PositionChanged, motion.Finished}, kinds(evs))
	assert.Equal(t, pt(1, 2), evs[0].Position)
	assert.Equal(t, motion.Completed, sim.State())
	assert.Empty(t, sim.Advance(time.Second))
}

func TestAdvance_TwoPointRoute(t *testing.T) {
	sim := motion.NewSimulator(motion.WithSpeeds(motion.Speeds{Journey: 0.1}))

	evs := sim.Configure([]domain.Point{pt(0, 0), pt(0, 1)}, domain.StageJourney)
	require.Len(t, evs, 1)
	assert.Equal(t, pt(0, 0), evs[0].Position)
	assert.Equal(t, motion.Running, sim.State())

	prevLng := 0.0
	prevProgress := 0.0
	var last, end domain.Point
	finished := false
	for i := 0; i < 20 && !finished; i++ {
		for _, ev := range sim.Advance(time.Second) {
			switch ev.Kind {
			case motion.PositionChanged:
				assert.Greater(t, ev.Position.Lng, prevLng)
				prevLng = ev.Position.Lng
				last = ev.Position
			case motion.Finished:
				finished = true
				end = ev.Position
			}
		}
		if !finished {
			assert.GreaterOrEqual(t, sim.Progress(), prevProgress)
			prevProgress = sim.Progress()
		}
	}

	require.True(t, finished)
	assert.InDelta(t, 1.0, last.Lng, 1e-9)
	assert.Equal(t, pt(0, 1), end)
	assert.Equal(t, pt(0, 1), sim.Position())
	assert.Equal(t, motion.Completed, sim.State())
	assert.Empty(t, sim.Advance(time.Second), "no events after completion")
}

func TestAdvance_HeadingFollowsSegment(t *testing.T) {
	sim := motion.NewSimulator(motion.WithSpeeds(motion.Speeds{Journey: 0.1}))
	sim.Configure([]domain.Point{pt(0, 0), pt(1, 0)}, domain.StageJourney)

	sim.Advance(time.Second)
	assert.InDelta(t, 90.0, sim.Heading(), 1e-9)
}

func TestAdvance_SkipsZeroLengthSegments(t *testing.T) {
	sim := motion.NewSimulator(motion.WithSpeeds(motion.Speeds{Journey: 0.001}))
	sim.Configure([]domain.Point{pt(0, 0), pt(0, 0), pt(0, 0.001)}, domain.StageJourney)

	var got []motion.EventKind
	for i := 0; i < 5; i++ {
		got = append(got, kinds(sim.Advance(time.Second))...)
	}
	assert.Contains(t, got, motion.Finished)
	assert.Equal(t, pt(0, 0.001), sim.Position())
}

func TestAdvance_DeduplicatesTinyMoves(t *testing.T) {
	sim := motion.NewSimulator(motion.WithSpeeds(motion.Speeds{Journey: 0.1}))
	sim.Configure([]domain.Point{pt(0, 0), pt(0, 1)}, domain.StageJourney)

	// 0.1°/s for 1µs is 1e-7°, below the 5 decimal reporting precision.
	assert.Empty(t, sim.Advance(time.Microsecond))
	assert.Greater(t, sim.Progress(), 0.0)
}

func TestAdvance_NearThenReachedOnce(t *testing.T) {
	stop := domain.StopPoint{ID: "moema", Name: "Moema", Location: pt(0, 0.5)}
	sim := motion.NewSimulator(
		motion.WithStopFinder(catalog(t, stop)),
		motion.WithSpeeds(motion.Speeds{Journey: 0.002, Slowed: 0.001, Slowdown: time.Second}),
	)
	sim.Configure([]domain.Point{pt(0, 0.49), pt(0, 0.51)}, domain.StageJourney)

	var order []motion.EventKind
	finished := false
	for i := 0; i < 500 && !finished; i++ {
		for _, ev := range sim.Advance(100 * time.Millisecond) {
			switch ev.Kind {
			case motion.NearStop, motion.ReachedStop:
				assert.Equal(t, "moema", ev.Stop.ID)
				order = append(order, ev.Kind)
			case motion.Finished:
				finished = true
			}
		}
	}

	require.True(t, finished)
	assert.Equal(t, []motion.EventKind{motion.NearStop, motion.ReachedStop}, order)
}

func TestAdvance_ReachedStopSlowsVan(t *testing.T) {
	stop := domain.StopPoint{ID: "s", Location: pt(0, 0.0002)}
	sim := motion.NewSimulator(
		motion.WithStopFinder(catalog(t, stop)),
		motion.WithSpeeds(motion.Speeds{Journey: 0.0002, Slowed: 0.00001, Slowdown: 3 * time.Second}),
	)
	sim.Configure([]domain.Point{pt(0, -0.01), pt(0, 0.01)}, domain.StageJourney)

	// Drive until the stop is reached.
	reached := false
	for i := 0; i < 200 && !reached; i++ {
		for _, ev := range sim.Advance(time.Second) {
			reached = reached || ev.Kind == motion.ReachedStop
		}
	}
	require.True(t, reached)

	before := sim.Position().Lng
	sim.Advance(time.Second)
	assert.InDelta(t, 0.00001, sim.Position().Lng-before, 1e-9)
}

func TestAdvance_StartingStopReportedOnFirstMove(t *testing.T) {
	stop := domain.StopPoint{ID: "paulista", Location: pt(0, 0)}
	sim := motion.NewSimulator(
		motion.WithStopFinder(catalog(t, stop)),
		motion.WithSpeeds(motion.Speeds{Journey: 0.0001}),
	)
	evs := sim.Configure([]domain.Point{pt(0, 0), pt(0, 0.002)}, domain.StageJourney)
	assert.Equal(t, []motion.EventKind{motion.PositionChanged}, kinds(evs))

	evs = sim.Advance(time.Second)
	require.Equal(t, []motion.EventKind{motion.PositionChanged, motion.NearStop, motion.ReachedStop}, kinds(evs))
	assert.Equal(t, "paulista", evs[1].Stop.ID)
	assert.Equal(t, "paulista", evs[2].Stop.ID)

	for i := 0; i < 40; i++ {
		for _, ev := range sim.Advance(time.Second) {
			assert.NotEqual(t, motion.NearStop, ev.Kind)
			assert.NotEqual(t, motion.ReachedStop, ev.Kind)
		}
	}
}

func TestAdvance_LoopRouteReportsRevisitedStop(t *testing.T) {
	a := domain.StopPoint{ID: "a", Location: pt(0, 0)}
	b := domain.StopPoint{ID: "b", Location: pt(0, 0.01)}
	sim := motion.NewSimulator(
		motion.WithStopFinder(catalog(t, a, b)),
		motion.WithSpeeds(motion.Speeds{Journey: 0.0001}),
	)
	sim.Configure([]domain.Point{pt(0, 0), pt(0, 0.01), pt(0, 0)}, domain.StageJourney)

	var near, reached []string
	finished := false
	for i := 0; i < 500 && !finished; i++ {
		for _, ev := range sim.Advance(time.Second) {
			switch ev.Kind {
			case motion.NearStop:
				near = append(near, ev.Stop.ID)
			case motion.ReachedStop:
				reached = append(reached, ev.Stop.ID)
			case motion.Finished:
				finished = true
			}
		}
	}

	require.True(t, finished)
	assert.Equal(t, motion.Completed, sim.State())
	assert.Equal(t, []string{"a", "b", "a"}, near)
	assert.Equal(t, []string{"a", "b", "a"}, reached)
}

func TestConfigure_ResetsPreviousRun(t *testing.T) {
	sim := motion.NewSimulator(motion.WithSpeeds(motion.Speeds{Journey: 0.1}))
	sim.Configure([]domain.Point{pt(0, 0), pt(0, 1)}, domain.StageJourney)
	sim.Advance(3 * time.Second)
	require.Greater(t, sim.Progress(), 0.0)

	evs := sim.Configure([]domain.Point{pt(5, 5), pt(5, 6)}, domain.StageArriving)
	require.Len(t, evs, 1)
	assert.Equal(t, pt(5, 5), evs[0].Position)
	assert.Equal(t, 0, sim.Segment())
	assert.Zero(t, sim.Progress())
	assert.Equal(t, domain.StageArriving, sim.Stage())
}
