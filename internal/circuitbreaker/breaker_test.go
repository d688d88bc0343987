package circuitbreaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jonesrussell/newsgate/internal/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(0, 0)}
	b := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 2, Cooldown: time.Minute, Now: clock.Now})
	boom := errors.New("boom")

	require.ErrorIs(t, b.Execute(func() error { return boom }), boom)
	require.ErrorIs(t, b.Execute(func() error { return boom }), boom)
	assert.Equal(t, circuitbreaker.StateOpen, b.State())

	err := b.Execute(func() error { return nil })
	require.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}

func TestBreaker_HalfOpenAfterCooldownThenCloses(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(0, 0)}
	b := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 1, Cooldown: time.Minute, Now: clock.Now})

	b.Record(errors.New("fail"))
	require.Equal(t, circuitbreaker.StateOpen, b.State())

	clock.now = clock.now.Add(61 * time.Second)
	require.NoError(t, b.Allow())
	assert.Equal(t, circuitbreaker.StateHalfOpen, b.State())

	b.Record(nil)
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
}

func TestBreaker_TripUsesGivenCooldown(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(0, 0)}
	b := circuitbreaker.New(circuitbreaker.Config{Cooldown: time.Minute, Now: clock.Now})

	b.Trip(10 * time.Minute)
	clock.now = clock.now.Add(5 * time.Minute)
	require.ErrorIs(t, b.Allow(), circuitbreaker.ErrCircuitOpen)

	clock.now = clock.now.Add(6 * time.Minute)
	require.NoError(t, b.Allow())
}

func TestBreaker_Reset(t *testing.T) {
	t.Parallel()

	b := circuitbreaker.New(circuitbreaker.DefaultConfig())
	b.Trip(0)
	b.Reset()
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
}
