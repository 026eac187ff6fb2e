package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var errDown = errors.New("backend down")

func failing() error { return errDown }
func ok() error      { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := New("redis", Config{FailureThreshold: 2, OpenTimeout: time.Second, Now: clock.Now})

	assert.ErrorIs(t, b.Execute(failing), errDown)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Execute(failing), errDown)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := New("redis", Config{FailureThreshold: 1, OpenTimeout: time.Second, Now: clock.Now})

	_ = b.Execute(failing)
	assert.Equal(t, StateOpen, b.State())

	clock.Advance(time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	assert.NoError(t, b.Execute(ok))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := New("redis", Config{FailureThreshold: 3, OpenTimeout: time.Second, Now: clock.Now})

	for i := 0; i < 3; i++ {
		_ = b.Execute(failing)
	}
	clock.Advance(2 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	_ = b.Execute(failing)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := New("llm", Config{FailureThreshold: 2})

	_ = b.Execute(failing)
	_ = b.Execute(ok)
	_ = b.Execute(failing)
	assert.Equal(t, StateClosed, b.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
