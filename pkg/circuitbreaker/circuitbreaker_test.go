package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := New[int](Settings{Name: "test", ConsecutiveFailures: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := b.Execute(func() (int, error) { return 0, errUpstream })
		require.ErrorIs(t, err, errUpstream)
	}

	calls := 0
	_, err := b.Execute(func() (int, error) {
		calls++
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.Zero(t, calls)
	assert.Equal(t, "open", b.State())
}

func TestBreaker_PassesResult(t *testing.T) {
	b := New[string](Settings{Name: "ok"})
	v, err := b.Execute(func() (string, error) { return "order_1", nil })
	require.NoError(t, err)
	assert.Equal(t, "order_1", v)
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_IsSuccessfulExcludesErrors(t *testing.T) {
	errBadInput := errors.New("bad input")
	b := New[int](Settings{
		Name:                "filter",
		ConsecutiveFailures: 1,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errBadInput)
		},
	})

	for i := 0; i < 3; i++ {
		_, err := b.Execute(func() (int, error) { return 0, errBadInput })
		assert.ErrorIs(t, err, errBadInput)
	}
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	b := New[int](Settings{Name: "recover", ConsecutiveFailures: 1, OpenTimeout: 10 * time.Millisecond})
	_, _ = b.Execute(func() (int, error) { return 0, errUpstream })
	require.Equal(t, "open", b.State())

	time.Sleep(20 * time.Millisecond)
	v, err := b.Execute(func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, "closed", b.State())
}
