package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	assert.False(t, now.Before(before) || now.After(after), "Now() = %v, want between %v and %v", now, before, after)
	assert.GreaterOrEqual(t, clock.Since(time.Now().Add(-time.Second)), time.Second)
}

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	assert.Equal(t, start, clock.Now())

	clock.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), clock.Now())
	assert.Equal(t, 90*time.Second, clock.Since(start))

	later := start.Add(time.Hour)
	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}

func TestOrReal(t *testing.T) {
	assert.Equal(t, RealClock{}, OrReal(nil))

	mock := NewMockClock(time.Unix(0, 0))
	assert.Same(t, mock, OrReal(mock))
}
