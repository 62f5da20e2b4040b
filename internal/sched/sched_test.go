package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAfter_RunsWhenDue(t *testing.T) {
	s := New()
	ran := 0
	s.After(100*time.Millisecond, func() { ran++ })

	s.Tick(50 * time.Millisecond)
	assert.Equal(t, 0, ran)

	s.Tick(50 * time.Millisecond)
	assert.Equal(t, 1, ran)

	s.Tick(time.Second)
	assert.Equal(t, 1, ran, "routine must run once")
}

func TestTick_OrdersByDueThenFIFO(t *testing.T) {
	s := New()
	var order []string
	s.After(20*time.Millisecond, func() { order = append(order, "late") })
	s.After(10*time.Millisecond, func() { order = append(order, "first") })
	s.After(10*time.Millisecond, func() { order = append(order, "second") })

	s.Tick(time.Second)
	assert.Equal(t, []string{"first", "second", "late"}, order)
}

func TestStop_CancelsRoutine(t *testing.T) {
	s := New()
	ran := false
	r := s.After(10*time.Millisecond, func() { ran = true })
	require.True(t, r.Active())

	assert.True(t, r.Stop())
	assert.False(t, r.Stop(), "second stop is a no-op")
	assert.False(t, r.Active())

	s.Tick(time.Second)
	assert.False(t, ran)
	assert.Equal(t, 0, s.Pending())
}

func TestTick_RunsChainedRoutinesAlreadyDue(t *testing.T) {
	s := New()
	var order []int
	s.After(0, func() {
		order = append(order, 1)
		s.After(0, func() { order = append(order, 2) })
		s.After(time.Second, func() { order = append(order, 3) })
	})

	s.Tick(time.Millisecond)
	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, 1, s.Pending())
}

func TestTick_ManyRoutinesWithStoppedHead(t *testing.T) {
	s := New()
	var order []int
	routines := make([]*Routine, 0, 50)
	for i := 49; i >= 0; i-- {
		i := i
		routines = append(routines, s.After(time.Duration(i)*time.Millisecond, func() { order = append(order, i) }))
	}
	// earliest due and one in the middle
	routines[49].Stop()
	routines[25].Stop()

	s.Tick(20 * time.Millisecond)
	require.Len(t, order, 20)
	assert.Equal(t, 1, order[0])
	assert.Equal(t, 20, order[19])

	s.Tick(time.Second)
	assert.Len(t, order, 48)
	assert.NotContains(t, order, 24)
	for i := 1; i < len(order); i++ {
		assert.Less(t, order[i-1], order[i])
	}
	assert.Zero(t, s.Pending())
	assert.Empty(t, s.pending)
}

func TestClear(t *testing.T) {
	s := New()
	r := s.After(time.Millisecond, func() { t.Fatal("cleared routine ran") })
	s.Clear()
	s.Tick(time.Second)
	assert.False(t, r.Active())
}

func TestTween(t *testing.T) {
	tw := NewTween(0, 10, 100*time.Millisecond, EaseLinear)
	assert.InDelta(t, 5, tw.Tick(50*time.Millisecond), 1e-9)
	assert.InDelta(t, 10, tw.Tick(100*time.Millisecond), 1e-9)
	assert.True(t, tw.Done())

	tw.Retarget(0, 0)
	assert.Equal(t, 0.0, tw.Value())
}

func TestEasing_Bounds(t *testing.T) {
	for _, e := range []Easing{EaseLinear, EaseOutQuad, EaseInOutCubic} {
		assert.Equal(t, 0.0, e.Apply(-1), e)
		assert.Equal(t, 1.0, e.Apply(2), e)
	}
	assert.InDelta(t, 0.75, EaseOutQuad.Apply(0.5), 1e-9)
	assert.InDelta(t, 0.5, EaseInOutCubic.Apply(0.5), 1e-9)
}
