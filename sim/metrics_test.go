package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentionMetrics_TrackAdmissionLifecycle(t *testing.T) {
	// GIVEN a capacity-1 resource driven through admit, wait, withdraw and
	// release
	s := NewScheduler()
	r, err := NewResource(s, 1)
	require.NoError(t, err)

	r1 := r.Request() // admitted at tick 0
	r2 := r.Request() // waits
	r3 := r.Request() // withdrawn before admission

	r.Withdraw(r3)
	StartProcess(s, func(p *Process) error {
		if _, err := p.Wait(s.Timeout(40, nil)); err != nil {
			return err
		}
		r.Release(r1) // admits r2 at tick 40
		return nil
	})
	s.Run()

	m := r.Metrics()
	assert.Equal(t, 3, m.Issued)
	assert.Equal(t, 2, m.Admitted)
	assert.Equal(t, 1, m.Released)
	assert.Equal(t, 1, m.Withdrawn)
	assert.Equal(t, 1, m.PeakHolders)

	// r1 was admitted instantly, r2 waited the full 40 ticks
	assert.Equal(t, int64(0), m.RequestWaits[r1.ID()])
	assert.Equal(t, int64(40), m.RequestWaits[r2.ID()])
	assert.Equal(t, int64(40), m.WaitTicksSum)
}

func TestContentionMetrics_PeakHolders(t *testing.T) {
	s := NewScheduler()
	r, err := NewResource(s, 3)
	require.NoError(t, err)

	a := r.Request()
	b := r.Request()
	r.Release(a)
	r.Release(b)
	r.Request()

	assert.Equal(t, 2, r.Metrics().PeakHolders)
}

func TestContentionMetrics_Report_DoesNotPanicWhenEmpty(t *testing.T) {
	m := NewContentionMetrics()
	assert.NotPanics(t, func() { m.Report() })
}
