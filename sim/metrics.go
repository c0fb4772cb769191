// Tracks per-resource contention statistics for final reporting.

package sim

import "fmt"

// ContentionMetrics aggregates statistics about one resource's admission
// behavior over a run. Useful for evaluating how contended the resource was
// and debugging queueing behavior.
type ContentionMetrics struct {
	Issued    int // requests issued
	Admitted  int // requests admitted (immediately or after waiting)
	Released  int // held slots returned
	Withdrawn int // pending requests withdrawn before admission

	PeakHolders  int   // max simultaneously held slots
	WaitTicksSum int64 // total ticks requests spent waiting before admission

	RequestWaits map[string]int64 // map of request ID -> ticks waited before admission
}

// NewContentionMetrics creates an empty metrics record.
func NewContentionMetrics() *ContentionMetrics {
	return &ContentionMetrics{
		RequestWaits: make(map[string]int64),
	}
}

func (m *ContentionMetrics) recordAdmit(requestID string, waited int64, holders int) {
	m.Admitted++
	m.WaitTicksSum += waited
	m.RequestWaits[requestID] = waited
	if holders > m.PeakHolders {
		m.PeakHolders = holders
	}
}

// Report displays aggregated contention metrics at the end of a run.
func (m *ContentionMetrics) Report() {
	fmt.Println("=== Resource Contention Metrics ===")
	fmt.Printf("Requests Issued      : %d\n", m.Issued)
	fmt.Printf("Requests Admitted    : %d\n", m.Admitted)
	fmt.Printf("Slots Released       : %d\n", m.Released)
	fmt.Printf("Requests Withdrawn   : %d\n", m.Withdrawn)
	fmt.Printf("Peak Slots Held      : %d\n", m.PeakHolders)
	if m.Admitted > 0 {
		fmt.Printf("Average Wait         : %.2f ticks\n", float64(m.WaitTicksSum)/float64(m.Admitted))
	}
}
