// Package shop is the machine-shop demo scenario: N machines produce parts,
// break down at random, and contend for a small pool of shared repair
// technicians. It is pure client code over the sim kernel and doubles as a
// worked example of processes, interrupts, and resource contention.
package shop

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/vtsim/vtsim/sim"
)

// Machine tracks one machine's production results.
type Machine struct {
	Name       string
	PartsMade  int
	Breakdowns int

	broken    bool         // true from breakdown until repair completes
	repairReq *sim.Request // technician request in flight, nil outside repairs
	proc      *sim.Process
}

// Shop wires the scenario together: one scheduler, one technician resource,
// and a production plus breakdown process per machine.
type Shop struct {
	cfg      Config
	sched    *sim.Scheduler
	repair   *sim.Resource
	rng      *sim.PartitionedRNG
	Machines []*Machine
}

// New builds a shop from a validated configuration.
func New(cfg Config) (*Shop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sched := sim.NewScheduler()
	repair, err := sim.NewResource(sched, cfg.Technicians)
	if err != nil {
		return nil, err
	}
	s := &Shop{
		cfg:    cfg,
		sched:  sched,
		repair: repair,
		rng:    sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)),
	}
	for i := 0; i < cfg.Machines; i++ {
		s.Machines = append(s.Machines, &Machine{Name: fmt.Sprintf("machine-%02d", i)})
	}
	return s, nil
}

// Repair exposes the technician resource, mainly for inspection in tests.
func (s *Shop) Repair() *sim.Resource {
	return s.repair
}

// Run starts every machine and drives the simulation to the horizon.
// Returns the final virtual clock.
func (s *Shop) Run() int64 {
	for _, m := range s.Machines {
		s.startMachine(m)
	}
	return s.sched.RunUntil(s.cfg.Horizon)
}

// startMachine launches the production process and its breakdown process.
func (s *Shop) startMachine(m *Machine) {
	svc := s.rng.ForSubsystem(sim.SubsystemService)
	fail := s.rng.ForSubsystem(sim.SubsystemFailures)

	m.proc = sim.StartProcess(s.sched, func(p *sim.Process) error {
		// Safety net, registered once per machine: if this process ever
		// dies holding or awaiting a technician, the request current at
		// that moment is handed back on its behalf.
		p.Done().OnResolve(func(*sim.Occurrence) {
			if m.repairReq != nil {
				s.repair.Withdraw(m.repairReq)
			}
		})
		for {
			remaining := s.serviceTicks(svc)
			for remaining > 0 {
				start := s.sched.Now()
				_, err := p.Wait(s.sched.Timeout(remaining, nil))
				if err == nil {
					remaining = 0
					break
				}
				var intr *sim.Interrupt
				if !errors.As(err, &intr) {
					return err
				}
				// Broke down mid-part; the part is finished after repair.
				remaining -= s.sched.Now() - start
				m.broken = true
				m.Breakdowns++
				logrus.Infof("[tick %07d] %s broke down, requesting repair", s.sched.Now(), m.Name)

				req := s.repair.Request()
				m.repairReq = req
				if _, err := p.Wait(req); err != nil {
					return err
				}
				if _, err := p.Wait(s.sched.Timeout(s.cfg.RepairTicks, nil)); err != nil {
					return err
				}
				s.repair.Release(req)
				m.repairReq = nil
				m.broken = false
				logrus.Infof("[tick %07d] %s repaired, resuming production", s.sched.Now(), m.Name)
			}
			m.PartsMade++
		}
	})

	sim.StartProcess(s.sched, func(p *sim.Process) error {
		for {
			if _, err := p.Wait(s.sched.Timeout(s.failureTicks(fail), nil)); err != nil {
				return err
			}
			// Only a producing machine can break; one already under (or
			// awaiting) repair is left alone.
			if !m.broken {
				m.proc.Interrupt("breakdown")
			}
		}
	})
}

// serviceTicks samples a per-part production time, normally distributed and
// clamped to at least one tick.
func (s *Shop) serviceTicks(rng *rand.Rand) int64 {
	t := int64(rng.NormFloat64()*s.cfg.ServiceStdevTicks + s.cfg.MeanServiceTicks)
	if t < 1 {
		return 1
	}
	return t
}

// failureTicks samples the time until the next breakdown, exponentially
// distributed and clamped to at least one tick.
func (s *Shop) failureTicks(rng *rand.Rand) int64 {
	t := int64(rng.ExpFloat64() * s.cfg.MeanTimeToFailure)
	if t < 1 {
		return 1
	}
	return t
}

// Report prints the production results and the technician contention
// metrics.
func (s *Shop) Report(clock int64) {
	fmt.Println("=== Machine Shop Results ===")
	total := 0
	for _, m := range s.Machines {
		fmt.Printf("%s : %4d parts, %3d breakdowns\n", m.Name, m.PartsMade, m.Breakdowns)
		total += m.PartsMade
	}
	fmt.Printf("Total parts produced : %d over %d ticks\n", total, clock)
	s.repair.Metrics().Report()
}
