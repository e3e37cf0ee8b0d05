package gateway

import (
	"log"
	"sort"
	"sync"
	"time"

	"farmgate/protocol"
)

// pollable lists the services the supervisor will ping until connected.
var pollable = map[string]bool{
	protocol.ServiceWallet:    true,
	protocol.ServiceFullNode:  true,
	protocol.ServiceFarmer:    true,
	protocol.ServiceHarvester: true,
}

// Supervisor runs one self-rescheduling ping loop per backend service. Each
// loop pings, waits, re-reads the service's connectivity flag, and repeats
// until the flag flips true or the supervisor is stopped.
type Supervisor struct {
	sender   Sender
	state    StateReader
	interval time.Duration

	mu    sync.Mutex
	loops map[string]chan struct{}
}

// NewSupervisor creates a supervisor pinging at the given interval.
func NewSupervisor(sender Sender, state StateReader, interval time.Duration) *Supervisor {
	if interval <= 0 {
		interval = time.Second
	}
	return &Supervisor{
		sender:   sender,
		state:    state,
		interval: interval,
		loops:    make(map[string]chan struct{}),
	}
}

// StartLoop begins pinging the service until its connectivity flag flips.
// Non-pollable services and services with a loop already running are ignored.
func (s *Supervisor) StartLoop(service string) {
	if !pollable[service] {
		return
	}
	s.mu.Lock()
	if _, running := s.loops[service]; running {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.loops[service] = stop
	s.mu.Unlock()

	go s.run(service, stop)
}

// StopAll halts every running loop. Called on disconnect; loops are restarted
// through the normal start_service path after the next connect.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	for service, stop := range s.loops {
		close(stop)
		delete(s.loops, service)
	}
	s.mu.Unlock()
}

// Running returns the services with a live loop, sorted.
func (s *Supervisor) Running() []string {
	s.mu.Lock()
	out := make([]string, 0, len(s.loops))
	for service := range s.loops {
		out = append(out, service)
	}
	s.mu.Unlock()
	sort.Strings(out)
	return out
}

func (s *Supervisor) run(service string, stop chan struct{}) {
	defer s.finish(service, stop)
	for {
		if err := s.sender.Call(protocol.CmdPing, service, nil, nil); err != nil {
			log.Printf("poller: ping %s: %v", service, err)
		}

		select {
		case <-stop:
			return
		case <-time.After(s.interval):
		}

		if s.state.ServiceConnected(service) {
			return
		}
	}
}

// finish clears the loop's table entry unless a newer loop replaced it.
func (s *Supervisor) finish(service string, stop chan struct{}) {
	s.mu.Lock()
	if cur, ok := s.loops[service]; ok && cur == stop {
		delete(s.loops, service)
	}
	s.mu.Unlock()
}
