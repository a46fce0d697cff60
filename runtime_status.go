// runtime_status.go - Run statistics reported when the engine exits

package main

import (
	"fmt"
	"time"
)

// runStatus times one Run and counts the instructions it retired. base is
// InstructionCount when the run started, non-zero after a snapshot restore.
type runStatus struct {
	runID        string
	program      string
	started      time.Time
	finished     time.Time
	base         uint64
	instructions uint64
	result       RunResult
	done         bool
}

func startRunStatus(program, runID string, baseCount uint64) *runStatus {
	return &runStatus{
		runID:        runID,
		program:      program,
		started:      time.Now(),
		base:         baseCount,
		instructions: baseCount,
	}
}

func (s *runStatus) finish(result RunResult, instructions uint64) {
	s.finished = time.Now()
	s.instructions = instructions
	s.result = result
	s.done = true
}

// Elapsed is the run's wall time, up to now if it has not finished.
func (s *runStatus) Elapsed() time.Duration {
	if s.started.IsZero() {
		return 0
	}
	if s.done {
		return s.finished.Sub(s.started)
	}
	return time.Since(s.started)
}

// Retired is the number of instructions executed by this run.
func (s *runStatus) Retired() uint64 {
	return s.instructions - s.base
}

// MIPS is millions of instructions per second of wall time.
func (s *runStatus) MIPS() float64 {
	secs := s.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Retired()) / secs / 1e6
}

func (s *runStatus) String() string {
	state := "running"
	if s.done {
		state = s.result.String()
	}
	return fmt.Sprintf("run %s (%s) %s: %d instructions in %v (%.2f MIPS)",
		s.runID, s.program, state, s.Retired(), s.Elapsed().Round(time.Millisecond), s.MIPS())
}
