// debug_trace.go - Per-instruction trace observers

package main

import (
	"github.com/tliron/commonlog"
)

// StepEvent describes one executed instruction and the state it left behind.
type StepEvent struct {
	Seq        uint64 // InstructionCount after the step, starting at 1
	Instr      Instruction
	NextPC     uint32
	Regs       RegisterBank
	StackDepth int
}

// TraceObserver is notified by the CPU after every successful instruction
// and once when an instruction faults. Observers run on the CPU goroutine
// and must not retain the event pointers.
type TraceObserver interface {
	OnStep(ev *StepEvent)
	OnFault(instr *Instruction, err error)
}

// LogTracer writes instruction traces to a commonlog logger.
type LogTracer struct {
	log commonlog.Logger
}

func NewLogTracer(log commonlog.Logger) *LogTracer {
	return &LogTracer{log: log}
}

func (t *LogTracer) OnStep(ev *StepEvent) {
	if !t.log.AllowLevel(commonlog.Debug) {
		return
	}
	t.log.Debugf("%04X  %-20s -> %04X  %s  sp=%d",
		ev.Instr.Addr, ev.Instr.String(), ev.NextPC, ev.Regs.String(), ev.StackDepth)
}

func (t *LogTracer) OnFault(instr *Instruction, err error) {
	t.log.Errorf("%04X  %-20s  %v", instr.Addr, instr.String(), err)
}
