// cpu_w16.go - W16 16-bit word machine for the Word Engine

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2025 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
Buy me a coffee: https://ko-fi.com/intuition/tip

License: GPLv3 or later
*/

/*
cpu_w16.go - W16 Word Machine

This module implements the W16 interpreter core: a word-addressed machine
with a 15-bit data path, eight registers, an unbounded stack and 22
variable-length instructions.

Core Features:
- 32768-word address space, program loaded at address 0
- 8 general-purpose registers holding values 0..32767
- One stack shared by push/pop and call/ret
- Operands are literals (0..32767) or register references (32768..32775)
- Character terminal: out writes one byte, in consumes a buffered line

Instruction Encoding (variable length, 1-4 words):
  Word 0:    Opcode (0..21)
  Word 1..3: Operands, count fixed per opcode (see w16OpcodeTable)

Execution Model:
- StepOne decodes a whole instruction before touching PC; PC is committed
  only when the instruction succeeds, so a fault leaves PC on the faulting
  instruction and success never leaves it mid-instruction
- Run loops StepOne until halt, a Stop request, a breakpoint or a fault
- halt is a RunHalted result, never a process exit

Thread Safety:
- The CPU and everything it owns are used from one goroutine
- stopReq is an atomic.Bool so a signal handler or watchdog may call Stop
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
)

// RunResult says why Run returned.
type RunResult int

const (
	RunHalted RunResult = iota
	RunStopped
	RunBreakpoint
	RunFaulted
)

func (r RunResult) String() string {
	switch r {
	case RunHalted:
		return "halted"
	case RunStopped:
		return "stopped"
	case RunBreakpoint:
		return "breakpoint"
	case RunFaulted:
		return "faulted"
	}
	return fmt.Sprintf("RunResult(%d)", int(r))
}

// StepResult is the outcome of a single StepOne.
type StepResult int

const (
	StepContinue StepResult = iota
	StepHalted
	StepFaulted
)

type CPUW16 struct {
	PC    uint32
	regs  RegisterBank
	stack OperandStack
	mem   *WordStore

	term    TerminalChannel
	pending []byte // rest of the current input line

	stopReq atomic.Bool
	running atomic.Bool

	tracers []TraceObserver

	// Set by DebugW16. Checked before each instruction in Run.
	breakCheck func(pc uint32) bool
	breakSkip  bool

	InstructionCount uint64
}

type CPUOption func(*CPUW16)

// WithDebug attaches a trace observer that logs every instruction through
// the cpu logger at debug level.
func WithDebug(enabled bool) CPUOption {
	return func(cpu *CPUW16) {
		if enabled {
			enableDebugLogging()
			cpu.tracers = append(cpu.tracers, NewLogTracer(cpuLog))
		}
	}
}

// WithTracer adds an observer invoked after every instruction and on faults.
func WithTracer(t TraceObserver) CPUOption {
	return func(cpu *CPUW16) {
		if t != nil {
			cpu.tracers = append(cpu.tracers, t)
		}
	}
}

// NewCPUW16 builds a zeroed machine. term may be nil for programs that never
// use in/out; those instructions then fault.
func NewCPUW16(term TerminalChannel, opts ...CPUOption) *CPUW16 {
	cpu := &CPUW16{
		mem:  NewWordStore(),
		term: term,
	}
	for _, opt := range opts {
		opt(cpu)
	}
	return cpu
}

// Reset clears memory, registers, stack, PC and pending input. The terminal
// and observers stay attached.
func (cpu *CPUW16) Reset() {
	cpu.PC = 0
	cpu.regs.Reset()
	cpu.stack.Reset()
	cpu.mem.Reset()
	cpu.pending = nil
	cpu.stopReq.Store(false)
	cpu.breakSkip = false
	cpu.InstructionCount = 0
}

// LoadWords resets the machine and places words at address 0.
func (cpu *CPUW16) LoadWords(words []uint16) error {
	cpu.Reset()
	return cpu.mem.Load(words)
}

// LoadProgram reads a little-endian program file and loads it.
func (cpu *CPUW16) LoadProgram(filename string) error {
	words, err := LoadProgramFile(filename)
	if err != nil {
		return err
	}
	if err := cpu.LoadWords(words); err != nil {
		return fmt.Errorf("loading %s: %w", filename, err)
	}
	cpuLog.Infof("loaded %d words from %s", len(words), filename)
	return nil
}

// Stop asks Run to return RunStopped before the next instruction. It never
// interrupts an instruction, including one waiting for input.
func (cpu *CPUW16) Stop() {
	cpu.stopReq.Store(true)
}

func (cpu *CPUW16) IsRunning() bool {
	return cpu.running.Load()
}

func (cpu *CPUW16) Registers() RegisterBank {
	return cpu.regs
}

func (cpu *CPUW16) StackDepth() int {
	return cpu.stack.Depth()
}

// Run executes until halt, Stop, a breakpoint or a fault. Faults are
// returned as *CPUFault together with RunFaulted.
func (cpu *CPUW16) Run() (RunResult, error) {
	cpu.running.Store(true)
	defer cpu.running.Store(false)

	for {
		if cpu.stopReq.Load() {
			cpu.stopReq.Store(false)
			return RunStopped, nil
		}

		if cpu.breakCheck != nil {
			if cpu.breakSkip {
				// Resuming from the breakpoint we stopped on.
				cpu.breakSkip = false
			} else if cpu.breakCheck(cpu.PC) {
				cpu.breakSkip = true
				return RunBreakpoint, nil
			}
		}

		res, err := cpu.StepOne()
		switch res {
		case StepHalted:
			return RunHalted, nil
		case StepFaulted:
			return RunFaulted, err
		}
	}
}

// StepOne decodes and executes the instruction at PC.
func (cpu *CPUW16) StepOne() (StepResult, error) {
	instr, err := cpu.decode(cpu.PC)
	if err != nil {
		return StepFaulted, cpu.raise(&instr, err)
	}

	next, halted, err := cpu.execute(&instr)
	if err != nil {
		return StepFaulted, cpu.raise(&instr, err)
	}

	cpu.PC = next
	cpu.InstructionCount++
	cpu.notifyStep(&instr)

	if halted {
		return StepHalted, nil
	}
	return StepContinue, nil
}

// decode fetches the opcode at pc and its operand words without moving PC.
func (cpu *CPUW16) decode(pc uint32) (Instruction, error) {
	instr := Instruction{Addr: pc, Op: W16_OPCODE_COUNT}

	word, err := cpu.mem.Read(pc)
	if err != nil {
		return instr, err
	}
	op := W16Opcode(word)
	if op >= W16_OPCODE_COUNT {
		return instr, fmt.Errorf("%w: %d", ErrInvalidOpcode, word)
	}
	instr.Op = op

	info := &w16OpcodeTable[op]
	for i := 0; i < info.operands; i++ {
		v, err := cpu.mem.Read(pc + 1 + uint32(i))
		if err != nil {
			return instr, err
		}
		instr.Operands[i] = v
		instr.N++
	}
	return instr, nil
}

func (cpu *CPUW16) raise(instr *Instruction, err error) error {
	fault := newCPUFault(instr, err)
	for _, t := range cpu.tracers {
		t.OnFault(instr, fault)
	}
	return fault
}

func (cpu *CPUW16) notifyStep(instr *Instruction) {
	if len(cpu.tracers) == 0 {
		return
	}
	ev := StepEvent{
		Seq:        cpu.InstructionCount,
		Instr:      *instr,
		NextPC:     cpu.PC,
		Regs:       cpu.regs,
		StackDepth: cpu.stack.Depth(),
	}
	for _, t := range cpu.tracers {
		t.OnStep(&ev)
	}
}

// readInputChar returns the next input code, pulling a whole line from the
// terminal when the buffered one is used up.
func (cpu *CPUW16) readInputChar() (byte, error) {
	if len(cpu.pending) == 0 {
		if cpu.term == nil {
			return 0, fmt.Errorf("%w: no terminal attached", ErrInputClosed)
		}
		line, err := cpu.term.ReadLine()
		if len(line) == 0 {
			if err == nil || errors.Is(err, io.EOF) {
				return 0, ErrInputClosed
			}
			return 0, fmt.Errorf("%w: %w", ErrInputClosed, err)
		}
		cpu.pending = line
	}
	ch := cpu.pending[0]
	cpu.pending = cpu.pending[1:]
	return ch, nil
}

func (cpu *CPUW16) writeOutputChar(ch rune) error {
	if cpu.term == nil {
		return fmt.Errorf("%w: no terminal attached", ErrOutput)
	}
	if err := cpu.term.WriteChar(ch); err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	return nil
}
