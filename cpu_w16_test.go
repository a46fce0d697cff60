// cpu_w16_test.go - W16 CPU instruction and property tests

package main

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"
)

type w16TestRig struct {
	cpu  *CPUW16
	term *MemoryTerminal
}

func newW16TestRig(opts ...CPUOption) *w16TestRig {
	term := NewMemoryTerminal()
	return &w16TestRig{cpu: NewCPUW16(term, opts...), term: term}
}

// reg encodes a register operand.
func reg(i int) uint16 {
	return uint16(W16_REG_BASE + i)
}

func op(o W16Opcode) uint16 {
	return uint16(o)
}

func (r *w16TestRig) load(t *testing.T, words ...uint16) {
	t.Helper()
	if err := r.cpu.LoadWords(words); err != nil {
		t.Fatalf("LoadWords: %v", err)
	}
}

// run expects the program to halt.
func (r *w16TestRig) run(t *testing.T) {
	t.Helper()
	res, err := r.cpu.Run()
	if err != nil {
		t.Fatalf("Run: unexpected fault: %v", err)
	}
	if res != RunHalted {
		t.Fatalf("Run: got %v, want halted", res)
	}
}

// runFault expects the program to fault with kind and returns the fault.
func (r *w16TestRig) runFault(t *testing.T, kind error) *CPUFault {
	t.Helper()
	res, err := r.cpu.Run()
	if res != RunFaulted {
		t.Fatalf("Run: got %v (err %v), want faulted", res, err)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("Run: got %v, want %v", err, kind)
	}
	var fault *CPUFault
	if !errors.As(err, &fault) {
		t.Fatalf("Run: error %T is not a *CPUFault", err)
	}
	return fault
}

// executeOne runs a single instruction followed by halt.
func (r *w16TestRig) executeOne(t *testing.T, instr ...uint16) {
	t.Helper()
	r.load(t, append(instr, op(W16_HALT))...)
	r.run(t)
}

func (r *w16TestRig) reg(i int) uint16 {
	return r.cpu.regs.Get(i)
}

type recordingTracer struct {
	steps  []StepEvent
	faults []error
}

func (rt *recordingTracer) OnStep(ev *StepEvent) {
	rt.steps = append(rt.steps, *ev)
}

func (rt *recordingTracer) OnFault(_ *Instruction, err error) {
	rt.faults = append(rt.faults, err)
}

// ------------------------------------------------------------------------------
// Machine state
// ------------------------------------------------------------------------------

func TestW16_NewCPU(t *testing.T) {
	r := newW16TestRig()
	if r.cpu.PC != 0 {
		t.Fatalf("PC = %d, want 0", r.cpu.PC)
	}
	for i := range W16_NUM_REGS {
		if r.reg(i) != 0 {
			t.Fatalf("%s = %d, want 0", w16RegNames[i], r.reg(i))
		}
	}
	if r.cpu.StackDepth() != 0 {
		t.Fatalf("stack depth = %d, want 0", r.cpu.StackDepth())
	}
	if r.cpu.IsRunning() {
		t.Fatal("new CPU reports running")
	}
}

func TestW16_LoadWords_ResetsMachine(t *testing.T) {
	r := newW16TestRig()
	r.load(t, op(W16_SET), reg(2), 77, op(W16_PUSH), 9, op(W16_HALT))
	r.run(t)

	r.load(t, op(W16_HALT))
	if r.reg(2) != 0 || r.cpu.StackDepth() != 0 || r.cpu.PC != 0 || r.cpu.InstructionCount != 0 {
		t.Fatalf("state survived reload: R2=%d depth=%d PC=%d count=%d",
			r.reg(2), r.cpu.StackDepth(), r.cpu.PC, r.cpu.InstructionCount)
	}
	if w, _ := r.cpu.mem.Read(3); w != 0 {
		t.Fatalf("mem[3] = %d after loading a shorter program, want 0", w)
	}
}

// ------------------------------------------------------------------------------
// End-to-end programs
// ------------------------------------------------------------------------------

func TestW16_HaltOnly(t *testing.T) {
	rec := &recordingTracer{}
	r := newW16TestRig(WithTracer(rec))
	r.load(t, op(W16_HALT))
	r.run(t)

	if bank := r.cpu.Registers(); bank != (RegisterBank{}) {
		t.Fatalf("registers changed: %s", bank.String())
	}
	if r.cpu.StackDepth() != 0 {
		t.Fatalf("stack depth = %d, want 0", r.cpu.StackDepth())
	}
	if r.cpu.PC != 0 {
		t.Fatalf("PC = %d, want 0 (left on halt)", r.cpu.PC)
	}
	if len(rec.steps) != 1 || r.cpu.InstructionCount != 1 {
		t.Fatalf("steps = %d, count = %d, want 1", len(rec.steps), r.cpu.InstructionCount)
	}
	if out := r.term.DrainOutput(); out != "" {
		t.Fatalf("output = %q, want none", out)
	}

	// Running again halts again.
	r.run(t)
}

func TestW16_SetOutHalt(t *testing.T) {
	r := newW16TestRig()
	r.load(t, op(W16_SET), reg(0), 4, op(W16_OUT), reg(0), op(W16_HALT))
	r.run(t)

	if out := r.term.DrainOutput(); out != "\x04" {
		t.Fatalf("output = %q, want exactly \\x04", out)
	}
	if r.reg(0) != 4 {
		t.Fatalf("R0 = %d, want 4", r.reg(0))
	}
}

func TestW16_HelloWorld(t *testing.T) {
	r := newW16TestRig()
	var prog []uint16
	for _, ch := range "hi\n" {
		prog = append(prog, op(W16_OUT), uint16(ch))
	}
	r.load(t, append(prog, op(W16_HALT))...)
	r.run(t)
	if out := r.term.DrainOutput(); out != "hi\n" {
		t.Fatalf("output = %q, want %q", out, "hi\n")
	}
}

// ------------------------------------------------------------------------------
// Operand resolution
// ------------------------------------------------------------------------------

func TestW16_SET_RegisterSelfReference(t *testing.T) {
	r := newW16TestRig()
	r.load(t, op(W16_SET), reg(0), reg(0), op(W16_HALT))
	r.cpu.regs.Set(0, 5)
	r.run(t)
	if r.reg(0) != 5 {
		t.Fatalf("R0 = %d, want 5", r.reg(0))
	}
}

func TestW16_SET_RegisterSource(t *testing.T) {
	r := newW16TestRig()
	r.load(t, op(W16_SET), reg(1), 1234, op(W16_SET), reg(7), reg(1), op(W16_HALT))
	r.run(t)
	if r.reg(7) != 1234 {
		t.Fatalf("R7 = %d, want 1234", r.reg(7))
	}
}

func TestW16_OperandOutOfRange(t *testing.T) {
	const bad = 32776
	tests := []struct {
		name string
		prog []uint16
	}{
		{"set src", []uint16{op(W16_SET), reg(0), bad}},
		{"set dst", []uint16{op(W16_SET), bad, 1}},
		{"push", []uint16{op(W16_PUSH), bad}},
		{"pop dst", []uint16{op(W16_POP), bad}},
		{"eq b", []uint16{op(W16_EQ), reg(0), bad, 1}},
		{"gt c", []uint16{op(W16_GT), reg(0), 1, bad}},
		{"add b", []uint16{op(W16_ADD), reg(0), bad, 1}},
		{"mult c", []uint16{op(W16_MULT), reg(0), 1, bad}},
		{"not src", []uint16{op(W16_NOT), reg(0), bad}},
		{"jmp", []uint16{op(W16_JMP), bad}},
		{"jt cond", []uint16{op(W16_JT), bad, 0}},
		{"jf addr", []uint16{op(W16_JF), 0, bad}},
		{"rmem addr", []uint16{op(W16_RMEM), reg(0), bad}},
		{"wmem addr", []uint16{op(W16_WMEM), bad, 1}},
		{"wmem src", []uint16{op(W16_WMEM), 100, bad}},
		{"call", []uint16{op(W16_CALL), bad}},
		{"out", []uint16{op(W16_OUT), bad}},
		{"in dst", []uint16{op(W16_IN), bad}},
		{"max word", []uint16{op(W16_SET), reg(0), 0xFFFF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newW16TestRig()
			r.term.EnqueueLine("x")
			r.load(t, tt.prog...)
			r.cpu.regs.Set(0, 42)
			fault := r.runFault(t, ErrOperandOutOfRange)
			if fault.PC != 0 || r.cpu.PC != 0 {
				t.Fatalf("fault PC = %d, cpu PC = %d, want 0", fault.PC, r.cpu.PC)
			}
			if r.reg(0) != 42 {
				t.Fatalf("R0 = %d, want 42 (unchanged)", r.reg(0))
			}
			if fault.Kind() != ErrOperandOutOfRange {
				t.Fatalf("Kind() = %v", fault.Kind())
			}
		})
	}
}

func TestW16_InvalidRegisterIndex(t *testing.T) {
	tests := []struct {
		name string
		prog []uint16
	}{
		{"set", []uint16{op(W16_SET), 5, 1}},
		{"pop", []uint16{op(W16_PUSH), 1, op(W16_POP), 0}},
		{"add", []uint16{op(W16_ADD), 7, 1, 2}},
		{"not", []uint16{op(W16_NOT), W16_MAX_LITERAL, 1}},
		{"rmem", []uint16{op(W16_RMEM), 3, 0}},
		{"in", []uint16{op(W16_IN), 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newW16TestRig()
			r.term.EnqueueLine("x")
			r.load(t, tt.prog...)
			r.runFault(t, ErrInvalidRegisterIndex)
		})
	}
}

func TestW16_InvalidOpcode(t *testing.T) {
	for _, word := range []uint16{uint16(W16_OPCODE_COUNT), 1000, 0xFFFF} {
		r := newW16TestRig()
		r.load(t, op(W16_NOOP), word)
		fault := r.runFault(t, ErrInvalidOpcode)
		if fault.PC != 1 || r.cpu.PC != 1 {
			t.Fatalf("opcode %d: fault PC = %d, cpu PC = %d, want 1", word, fault.PC, r.cpu.PC)
		}
		if !strings.Contains(fault.Error(), "PC=0001") {
			t.Fatalf("fault message %q lacks PC", fault.Error())
		}
	}
}

// ------------------------------------------------------------------------------
// Arithmetic and logic
// ------------------------------------------------------------------------------

var w16EdgeValues = []uint16{0, 1, 2, 3, 255, 256, 16383, 16384, 32766, 32767}

// forPairs runs fn for every pair of edge values and a batch of random ones.
func forPairs(fn func(b, c uint16)) {
	for _, b := range w16EdgeValues {
		for _, c := range w16EdgeValues {
			fn(b, c)
		}
	}
	rng := rand.New(rand.NewPCG(1, 2))
	for range 2000 {
		fn(uint16(rng.IntN(W16_MODULUS)), uint16(rng.IntN(W16_MODULUS)))
	}
}

// stepBinary loads "opcode R0, R1, R2" and returns a func that evaluates it.
func stepBinary(t *testing.T, opcode W16Opcode) (*w16TestRig, func(b, c uint16) uint16) {
	r := newW16TestRig()
	r.load(t, op(opcode), reg(0), reg(1), reg(2), op(W16_HALT))
	return r, func(b, c uint16) uint16 {
		t.Helper()
		r.cpu.PC = 0
		r.cpu.regs.Set(1, b)
		r.cpu.regs.Set(2, c)
		if res, err := r.cpu.StepOne(); res != StepContinue || err != nil {
			t.Fatalf("%v %d, %d: got %v, %v", opcode, b, c, res, err)
		}
		return r.reg(0)
	}
}

func TestW16_ADD_ClosedUnderModulus(t *testing.T) {
	_, eval := stepBinary(t, W16_ADD)
	forPairs(func(b, c uint16) {
		want := uint16((uint32(b) + uint32(c)) % W16_MODULUS)
		if got := eval(b, c); got != want {
			t.Fatalf("add %d, %d = %d, want %d", b, c, got, want)
		}
	})
}

func TestW16_MULT_ClosedUnderModulus(t *testing.T) {
	_, eval := stepBinary(t, W16_MULT)
	forPairs(func(b, c uint16) {
		want := uint16((uint32(b) * uint32(c)) % W16_MODULUS)
		if got := eval(b, c); got != want {
			t.Fatalf("mult %d, %d = %d, want %d", b, c, got, want)
		}
	})
}

func TestW16_ADD_Wraps(t *testing.T) {
	r := newW16TestRig()
	r.executeOne(t, op(W16_ADD), reg(0), 32758, 15)
	if r.reg(0) != 5 {
		t.Fatalf("R0 = %d, want 5", r.reg(0))
	}
}

func TestW16_MOD(t *testing.T) {
	_, eval := stepBinary(t, W16_MOD)
	forPairs(func(b, c uint16) {
		if c == 0 {
			return
		}
		if got := eval(b, c); got != b%c {
			t.Fatalf("mod %d, %d = %d, want %d", b, c, got, b%c)
		}
	})
}

func TestW16_MOD_ByZero(t *testing.T) {
	r := newW16TestRig()
	r.load(t, op(W16_MOD), reg(0), 10, 0, op(W16_HALT))
	r.cpu.regs.Set(0, 99)
	r.runFault(t, ErrArithmetic)
	if r.reg(0) != 99 {
		t.Fatalf("R0 = %d, want 99 (unchanged)", r.reg(0))
	}
}

func TestW16_AND_OR(t *testing.T) {
	_, and := stepBinary(t, W16_AND)
	_, or := stepBinary(t, W16_OR)
	forPairs(func(b, c uint16) {
		if got := and(b, c); got != b&c {
			t.Fatalf("and %d, %d = %d, want %d", b, c, got, b&c)
		}
		if got := or(b, c); got != b|c {
			t.Fatalf("or %d, %d = %d, want %d", b, c, got, b|c)
		}
	})
}

func TestW16_EQ_GT_Boolean(t *testing.T) {
	_, eq := stepBinary(t, W16_EQ)
	_, gt := stepBinary(t, W16_GT)
	forPairs(func(b, c uint16) {
		e, g := eq(b, c), gt(b, c)
		if e > 1 || g > 1 {
			t.Fatalf("eq/gt %d, %d wrote %d/%d, want 0 or 1", b, c, e, g)
		}
		if (e == 1) != (b == c) {
			t.Fatalf("eq %d, %d = %d", b, c, e)
		}
		if (g == 1) != (b > c) {
			t.Fatalf("gt %d, %d = %d", b, c, g)
		}
	})
	if eq(7, 7) != 1 {
		t.Fatal("eq 7, 7 != 1")
	}
}

func TestW16_NOT_FifteenBitComplement(t *testing.T) {
	r := newW16TestRig()
	r.load(t, op(W16_NOT), reg(0), reg(1), op(W16_HALT))
	for v := 0; v <= W16_MAX_LITERAL; v += 97 {
		r.cpu.PC = 0
		r.cpu.regs.Set(0, uint16(v*3%W16_MODULUS))
		r.cpu.regs.Set(1, uint16(v))
		if _, err := r.cpu.StepOne(); err != nil {
			t.Fatalf("not %d: %v", v, err)
		}
		if want := uint16(W16_MAX_LITERAL - v); r.reg(0) != want {
			t.Fatalf("not %d = %d, want %d", v, r.reg(0), want)
		}
	}

	r.executeOne(t, op(W16_NOT), reg(2), 0)
	if r.reg(2) != W16_MAX_LITERAL {
		t.Fatalf("not 0 = %d, want 32767", r.reg(2))
	}
}

// ------------------------------------------------------------------------------
// Stack
// ------------------------------------------------------------------------------

func TestW16_PushPop_RoundTrip(t *testing.T) {
	r := newW16TestRig()
	r.load(t,
		op(W16_PUSH), 7,
		op(W16_PUSH), reg(1),
		op(W16_POP), reg(1),
		op(W16_HALT),
	)
	r.cpu.regs.Set(1, 1234)

	for range 2 {
		if _, err := r.cpu.StepOne(); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	if r.cpu.StackDepth() != 2 {
		t.Fatalf("depth after pushes = %d, want 2", r.cpu.StackDepth())
	}
	r.cpu.regs.Set(1, 1)
	r.run(t)

	if r.reg(1) != 1234 {
		t.Fatalf("R1 = %d, want 1234", r.reg(1))
	}
	if r.cpu.StackDepth() != 1 {
		t.Fatalf("depth = %d, want 1", r.cpu.StackDepth())
	}
}

func TestW16_POP_EmptyStack(t *testing.T) {
	r := newW16TestRig()
	r.load(t, op(W16_SET), reg(0), 3, op(W16_POP), reg(0), op(W16_HALT))
	fault := r.runFault(t, ErrStackUnderflow)
	if fault.PC != 3 || r.cpu.PC != 3 {
		t.Fatalf("PC = %d, want 3", r.cpu.PC)
	}
	if r.reg(0) != 3 {
		t.Fatalf("R0 = %d, want 3 (unchanged)", r.reg(0))
	}
}

func TestW16_RET_EmptyStack(t *testing.T) {
	r := newW16TestRig()
	r.load(t, op(W16_RET))
	r.runFault(t, ErrStackUnderflow)
	if r.cpu.PC != 0 || r.cpu.StackDepth() != 0 {
		t.Fatalf("PC = %d, depth = %d after failed ret", r.cpu.PC, r.cpu.StackDepth())
	}
}

// ------------------------------------------------------------------------------
// Control flow
// ------------------------------------------------------------------------------

func TestW16_CallRet(t *testing.T) {
	r := newW16TestRig()
	r.load(t,
		op(W16_CALL), 5, // 0
		op(W16_OUT), 'A', // 2
		op(W16_HALT),     // 4
		op(W16_OUT), 'B', // 5
		op(W16_RET),      // 7
	)

	if _, err := r.cpu.StepOne(); err != nil {
		t.Fatalf("call: %v", err)
	}
	if r.cpu.PC != 5 {
		t.Fatalf("PC after call = %d, want 5", r.cpu.PC)
	}
	if top, ok := r.cpu.stack.Peek(0); !ok || top != 2 {
		t.Fatalf("return address = %d (%v), want 2", top, ok)
	}

	r.run(t)
	if out := r.term.DrainOutput(); out != "BA" {
		t.Fatalf("output = %q, want %q", out, "BA")
	}
	if r.cpu.PC != 4 || r.cpu.StackDepth() != 0 {
		t.Fatalf("PC = %d, depth = %d, want 4 and 0", r.cpu.PC, r.cpu.StackDepth())
	}
}

func TestW16_CALL_ThroughRegister(t *testing.T) {
	r := newW16TestRig()
	r.load(t, op(W16_SET), reg(3), 6, op(W16_CALL), reg(3), op(W16_HALT), op(W16_RET))
	r.run(t)
	if r.cpu.PC != 5 {
		t.Fatalf("PC = %d, want 5", r.cpu.PC)
	}
}

func TestW16_CALL_ReturnAddressOutsideMemory(t *testing.T) {
	prog := make([]uint16, W16_ADDRESS_SPACE)
	prog[0], prog[1] = op(W16_JMP), W16_ADDRESS_SPACE-2
	prog[W16_ADDRESS_SPACE-2], prog[W16_ADDRESS_SPACE-1] = op(W16_CALL), 0

	r := newW16TestRig()
	r.load(t, prog...)
	fault := r.runFault(t, ErrAddressing)
	if fault.PC != W16_ADDRESS_SPACE-2 {
		t.Fatalf("fault PC = %04X", fault.PC)
	}
	if r.cpu.StackDepth() != 0 {
		t.Fatalf("depth = %d, want 0", r.cpu.StackDepth())
	}
}

func TestW16_DecodePastEndOfMemory(t *testing.T) {
	prog := make([]uint16, W16_ADDRESS_SPACE)
	prog[0], prog[1] = op(W16_JMP), W16_ADDR_MASK
	prog[W16_ADDR_MASK] = op(W16_SET)

	r := newW16TestRig()
	r.load(t, prog...)
	r.runFault(t, ErrAddressing)
	if r.cpu.PC != W16_ADDR_MASK {
		t.Fatalf("PC = %04X, want %04X", r.cpu.PC, W16_ADDR_MASK)
	}
}

func TestW16_Jumps(t *testing.T) {
	tests := []struct {
		name   string
		prog   []uint16
		wantPC uint32
	}{
		{"jmp literal", []uint16{op(W16_JMP), 9}, 9},
		{"jmp register", []uint16{op(W16_JMP), reg(4)}, 12},
		{"jt taken", []uint16{op(W16_JT), 1, 20}, 20},
		{"jt register taken", []uint16{op(W16_JT), reg(4), 21}, 21},
		{"jt not taken", []uint16{op(W16_JT), 0, 20}, 3},
		{"jf taken", []uint16{op(W16_JF), 0, 30}, 30},
		{"jf not taken", []uint16{op(W16_JF), 5, 30}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newW16TestRig()
			r.load(t, tt.prog...)
			r.cpu.regs.Set(4, 12)
			if _, err := r.cpu.StepOne(); err != nil {
				t.Fatalf("StepOne: %v", err)
			}
			if r.cpu.PC != tt.wantPC {
				t.Fatalf("PC = %d, want %d", r.cpu.PC, tt.wantPC)
			}
		})
	}
}

func TestW16_NOOP(t *testing.T) {
	r := newW16TestRig()
	r.load(t, op(W16_NOOP), op(W16_NOOP), op(W16_HALT))
	r.run(t)
	if r.cpu.PC != 2 || r.cpu.InstructionCount != 3 {
		t.Fatalf("PC = %d, count = %d", r.cpu.PC, r.cpu.InstructionCount)
	}
}

// ------------------------------------------------------------------------------
// Memory
// ------------------------------------------------------------------------------

func TestW16_WMEM_RMEM(t *testing.T) {
	r := newW16TestRig()
	r.load(t,
		op(W16_SET), reg(1), 500,
		op(W16_WMEM), reg(1), 4321,
		op(W16_RMEM), reg(2), 500,
		op(W16_HALT),
	)
	r.run(t)
	if r.reg(2) != 4321 {
		t.Fatalf("R2 = %d, want 4321", r.reg(2))
	}
	if w, _ := r.cpu.mem.Read(500); w != 4321 {
		t.Fatalf("mem[500] = %d", w)
	}
}

func TestW16_WMEM_SelfModifying(t *testing.T) {
	r := newW16TestRig()
	// Patch the two noops at 6 into out 'Z'.
	r.load(t,
		op(W16_WMEM), 7, uint16('Z'), // 0
		op(W16_WMEM), 6, op(W16_OUT), // 3
		op(W16_NOOP), // 6
		op(W16_NOOP), // 7
		op(W16_HALT), // 8
	)
	r.run(t)
	if out := r.term.DrainOutput(); out != "Z" {
		t.Fatalf("output = %q, want Z", out)
	}
}

func TestW16_RMEM_ReadsOwnCode(t *testing.T) {
	r := newW16TestRig()
	// Word 1 is the register operand 0x8000; word 4 holds 0x8001.
	r.load(t, op(W16_RMEM), reg(0), 1, op(W16_RMEM), reg(1), 7, op(W16_HALT), 0x8001)
	r.run(t)
	if r.reg(0) != 0 {
		t.Fatalf("R0 = %d, want 0 (0x8000 masked)", r.reg(0))
	}
	if r.reg(1) != 1 {
		t.Fatalf("R1 = %d, want 1 (0x8001 masked)", r.reg(1))
	}
}

// ------------------------------------------------------------------------------
// Terminal
// ------------------------------------------------------------------------------

func TestW16_IN_StoresInOperandRegister(t *testing.T) {
	r := newW16TestRig()
	r.term.EnqueueLine("ab")
	r.load(t, op(W16_IN), reg(3), op(W16_IN), reg(4), op(W16_IN), reg(5), op(W16_HALT))
	r.run(t)

	if r.reg(3) != 'a' || r.reg(4) != 'b' || r.reg(5) != '\n' {
		t.Fatalf("R3..R5 = %d %d %d, want 'a' 'b' '\\n'", r.reg(3), r.reg(4), r.reg(5))
	}
	for _, i := range []int{0, 1, 2, 6, 7} {
		if r.reg(i) != 0 {
			t.Fatalf("%s = %d, want 0", w16RegNames[i], r.reg(i))
		}
	}
}

func TestW16_IN_ReadsNextLineWhenConsumed(t *testing.T) {
	r := newW16TestRig()
	r.term.EnqueueLine("x")
	r.term.EnqueueLine("y")
	r.load(t, op(W16_IN), reg(0), op(W16_IN), reg(0), op(W16_IN), reg(0), op(W16_HALT))
	r.run(t)
	if r.reg(0) != 'y' {
		t.Fatalf("R0 = %q, want 'y'", rune(r.reg(0)))
	}
}

func TestW16_IN_InputClosed(t *testing.T) {
	r := newW16TestRig()
	r.load(t, op(W16_IN), reg(0), op(W16_HALT))
	r.runFault(t, ErrInputClosed)
}

func TestW16_OUT_NoTerminal(t *testing.T) {
	cpu := NewCPUW16(nil)
	if err := cpu.LoadWords([]uint16{op(W16_OUT), 'a'}); err != nil {
		t.Fatal(err)
	}
	if _, err := cpu.Run(); !errors.Is(err, ErrOutput) {
		t.Fatalf("out without terminal: %v, want ErrOutput", err)
	}
}

func TestW16_OUT_WideCharacter(t *testing.T) {
	r := newW16TestRig()
	r.executeOne(t, op(W16_OUT), 321)
	if out := r.term.DrainOutput(); out != "Ł" {
		t.Fatalf("output = %q, want Ł", out)
	}
}

// ------------------------------------------------------------------------------
// Properties
// ------------------------------------------------------------------------------

// randomProgram builds a program of valid instructions with in-range
// operands. Jumps and calls land inside the program.
func randomProgram(rng *rand.Rand, n int) []uint16 {
	var prog []uint16
	for len(prog) < n {
		o := W16Opcode(rng.IntN(int(W16_OPCODE_COUNT)))
		if o == W16_HALT {
			continue
		}
		info := &w16OpcodeTable[o]
		prog = append(prog, op(o))
		for i := range info.operands {
			switch {
			case info.roles[i] == roleDst:
				prog = append(prog, reg(rng.IntN(W16_NUM_REGS)))
			case rng.IntN(2) == 0:
				prog = append(prog, reg(rng.IntN(W16_NUM_REGS)))
			case o == W16_JMP || o == W16_CALL || (i == 1 && (o == W16_JT || o == W16_JF)):
				prog = append(prog, uint16(rng.IntN(n)))
			default:
				prog = append(prog, uint16(rng.IntN(W16_MODULUS)))
			}
		}
	}
	return append(prog, op(W16_HALT))
}

func TestW16_RegistersStayFifteenBit(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for range 200 {
		r := newW16TestRig()
		for range 4 {
			r.term.EnqueueLine("\xff\x7f~ok")
		}
		r.load(t, randomProgram(rng, 64)...)
		for range 500 {
			res, err := r.cpu.StepOne()
			if err != nil || res != StepContinue {
				break
			}
			for i, v := range r.cpu.Registers() {
				if v > W16_MAX_LITERAL {
					t.Fatalf("%s = %d after %v", w16RegNames[i], v, r.cpu.InstructionCount)
				}
			}
		}
	}
}

// ------------------------------------------------------------------------------
// Run control and observers
// ------------------------------------------------------------------------------

func TestW16_Fault_PreservesState(t *testing.T) {
	rec := &recordingTracer{}
	r := newW16TestRig(WithTracer(rec))
	r.load(t, op(W16_PUSH), 9, op(W16_MOD), reg(0), 1, 0)
	fault := r.runFault(t, ErrArithmetic)

	if fault.PC != 2 || fault.Instr.Op != W16_MOD || fault.Instr.N != 3 {
		t.Fatalf("fault = %+v", fault)
	}
	if r.cpu.InstructionCount != 1 || len(rec.steps) != 1 {
		t.Fatalf("count = %d, steps = %d, want 1", r.cpu.InstructionCount, len(rec.steps))
	}
	if len(rec.faults) != 1 || !errors.Is(rec.faults[0], ErrArithmetic) {
		t.Fatalf("faults observed: %v", rec.faults)
	}
	if r.cpu.StackDepth() != 1 {
		t.Fatalf("depth = %d, want 1", r.cpu.StackDepth())
	}
	if !strings.Contains(fault.Error(), "mod R0, 1, 0") {
		t.Fatalf("fault message %q lacks instruction", fault.Error())
	}
}

func TestW16_TracerSeesEveryStep(t *testing.T) {
	rec := &recordingTracer{}
	r := newW16TestRig(WithTracer(rec))
	r.load(t, op(W16_SET), reg(0), 1, op(W16_ADD), reg(0), reg(0), 2, op(W16_HALT))
	r.run(t)

	if len(rec.steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(rec.steps))
	}
	add := rec.steps[1]
	if add.Seq != 2 || add.Instr.Addr != 3 || add.NextPC != 7 || add.Regs.Get(0) != 3 {
		t.Fatalf("add step = %+v", add)
	}
	if got := add.Instr.String(); got != "add R0, R0, 2" {
		t.Fatalf("instr = %q", got)
	}
}

func TestW16_StopBeforeRun(t *testing.T) {
	r := newW16TestRig()
	r.load(t, op(W16_NOOP), op(W16_HALT))
	r.cpu.Stop()
	res, err := r.cpu.Run()
	if res != RunStopped || err != nil {
		t.Fatalf("Run = %v, %v, want stopped", res, err)
	}
	if r.cpu.PC != 0 {
		t.Fatalf("PC = %d, want 0", r.cpu.PC)
	}
	r.run(t)
}

func TestW16_StopFromWatchdog(t *testing.T) {
	r := newW16TestRig()
	r.load(t, op(W16_JMP), 0)
	timer := time.AfterFunc(20*time.Millisecond, r.cpu.Stop)
	defer timer.Stop()

	res, err := r.cpu.Run()
	if res != RunStopped || err != nil {
		t.Fatalf("Run = %v, %v, want stopped", res, err)
	}
	if r.cpu.PC != 0 {
		t.Fatalf("PC = %d, want 0", r.cpu.PC)
	}
	if r.cpu.IsRunning() {
		t.Fatal("still running after Run returned")
	}
}

func TestW16_OpcodeTable(t *testing.T) {
	for o := W16Opcode(0); o < W16_OPCODE_COUNT; o++ {
		info := w16OpcodeTable[o]
		if info.name == "" {
			t.Fatalf("opcode %d has no entry", o)
		}
		if info.operands > W16_MAX_OPERANDS {
			t.Fatalf("%s: %d operands", info.name, info.operands)
		}
	}
	if W16_NOOP.String() != "noop" || W16Opcode(99).String() != "op(99)" {
		t.Fatalf("names: %q %q", W16_NOOP.String(), W16Opcode(99).String())
	}
}
