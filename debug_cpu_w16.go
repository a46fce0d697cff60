// debug_cpu_w16.go - W16 debug adapter

package main

import (
	"slices"
	"strings"
	"sync"
)

type DebugW16 struct {
	cpu         *CPUW16
	bpMu        sync.Mutex
	breakpoints map[uint64]*ConditionalBreakpoint
	lastHit     *BreakpointEvent
}

// NewDebugW16 wraps cpu. Run starts checking breakpoints once the first
// one is set.
func NewDebugW16(cpu *CPUW16) *DebugW16 {
	return &DebugW16{
		cpu:         cpu,
		breakpoints: make(map[uint64]*ConditionalBreakpoint),
	}
}

func (d *DebugW16) CPUName() string { return "W16" }

func (d *DebugW16) GetRegisters() []RegisterInfo {
	regs := make([]RegisterInfo, 0, W16_NUM_REGS+2)
	for i, name := range w16RegNames {
		regs = append(regs, RegisterInfo{Name: name, BitWidth: 16, Value: uint64(d.cpu.regs.Get(i)), Group: "general"})
	}
	regs = append(regs, RegisterInfo{Name: "PC", BitWidth: 16, Value: uint64(d.cpu.PC), Group: "control"})
	regs = append(regs, RegisterInfo{Name: "SP", BitWidth: 16, Value: uint64(d.cpu.stack.Depth()), Group: "control"})
	return regs
}

// GetRegister knows R0..R7, PC and SP. SP is the stack depth.
func (d *DebugW16) GetRegister(name string) (uint64, bool) {
	switch upper := strings.ToUpper(name); upper {
	case "PC":
		return uint64(d.cpu.PC), true
	case "SP":
		return uint64(d.cpu.stack.Depth()), true
	default:
		idx, ok := registerIndexByName(upper)
		if !ok {
			return 0, false
		}
		return uint64(d.cpu.regs.Get(idx)), true
	}
}

// SetRegister refuses SP and any general register value above 32767.
func (d *DebugW16) SetRegister(name string, value uint64) bool {
	upper := strings.ToUpper(name)
	if upper == "PC" {
		d.SetPC(value)
		return true
	}
	idx, ok := registerIndexByName(upper)
	if !ok || value > W16_MAX_LITERAL {
		return false
	}
	d.cpu.regs.Set(idx, uint16(value))
	return true
}

func (d *DebugW16) GetPC() uint64 {
	return uint64(d.cpu.PC)
}

func (d *DebugW16) SetPC(addr uint64) {
	d.cpu.PC = uint32(addr & W16_ADDR_MASK)
	d.cpu.breakSkip = false
}

func (d *DebugW16) Freeze() {
	d.cpu.Stop()
}

func (d *DebugW16) SetBreakpoint(addr uint64) bool {
	return d.SetConditionalBreakpoint(addr, nil)
}

// SetConditionalBreakpoint adds or replaces the breakpoint at addr. The hit
// counter restarts from zero.
func (d *DebugW16) SetConditionalBreakpoint(addr uint64, cond *BreakpointCondition) bool {
	if addr >= W16_ADDRESS_SPACE {
		return false
	}
	d.bpMu.Lock()
	d.breakpoints[addr] = &ConditionalBreakpoint{Address: addr, Condition: cond}
	d.bpMu.Unlock()
	if d.cpu.breakCheck == nil {
		d.cpu.breakCheck = d.checkBreakpoint
	}
	return true
}

func (d *DebugW16) ListBreakpoints() []uint64 {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	result := make([]uint64, 0, len(d.breakpoints))
	for addr := range d.breakpoints {
		result = append(result, addr)
	}
	slices.Sort(result)
	return result
}

// LastHit reports the breakpoint that most recently stopped Run.
func (d *DebugW16) LastHit() (BreakpointEvent, bool) {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	if d.lastHit == nil {
		return BreakpointEvent{}, false
	}
	return *d.lastHit, true
}

func (d *DebugW16) ReadMemory(addr uint64, count int) []uint16 {
	if addr >= W16_ADDRESS_SPACE {
		return nil
	}
	return d.cpu.mem.Slice(uint32(addr), count)
}

// WriteMemory stores words starting at addr, dropping any past the end of
// the address space.
func (d *DebugW16) WriteMemory(addr uint64, words []uint16) {
	for i, w := range words {
		a := addr + uint64(i)
		if a >= W16_ADDRESS_SPACE {
			return
		}
		_ = d.cpu.mem.Write(uint32(a), w)
	}
}

// ReadStack returns up to depth stack values, top first.
func (d *DebugW16) ReadStack(depth int) []uint16 {
	var out []uint16
	for i := range depth {
		v, ok := d.cpu.stack.Peek(i)
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

// checkBreakpoint runs on the CPU goroutine before each instruction.
func (d *DebugW16) checkBreakpoint(pc uint32) bool {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	bp, ok := d.breakpoints[uint64(pc)]
	if !ok {
		return false
	}
	bp.HitCount++
	if !evaluateConditionWithHitCount(bp.Condition, d, bp.HitCount) {
		return false
	}
	d.lastHit = &BreakpointEvent{Address: bp.Address, HitCount: bp.HitCount}
	return true
}
