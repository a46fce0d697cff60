// debug_backtrace.go - Stack trace for the W16 machine

package main

import (
	"fmt"
	"strings"
)

// BacktraceFrame is one stack entry. IsReturn is set when the value points
// just past a call instruction, which is the best a shared data/return
// stack allows.
type BacktraceFrame struct {
	Depth    int
	Value    uint16
	IsReturn bool
	CallSite uint16
}

// backtrace walks the W16 stack from the top and returns up to depth frames.
func backtrace(d *DebugW16, depth int) []BacktraceFrame {
	values := d.ReadStack(depth)
	frames := make([]BacktraceFrame, 0, len(values))
	for i, v := range values {
		f := BacktraceFrame{Depth: i, Value: v}
		if v >= 2 {
			site := uint64(v) - 2
			if op := d.ReadMemory(site, 1); len(op) == 1 && W16Opcode(op[0]) == W16_CALL {
				f.IsReturn = true
				f.CallSite = uint16(site)
			}
		}
		frames = append(frames, f)
	}
	return frames
}

// formatBacktrace renders frames one per line, return addresses annotated
// with their call site.
func formatBacktrace(frames []BacktraceFrame) string {
	if len(frames) == 0 {
		return "  (stack empty)\n"
	}
	var sb strings.Builder
	for _, f := range frames {
		if f.IsReturn {
			fmt.Fprintf(&sb, "  #%-3d %04X  return from call at %04X\n", f.Depth, f.Value, f.CallSite)
		} else {
			fmt.Fprintf(&sb, "  #%-3d %04X\n", f.Depth, f.Value)
		}
	}
	return sb.String()
}
