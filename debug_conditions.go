// debug_conditions.go - Breakpoint condition parser and evaluator

package main

import (
	"fmt"
	"strconv"
	"strings"
)

type ConditionSource int

const (
	CondSourceRegister ConditionSource = iota
	CondSourceMemory
	CondSourceHitCount
)

type ConditionOp int

const (
	CondOpEqual ConditionOp = iota
	CondOpNotEqual
	CondOpLess
	CondOpGreater
	CondOpLessEqual
	CondOpGreaterEqual
)

var condOpTokens = [...]string{
	CondOpEqual:        "==",
	CondOpNotEqual:     "!=",
	CondOpLess:         "<",
	CondOpGreater:      ">",
	CondOpLessEqual:    "<=",
	CondOpGreaterEqual: ">=",
}

// BreakpointCondition guards a breakpoint. A nil condition always fires.
type BreakpointCondition struct {
	Source  ConditionSource
	RegName string // CondSourceRegister: R0..R7, PC or SP
	MemAddr uint64 // CondSourceMemory: word address
	Op      ConditionOp
	Value   uint64
}

// ConditionalBreakpoint is one breakpoint with its hit counter.
type ConditionalBreakpoint struct {
	Address   uint64
	Condition *BreakpointCondition
	HitCount  uint64
}

// ParseAddress accepts $hex, 0xhex, #decimal, plain decimal and bare hex
// containing a-f.
func ParseAddress(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	var (
		v   uint64
		err error
	)
	switch {
	case strings.HasPrefix(s, "$"):
		v, err = strconv.ParseUint(s[1:], 16, 64)
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		v, err = strconv.ParseUint(s[2:], 16, 64)
	case strings.HasPrefix(s, "#"):
		v, err = strconv.ParseUint(s[1:], 10, 64)
	default:
		v, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			v, err = strconv.ParseUint(s, 16, 64)
		}
	}
	return v, err == nil
}

// ParseRegisterAssignment parses "NAME=VALUE", e.g. "R7=25734" or "PC=$0A".
// The name is not checked here; SetRegister refuses unknown ones.
func ParseRegisterAssignment(text string) (string, uint64, error) {
	name, value, ok := strings.Cut(text, "=")
	name = strings.ToUpper(strings.TrimSpace(name))
	if !ok || name == "" {
		return "", 0, fmt.Errorf("expected NAME=VALUE, got %q", text)
	}
	v, ok := ParseAddress(value)
	if !ok {
		return "", 0, fmt.Errorf("invalid value in %q", text)
	}
	return name, v, nil
}

// ParsePatch parses "ADDR=WORD[,WORD...]" into a start address and the
// words to store there. Words are full 16-bit values.
func ParsePatch(text string) (uint64, []uint16, error) {
	addrText, wordsText, ok := strings.Cut(text, "=")
	if !ok {
		return 0, nil, fmt.Errorf("expected ADDR=WORD[,WORD...], got %q", text)
	}
	addr, ok := ParseAddress(addrText)
	if !ok || addr >= W16_ADDRESS_SPACE {
		return 0, nil, fmt.Errorf("invalid address in %q", text)
	}
	var words []uint16
	for _, field := range strings.Split(wordsText, ",") {
		w, ok := ParseAddress(field)
		if !ok || w > 0xFFFF {
			return 0, nil, fmt.Errorf("invalid word %q in %q", strings.TrimSpace(field), text)
		}
		words = append(words, uint16(w))
	}
	if addr+uint64(len(words)) > W16_ADDRESS_SPACE {
		return 0, nil, fmt.Errorf("%q runs past the end of memory", text)
	}
	return addr, words, nil
}

// ParseCondition parses a condition string into a BreakpointCondition.
// Formats:
//
//	R1==$FF        - register R1, op ==, value 0xFF
//	[$1000]==$42   - word at 0x1000, op ==, value 0x42
//	hitcount>10    - hit count, op >, value 10
func ParseCondition(text string) (*BreakpointCondition, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty condition")
	}

	// Two-character operators first so "<=" is not read as "<".
	op := ConditionOp(-1)
	opIdx := -1
	for _, candidate := range []ConditionOp{CondOpEqual, CondOpNotEqual, CondOpLessEqual, CondOpGreaterEqual, CondOpLess, CondOpGreater} {
		if idx := strings.Index(text, condOpTokens[candidate]); idx >= 0 {
			op, opIdx = candidate, idx
			break
		}
	}
	if opIdx < 0 {
		return nil, fmt.Errorf("no operator found in %q (use ==, !=, <, >, <=, >=)", text)
	}

	lhs := strings.TrimSpace(text[:opIdx])
	rhs := strings.TrimSpace(text[opIdx+len(condOpTokens[op]):])

	value, ok := ParseAddress(rhs)
	if !ok {
		return nil, fmt.Errorf("invalid value: %q", rhs)
	}

	if strings.HasPrefix(lhs, "[") && strings.HasSuffix(lhs, "]") {
		addrStr := lhs[1 : len(lhs)-1]
		addr, ok := ParseAddress(addrStr)
		if !ok || addr >= W16_ADDRESS_SPACE {
			return nil, fmt.Errorf("invalid memory address: %q", addrStr)
		}
		return &BreakpointCondition{Source: CondSourceMemory, MemAddr: addr, Op: op, Value: value}, nil
	}

	if strings.EqualFold(lhs, "hitcount") {
		return &BreakpointCondition{Source: CondSourceHitCount, Op: op, Value: value}, nil
	}

	name := strings.ToUpper(lhs)
	if _, ok := registerIndexByName(name); !ok && name != "PC" && name != "SP" {
		return nil, fmt.Errorf("unknown register %q", lhs)
	}
	return &BreakpointCondition{Source: CondSourceRegister, RegName: name, Op: op, Value: value}, nil
}

// evaluateConditionWithHitCount checks cond against the CPU, using hitCount
// for hitcount conditions. An unreadable source never fires.
func evaluateConditionWithHitCount(cond *BreakpointCondition, cpu DebuggableCPU, hitCount uint64) bool {
	if cond == nil {
		return true
	}

	var actual uint64
	switch cond.Source {
	case CondSourceRegister:
		val, ok := cpu.GetRegister(cond.RegName)
		if !ok {
			return false
		}
		actual = val
	case CondSourceMemory:
		words := cpu.ReadMemory(cond.MemAddr, 1)
		if len(words) == 0 {
			return false
		}
		actual = uint64(words[0])
	case CondSourceHitCount:
		actual = hitCount
	}

	return compareValues(actual, cond.Op, cond.Value)
}

func compareValues(actual uint64, op ConditionOp, expected uint64) bool {
	switch op {
	case CondOpEqual:
		return actual == expected
	case CondOpNotEqual:
		return actual != expected
	case CondOpLess:
		return actual < expected
	case CondOpGreater:
		return actual > expected
	case CondOpLessEqual:
		return actual <= expected
	case CondOpGreaterEqual:
		return actual >= expected
	}
	return false
}

// FormatCondition renders cond so that ParseCondition reads it back.
func FormatCondition(cond *BreakpointCondition) string {
	if cond == nil {
		return ""
	}

	var lhs string
	switch cond.Source {
	case CondSourceRegister:
		lhs = cond.RegName
	case CondSourceMemory:
		lhs = fmt.Sprintf("[$%04X]", cond.MemAddr)
	case CondSourceHitCount:
		lhs = "hitcount"
	}

	return fmt.Sprintf("%s%s$%X", lhs, condOpTokens[cond.Op], cond.Value)
}
