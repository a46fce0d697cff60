// operand_stack.go - Operand and return-address stack for the W16 CPU

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

package main

import (
	"fmt"
)

// OperandStack is the single W16 stack. push/pop use it for data, call/ret
// for return addresses. It has no fixed capacity.
type OperandStack struct {
	values []uint16
}

func (s *OperandStack) Push(value uint16) {
	s.values = append(s.values, value)
}

// Pop checks for an empty stack before removing anything.
func (s *OperandStack) Pop() (uint16, error) {
	n := len(s.values)
	if n == 0 {
		return 0, fmt.Errorf("%w: pop from empty stack", ErrStackUnderflow)
	}
	v := s.values[n-1]
	s.values = s.values[:n-1]
	return v, nil
}

func (s *OperandStack) Depth() int {
	return len(s.values)
}

// Peek returns the value depth entries below the top (0 is the top).
func (s *OperandStack) Peek(depth int) (uint16, bool) {
	idx := len(s.values) - 1 - depth
	if depth < 0 || idx < 0 {
		return 0, false
	}
	return s.values[idx], true
}

// Values copies the stack bottom-first.
func (s *OperandStack) Values() []uint16 {
	return append([]uint16(nil), s.values...)
}

func (s *OperandStack) Restore(values []uint16) {
	s.values = append(s.values[:0], values...)
}

func (s *OperandStack) Reset() {
	s.values = s.values[:0]
}
