// cpu_w16_errors.go - Fault kinds raised by the W16 CPU

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
	"errors"
	"fmt"
)

// Fault kinds. Every one of them ends the current run; match with errors.Is.
var (
	ErrInvalidOpcode        = errors.New("invalid opcode")
	ErrOperandOutOfRange    = errors.New("operand out of range")
	ErrInvalidRegisterIndex = errors.New("invalid register index")
	ErrStackUnderflow       = errors.New("stack underflow")
	ErrArithmetic           = errors.New("arithmetic error")
	ErrAddressing           = errors.New("addressing error")
	ErrInputClosed          = errors.New("input closed")
	ErrOutput               = errors.New("output error")
)

var w16FaultKinds = []error{
	ErrInvalidOpcode,
	ErrOperandOutOfRange,
	ErrInvalidRegisterIndex,
	ErrStackUnderflow,
	ErrArithmetic,
	ErrAddressing,
	ErrInputClosed,
	ErrOutput,
}

// CPUFault wraps a fault kind with the instruction that raised it.
// PC is the address of that instruction; the CPU's PC is left there.
type CPUFault struct {
	PC    uint32
	Instr Instruction
	Err   error
}

func (f *CPUFault) Error() string {
	if f.Instr.N == 0 && f.Instr.Op >= W16_OPCODE_COUNT {
		return fmt.Sprintf("w16: %v at PC=%04X", f.Err, f.PC)
	}
	return fmt.Sprintf("w16: %v at PC=%04X (%s)", f.Err, f.PC, f.Instr.String())
}

func (f *CPUFault) Unwrap() error {
	return f.Err
}

// Kind returns the fault kind sentinel, or nil if the cause is not one of them.
func (f *CPUFault) Kind() error {
	for _, kind := range w16FaultKinds {
		if errors.Is(f.Err, kind) {
			return kind
		}
	}
	return nil
}

func newCPUFault(instr *Instruction, err error) *CPUFault {
	return &CPUFault{PC: instr.Addr, Instr: *instr, Err: err}
}
