// cpu_w16_operands.go - Operand resolution for the W16 CPU

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

// resolveValue turns a read operand into the value it denotes: literals
// pass through, R0..R7 references yield the register's contents.
func (cpu *CPUW16) resolveValue(v uint16) (uint16, error) {
	switch {
	case v <= W16_MAX_LITERAL:
		return v, nil
	case v <= W16_REG_LAST:
		return cpu.regs.Get(int(v - W16_REG_BASE)), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrOperandOutOfRange, v)
}

// resolveDestination validates a write operand and returns the register index.
// Literals are not valid destinations; words above R7 are out of range in
// every operand position.
func resolveDestination(v uint16) (int, error) {
	switch {
	case v > W16_REG_LAST:
		return 0, fmt.Errorf("%w: %d", ErrOperandOutOfRange, v)
	case v < W16_REG_BASE:
		return 0, fmt.Errorf("%w: literal %d used as destination", ErrInvalidRegisterIndex, v)
	}
	return int(v - W16_REG_BASE), nil
}

// operandValues resolves instr.Operands[from:from+count] as read operands.
func (cpu *CPUW16) operandValues(instr *Instruction, from, count int) ([W16_MAX_OPERANDS]uint16, error) {
	var vals [W16_MAX_OPERANDS]uint16
	for i := 0; i < count; i++ {
		v, err := cpu.resolveValue(instr.Operands[from+i])
		if err != nil {
			return vals, err
		}
		vals[i] = v
	}
	return vals, nil
}

// formatOperand renders a raw operand for traces: "R3", "1234" or "?65000".
func formatOperand(v uint16) string {
	switch {
	case v <= W16_MAX_LITERAL:
		return fmt.Sprintf("%d", v)
	case v <= W16_REG_LAST:
		return w16RegNames[v-W16_REG_BASE]
	}
	return fmt.Sprintf("?%d", v)
}
