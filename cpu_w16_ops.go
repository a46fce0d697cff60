// cpu_w16_ops.go - W16 instruction set

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
	"strings"
)

type W16Opcode uint16

const (
	W16_HALT W16Opcode = iota // halt
	W16_SET                   // set a b
	W16_PUSH                  // push a
	W16_POP                   // pop a
	W16_EQ                    // eq a b c
	W16_GT                    // gt a b c
	W16_JMP                   // jmp a
	W16_JT                    // jt a b
	W16_JF                    // jf a b
	W16_ADD                   // add a b c
	W16_MULT                  // mult a b c
	W16_MOD                   // mod a b c
	W16_AND                   // and a b c
	W16_OR                    // or a b c
	W16_NOT                   // not a b
	W16_RMEM                  // rmem a b
	W16_WMEM                  // wmem a b
	W16_CALL                  // call a
	W16_RET                   // ret
	W16_OUT                   // out a
	W16_IN                    // in a
	W16_NOOP                  // noop

	W16_OPCODE_COUNT
)

const W16_MAX_OPERANDS = 3

type operandRole uint8

const (
	roleSrc operandRole = iota // read-resolved
	roleDst                    // must name a register
)

type w16OpcodeInfo struct {
	name     string
	operands int
	roles    [W16_MAX_OPERANDS]operandRole
}

var w16OpcodeTable = [W16_OPCODE_COUNT]w16OpcodeInfo{
	W16_HALT: {"halt", 0, [3]operandRole{}},
	W16_SET:  {"set", 2, [3]operandRole{roleDst, roleSrc}},
	W16_PUSH: {"push", 1, [3]operandRole{roleSrc}},
	W16_POP:  {"pop", 1, [3]operandRole{roleDst}},
	W16_EQ:   {"eq", 3, [3]operandRole{roleDst, roleSrc, roleSrc}},
	W16_GT:   {"gt", 3, [3]operandRole{roleDst, roleSrc, roleSrc}},
	W16_JMP:  {"jmp", 1, [3]operandRole{roleSrc}},
	W16_JT:   {"jt", 2, [3]operandRole{roleSrc, roleSrc}},
	W16_JF:   {"jf", 2, [3]operandRole{roleSrc, roleSrc}},
	W16_ADD:  {"add", 3, [3]operandRole{roleDst, roleSrc, roleSrc}},
	W16_MULT: {"mult", 3, [3]operandRole{roleDst, roleSrc, roleSrc}},
	W16_MOD:  {"mod", 3, [3]operandRole{roleDst, roleSrc, roleSrc}},
	W16_AND:  {"and", 3, [3]operandRole{roleDst, roleSrc, roleSrc}},
	W16_OR:   {"or", 3, [3]operandRole{roleDst, roleSrc, roleSrc}},
	W16_NOT:  {"not", 2, [3]operandRole{roleDst, roleSrc}},
	W16_RMEM: {"rmem", 2, [3]operandRole{roleDst, roleSrc}},
	W16_WMEM: {"wmem", 2, [3]operandRole{roleSrc, roleSrc}},
	W16_CALL: {"call", 1, [3]operandRole{roleSrc}},
	W16_RET:  {"ret", 0, [3]operandRole{}},
	W16_OUT:  {"out", 1, [3]operandRole{roleSrc}},
	W16_IN:   {"in", 1, [3]operandRole{roleDst}},
	W16_NOOP: {"noop", 0, [3]operandRole{}},
}

func (op W16Opcode) String() string {
	if op < W16_OPCODE_COUNT {
		return w16OpcodeTable[op].name
	}
	return fmt.Sprintf("op(%d)", uint16(op))
}

// Instruction is one decoded instruction: opcode plus its raw operand words.
type Instruction struct {
	Addr     uint32
	Op       W16Opcode
	Operands [W16_MAX_OPERANDS]uint16
	N        int // operand words fetched
}

// Size is the instruction length in words.
func (in *Instruction) Size() uint32 {
	return 1 + uint32(in.N)
}

func (in *Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Op.String())
	for i := 0; i < in.N; i++ {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(formatOperand(in.Operands[i]))
	}
	return sb.String()
}

// execute runs a decoded instruction and returns the PC to commit.
// Nothing in the machine changes when an error is returned.
func (cpu *CPUW16) execute(in *Instruction) (next uint32, halted bool, err error) {
	next = in.Addr + in.Size()

	switch in.Op {
	case W16_HALT:
		// PC stays on the halt so a second Run halts again.
		return in.Addr, true, nil
	case W16_SET:
		err = cpu.opSet(in)
	case W16_PUSH:
		err = cpu.opPush(in)
	case W16_POP:
		err = cpu.opPop(in)
	case W16_EQ:
		err = cpu.opCompute(in, func(b, c uint16) (uint16, error) { return btou16(b == c), nil })
	case W16_GT:
		err = cpu.opCompute(in, func(b, c uint16) (uint16, error) { return btou16(b > c), nil })
	case W16_JMP:
		next, err = cpu.opJump(in, next)
	case W16_JT:
		next, err = cpu.opJumpIf(in, next, true)
	case W16_JF:
		next, err = cpu.opJumpIf(in, next, false)
	case W16_ADD:
		err = cpu.opCompute(in, func(b, c uint16) (uint16, error) {
			return uint16((uint32(b) + uint32(c)) % W16_MODULUS), nil
		})
	case W16_MULT:
		err = cpu.opCompute(in, func(b, c uint16) (uint16, error) {
			return uint16((uint32(b) * uint32(c)) % W16_MODULUS), nil
		})
	case W16_MOD:
		err = cpu.opCompute(in, func(b, c uint16) (uint16, error) {
			if c == 0 {
				return 0, fmt.Errorf("%w: mod %d by zero", ErrArithmetic, b)
			}
			return b % c, nil
		})
	case W16_AND:
		err = cpu.opCompute(in, func(b, c uint16) (uint16, error) { return b & c, nil })
	case W16_OR:
		err = cpu.opCompute(in, func(b, c uint16) (uint16, error) { return b | c, nil })
	case W16_NOT:
		err = cpu.opNot(in)
	case W16_RMEM:
		err = cpu.opRmem(in)
	case W16_WMEM:
		err = cpu.opWmem(in)
	case W16_CALL:
		next, err = cpu.opCall(in, next)
	case W16_RET:
		next, err = cpu.opRet()
	case W16_OUT:
		err = cpu.opOut(in)
	case W16_IN:
		err = cpu.opIn(in)
	case W16_NOOP:
	default:
		err = fmt.Errorf("%w: %d", ErrInvalidOpcode, uint16(in.Op))
	}
	return next, false, err
}

func btou16(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

// set a b: a <- value(b)
func (cpu *CPUW16) opSet(in *Instruction) error {
	dst, err := resolveDestination(in.Operands[0])
	if err != nil {
		return err
	}
	v, err := cpu.resolveValue(in.Operands[1])
	if err != nil {
		return err
	}
	cpu.regs.Set(dst, v)
	return nil
}

func (cpu *CPUW16) opPush(in *Instruction) error {
	v, err := cpu.resolveValue(in.Operands[0])
	if err != nil {
		return err
	}
	cpu.stack.Push(v)
	return nil
}

func (cpu *CPUW16) opPop(in *Instruction) error {
	dst, err := resolveDestination(in.Operands[0])
	if err != nil {
		return err
	}
	v, err := cpu.stack.Pop()
	if err != nil {
		return err
	}
	cpu.regs.Set(dst, v)
	return nil
}

// opCompute covers the three-operand forms: a <- fn(value(b), value(c)).
func (cpu *CPUW16) opCompute(in *Instruction, fn func(b, c uint16) (uint16, error)) error {
	dst, err := resolveDestination(in.Operands[0])
	if err != nil {
		return err
	}
	vals, err := cpu.operandValues(in, 1, 2)
	if err != nil {
		return err
	}
	result, err := fn(vals[0], vals[1])
	if err != nil {
		return err
	}
	cpu.regs.Set(dst, result)
	return nil
}

// not a b: 15-bit complement
func (cpu *CPUW16) opNot(in *Instruction) error {
	dst, err := resolveDestination(in.Operands[0])
	if err != nil {
		return err
	}
	v, err := cpu.resolveValue(in.Operands[1])
	if err != nil {
		return err
	}
	cpu.regs.Set(dst, W16_MAX_LITERAL-v)
	return nil
}

func (cpu *CPUW16) opJump(in *Instruction, next uint32) (uint32, error) {
	addr, err := cpu.resolveValue(in.Operands[0])
	if err != nil {
		return next, err
	}
	return uint32(addr), nil
}

// jt/jf a b: jump to b when (a != 0) == whenNonZero
func (cpu *CPUW16) opJumpIf(in *Instruction, next uint32, whenNonZero bool) (uint32, error) {
	vals, err := cpu.operandValues(in, 0, 2)
	if err != nil {
		return next, err
	}
	if (vals[0] != 0) == whenNonZero {
		return uint32(vals[1]), nil
	}
	return next, nil
}

// rmem a b: a <- mem[value(b)], low 15 bits. Registers never hold more.
func (cpu *CPUW16) opRmem(in *Instruction) error {
	dst, err := resolveDestination(in.Operands[0])
	if err != nil {
		return err
	}
	addr, err := cpu.resolveValue(in.Operands[1])
	if err != nil {
		return err
	}
	word, err := cpu.mem.Read(uint32(addr))
	if err != nil {
		return err
	}
	cpu.regs.Set(dst, word&W16_MAX_LITERAL)
	return nil
}

// wmem a b: mem[value(a)] <- value(b)
func (cpu *CPUW16) opWmem(in *Instruction) error {
	vals, err := cpu.operandValues(in, 0, 2)
	if err != nil {
		return err
	}
	return cpu.mem.Write(uint32(vals[0]), vals[1])
}

// call a: push the address after this instruction, jump to value(a).
func (cpu *CPUW16) opCall(in *Instruction, next uint32) (uint32, error) {
	addr, err := cpu.resolveValue(in.Operands[0])
	if err != nil {
		return next, err
	}
	if next > W16_ADDR_MASK {
		return next, fmt.Errorf("%w: return address 0x%X outside memory", ErrAddressing, next)
	}
	cpu.stack.Push(uint16(next))
	return uint32(addr), nil
}

// ret: the empty check happens inside Pop, before anything is removed.
func (cpu *CPUW16) opRet() (uint32, error) {
	addr, err := cpu.stack.Pop()
	if err != nil {
		return 0, err
	}
	return uint32(addr), nil
}

func (cpu *CPUW16) opOut(in *Instruction) error {
	v, err := cpu.resolveValue(in.Operands[0])
	if err != nil {
		return err
	}
	return cpu.writeOutputChar(rune(v))
}

// in a: store the next input code in register a.
func (cpu *CPUW16) opIn(in *Instruction) error {
	dst, err := resolveDestination(in.Operands[0])
	if err != nil {
		return err
	}
	ch, err := cpu.readInputChar()
	if err != nil {
		return err
	}
	cpu.regs.Set(dst, uint16(ch))
	return nil
}
