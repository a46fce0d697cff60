// registers.go - W16 operand encoding map and register bank

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
registers.go - W16 Operand Encoding Map

This file is the single reference for how a raw 16-bit word is interpreted
when it appears as an instruction operand. Opcode numbering lives in
cpu_w16_ops.go, address space constants in word_store.go.

OPERAND ENCODING
================

Encoded Range       Meaning                 Read operand        Write operand
---------------------------------------------------------------------------
0x0000-0x7FFF       Literal 0..32767        the literal         InvalidRegisterIndex
0x8000-0x8007       Register R0..R7         register contents   register index
0x8008-0xFFFF       Invalid                 OperandOutOfRange   OperandOutOfRange

REGISTER BANK
=============

  R0..R7   8 general purpose registers, 15 significant bits each
           Zeroed at construction and on every program load
           Written only by instructions that name a destination register
           rmem keeps the low 15 bits of the word it reads

ARITHMETIC
==========

  add, mult      result modulo 32768
  mod            divisor 0 is an ArithmeticError
  not            15-bit complement: 32767 - value
  and, or        operands are already 15-bit, results stay 15-bit
*/

package main

import (
	"fmt"
	"strings"
)

const (
	W16_MAX_LITERAL = 0x7FFF // Largest literal operand
	W16_MODULUS     = 0x8000 // Arithmetic modulus
	W16_REG_BASE    = 0x8000 // Encoded operand for R0
	W16_NUM_REGS    = 8
	W16_REG_LAST    = W16_REG_BASE + W16_NUM_REGS - 1 // Encoded operand for R7
)

var w16RegNames = [W16_NUM_REGS]string{"R0", "R1", "R2", "R3", "R4", "R5", "R6", "R7"}

// RegisterBank holds the eight general purpose registers.
type RegisterBank [W16_NUM_REGS]uint16

func (r *RegisterBank) Get(idx int) uint16 {
	return r[idx]
}

func (r *RegisterBank) Set(idx int, value uint16) {
	r[idx] = value
}

func (r *RegisterBank) Reset() {
	*r = RegisterBank{}
}

// String renders the bank as "R0=0000 R1=0000 ..." in hex.
func (r *RegisterBank) String() string {
	var sb strings.Builder
	for i, v := range r {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%04X", w16RegNames[i], v)
	}
	return sb.String()
}

// registerIndexByName maps "R3" or "r3" to 3.
func registerIndexByName(name string) (int, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range w16RegNames {
		if n == upper {
			return i, true
		}
	}
	return 0, false
}
