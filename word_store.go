// word_store.go - Word-addressed main memory for the W16 CPU

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
word_store.go - Word Store for the Word Engine

The W16 address space is 32768 words of 16 bits each. Programs are loaded
at address 0; everything above the program is zero until written.

Core Features:

    Fixed 32768-word backing array, allocated once per store.
    Bounds-checked reads and writes: any address at or above 32768 fails
    with ErrAddressing instead of wrapping.
    Extent tracking: the highest address loaded or written, plus one. This
    is the "used" part of memory that snapshots persist.

The store is owned by a single CPU and is not safe for concurrent use.
*/

package main

import (
	"fmt"
)

const (
	W16_ADDRESS_SPACE = 1 << 15 // Words
	W16_ADDR_MASK     = W16_ADDRESS_SPACE - 1
)

type WordStore struct {
	words  [W16_ADDRESS_SPACE]uint16
	extent uint32
}

func NewWordStore() *WordStore {
	return &WordStore{}
}

func (s *WordStore) Read(addr uint32) (uint16, error) {
	if addr >= W16_ADDRESS_SPACE {
		return 0, fmt.Errorf("%w: read at 0x%X", ErrAddressing, addr)
	}
	return s.words[addr], nil
}

func (s *WordStore) Write(addr uint32, value uint16) error {
	if addr >= W16_ADDRESS_SPACE {
		return fmt.Errorf("%w: write at 0x%X", ErrAddressing, addr)
	}
	s.words[addr] = value
	if addr >= s.extent {
		s.extent = addr + 1
	}
	return nil
}

// Load clears the store and copies words in starting at address 0.
func (s *WordStore) Load(words []uint16) error {
	if len(words) > W16_ADDRESS_SPACE {
		return fmt.Errorf("%w: program is %d words, address space is %d",
			ErrAddressing, len(words), W16_ADDRESS_SPACE)
	}
	s.Reset()
	copy(s.words[:], words)
	s.extent = uint32(len(words))
	return nil
}

func (s *WordStore) Reset() {
	// Only the used part can be non-zero.
	clear(s.words[:s.extent])
	s.extent = 0
}

// Extent returns one past the highest address that was loaded or written.
func (s *WordStore) Extent() uint32 {
	return s.extent
}

// Slice copies up to count words starting at addr, clipped to the address space.
func (s *WordStore) Slice(addr uint32, count int) []uint16 {
	if addr >= W16_ADDRESS_SPACE || count <= 0 {
		return nil
	}
	end := addr + uint32(count)
	if end > W16_ADDRESS_SPACE {
		end = W16_ADDRESS_SPACE
	}
	return append([]uint16(nil), s.words[addr:end]...)
}

// Words copies the used part of memory, [0, Extent()).
func (s *WordStore) Words() []uint16 {
	return s.Slice(0, int(s.extent))
}
