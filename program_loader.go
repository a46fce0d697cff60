// program_loader.go - W16 program image reader

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
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// DecodeProgram reads little-endian 16-bit words until EOF. A trailing odd
// byte becomes a word with a zero high byte.
func DecodeProgram(r io.Reader) ([]uint16, error) {
	br := bufio.NewReader(r)
	var words []uint16
	var pair [2]byte
	for {
		n, err := io.ReadFull(br, pair[:])
		switch {
		case err == nil:
			words = append(words, binary.LittleEndian.Uint16(pair[:]))
		case errors.Is(err, io.ErrUnexpectedEOF) && n == 1:
			words = append(words, uint16(pair[0]))
			return checkProgramSize(words)
		case errors.Is(err, io.EOF):
			return checkProgramSize(words)
		default:
			return nil, fmt.Errorf("reading program: %w", err)
		}
		if len(words) > W16_ADDRESS_SPACE {
			return nil, checkProgramSizeErr(len(words))
		}
	}
}

func checkProgramSize(words []uint16) ([]uint16, error) {
	if len(words) > W16_ADDRESS_SPACE {
		return nil, checkProgramSizeErr(len(words))
	}
	return words, nil
}

func checkProgramSizeErr(n int) error {
	return fmt.Errorf("%w: program exceeds %d words (read %d)", ErrAddressing, W16_ADDRESS_SPACE, n)
}

// LoadProgramFile decodes a program image from disk.
func LoadProgramFile(filename string) ([]uint16, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	words, err := DecodeProgram(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return words, nil
}

// EncodeProgram is the inverse of DecodeProgram.
func EncodeProgram(words []uint16) []byte {
	out := make([]byte, 2*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint16(out[2*i:], w)
	}
	return out
}
