// debug_snapshot.go - Machine state snapshot for save/restore

package main

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

const (
	snapshotMagic   = "W16S"
	snapshotVersion = 1
)

var ErrBadSnapshot = errors.New("bad snapshot")

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	snapshotEncMode = em
	compiledFeatures = append(compiledFeatures, "debug:snapshots")
}

// MachineSnapshot is the complete W16 state, pending terminal input
// included. Memory holds [0, Extent); the rest of the store is zero.
type MachineSnapshot struct {
	Version          int                  `cbor:"version"`
	CPUType          string               `cbor:"cpu"`
	PC               uint32               `cbor:"pc"`
	Registers        [W16_NUM_REGS]uint16 `cbor:"regs"`
	Stack            []uint16             `cbor:"stack"`
	Memory           []uint16             `cbor:"mem"`
	PendingInput     []byte               `cbor:"pending"`
	InstructionCount uint64               `cbor:"count"`
}

// TakeSnapshot copies the machine state. The CPU must not be running.
func TakeSnapshot(cpu *CPUW16) *MachineSnapshot {
	return &MachineSnapshot{
		Version:          snapshotVersion,
		CPUType:          "W16",
		PC:               cpu.PC,
		Registers:        cpu.regs,
		Stack:            cpu.stack.Values(),
		Memory:           cpu.mem.Words(),
		PendingInput:     append([]byte(nil), cpu.pending...),
		InstructionCount: cpu.InstructionCount,
	}
}

// Validate checks that snap describes a state the machine can be in.
func (snap *MachineSnapshot) Validate() error {
	if snap.Version != snapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, snap.Version)
	}
	if snap.CPUType != "W16" {
		return fmt.Errorf("%w: cpu type %q", ErrBadSnapshot, snap.CPUType)
	}
	if snap.PC >= W16_ADDRESS_SPACE {
		return fmt.Errorf("%w: PC 0x%X outside memory", ErrBadSnapshot, snap.PC)
	}
	if len(snap.Memory) > W16_ADDRESS_SPACE {
		return fmt.Errorf("%w: %d memory words", ErrBadSnapshot, len(snap.Memory))
	}
	for i, v := range snap.Registers {
		if v > W16_MAX_LITERAL {
			return fmt.Errorf("%w: %s=%d exceeds 15 bits", ErrBadSnapshot, w16RegNames[i], v)
		}
	}
	for i, v := range snap.Stack {
		if v > W16_MAX_LITERAL {
			return fmt.Errorf("%w: stack[%d]=%d exceeds 15 bits", ErrBadSnapshot, i, v)
		}
	}
	return nil
}

// RestoreSnapshot replaces the whole machine state with snap. Nothing is
// changed if snap does not validate.
func RestoreSnapshot(cpu *CPUW16, snap *MachineSnapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	cpu.Reset()
	if err := cpu.mem.Load(snap.Memory); err != nil {
		return err
	}
	cpu.PC = snap.PC
	cpu.regs = snap.Registers
	cpu.stack.Restore(snap.Stack)
	cpu.pending = append([]byte(nil), snap.PendingInput...)
	cpu.InstructionCount = snap.InstructionCount
	return nil
}

// WriteSnapshot writes the magic, a little-endian version word and the
// gzip-compressed canonical CBOR body.
func WriteSnapshot(w io.Writer, snap *MachineSnapshot) error {
	body, err := snapshotEncMode.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(snapshotMagic)
	if err := binary.Write(&buf, binary.LittleEndian, uint32(snapshotVersion)); err != nil {
		return err
	}
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(body); err != nil {
		return fmt.Errorf("compressing snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("closing gzip: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// ReadSnapshot is the inverse of WriteSnapshot. The result is validated.
func ReadSnapshot(r io.Reader) (*MachineSnapshot, error) {
	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("%w: reading magic: %w", ErrBadSnapshot, err)
	}
	if string(magic) != snapshotMagic {
		return nil, fmt.Errorf("%w: invalid magic %q", ErrBadSnapshot, string(magic))
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: reading version: %w", ErrBadSnapshot, err)
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, version)
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: opening gzip reader: %w", ErrBadSnapshot, err)
	}
	defer gz.Close()
	body, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing: %w", ErrBadSnapshot, err)
	}

	var snap MachineSnapshot
	if err := cbor.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("%w: decoding: %w", ErrBadSnapshot, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SaveSnapshotToFile writes snap to path.
func SaveSnapshotToFile(snap *MachineSnapshot, path string) error {
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, snap); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return err
	}
	snapshotLog.Infof("saved snapshot to %s (PC=%04X, %d words, stack %d)",
		path, snap.PC, len(snap.Memory), len(snap.Stack))
	return nil
}

// LoadSnapshotFromFile reads and validates a snapshot from disk.
func LoadSnapshotFromFile(path string) (*MachineSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snap, err := ReadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	snapshotLog.Infof("loaded snapshot from %s (PC=%04X)", path, snap.PC)
	return snap, nil
}
