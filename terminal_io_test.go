package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
)

// =============================================================================
// MemoryTerminal
// =============================================================================

func TestMemoryTerminal_WriteChar(t *testing.T) {
	mt := NewMemoryTerminal()
	for _, ch := range "Hello" {
		if err := mt.WriteChar(ch); err != nil {
			t.Fatalf("WriteChar: %v", err)
		}
	}
	if out := mt.DrainOutput(); out != "Hello" {
		t.Fatalf("expected output 'Hello', got %q", out)
	}
	if out := mt.DrainOutput(); out != "" {
		t.Fatalf("expected drained output to be empty, got %q", out)
	}
}

func TestMemoryTerminal_EnqueueAddsNewline(t *testing.T) {
	mt := NewMemoryTerminal()
	mt.EnqueueLine("look")
	mt.EnqueueLine("go north\n")
	mt.EnqueueLine("")

	for _, want := range []string{"look\n", "go north\n", "\n"} {
		line, err := mt.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if string(line) != want {
			t.Fatalf("expected %q, got %q", want, line)
		}
	}
	if _, err := mt.ReadLine(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on empty queue, got %v", err)
	}
}

func TestMemoryTerminal_ConcurrentProducer(t *testing.T) {
	mt := NewMemoryTerminal()
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				mt.EnqueueLine("x")
				_ = mt.WriteChar('.')
			}
		}()
	}
	wg.Wait()

	n := 0
	for {
		if _, err := mt.ReadLine(); err != nil {
			break
		}
		n++
	}
	if n != 100 {
		t.Fatalf("expected 100 lines, got %d", n)
	}
	if out := mt.DrainOutput(); len(out) != 100 {
		t.Fatalf("expected 100 output bytes, got %d", len(out))
	}
}

// =============================================================================
// StreamTerminal
// =============================================================================

func TestStreamTerminal_LinesAndFinalUnterminatedLine(t *testing.T) {
	var out bytes.Buffer
	st := NewStreamTerminal(strings.NewReader("one\ntwo"), &out)

	for _, want := range []string{"one\n", "two\n"} {
		line, err := st.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if string(line) != want {
			t.Fatalf("expected %q, got %q", want, line)
		}
	}
	if _, err := st.ReadLine(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestStreamTerminal_FlushesOnNewlineAndBeforeRead(t *testing.T) {
	var out bytes.Buffer
	st := NewStreamTerminal(strings.NewReader("y\n"), &out)

	for _, ch := range "ok?" {
		_ = st.WriteChar(ch)
	}
	if out.Len() != 0 {
		t.Fatalf("expected prompt to stay buffered, got %q", out.String())
	}
	if _, err := st.ReadLine(); err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if out.String() != "ok?" {
		t.Fatalf("expected prompt flushed before read, got %q", out.String())
	}

	_ = st.WriteChar('\n')
	if out.String() != "ok?\n" {
		t.Fatalf("expected flush on newline, got %q", out.String())
	}
}

// =============================================================================
// ScriptedTerminal
// =============================================================================

func TestScriptedTerminal_ReplaysThenHandsOver(t *testing.T) {
	next := NewMemoryTerminal()
	next.EnqueueLine("typed")
	script := "# walkthrough\n\ntake tablet\r\n  use tablet\n"

	st, err := NewScriptedTerminal(strings.NewReader(script), next, true)
	if err != nil {
		t.Fatalf("NewScriptedTerminal: %v", err)
	}
	if st.Remaining() != 2 {
		t.Fatalf("expected 2 script lines, got %d", st.Remaining())
	}

	for _, want := range []string{"take tablet\n", "  use tablet\n", "typed\n"} {
		line, err := st.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if string(line) != want {
			t.Fatalf("expected %q, got %q", want, line)
		}
	}
	if out := next.DrainOutput(); out != "take tablet\n  use tablet\n" {
		t.Fatalf("expected replayed lines echoed, got %q", out)
	}
}

func TestScriptedTerminal_NoEcho(t *testing.T) {
	next := NewMemoryTerminal()
	st, err := NewScriptedTerminal(strings.NewReader("north\n"), next, false)
	if err != nil {
		t.Fatalf("NewScriptedTerminal: %v", err)
	}
	if _, err := st.ReadLine(); err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if out := next.DrainOutput(); out != "" {
		t.Fatalf("expected no echo, got %q", out)
	}
}

func TestScriptedTerminal_DrivesCPU(t *testing.T) {
	next := NewMemoryTerminal()
	st, err := NewScriptedTerminal(strings.NewReader("hi\n"), next, false)
	if err != nil {
		t.Fatalf("NewScriptedTerminal: %v", err)
	}
	cpu := NewCPUW16(st)
	// Echo two characters back.
	prog := []uint16{
		op(W16_IN), reg(0), op(W16_OUT), reg(0),
		op(W16_IN), reg(0), op(W16_OUT), reg(0),
		op(W16_HALT),
	}
	if err := cpu.LoadWords(prog); err != nil {
		t.Fatal(err)
	}
	if res, err := cpu.Run(); res != RunHalted || err != nil {
		t.Fatalf("expected halt, got %v %v", res, err)
	}
	if out := next.DrainOutput(); out != "hi" {
		t.Fatalf("expected 'hi', got %q", out)
	}
}

func TestOpenInputScript_MissingFile(t *testing.T) {
	if _, err := OpenInputScript(t.TempDir()+"/missing.txt", nil, false); err == nil {
		t.Fatal("expected error for missing script")
	}
}

func TestFlushTerminal_NonBuffering(t *testing.T) {
	if err := FlushTerminal(NewMemoryTerminal()); err != nil {
		t.Fatalf("expected nil for a channel without Flush, got %v", err)
	}
}
