package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"unicode/utf8"
)

// TerminalChannel is the W16 character terminal. out writes one character
// (UTF-8 encoded on byte streams); in consumes whole lines, so ReadLine must return a complete line
// (terminated by '\n') before the CPU takes its first character.
type TerminalChannel interface {
	WriteChar(ch rune) error
	ReadLine() ([]byte, error)
}

// terminalFlusher is implemented by channels that buffer output.
type terminalFlusher interface {
	Flush() error
}

// FlushTerminal flushes buffered output if the channel buffers at all.
func FlushTerminal(t TerminalChannel) error {
	if f, ok := t.(terminalFlusher); ok {
		return f.Flush()
	}
	return nil
}

// ensureNewline terminates a final unterminated line.
func ensureNewline(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}
	return line
}

// ------------------------------------------------------------------------------
// StreamTerminal
// ------------------------------------------------------------------------------

// StreamTerminal drives the terminal from plain streams (pipes, files,
// non-tty stdin). Output is buffered and flushed on newline and before
// every read so prompts are visible.
type StreamTerminal struct {
	in  *bufio.Reader
	out *bufio.Writer
}

func NewStreamTerminal(r io.Reader, w io.Writer) *StreamTerminal {
	return &StreamTerminal{
		in:  bufio.NewReader(r),
		out: bufio.NewWriter(w),
	}
}

func (t *StreamTerminal) WriteChar(ch rune) error {
	if _, err := t.out.WriteRune(ch); err != nil {
		return err
	}
	if ch == '\n' {
		return t.out.Flush()
	}
	return nil
}

func (t *StreamTerminal) ReadLine() ([]byte, error) {
	if err := t.out.Flush(); err != nil {
		return nil, err
	}
	line, err := t.in.ReadBytes('\n')
	if len(line) > 0 && errors.Is(err, io.EOF) {
		// Last line without a terminator still counts as a line.
		return ensureNewline(line), nil
	}
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (t *StreamTerminal) Flush() error {
	return t.out.Flush()
}

// ------------------------------------------------------------------------------
// ScriptedTerminal
// ------------------------------------------------------------------------------

// ScriptedTerminal replays prepared input lines before handing over to
// another channel. Replayed lines are echoed to the output so a transcript
// reads as if they had been typed.
type ScriptedTerminal struct {
	next  TerminalChannel
	lines [][]byte
	echo  bool
}

// NewScriptedTerminal reads script lines from r. Blank lines and lines
// starting with '#' are skipped.
func NewScriptedTerminal(r io.Reader, next TerminalChannel, echo bool) (*ScriptedTerminal, error) {
	st := &ScriptedTerminal{next: next, echo: echo}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		text := bytes.TrimRight(sc.Bytes(), "\r")
		trimmed := bytes.TrimSpace(text)
		if len(trimmed) == 0 || trimmed[0] == '#' {
			continue
		}
		st.lines = append(st.lines, append(append([]byte(nil), text...), '\n'))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading input script: %w", err)
	}
	return st, nil
}

// OpenInputScript wraps next with the script at path.
func OpenInputScript(path string, next TerminalChannel, echo bool) (*ScriptedTerminal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := NewScriptedTerminal(f, next, echo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	terminalLog.Infof("replaying %d input lines from %s", len(st.lines), path)
	return st, nil
}

// Remaining returns how many script lines have not been replayed yet.
func (t *ScriptedTerminal) Remaining() int {
	return len(t.lines)
}

func (t *ScriptedTerminal) WriteChar(ch rune) error {
	if t.next == nil {
		return nil
	}
	return t.next.WriteChar(ch)
}

func (t *ScriptedTerminal) ReadLine() ([]byte, error) {
	if len(t.lines) == 0 {
		if t.next == nil {
			return nil, io.EOF
		}
		return t.next.ReadLine()
	}
	line := t.lines[0]
	t.lines = t.lines[1:]
	if t.echo {
		for _, ch := range string(line) {
			if err := t.WriteChar(ch); err != nil {
				return nil, err
			}
		}
	}
	return line, nil
}

func (t *ScriptedTerminal) Flush() error {
	if t.next == nil {
		return nil
	}
	return FlushTerminal(t.next)
}

// ------------------------------------------------------------------------------
// MemoryTerminal
// ------------------------------------------------------------------------------

// MemoryTerminal is an in-memory terminal. Lines are injected with
// EnqueueLine and output collected with DrainOutput. Safe for use from a
// test goroutine while the CPU runs in another.
type MemoryTerminal struct {
	mu     sync.Mutex
	input  [][]byte
	output []byte
}

func NewMemoryTerminal() *MemoryTerminal {
	return &MemoryTerminal{output: make([]byte, 0, 256)}
}

// EnqueueLine queues one input line; a missing '\n' is added.
func (t *MemoryTerminal) EnqueueLine(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	line := []byte(s)
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}
	t.input = append(t.input, line)
}

func (t *MemoryTerminal) WriteChar(ch rune) error {
	t.mu.Lock()
	t.output = utf8.AppendRune(t.output, ch)
	t.mu.Unlock()
	return nil
}

func (t *MemoryTerminal) ReadLine() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.input) == 0 {
		return nil, io.EOF
	}
	line := t.input[0]
	t.input = t.input[1:]
	return line, nil
}

// DrainOutput returns and clears the accumulated output.
func (t *MemoryTerminal) DrainOutput() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := string(t.output)
	t.output = t.output[:0]
	return s
}
