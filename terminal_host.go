package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"unicode/utf8"

	"golang.org/x/term"
)

func init() {
	compiledFeatures = append(compiledFeatures, "terminal:raw-line-editing")
}

// TerminalHost drives the W16 terminal from an interactive tty. stdin is put
// in raw mode and lines are read with x/term's line editor (cursor keys,
// history); all output goes through the same editor so it tracks the cursor.
// Only instantiated in main.go for interactive use, never in tests.
type TerminalHost struct {
	fd           int
	oldTermState *term.State
	screen       *term.Terminal
	outBuf       []byte
	stopped      sync.Once
}

// NewTerminalHost switches in to raw mode. Call Stop to restore it.
func NewTerminalHost(in *os.File, out io.Writer) (*TerminalHost, error) {
	fd := int(in.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("terminal_host: failed to set raw mode: %w", err)
	}
	rw := struct {
		io.Reader
		io.Writer
	}{in, out}
	return &TerminalHost{
		fd:           fd,
		oldTermState: oldState,
		screen:       term.NewTerminal(rw, ""),
		outBuf:       make([]byte, 0, 256),
	}, nil
}

func (h *TerminalHost) WriteChar(ch rune) error {
	h.outBuf = utf8.AppendRune(h.outBuf, ch)
	if ch == '\n' {
		return h.Flush()
	}
	return nil
}

// ReadLine flushes pending output, then blocks for one edited line.
// Ctrl-C and Ctrl-D on an empty line end input with io.EOF.
func (h *TerminalHost) ReadLine() ([]byte, error) {
	if err := h.Flush(); err != nil {
		return nil, err
	}
	line, err := h.screen.ReadLine()
	if err != nil && !errors.Is(err, term.ErrPasteIndicator) {
		return nil, err
	}
	return append([]byte(line), '\n'), nil
}

func (h *TerminalHost) Flush() error {
	if len(h.outBuf) == 0 {
		return nil
	}
	_, err := h.screen.Write(h.outBuf)
	h.outBuf = h.outBuf[:0]
	return err
}

// Stop flushes output and restores the terminal state. Safe to call twice.
func (h *TerminalHost) Stop() {
	h.stopped.Do(func() {
		_ = h.Flush()
		if h.oldTermState != nil {
			_ = term.Restore(h.fd, h.oldTermState)
			h.oldTermState = nil
		}
	})
}

// OpenTerminal picks the terminal for the given stdio pair: the raw-mode
// host when in is a tty, a StreamTerminal otherwise. The returned func
// flushes and releases the terminal.
func OpenTerminal(in *os.File, out *os.File) (TerminalChannel, func(), error) {
	if term.IsTerminal(int(in.Fd())) {
		host, err := NewTerminalHost(in, out)
		if err != nil {
			return nil, nil, err
		}
		terminalLog.Info("interactive terminal in raw mode")
		return host, host.Stop, nil
	}
	st := NewStreamTerminal(in, out)
	return st, func() { _ = st.Flush() }, nil
}
