package main

import (
	"errors"
	"testing"
)

func TestOperandStack_LIFO(t *testing.T) {
	var s OperandStack
	for _, v := range []uint16{1, 2, 3} {
		s.Push(v)
	}
	if top, ok := s.Peek(0); !ok || top != 3 {
		t.Fatalf("expected top 3, got %d (%v)", top, ok)
	}
	if bottom, ok := s.Peek(2); !ok || bottom != 1 {
		t.Fatalf("expected bottom 1, got %d (%v)", bottom, ok)
	}
	if _, ok := s.Peek(3); ok {
		t.Fatal("expected Peek past the bottom to fail")
	}
	for _, want := range []uint16{3, 2, 1} {
		v, err := s.Pop()
		if err != nil || v != want {
			t.Fatalf("expected %d, got %d (%v)", want, v, err)
		}
	}
}

func TestOperandStack_Underflow(t *testing.T) {
	var s OperandStack
	if _, err := s.Pop(); !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("expected ErrStackUnderflow, got %v", err)
	}
	if s.Depth() != 0 {
		t.Fatalf("expected depth 0, got %d", s.Depth())
	}
}

func TestOperandStack_RestoreCopies(t *testing.T) {
	var s OperandStack
	src := []uint16{10, 20}
	s.Restore(src)
	src[1] = 99
	if v, _ := s.Pop(); v != 20 {
		t.Fatalf("expected 20, got %d", v)
	}
	vals := s.Values()
	vals[0] = 77
	if v, _ := s.Peek(0); v != 10 {
		t.Fatalf("Values aliases the stack: got %d", v)
	}
	s.Reset()
	if s.Depth() != 0 {
		t.Fatalf("expected empty stack after Reset, got %d", s.Depth())
	}
}
