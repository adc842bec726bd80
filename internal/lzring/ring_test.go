package lzring

import "testing"

func TestCursorWrapsModuloSize(t *testing.T) {
	b := New(16)
	out := make([]byte, 100)
	n := 0
	for i := range 40 {
		b.Emit(out, &n, byte('a'+i%26))
	}
	if b.Cursor() != 40%16 {
		t.Fatalf("cursor = %d, want %d", b.Cursor(), 40%16)
	}
}

func TestSelfReferentialCopy(t *testing.T) {
	b := New(256)
	out := make([]byte, 32)
	n := 0
	b.Emit(out, &n, 'x')
	// offset=0 means "the byte just written"; repeating it 5 times
	// should produce a run of 6 'x's total.
	b.Copy(out, &n, 0, 5)
	want := "xxxxxx"
	if string(out[:n]) != want {
		t.Fatalf("got %q, want %q", out[:n], want)
	}
}
