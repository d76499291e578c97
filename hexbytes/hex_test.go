package hexbytes

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/imattdu/xray/errorx"
)

func TestRoundTrip(t *testing.T) {
	for size := 0; size <= 32; size++ {
		b := make([]byte, size)
		if _, err := rand.Read(b); err != nil {
			t.Fatal(err)
		}
		s := Encode(b)
		if len(s) != 2*size {
			t.Fatalf("size %d: expected %d chars, got %d", size, 2*size, len(s))
		}
		got, err := Decode(s)
		if err != nil {
			t.Fatalf("size %d: unexpected error: %v", size, err)
		}
		if !bytes.Equal(got, b) {
			t.Fatalf("size %d: expected %x, got %x", size, b, got)
		}
	}
}

func TestEncodeLowercase(t *testing.T) {
	got := Encode([]byte{0xAB, 0xCD, 0x01, 0xEF})
	if got != "abcd01ef" {
		t.Fatalf("expected 'abcd01ef' but got '%s'", got)
	}
}

func TestDecode(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		expected    []byte
		expectedErr bool
	}{
		{name: "empty", input: "", expected: []byte{}},
		{name: "lowercase", input: "00ff7a", expected: []byte{0x00, 0xff, 0x7a}},
		{name: "uppercase accepted", input: "00FF7A", expected: []byte{0x00, 0xff, 0x7a}},
		{name: "odd length", input: "abc", expectedErr: true},
		{name: "non hex", input: "zz", expectedErr: true},
		{name: "whitespace", input: " 0a", expectedErr: true},
		{name: "separator", input: "0a-0b", expectedErr: true},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.input)
			if tt.expectedErr {
				if !errorx.Is(err, errorx.ErrDecode) {
					t.Fatalf("expected ErrDecode, got '%v'", err)
				}
				if got != nil {
					t.Errorf("expected no partial value, got %x", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, but got '%v'", err)
			}
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("expected %x but got %x", tt.expected, got)
			}
		})
	}
}

func TestDecodeInto(t *testing.T) {
	var dst [4]byte
	if err := DecodeInto(dst[:], "deadbeef"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst != [4]byte{0xde, 0xad, 0xbe, 0xef} {
		t.Errorf("unexpected bytes %x", dst)
	}

	for _, in := range []string{"dead", "deadbeef00", "deadbeeg"} {
		var d [4]byte
		if err := DecodeInto(d[:], in); !errorx.Is(err, errorx.ErrDecode) {
			t.Errorf("%q: expected ErrDecode, got %v", in, err)
		}
	}
}
