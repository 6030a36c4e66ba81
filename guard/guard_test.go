package guard

import (
	"bytes"
	"testing"

	dyncall "github.com/wasmgate/dyncall"
	"github.com/wasmgate/dyncall/errors"
)

func TestLinearValidate(t *testing.T) {
	g := NewLinear(NewBuffer(64))

	cases := []struct {
		name   string
		addr   uint32
		length uint32
		ok     bool
	}{
		{"in bounds", 0, 64, true},
		{"interior", 16, 32, true},
		{"zero length anywhere", 0xFFFFFFFF, 0, true},
		{"end past size", 60, 8, false},
		{"start past size", 100, 1, false},
		{"wraparound", 0xFFFFFFFF, 4, false},
	}
	for _, c := range cases {
		err := g.Validate(c.addr, c.length, dyncall.AccessRead)
		if c.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", c.name, err)
		}
		if !c.ok && !errors.IsKind(err, errors.KindMemoryViolation) {
			t.Fatalf("%s: expected memory_violation, got %v", c.name, err)
		}
	}
}

func TestRegionsValidate(t *testing.T) {
	g := NewRegions(
		Region{Start: 0x1000, Length: 0x100, Readable: true, Writable: true},
		Region{Start: 0x3000, Length: 0x100, Readable: true},
	)

	if err := g.Validate(0x1000, 0x100, dyncall.AccessWrite); err != nil {
		t.Fatal(err)
	}
	if err := g.Validate(0x3010, 8, dyncall.AccessRead); err != nil {
		t.Fatal(err)
	}

	// Read-only region rejects writes.
	if err := g.Validate(0x3010, 8, dyncall.AccessWrite); !errors.IsKind(err, errors.KindMemoryViolation) {
		t.Fatalf("expected memory_violation, got %v", err)
	}
	// Range straddling the region end is rejected.
	if err := g.Validate(0x10F8, 16, dyncall.AccessRead); !errors.IsKind(err, errors.KindMemoryViolation) {
		t.Fatalf("expected memory_violation, got %v", err)
	}
	// Unmapped address.
	if err := g.Validate(0x2000, 4, dyncall.AccessRead); !errors.IsKind(err, errors.KindMemoryViolation) {
		t.Fatalf("expected memory_violation, got %v", err)
	}
	// Zero length is valid even unmapped.
	if err := g.Validate(0x2000, 0, dyncall.AccessRead); err != nil {
		t.Fatal(err)
	}
}

func TestBufferReadWrite(t *testing.T) {
	b := NewBuffer(32)

	if err := b.Write(4, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	got, err := b.Read(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("read %v", got)
	}

	// Read returns a copy, not a view.
	got[0] = 99
	again, _ := b.Read(4, 1)
	if again[0] != 1 {
		t.Fatal("Read must copy")
	}

	if err := b.WriteU32(8, 0xDEADBEEF); err != nil {
		t.Fatal(err)
	}
	v, err := b.ReadU32(8)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xDEADBEEF {
		t.Fatalf("u32 %#x", v)
	}

	if err := b.WriteU64(16, 1<<40); err != nil {
		t.Fatal(err)
	}
	v64, err := b.ReadU64(16)
	if err != nil {
		t.Fatal(err)
	}
	if v64 != 1<<40 {
		t.Fatalf("u64 %d", v64)
	}

	if err := b.WriteU8(31, 7); err != nil {
		t.Fatal(err)
	}
	v8, err := b.ReadU8(31)
	if err != nil {
		t.Fatal(err)
	}
	if v8 != 7 {
		t.Fatalf("u8 %d", v8)
	}
}

func TestBufferOutOfBounds(t *testing.T) {
	b := NewBuffer(8)

	if _, err := b.Read(4, 8); err == nil {
		t.Fatal("expected out of bounds read error")
	}
	if err := b.Write(8, []byte{1}); err == nil {
		t.Fatal("expected out of bounds write error")
	}
	if _, err := b.ReadU64(4); err == nil {
		t.Fatal("expected out of bounds u64 read error")
	}
}
