package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := New(PhaseInvoke, KindLengthMismatch).
		Path("call_dynamic", "values").
		Detail("strict mode requires %d bytes", 12).
		Build()

	s := err.Error()
	for _, want := range []string{"[invoke]", "length_mismatch", "call_dynamic.values", "12 bytes"} {
		if !strings.Contains(s, want) {
			t.Fatalf("error string %q missing %q", s, want)
		}
	}
}

func TestIsMatchesPhaseAndKind(t *testing.T) {
	err := InvalidHandle(PhaseTable, 42)

	if !stderrors.Is(err, &Error{Phase: PhaseTable, Kind: KindInvalidHandle}) {
		t.Fatal("expected Is match on same phase/kind")
	}
	if stderrors.Is(err, &Error{Phase: PhaseReflect, Kind: KindInvalidHandle}) {
		t.Fatal("unexpected Is match on different phase")
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(PhaseGuard, KindMemoryViolation, cause, "read failed")

	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable via Unwrap")
	}
	if !strings.Contains(err.Error(), "caused by: boom") {
		t.Fatalf("cause missing from message: %s", err.Error())
	}
}

func TestIsKind(t *testing.T) {
	if !IsKind(Overflow(PhaseReflect, 1, 0, 2, 1), KindOverflow) {
		t.Fatal("expected overflow kind")
	}
	if IsKind(fmt.Errorf("plain"), KindOverflow) {
		t.Fatal("plain error should not match")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cases := []struct {
		err  *Error
		kind Kind
	}{
		{InvalidHandle(PhaseTable, 7), KindInvalidHandle},
		{InvalidType(PhaseMarshal, 9), KindInvalidType},
		{LengthMismatch(PhaseInvoke, "values", 3, 12), KindLengthMismatch},
		{MemoryViolation(PhaseGuard, 0x1000, 16, "read"), KindMemoryViolation},
		{Unresolved(PhaseReflect, 99), KindUnresolved},
		{Unsupported(PhaseHost, "v128"), KindUnsupported},
		{InvalidInput(PhaseHost, "nil system"), KindInvalidInput},
	}
	for _, c := range cases {
		if c.err.Kind != c.kind {
			t.Fatalf("constructor produced kind %s, want %s", c.err.Kind, c.kind)
		}
		if c.err.Error() == "" {
			t.Fatal("empty error message")
		}
	}
}
