package wasix

import "github.com/wasmgate/dyncall/errors"

// Errno is a WASI-style error code returned over the syscall boundary.
type Errno uint16

const (
	ErrnoSuccess  Errno = 0
	ErrnoFault    Errno = 21
	ErrnoInval    Errno = 28
	ErrnoIO       Errno = 29
	ErrnoNotsup   Errno = 58
	ErrnoOverflow Errno = 61
)

func (e Errno) String() string {
	switch e {
	case ErrnoSuccess:
		return "success"
	case ErrnoFault:
		return "fault"
	case ErrnoInval:
		return "inval"
	case ErrnoIO:
		return "io"
	case ErrnoNotsup:
		return "notsup"
	case ErrnoOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// ErrnoOf maps a structured error onto its wire error code.
func ErrnoOf(err error) Errno {
	if err == nil {
		return ErrnoSuccess
	}
	e, ok := err.(*errors.Error)
	if !ok {
		return ErrnoIO
	}
	switch e.Kind {
	case errors.KindMemoryViolation:
		return ErrnoFault
	case errors.KindOverflow:
		return ErrnoOverflow
	case errors.KindUnsupported:
		return ErrnoNotsup
	case errors.KindTrap:
		return ErrnoIO
	default:
		// invalid_handle, invalid_type, length_mismatch, unresolved,
		// invalid_input all surface as EINVAL.
		return ErrnoInval
	}
}
