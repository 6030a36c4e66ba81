package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wasmgate/dyncall/builtin"
	"github.com/wasmgate/dyncall/dispatch"
	"github.com/wasmgate/dyncall/guard"
	"github.com/wasmgate/dyncall/marshal"
	"github.com/wasmgate/dyncall/wasix"
)

// Scratch layout inside the testbed's linear memory.
const (
	memorySize  = 1 << 20
	argTagsAddr = 0x100
	resTagsAddr = 0x140
	valuesAddr  = 0x200
	resultsAddr = 0x400
	infoAddr    = 0x600
	reflectArgs = 0x640
	reflectRes  = 0x680
)

func main() {
	var (
		call        = flag.String("call", "", "Routine to call (see -list)")
		argStr      = flag.String("args", "", "Arguments, comma-separated")
		strict      = flag.Bool("strict", true, "Require exact buffer lengths")
		list        = flag.Bool("list", false, "List available routines and exit")
		verbose     = flag.Bool("v", false, "Enable debug logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		wasix.SetLogger(logger)
		dispatch.SetLogger(logger)
	}

	tb := newTestbed()

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(tb); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *list {
		tb.printRoutines()
		return
	}

	if *call == "" {
		fmt.Fprintln(os.Stderr, "Usage: dyncall -call <routine> [-args v1,v2,...] [-strict=false]")
		fmt.Fprintln(os.Stderr, "       dyncall -list")
		fmt.Fprintln(os.Stderr, "       dyncall -i  (interactive mode)")
		os.Exit(1)
	}

	if err := tb.runOnce(*call, *argStr, *strict); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// routine is one entry in the testbed's catalog of backing functions.
type routine struct {
	name    string
	backing uint32
	args    marshal.Signature
	results marshal.Signature
	impl    func(args []marshal.RawValue) []marshal.RawValue
}

// testbed wires a syscall system to a byte-buffer memory and a catalog
// of host routines, standing in for a guest instance.
type testbed struct {
	sys      *wasix.System
	mem      *guard.Buffer
	g        *guard.Linear
	routines []routine
	handles  map[string]uint32
}

func newTestbed() *testbed {
	tb := &testbed{
		mem:     guard.NewBuffer(memorySize),
		handles: make(map[string]uint32),
	}
	tb.g = guard.NewLinear(tb.mem)

	tb.routines = []routine{
		{
			name:    "add",
			backing: 0x1000,
			args:    marshal.Signature{marshal.I32, marshal.I32},
			results: marshal.Signature{marshal.I32},
			impl: func(args []marshal.RawValue) []marshal.RawValue {
				return []marshal.RawValue{marshal.I32Value(args[0].I32() + args[1].I32())}
			},
		},
		{
			name:    "sum64",
			backing: 0x1001,
			args:    marshal.Signature{marshal.I64, marshal.I64},
			results: marshal.Signature{marshal.I64},
			impl: func(args []marshal.RawValue) []marshal.RawValue {
				return []marshal.RawValue{marshal.I64Value(args[0].I64() + args[1].I64())}
			},
		},
		{
			name:    "scale",
			backing: 0x1002,
			args:    marshal.Signature{marshal.F64, marshal.F32},
			results: marshal.Signature{marshal.F64},
			impl: func(args []marshal.RawValue) []marshal.RawValue {
				return []marshal.RawValue{marshal.F64Value(args[0].F64() * float64(args[1].F32()))}
			},
		},
		{
			name:    "negate",
			backing: 0x1003,
			args:    marshal.Signature{marshal.F32},
			results: marshal.Signature{marshal.F32},
			impl: func(args []marshal.RawValue) []marshal.RawValue {
				return []marshal.RawValue{marshal.F32Value(-args[0].F32())}
			},
		},
		{
			name:    "mix",
			backing: 0x1004,
			args:    marshal.Signature{marshal.I32, marshal.I64, marshal.F64},
			results: marshal.Signature{marshal.F64},
			impl: func(args []marshal.RawValue) []marshal.RawValue {
				v := float64(args[0].I32()) + float64(args[1].I64()) + args[2].F64()
				return []marshal.RawValue{marshal.F64Value(v)}
			},
		},
	}

	builtins := builtin.NewRegistry()
	resolver := dispatch.NewFuncMap()
	for i, r := range tb.routines {
		// The catalog doubles as the builtin universe so that
		// reflect_signature has cacheable pointers to show.
		fp := uint32(i + 1)
		if err := builtins.Register(fp, r.args, r.results); err != nil {
			panic(err)
		}
		r := r
		resolver.RegisterFunc(r.backing, func(_ context.Context, values, results, _ []byte) error {
			in, err := marshal.Unpack(values, r.args)
			if err != nil {
				return err
			}
			out, err := marshal.Pack(r.impl(in), r.results)
			if err != nil {
				return err
			}
			copy(results, out)
			return nil
		})
	}

	tb.sys = wasix.NewSystem(wasix.Config{Builtins: builtins, Routines: resolver})
	return tb
}

func (tb *testbed) find(name string) (routine, bool) {
	for _, r := range tb.routines {
		if r.name == name {
			return r, true
		}
	}
	return routine{}, false
}

func (tb *testbed) printRoutines() {
	fmt.Println("Available routines:")
	for _, r := range tb.routines {
		fmt.Printf("  %s(%s) -> %s\n", r.name, r.args.String(), r.results.String())
	}
}

// closureFor lazily allocates and prepares a closure for a catalog
// routine, staging its signature tags in scratch memory.
func (tb *testbed) closureFor(r routine) (uint32, error) {
	if h, ok := tb.handles[r.name]; ok {
		return h, nil
	}

	if err := tb.mem.Write(argTagsAddr, r.args.Tags()); err != nil {
		return 0, err
	}
	if err := tb.mem.Write(resTagsAddr, r.results.Tags()); err != nil {
		return 0, err
	}

	h := tb.sys.ClosureAllocate()
	errno := tb.sys.ClosurePrepare(tb.mem, tb.g, r.backing, h,
		argTagsAddr, uint32(len(r.args)), resTagsAddr, uint32(len(r.results)), 0)
	if errno != wasix.ErrnoSuccess {
		return 0, fmt.Errorf("closure_prepare: %s", errno)
	}
	tb.handles[r.name] = h
	return h, nil
}

// invoke stages packed arguments, performs call_dynamic and decodes the
// results.
func (tb *testbed) invoke(r routine, args []marshal.RawValue, strict bool) ([]marshal.RawValue, error) {
	h, err := tb.closureFor(r)
	if err != nil {
		return nil, err
	}

	values, err := marshal.Pack(args, r.args)
	if err != nil {
		return nil, err
	}
	if err := tb.mem.Write(valuesAddr, values); err != nil {
		return nil, err
	}

	errno := tb.sys.CallDynamic(context.Background(), tb.mem, tb.g, h,
		valuesAddr, uint32(len(values)), resultsAddr, r.results.ByteWidth(), strict)
	if errno != wasix.ErrnoSuccess {
		return nil, fmt.Errorf("call_dynamic: %s", errno)
	}

	raw, err := tb.mem.Read(resultsAddr, r.results.ByteWidth())
	if err != nil {
		return nil, err
	}
	return marshal.Unpack(raw, r.results)
}

// reflect queries the closure's signature through the syscall surface.
func (tb *testbed) reflect(fp uint32) (string, error) {
	errno := tb.sys.ReflectSignature(tb.mem, tb.g, fp,
		reflectArgs, 16, reflectRes, 16, infoAddr)
	if errno != wasix.ErrnoSuccess {
		return "", fmt.Errorf("reflect_signature: %s", errno)
	}

	cacheable, err := tb.mem.ReadU8(infoAddr)
	if err != nil {
		return "", err
	}
	argCount, err := tb.mem.ReadU32(infoAddr + 4)
	if err != nil {
		return "", err
	}
	resCount, err := tb.mem.ReadU32(infoAddr + 8)
	if err != nil {
		return "", err
	}

	argTags, err := tb.mem.Read(reflectArgs, argCount)
	if err != nil {
		return "", err
	}
	resTags, err := tb.mem.Read(reflectRes, resCount)
	if err != nil {
		return "", err
	}
	args, err := marshal.ParseSignature(argTags)
	if err != nil {
		return "", err
	}
	results, err := marshal.ParseSignature(resTags)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("(%s) -> (%s) cacheable=%t", args.String(), results.String(), cacheable == 1), nil
}

func (tb *testbed) runOnce(name, argStr string, strict bool) error {
	r, ok := tb.find(name)
	if !ok {
		tb.printRoutines()
		return fmt.Errorf("unknown routine %q", name)
	}

	args, err := parseArgs(argStr, r.args)
	if err != nil {
		return err
	}

	results, err := tb.invoke(r, args, strict)
	if err != nil {
		return err
	}

	h := tb.handles[r.name]
	sig, err := tb.reflect(h)
	if err != nil {
		return err
	}

	fmt.Printf("Closure:   handle %d -> backing 0x%x\n", h, r.backing)
	fmt.Printf("Signature: %s\n", sig)
	fmt.Printf("Result:    %s\n", formatValues(results))
	return nil
}

func parseArgs(argStr string, sig marshal.Signature) ([]marshal.RawValue, error) {
	var fields []string
	if argStr != "" {
		fields = strings.Split(argStr, ",")
	}
	if len(fields) != len(sig) {
		return nil, fmt.Errorf("expected %d arguments (%s), got %d", len(sig), sig.String(), len(fields))
	}

	values := make([]marshal.RawValue, len(fields))
	for i, field := range fields {
		v, err := parseValue(strings.TrimSpace(field), sig[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

func parseValue(s string, t marshal.ValueType) (marshal.RawValue, error) {
	switch t {
	case marshal.I32:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return marshal.RawValue{}, err
		}
		return marshal.I32Value(int32(v)), nil
	case marshal.I64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return marshal.RawValue{}, err
		}
		return marshal.I64Value(v), nil
	case marshal.F32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return marshal.RawValue{}, err
		}
		return marshal.F32Value(float32(v)), nil
	case marshal.F64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return marshal.RawValue{}, err
		}
		return marshal.F64Value(v), nil
	}
	return marshal.RawValue{}, fmt.Errorf("unknown value type %d", t)
}

func formatValues(values []marshal.RawValue) string {
	parts := make([]string, len(values))
	for i, v := range values {
		switch v.Type {
		case marshal.I32:
			parts[i] = strconv.FormatInt(int64(v.I32()), 10)
		case marshal.I64:
			parts[i] = strconv.FormatInt(v.I64(), 10)
		case marshal.F32:
			parts[i] = strconv.FormatFloat(float64(v.F32()), 'g', -1, 32)
		case marshal.F64:
			parts[i] = strconv.FormatFloat(v.F64(), 'g', -1, 64)
		}
	}
	return strings.Join(parts, ", ")
}
