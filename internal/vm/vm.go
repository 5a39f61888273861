// Package vm implements the WebAssembly execution sandbox for EmPower1
// smart contracts. Every call loads the module fresh, runs it against an
// empty linker (no host imports), and discards the instance afterward —
// there is no persistent VM state across calls, and no way for a contract
// to reach outside its own module.
package vm

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/tetratelabs/wazero"

	internalerrors "empower1.com/empower1blockchain/internal/errors"
)

const callFieldSep = 0x00

// EncodeCall packs a function name and its type/value chunk list into a
// transaction's Data field for a contract-execution transaction: the
// function name followed by each chunk, separated by NUL bytes.
func EncodeCall(function string, chunks []string) []byte {
	fields := append([]string{function}, chunks...)
	return bytes.Join(toByteSlices(fields), []byte{callFieldSep})
}

// DecodeCall is the inverse of EncodeCall.
func DecodeCall(data []byte) (string, []string, error) {
	fields := bytes.Split(data, []byte{callFieldSep})
	if len(fields) == 0 || len(fields[0]) == 0 {
		return "", nil, fmt.Errorf("%w: call data is missing a function name", internalerrors.ErrInvalidParamType)
	}
	chunks := make([]string, len(fields)-1)
	for i, f := range fields[1:] {
		chunks[i] = string(f)
	}
	return string(fields[0]), chunks, nil
}

func toByteSlices(fields []string) [][]byte {
	out := make([][]byte, len(fields))
	for i, f := range fields {
		out[i] = []byte(f)
	}
	return out
}

// Param is one typed argument parsed from a "type,value,type,value,..."
// chunk list. Only String and U64 are recognized; anything else is
// ErrInvalidParamType.
type Param struct {
	Kind  string
	Str   string
	U64   uint64
}

// ParseParams parses alternating type/value chunks into typed params.
func ParseParams(chunks []string) ([]Param, error) {
	if len(chunks)%2 != 0 {
		return nil, fmt.Errorf("%w: odd number of param chunks", internalerrors.ErrInvalidParamType)
	}
	params := make([]Param, 0, len(chunks)/2)
	for i := 0; i < len(chunks); i += 2 {
		kind, val := chunks[i], chunks[i+1]
		switch kind {
		case "String":
			params = append(params, Param{Kind: kind, Str: val})
		case "U64":
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid U64 value %q", internalerrors.ErrInvalidParamType, val)
			}
			params = append(params, Param{Kind: kind, U64: n})
		default:
			return nil, fmt.Errorf("%w: %q", internalerrors.ErrInvalidParamType, kind)
		}
	}
	return params, nil
}

// CallFunction loads code as a fresh module, calls function with params,
// and returns the raw little-endian u64 results wazero reports — the
// sandbox never exposes a return-value channel to the caller beyond the
// numeric results wazero's core ABI gives back. The module has no host
// imports, so a call cannot change account state; its instance is
// discarded when the call returns.
func CallFunction(ctx context.Context, code []byte, function string, params []Param) ([]uint64, error) {
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	module, err := runtime.Instantiate(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerrors.ErrLoadContract, err)
	}
	defer module.Close(ctx)

	fn := module.ExportedFunction(function)
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", internalerrors.ErrExportFunctionMissing, function)
	}

	args := make([]uint64, 0, len(params))
	for _, p := range params {
		switch p.Kind {
		case "U64":
			args = append(args, p.U64)
		case "String":
			args = append(args, stringToU64Arg(p.Str))
		}
	}

	results, err := fn.Call(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerrors.ErrCallFunction, err)
	}
	return results, nil
}

// stringToU64Arg packs up to the first 8 bytes of a string argument into a
// single wazero-ABI u64 slot — there is no host-managed linear memory
// exported to callers here, so longer strings are truncated rather than
// written through a shared memory export.
func stringToU64Arg(s string) uint64 {
	var buf [8]byte
	copy(buf[:], s)
	return binary.LittleEndian.Uint64(buf[:])
}
