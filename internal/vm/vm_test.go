package vm_test

import (
	"errors"
	"testing"

	internalerrors "empower1.com/empower1blockchain/internal/errors"
	"empower1.com/empower1blockchain/internal/vm"
)

func TestParseParamsAcceptsStringAndU64(t *testing.T) {
	params, err := vm.ParseParams([]string{"String", "hello", "U64", "42"})
	if err != nil {
		t.Fatalf("ParseParams failed: %v", err)
	}
	if len(params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(params))
	}
	if params[0].Kind != "String" || params[0].Str != "hello" {
		t.Fatalf("unexpected first param: %+v", params[0])
	}
	if params[1].Kind != "U64" || params[1].U64 != 42 {
		t.Fatalf("unexpected second param: %+v", params[1])
	}
}

func TestParseParamsRejectsUnknownType(t *testing.T) {
	_, err := vm.ParseParams([]string{"Bool", "true"})
	if err == nil {
		t.Fatalf("expected an error for an unrecognized type tag")
	}
	if !errors.Is(err, internalerrors.ErrInvalidParamType) {
		t.Fatalf("expected ErrInvalidParamType, got %v", err)
	}
}

func TestParseParamsRejectsOddChunkCount(t *testing.T) {
	_, err := vm.ParseParams([]string{"String"})
	if err == nil {
		t.Fatalf("expected an error for an odd number of chunks")
	}
}
