package swiftrt

/*
#include "swiftrt.h"
*/
import "C"

import (
	"unsafe"

	"github.com/blacktop/swiftbridge/pkg/ptrauth"
)

// Addresses recovered from a binary on disk carry no signature, but an indirect
// call on arm64e authenticates the target with the function-pointer key.
func signAccessor(fn uintptr) C.uintptr_t {
	return C.uintptr_t(ptrauth.Sign(fn, ptrauth.FunctionPointer, 0))
}

func response(r C.swiftrt_response) MetadataResponse {
	return MetadataResponse{Metadata: uintptr(r.metadata), State: uint64(r.state)}
}

// CallAccessor0 calls a metadata accessor taking no key arguments.
func CallAccessor0(fn uintptr, request MetadataRequest) MetadataResponse {
	return response(C.swiftrt_call_accessor0(signAccessor(fn), C.size_t(request)))
}

// CallAccessor1 calls a metadata accessor taking one key argument.
func CallAccessor1(fn uintptr, request MetadataRequest, arg0 uintptr) MetadataResponse {
	return response(C.swiftrt_call_accessor1(signAccessor(fn), C.size_t(request), C.uintptr_t(arg0)))
}

// CallAccessor2 calls a metadata accessor taking two key arguments.
func CallAccessor2(fn uintptr, request MetadataRequest, arg0, arg1 uintptr) MetadataResponse {
	return response(C.swiftrt_call_accessor2(signAccessor(fn), C.size_t(request), C.uintptr_t(arg0), C.uintptr_t(arg1)))
}

// CallAccessor3 calls a metadata accessor taking three key arguments.
func CallAccessor3(fn uintptr, request MetadataRequest, arg0, arg1, arg2 uintptr) MetadataResponse {
	return response(C.swiftrt_call_accessor3(signAccessor(fn), C.size_t(request), C.uintptr_t(arg0), C.uintptr_t(arg1), C.uintptr_t(arg2)))
}

// CallAccessorN calls a metadata accessor that takes its arguments through a
// pointer to a contiguous array.
func CallAccessorN(fn uintptr, request MetadataRequest, args []uintptr) MetadataResponse {
	var p *C.uintptr_t
	if len(args) > 0 {
		p = (*C.uintptr_t)(unsafe.Pointer(&args[0]))
	}
	return response(C.swiftrt_call_accessor(signAccessor(fn), C.size_t(request), p))
}

// KeyArgument is one generic argument of a metadata accessor: the argument's
// type metadata and, when the parameter is constrained by a protocol, the
// conformance's witness table.
type KeyArgument struct {
	Metadata     uintptr
	WitnessTable uintptr // 0 when the parameter has no conformance requirement
}

// MetadataAccessor is the address of a metadata access function.
type MetadataAccessor uintptr

// Call calls the accessor with plain metadata arguments, picking the call
// shape from len(args).
func (a MetadataAccessor) Call(request MetadataRequest, args ...uintptr) MetadataResponse {
	fn := uintptr(a)
	switch len(args) {
	case 0:
		return CallAccessor0(fn, request)
	case 1:
		return CallAccessor1(fn, request, args[0])
	case 2:
		return CallAccessor2(fn, request, args[0], args[1])
	case 3:
		return CallAccessor3(fn, request, args[0], args[1], args[2])
	default:
		return CallAccessorN(fn, request, args)
	}
}

// CallWithWitnessTables calls the accessor with generic arguments that may carry
// witness tables. Witness tables follow all key metadata, in argument order;
// once that exceeds three words the arguments are passed by array.
func (a MetadataAccessor) CallWithWitnessTables(request MetadataRequest, args ...KeyArgument) MetadataResponse {
	return a.Call(request, accessBuffer(args)...)
}

// accessBuffer lays out the accessor arguments: every key metadata first, then
// the witness tables that are present.
func accessBuffer(args []KeyArgument) []uintptr {
	words := make([]uintptr, 0, len(args)*2)
	for _, arg := range args {
		words = append(words, arg.Metadata)
	}
	for _, arg := range args {
		if arg.WitnessTable != 0 {
			words = append(words, arg.WitnessTable)
		}
	}
	return words
}
