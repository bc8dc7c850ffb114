//go:build !cgo || !(darwin || linux)

package cmd

import (
	"fmt"
	"runtime"

	"github.com/blacktop/swiftbridge/pkg/swiftrt"
)

var errNoRuntime = fmt.Errorf("calling into the Swift runtime requires cgo on darwin or linux (running %s/%s)", runtime.GOOS, runtime.GOARCH)

type runtimeImage struct{}

func openImage(string) (*runtimeImage, error) { return nil, errNoRuntime }

func (*runtimeImage) Close() error { return nil }

func (*runtimeImage) lookup(string) (uintptr, error) { return 0, errNoRuntime }

func (*runtimeImage) callAccessor(string, swiftrt.MetadataRequest, []string) (swiftrt.MetadataResponse, error) {
	return swiftrt.MetadataResponse{}, errNoRuntime
}

func valueWitnesses(uintptr) (uintptr, swiftrt.TypeLayout, bool) {
	return 0, swiftrt.TypeLayout{}, false
}
