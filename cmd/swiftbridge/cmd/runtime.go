//go:build cgo && (darwin || linux)

package cmd

import (
	"fmt"

	"github.com/apex/log"
	"github.com/blacktop/swiftbridge/pkg/ptrauth"
	"github.com/blacktop/swiftbridge/pkg/swiftrt"
	"github.com/ebitengine/purego"
)

// runtimeImage is a Swift image loaded into this process.
type runtimeImage struct {
	handle uintptr
	path   string
}

func openImage(path string) (*runtimeImage, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	log.WithField("path", path).Debug("loaded Swift image")
	return &runtimeImage{handle: handle, path: path}, nil
}

func (i *runtimeImage) Close() error {
	return purego.Dlclose(i.handle)
}

func (i *runtimeImage) lookup(name string) (uintptr, error) {
	addr, err := purego.Dlsym(i.handle, name)
	if err != nil {
		return 0, fmt.Errorf("%s not found in %s: %w", name, i.path, err)
	}
	return addr, nil
}

// callAccessor calls the accessor name with the direct type metadata named by
// args as its generic arguments.
func (i *runtimeImage) callAccessor(name string, request swiftrt.MetadataRequest, args []string) (swiftrt.MetadataResponse, error) {
	fn, err := i.lookup(name)
	if err != nil {
		return swiftrt.MetadataResponse{}, err
	}
	var margs []uintptr
	for _, arg := range args {
		md, err := i.lookup(arg)
		if err != nil {
			return swiftrt.MetadataResponse{}, err
		}
		margs = append(margs, md)
	}
	log.WithFields(log.Fields{
		"accessor": name,
		"request":  request,
		"args":     len(margs),
	}).Debug("calling metadata accessor")
	return swiftrt.MetadataAccessor(unsignedAccessor(ptrauth.Default(), fn)).Call(request, margs...), nil
}

func valueWitnesses(metadata uintptr) (uintptr, swiftrt.TypeLayout, bool) {
	vwt := swiftrt.ValueWitnessTableForMetadata(metadata)
	_, isEnum := vwt.AsEnum()
	return vwt.Address(), vwt.Layout(), isEnum
}
