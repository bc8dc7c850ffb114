// Package swiftrt calls into Swift runtime code recovered from a loaded image:
// metadata accessor functions and value witness tables.
//
// Nothing here validates the addresses it is handed. Callers (a metadata
// reader) must only pass addresses of mapped, executable code and readable
// tables; anything else faults.
package swiftrt

import "fmt"

// MetadataState is how complete a piece of type metadata is.
type MetadataState uint8

const (
	StateComplete              MetadataState = 0x00
	StateNonTransitiveComplete MetadataState = 0x01
	StateLayoutComplete        MetadataState = 0x3f
	StateAbstract              MetadataState = 0xff
)

func (s MetadataState) String() string {
	switch s {
	case StateComplete:
		return "complete"
	case StateNonTransitiveComplete:
		return "non-transitive-complete"
	case StateLayoutComplete:
		return "layout-complete"
	case StateAbstract:
		return "abstract"
	default:
		return fmt.Sprintf("MetadataState(%#x)", uint8(s))
	}
}

const (
	requestStateMask   = 0xff
	requestNonBlocking = 1 << 8
)

// MetadataRequest is the request word passed to a metadata accessor.
type MetadataRequest uint64

// NewMetadataRequest builds a request for state. A non-blocking request lets
// the runtime return metadata that has not reached state yet.
func NewMetadataRequest(state MetadataState, blocking bool) MetadataRequest {
	r := MetadataRequest(state)
	if !blocking {
		r |= requestNonBlocking
	}
	return r
}

// State is the requested metadata state.
func (r MetadataRequest) State() MetadataState {
	return MetadataState(r & requestStateMask)
}

// IsBlocking reports whether the accessor may block until State is reached.
func (r MetadataRequest) IsBlocking() bool {
	return r&requestNonBlocking == 0
}

func (r MetadataRequest) String() string {
	if r.IsBlocking() {
		return r.State().String()
	}
	return r.State().String() + ", non-blocking"
}

// MetadataResponse is the (metadata, state) pair returned by an accessor.
type MetadataResponse struct {
	Metadata uintptr
	State    uint64
}

// MetadataState decodes the dynamic state of the returned metadata.
func (r MetadataResponse) MetadataState() MetadataState {
	return MetadataState(r.State & requestStateMask)
}

// IsComplete reports whether the returned metadata is fully initialized.
func (r MetadataResponse) IsComplete() bool {
	return r.MetadataState() == StateComplete
}

func (r MetadataResponse) String() string {
	return fmt.Sprintf("metadata=%#x state=%s", r.Metadata, r.MetadataState())
}
