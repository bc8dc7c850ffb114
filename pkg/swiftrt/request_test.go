package swiftrt

import "testing"

func TestMetadataRequest(t *testing.T) {
	tests := []struct {
		name     string
		state    MetadataState
		blocking bool
		want     MetadataRequest
	}{
		{name: "complete blocking", state: StateComplete, blocking: true, want: 0},
		{name: "complete non-blocking", state: StateComplete, blocking: false, want: 0x100},
		{name: "abstract", state: StateAbstract, blocking: true, want: 0xff},
		{name: "layout non-blocking", state: StateLayoutComplete, blocking: false, want: 0x13f},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewMetadataRequest(tt.state, tt.blocking)
			if got != tt.want {
				t.Errorf("NewMetadataRequest() = %#x, want %#x", uint64(got), uint64(tt.want))
			}
			if got.State() != tt.state || got.IsBlocking() != tt.blocking {
				t.Errorf("decoded (%s, %t), want (%s, %t)", got.State(), got.IsBlocking(), tt.state, tt.blocking)
			}
		})
	}
}

func TestMetadataResponseState(t *testing.T) {
	r := MetadataResponse{Metadata: 0x1000, State: 0x3f}
	if r.MetadataState() != StateLayoutComplete || r.IsComplete() {
		t.Errorf("MetadataState() = %s", r.MetadataState())
	}
	if !(MetadataResponse{State: 0}).IsComplete() {
		t.Error("state 0 should be complete")
	}
}
