//go:build !cgo

package ptrauth

func newHardware() (Authenticator, bool) {
	return nil, false
}
