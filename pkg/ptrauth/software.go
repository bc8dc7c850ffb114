package ptrauth

const (
	addressMask       = 0x0000_ffff_ffff_ffff
	discriminatorBits = 16
	blendShift        = 64 - discriminatorBits
)

// Software is the Authenticator used when the process runs without pointer
// authentication.
type Software struct{}

// Sign returns ptr unchanged.
func (Software) Sign(ptr uintptr, _ Key, _ uint64) uintptr { return ptr }

// Strip returns ptr unchanged.
func (Software) Strip(ptr uintptr, _ Key) uintptr { return ptr }

// Blend places the low 16 bits of discriminator above the 48-bit address, the
// same packing the arm64e blend instruction sequence produces.
func (Software) Blend(ptr uintptr, discriminator uint64) uint64 {
	return uint64(ptr)&addressMask | (discriminator&(1<<discriminatorBits-1))<<blendShift
}

// Enabled always reports false.
func (Software) Enabled() bool { return false }
