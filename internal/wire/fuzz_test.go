package wire

import "testing"

// FuzzDecode feeds arbitrary bytes to Decode and requires it to either
// return a Request or ErrBadMessage — never panic, never hang, never read
// out of bounds. This is the fuzz target spec.md §1 and §8 scenario 6 call
// for (the Rust original used cargo-fuzz; this is the native Go analogue).
func FuzzDecode(f *testing.F) {
	seeds := [][]byte{
		nil,
		{0x00, 0x00, 0x00, 0x02, 0x01, 0x03},
		{0x00, 0x00, 0x00, 0x05, 0x03, 0, 0, 0, 1},
		{0xFF, 0xFF, 0xFF, 0xFF, 0x01},
		{0x00, 0x00, 0x00, 0x01, 0xEE},
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("Decode panicked on input %x: %v", data, r)
			}
		}()
		_, _ = Decode(data)
	})
}
