//go:build !release

package app

import "runtime"

// armLeakCheck panics when a buffer holding lines is garbage collected
// without a Drain call. Release builds compile this check out.
func armLeakCheck(b *Buffer) {
	runtime.SetFinalizer(b, func(b *Buffer) {
		if err := leakErr(b); err != nil {
			panic(err.Error())
		}
	})
}
