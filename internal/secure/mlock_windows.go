//go:build windows

package secure

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// mlock pins data's pages so credential material cannot be swapped out.
// A false return means the pages stay pageable; callers treat that as
// best-effort and continue.
func mlock(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	addr := uintptr(unsafe.Pointer(&data[0]))
	return windows.VirtualLock(addr, uintptr(len(data))) == nil
}

// munlock releases pages previously pinned by mlock.
func munlock(data []byte) {
	if len(data) == 0 {
		return
	}
	addr := uintptr(unsafe.Pointer(&data[0]))
	_ = windows.VirtualUnlock(addr, uintptr(len(data)))
}
