// Package secure provides hardened in-memory storage for decrypted
// session credentials: mlock where the platform supports it, explicit
// zeroing, and a finalizer backstop. Credentials never touch durable
// storage; this package is their only resting place.
package secure

import (
	"runtime"
	"sync"
)

// Buffer holds sensitive bytes in memory that is locked against swap
// when possible and zeroed on destruction.
type Buffer struct {
	data   []byte
	locked bool
	mu     sync.Mutex
}

// NewBuffer allocates a locked buffer of the given size.
func NewBuffer(size int) *Buffer {
	data := make([]byte, size)

	b := &Buffer{data: data}
	// Lock best-effort; ulimits may forbid it and that is not fatal.
	b.locked = mlock(data)

	// Finalizer backstop so credentials are cleared even if Destroy is
	// never called.
	runtime.SetFinalizer(b, func(buf *Buffer) {
		buf.Destroy()
	})

	return b
}

// FromSlice copies data into a fresh locked buffer. The caller remains
// responsible for zeroing its own copy.
func FromSlice(data []byte) *Buffer {
	b := NewBuffer(len(data))
	copy(b.data, data)
	return b
}

// Bytes returns the underlying slice, or nil after Destroy.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

// Len returns the buffer length, 0 after Destroy.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Locked reports whether the memory is mlocked.
func (b *Buffer) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

// Destroy zeros and unlocks the memory. Safe to call multiple times.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.data == nil {
		return
	}

	Zero(b.data)

	if b.locked {
		munlock(b.data)
		b.locked = false
	}

	b.data = nil
	runtime.SetFinalizer(b, nil)
}

// Zero overwrites a byte slice in place. runtime.KeepAlive prevents the
// compiler from eliding the writes as dead stores.
func Zero(data []byte) {
	for i := range data {
		data[i] = 0
	}
	runtime.KeepAlive(data)
}
