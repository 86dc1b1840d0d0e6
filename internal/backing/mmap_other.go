//go:build !unix

package backing

import "os"

func hostPageSize() int {
	return os.Getpagesize()
}

// reserve allocates the whole range up front. The Go heap does not move
// objects, so the base address is stable for the life of the slice.
func reserve(n uint64) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	return make([]byte, n), nil
}

func commit([]byte) error { return nil }

func release([]byte) error { return nil }
