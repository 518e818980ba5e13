package input

import (
	"context"
	"io"
)

// Read copies bytes from r into the returned channel until r fails or ctx is
// done. The channel is closed when the goroutine exits. A blocked Read on a
// terminal cannot be interrupted, so after cancellation the goroutine exits
// on the next byte.
func Read(ctx context.Context, r io.Reader) <-chan byte {
	out := make(chan byte, 64)
	go func() {
		defer close(out)
		buf := make([]byte, 32)
		for {
			n, err := r.Read(buf)
			for _, b := range buf[:n] {
				select {
				case out <- b:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	return out
}
