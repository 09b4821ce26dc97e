package scanner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// LineDecoder reads newline-terminated codes from a keyboard-wedge style
// device or any other reader.
type LineDecoder struct {
	open func() (io.ReadCloser, error)

	mu sync.Mutex
	rc io.ReadCloser
}

// NewLineDecoder creates a decoder that calls open on every Start.
func NewLineDecoder(open func() (io.ReadCloser, error)) *LineDecoder {
	return &LineDecoder{open: open}
}

// NewDeviceDecoder reads codes from the device file at path.
func NewDeviceDecoder(path string) *LineDecoder {
	return NewLineDecoder(func() (io.ReadCloser, error) {
		return os.Open(path)
	})
}

// Start opens the reader and streams trimmed lines until it ends or ctx is done.
func (d *LineDecoder) Start(ctx context.Context) (<-chan string, error) {
	rc, err := d.open()
	if err != nil {
		return nil, fmt.Errorf("open scanner device: %w", err)
	}

	d.mu.Lock()
	d.rc = rc
	d.mu.Unlock()

	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(rc)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Stop closes the reader, which unblocks the read loop.
func (d *LineDecoder) Stop() error {
	d.mu.Lock()
	rc := d.rc
	d.rc = nil
	d.mu.Unlock()

	if rc == nil {
		return nil
	}
	return rc.Close()
}

var _ Decoder = (*LineDecoder)(nil)
