// README: Device fed by uploaded chunks, for clients that record locally and stream to the server.
package audio

import (
	"context"
	"io"
	"sync"
)

// PipeDevice turns client uploads into a capture stream. Write blocks until
// the recording session has consumed the chunk.
type PipeDevice struct {
	mu       sync.Mutex
	mimeType string
	denied   bool
	w        *io.PipeWriter
}

func NewPipeDevice() *PipeDevice {
	return &PipeDevice{}
}

// Configure records the client's permission answer and declared mime type
// before the next Open.
func (d *PipeDevice) Configure(granted bool, mimeType string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.denied = !granted
	d.mimeType = mimeType
}

func (d *PipeDevice) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.denied {
		return nil, ErrPermissionDenied
	}
	if d.w != nil {
		return nil, ErrDeviceBusy
	}
	r, w := io.Pipe()
	d.w = w
	return &pipeStream{r: r, w: w, dev: d, mimeType: d.mimeType}, nil
}

func (d *PipeDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	w := d.w
	d.mu.Unlock()
	if w == nil {
		return 0, ErrNotOpen
	}
	n, err := w.Write(p)
	if err == io.ErrClosedPipe {
		return n, ErrNotOpen
	}
	return n, err
}

type pipeStream struct {
	r        *io.PipeReader
	w        *io.PipeWriter
	dev      *PipeDevice
	mimeType string
}

func (s *pipeStream) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *pipeStream) MimeType() string { return s.mimeType }

func (s *pipeStream) Close() error {
	s.dev.mu.Lock()
	if s.dev.w == s.w {
		s.dev.w = nil
	}
	s.dev.mu.Unlock()
	s.w.Close()
	return s.r.Close()
}
