package resource

import (
	"context"
	"io"
)

// ThrottledWriter applies the controller's ingestion rate limit to an
// io.Writer. Snapshot export runs its output through one so a backup cannot
// starve live traffic.
type ThrottledWriter struct {
	w   io.Writer
	rc  *Controller
	ctx context.Context
}

// NewThrottledWriter wraps w with the controller's ingestion limit.
func NewThrottledWriter(ctx context.Context, rc *Controller, w io.Writer) *ThrottledWriter {
	return &ThrottledWriter{w: w, rc: rc, ctx: ctx}
}

func (w *ThrottledWriter) Write(p []byte) (int, error) {
	if err := w.rc.ThrottleIngest(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}

// ThrottledReader applies the controller's ingestion rate limit to an
// io.Reader. The wait covers the full buffer size, which overcharges short
// reads but never admits more bytes than requested.
type ThrottledReader struct {
	r   io.Reader
	rc  *Controller
	ctx context.Context
}

// NewThrottledReader wraps r with the controller's ingestion limit.
func NewThrottledReader(ctx context.Context, rc *Controller, r io.Reader) *ThrottledReader {
	return &ThrottledReader{r: r, rc: rc, ctx: ctx}
}

func (r *ThrottledReader) Read(p []byte) (int, error) {
	if err := r.rc.ThrottleIngest(r.ctx, len(p)); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
