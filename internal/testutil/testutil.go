// Package testutil provides test doubles for the decoding capability and the
// submission client.
package testutil

import (
	"context"
	"sync"

	"github.com/Iron-Ham/invscan/internal/decoder"
	"github.com/Iron-Ham/invscan/internal/submit"
)

// FakeCapability is a decoder.Capability that records every handle it
// creates. Set AttachErr or StartErr to simulate failures.
type FakeCapability struct {
	mu sync.Mutex

	// AttachErr is returned by Attach when non-nil.
	AttachErr error
	// StartErr is returned by Start on handles created after it is set.
	StartErr error
	// StartGate, when non-nil, makes Start block until it is closed or the
	// start context is canceled.
	StartGate chan struct{}

	handles []*FakeHandle
}

// Attach creates a FakeHandle.
func (f *FakeCapability) Attach(video decoder.Surface, onDecoded func(decoder.Result), opts decoder.Options) (decoder.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.AttachErr != nil {
		return nil, f.AttachErr
	}
	h := &FakeHandle{
		Video:     video,
		Opts:      opts,
		onDecoded: onDecoded,
		startErr:  f.StartErr,
		gate:      f.StartGate,
	}
	f.handles = append(f.handles, h)
	return h, nil
}

// Attaches returns how many handles were created.
func (f *FakeCapability) Attaches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

// Handles returns every handle created so far.
func (f *FakeCapability) Handles() []*FakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*FakeHandle, len(f.handles))
	copy(out, f.handles)
	return out
}

// Last returns the most recent handle, or nil.
func (f *FakeCapability) Last() *FakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.handles) == 0 {
		return nil
	}
	return f.handles[len(f.handles)-1]
}

// FakeHandle is a decoder.Handle driven by the test.
type FakeHandle struct {
	Video decoder.Surface
	Opts  decoder.Options

	onDecoded func(decoder.Result)
	startErr  error
	gate      chan struct{}

	mu     sync.Mutex
	starts int
	stops  int
}

// Start records the call and returns the configured error.
func (h *FakeHandle) Start(ctx context.Context) error {
	h.mu.Lock()
	h.starts++
	gate := h.gate
	h.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return h.startErr
}

// Stop records the call.
func (h *FakeHandle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
	return nil
}

// Emit invokes the success callback the way a decoder would, regardless of
// whether the handle was stopped.
func (h *FakeHandle) Emit(data string) {
	if h.onDecoded != nil {
		h.onDecoded(decoder.Result{Data: data})
	}
}

// EmitError invokes the per-frame error callback.
func (h *FakeHandle) EmitError(err error) {
	if h.Opts.OnDecodeError != nil {
		h.Opts.OnDecodeError(err)
	}
}

// Fail reports the decoder stopping on its own.
func (h *FakeHandle) Fail(err error) {
	if h.Opts.OnFailure != nil {
		h.Opts.OnFailure(err)
	}
}

// Starts returns how many times Start was called.
func (h *FakeHandle) Starts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.starts
}

// Stops returns how many times Stop was called.
func (h *FakeHandle) Stops() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stops
}

// FakeClient is a submit.Client that records submitted records.
type FakeClient struct {
	mu sync.Mutex

	// Receipt is returned on success. Defaults to an empty receipt.
	Receipt *submit.Receipt
	// Err is returned when non-nil.
	Err error
	// Gate, when non-nil, makes Submit block until it is closed or ctx ends.
	Gate chan struct{}

	records []submit.Record
}

// Submit records rec and returns the configured outcome.
func (c *FakeClient) Submit(ctx context.Context, rec submit.Record) (*submit.Receipt, error) {
	c.mu.Lock()
	c.records = append(c.records, rec)
	gate, err, receipt := c.Gate, c.Err, c.Receipt
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		receipt = &submit.Receipt{}
	}
	return receipt, nil
}

// SetResult changes the outcome of later calls.
func (c *FakeClient) SetResult(receipt *submit.Receipt, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Receipt, c.Err = receipt, err
}

// Calls returns how many requests were made.
func (c *FakeClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Records returns every submitted record.
func (c *FakeClient) Records() []submit.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]submit.Record, len(c.records))
	copy(out, c.records)
	return out
}
