package wandmux

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// TestableWandPort implements WandPorter with configurable behaviour for
// tests: scripted read data, captured writes, injectable errors, and
// optional latency.
type TestableWandPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadLatency adds a delay to each Read call
	ReadLatency time.Duration

	// ReadError is returned by the next Read call if set
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// ReadCalls and WriteCalls record call counts
	ReadCalls  int
	WriteCalls int

	// BlockReads causes Read to block until data is added or Close is called
	BlockReads bool

	readCond *sync.Cond
}

// NewTestableWandPort creates a new TestableWandPort.
func NewTestableWandPort() *TestableWandPort {
	p := &TestableWandPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	p.readCond = sync.NewCond(&p.mu)
	return p
}

// Read reads from the read buffer, optionally simulating latency and errors.
func (p *TestableWandPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ReadCalls++

	if p.Closed {
		return 0, errors.New("wand port closed")
	}

	if p.ReadError != nil {
		err := p.ReadError
		p.ReadError = nil
		return 0, err
	}

	if p.ReadLatency > 0 {
		p.mu.Unlock()
		time.Sleep(p.ReadLatency)
		p.mu.Lock()
	}

	if p.BlockReads && p.ReadBuffer.Len() == 0 {
		for !p.Closed && p.ReadBuffer.Len() == 0 {
			p.readCond.Wait()
		}
		if p.Closed {
			return 0, errors.New("wand port closed")
		}
	}

	return p.ReadBuffer.Read(b)
}

// Write writes to the write buffer, optionally simulating errors.
func (p *TestableWandPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.WriteCalls++

	if p.Closed {
		return 0, errors.New("wand port closed")
	}

	if p.WriteError != nil {
		err := p.WriteError
		p.WriteError = nil
		return 0, err
	}

	return p.WriteBuffer.Write(b)
}

// Close marks the port as closed and wakes any blocked readers.
func (p *TestableWandPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Closed = true
	p.readCond.Broadcast()

	return p.CloseError
}

// AddReadData adds data to be returned by subsequent Read calls.
func (p *TestableWandPort) AddReadData(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ReadBuffer.Write(data)
	p.readCond.Signal()
}

// GetWrittenData returns all data written to the port.
func (p *TestableWandPort) GetWrittenData() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.WriteBuffer.Bytes()
}
