// Package testutil provides in-memory test doubles for the harness: a
// mock transport implementing component.Messenger plus record builders
// for wire-level tests.
package testutil

import (
	"context"
	"encoding/binary"
	"sync"
)

// MockMessenger is an in-memory pub/sub transport for tests. Publishes
// are delivered synchronously to every handler subscribed to the subject,
// and also recorded for later inspection.
type MockMessenger struct {
	mu       sync.Mutex
	messages map[string][][]byte
	handlers map[string][]func(context.Context, []byte)
	limits   map[string]int

	// PublishErr, when set, is returned by every Publish call.
	PublishErr error
	// SubscribeErr, when set, is returned by every Subscribe call.
	SubscribeErr error
}

// NewMockMessenger creates an empty mock transport.
func NewMockMessenger() *MockMessenger {
	return &MockMessenger{
		messages: make(map[string][][]byte),
		handlers: make(map[string][]func(context.Context, []byte)),
		limits:   make(map[string]int),
	}
}

// Publish records data under subject and delivers it to subscribers.
// The data is copied, matching the transport contract that the caller
// may reuse the buffer after Publish returns.
func (m *MockMessenger) Publish(ctx context.Context, subject string, data []byte) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.messages[subject] = append(m.messages[subject], buf)
	handlers := append([]func(context.Context, []byte){}, m.handlers[subject]...)
	m.mu.Unlock()

	for _, h := range handlers {
		h(ctx, buf)
	}
	return nil
}

// Subscribe registers a handler for subject.
func (m *MockMessenger) Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error {
	return m.SubscribeWithLimits(ctx, subject, 0, handler)
}

// SubscribeWithLimits registers a handler and records the requested
// pending limit so tests can assert on it.
func (m *MockMessenger) SubscribeWithLimits(
	_ context.Context, subject string, pendingMsgs int, handler func(context.Context, []byte)) error {
	if m.SubscribeErr != nil {
		return m.SubscribeErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[subject] = append(m.handlers[subject], handler)
	m.limits[subject] = pendingMsgs
	return nil
}

// GetMessages returns a copy of everything published to subject.
func (m *MockMessenger) GetMessages(subject string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.messages[subject]))
	copy(out, m.messages[subject])
	return out
}

// MessageCount returns how many messages were published to subject.
func (m *MockMessenger) MessageCount(subject string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages[subject])
}

// PendingLimit returns the pending limit requested for subject's
// subscription, or 0 if none was set.
func (m *MockMessenger) PendingLimit(subject string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limits[subject]
}

// Clear drops all recorded messages, keeping subscriptions.
func (m *MockMessenger) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = make(map[string][][]byte)
}

// Record builds one wire record: vlen copies of value in native order.
func Record(value uint64, vlen int) []byte {
	buf := make([]byte, vlen*8)
	for i := 0; i < vlen; i++ {
		binary.NativeEndian.PutUint64(buf[i*8:], value)
	}
	return buf
}

// Records builds consecutive wire records for values [start, start+n).
func Records(start uint64, n, vlen int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = Record(start+uint64(i), vlen)
	}
	return out
}
