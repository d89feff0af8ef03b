package seoshub

import (
	"sync"

	"github.com/contexthub/seoshub/internal/interfaces"
)

// MockApp provides a mock implementation of interfaces.App for testing
// code that drives a Kernel. It tracks call counts and records every
// event it receives for later assertion.
type MockApp struct {
	mu sync.RWMutex

	initCalls   int
	endCalls    int
	handleCalls int

	initErr error
	tid     uint32
	ended   bool

	received []MockAppEvent
}

// MockAppEvent records one Handle call.
type MockAppEvent struct {
	EvtType uint32
	Data    interface{}
}

// NewMockApp creates a new mock app. If initErr is non-nil, Init returns
// it unconditionally, simulating an app that fails to initialize.
func NewMockApp(initErr error) *MockApp {
	return &MockApp{initErr: initErr}
}

// Init implements interfaces.App.
func (m *MockApp) Init(tid uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.initCalls++
	m.tid = tid
	return m.initErr
}

// End implements interfaces.App.
func (m *MockApp) End() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.endCalls++
	m.ended = true
}

// Handle implements interfaces.App.
func (m *MockApp) Handle(evtType uint32, data interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handleCalls++
	m.received = append(m.received, MockAppEvent{EvtType: evtType, Data: data})
}

// Tid returns the tid this app was assigned by its last Init call.
func (m *MockApp) Tid() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tid
}

// Ended reports whether End has been called.
func (m *MockApp) Ended() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ended
}

// Received returns a copy of every event delivered to Handle so far.
func (m *MockApp) Received() []MockAppEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]MockAppEvent, len(m.received))
	copy(out, m.received)
	return out
}

// CallCounts returns the number of times each App method has been called.
func (m *MockApp) CallCounts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]int{
		"init":   m.initCalls,
		"end":    m.endCalls,
		"handle": m.handleCalls,
	}
}

// Reset clears all call counters and received events.
func (m *MockApp) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.initCalls = 0
	m.endCalls = 0
	m.handleCalls = 0
	m.ended = false
	m.received = nil
}

var _ interfaces.App = (*MockApp)(nil)
