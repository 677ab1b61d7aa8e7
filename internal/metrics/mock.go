package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                  sync.Mutex
	queueJoins          map[string]int
	queueLeaves         int
	matchesCreated      map[string]int
	matchesFinished     int
	matchesCancelled    int
	tickDurations       []float64
	settlementDurations []float64
	notifSent           int
	notifFailed         int
	startupTime         float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		queueJoins:     make(map[string]int),
		matchesCreated: make(map[string]int),
	}
}

func (m *Mock) IncQueueJoins(mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueJoins[mode]++
}

func (m *Mock) IncQueueLeaves() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueLeaves++
}

func (m *Mock) IncMatchesCreated(mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesCreated[mode]++
}

func (m *Mock) IncMatchesFinished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesFinished++
}

func (m *Mock) IncMatchesCancelled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesCancelled++
}

func (m *Mock) ObserveTickDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickDurations = append(m.tickDurations, duration)
}

func (m *Mock) ObserveSettlementDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlementDurations = append(m.settlementDurations, duration)
}

func (m *Mock) IncNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifSent++
}

func (m *Mock) IncNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// QueueJoins returns the join count recorded for the mode.
func (m *Mock) QueueJoins(mode string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queueJoins[mode]
}

// MatchesCreated returns the creation count recorded for the mode.
func (m *Mock) MatchesCreated(mode string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesCreated[mode]
}

// MatchesFinished returns the number of times IncMatchesFinished was called.
func (m *Mock) MatchesFinished() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesFinished
}

// MatchesCancelled returns the number of times IncMatchesCancelled was called.
func (m *Mock) MatchesCancelled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesCancelled
}

// NotifSent returns the number of times IncNotifSent was called.
func (m *Mock) NotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifSent
}

// NotifFailed returns the number of times IncNotifFailed was called.
func (m *Mock) NotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifFailed
}

var _ Metrics = (*Mock)(nil)
