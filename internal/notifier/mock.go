package notifier

import (
	"sync"

	"github.com/mkrag/matchpoint/internal/match"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies for method calls
	SendMatchProposalFunc    func(m *match.Match) error
	SendMatchCancelledFunc   func(m *match.Match, reason string) error
	SendHostInstructionsFunc func(m *match.Match) error
	SendPartyCodeFunc        func(m *match.Match) error
	SendMatchResultFunc      func(m *match.Match, deltas map[string]int) error

	// Call records
	ProposalCalls  []*match.Match
	CancelledCalls []CancelledCall
	HostCalls      []*match.Match
	PartyCodeCalls []*match.Match
	ResultCalls    []ResultCall
}

// CancelledCall holds the arguments for a call to SendMatchCancelled.
type CancelledCall struct {
	Match  *match.Match
	Reason string
}

// ResultCall holds the arguments for a call to SendMatchResult.
type ResultCall struct {
	Match  *match.Match
	Deltas map[string]int
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProposalCalls = nil
	m.CancelledCalls = nil
	m.HostCalls = nil
	m.PartyCodeCalls = nil
	m.ResultCalls = nil
}

func (m *Mock) SendMatchProposal(mt *match.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProposalCalls = append(m.ProposalCalls, mt)
	if m.SendMatchProposalFunc != nil {
		return m.SendMatchProposalFunc(mt)
	}
	return nil
}

func (m *Mock) SendMatchCancelled(mt *match.Match, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CancelledCalls = append(m.CancelledCalls, CancelledCall{mt, reason})
	if m.SendMatchCancelledFunc != nil {
		return m.SendMatchCancelledFunc(mt, reason)
	}
	return nil
}

func (m *Mock) SendHostInstructions(mt *match.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HostCalls = append(m.HostCalls, mt)
	if m.SendHostInstructionsFunc != nil {
		return m.SendHostInstructionsFunc(mt)
	}
	return nil
}

func (m *Mock) SendPartyCode(mt *match.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PartyCodeCalls = append(m.PartyCodeCalls, mt)
	if m.SendPartyCodeFunc != nil {
		return m.SendPartyCodeFunc(mt)
	}
	return nil
}

func (m *Mock) SendMatchResult(mt *match.Match, deltas map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResultCalls = append(m.ResultCalls, ResultCall{mt, deltas})
	if m.SendMatchResultFunc != nil {
		return m.SendMatchResultFunc(mt, deltas)
	}
	return nil
}

// Proposals returns the recorded proposal notifications.
func (m *Mock) Proposals() []*match.Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*match.Match, len(m.ProposalCalls))
	copy(out, m.ProposalCalls)
	return out
}

// Cancelled returns the recorded cancellation notifications.
func (m *Mock) Cancelled() []CancelledCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CancelledCall, len(m.CancelledCalls))
	copy(out, m.CancelledCalls)
	return out
}

// Hosts returns the recorded host instruction notifications.
func (m *Mock) Hosts() []*match.Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*match.Match, len(m.HostCalls))
	copy(out, m.HostCalls)
	return out
}

// PartyCodes returns the recorded party code notifications.
func (m *Mock) PartyCodes() []*match.Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*match.Match, len(m.PartyCodeCalls))
	copy(out, m.PartyCodeCalls)
	return out
}

// Results returns the recorded result notifications.
func (m *Mock) Results() []ResultCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ResultCall, len(m.ResultCalls))
	copy(out, m.ResultCalls)
	return out
}

var _ Notifier = (*Mock)(nil)
