package oracle

import (
	"context"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Step is one scripted oracle reply.
type Step struct {
	Text string
	Err  error
}

// ResponderFunc computes a reply from the prompt and the zero-based call number.
type ResponderFunc func(prompt string, call int) (string, error)

// MockOracle implements Oracle for testing purposes.
// It replays a script of replies in call order, falls back to a responder
// function, and tracks calls for verification.
type MockOracle struct {
	mu sync.Mutex

	// Configured behavior
	script    []Step
	responder ResponderFunc
	err       error
	delay     time.Duration
	available bool

	inFlight    int
	maxInFlight int

	// Call tracking
	Calls []Call
}

// Call records a call to Invoke.
type Call struct {
	Prompt string
	Params Params
}

// NewMockOracle creates a new MockOracle with default settings.
// By default it is available and answers with SyntheticAnswer.
func NewMockOracle() *MockOracle {
	return &MockOracle{
		available: true,
		responder: SyntheticAnswer,
		Calls:     make([]Call, 0),
	}
}

// WithScript queues replies consumed one per call, in call order.
func (m *MockOracle) WithScript(steps ...Step) *MockOracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, steps...)
	return m
}

// WithResponse makes every unscripted call return text.
func (m *MockOracle) WithResponse(text string) *MockOracle {
	return m.WithResponder(func(string, int) (string, error) { return text, nil })
}

// WithResponder configures the function used once the script is exhausted.
func (m *MockOracle) WithResponder(fn ResponderFunc) *MockOracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
	return m
}

// WithError configures the error returned by every unscripted call.
func (m *MockOracle) WithError(err error) *MockOracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithDelay makes each call block for d, or until ctx is done.
func (m *MockOracle) WithDelay(d time.Duration) *MockOracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithAvailable configures whether Available() returns true or false.
func (m *MockOracle) WithAvailable(available bool) *MockOracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
	return m
}

// Name implements Oracle.
func (m *MockOracle) Name() string {
	return ProviderMock
}

// Available implements Checker.
func (m *MockOracle) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// Invoke implements Oracle.
// It records the call and returns the next scripted reply, the configured
// error, or the responder's answer, in that order of precedence.
func (m *MockOracle) Invoke(ctx context.Context, prompt string, params Params) (string, error) {
	m.mu.Lock()
	call := len(m.Calls)
	m.Calls = append(m.Calls, Call{Prompt: prompt, Params: params})
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	delay := m.delay
	var step *Step
	if len(m.script) > 0 {
		s := m.script[0]
		m.script = m.script[1:]
		step = &s
	}
	err := m.err
	responder := m.responder
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	if step != nil {
		return step.Text, step.Err
	}
	if err != nil {
		return "", err
	}
	if responder == nil {
		return "", nil
	}
	return responder(prompt, call)
}

// Reset clears all call tracking and configured behavior.
func (m *MockOracle) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = nil
	m.responder = SyntheticAnswer
	m.err = nil
	m.delay = 0
	m.available = true
	m.maxInFlight = 0
	m.Calls = make([]Call, 0)
}

// CallCount returns the number of times Invoke was called.
func (m *MockOracle) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MaxInFlight returns the highest number of concurrent Invoke calls observed.
func (m *MockOracle) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

var numberedOption = regexp.MustCompile(`(?m)^\d+\. `)

// SyntheticAnswer is a deterministic stand-in for a real model. It reads the
// answer format requested by the prompt and picks a well-formed reply from a
// hash of the prompt, so identical prompts always get identical answers.
func SyntheticAnswer(prompt string, _ int) (string, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	sum := int(h.Sum32() % 1024)

	switch {
	case strings.Contains(prompt, `"Yes" or "No"`):
		if sum%2 == 0 {
			return "Yes", nil
		}
		return "No", nil
	case strings.Contains(prompt, "from 1 to 5"):
		return strconv.Itoa(1 + sum%5), nil
	}

	if n := len(numberedOption.FindAllString(prompt, -1)); n > 0 {
		return strconv.Itoa(1 + sum%n), nil
	}
	return "", nil
}
