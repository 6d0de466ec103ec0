package clock

import "time"

// Clock interface abstracts time operations for testing
type Clock interface {
	// Now returns the current time
	Now() time.Time
	// Sleep pauses the calling goroutine for at least the duration d
	Sleep(d time.Duration)
}

// RealClock implements Clock using the real system time
type RealClock struct{}

// Now returns the current time
func (RealClock) Now() time.Time {
	return time.Now()
}

// Sleep pauses for the given duration
func (RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// MockClock implements Clock for testing
type MockClock struct {
	CurrentTime time.Time
	Slept       []time.Duration
}

// Now returns the mocked current time
func (m *MockClock) Now() time.Time {
	return m.CurrentTime
}

// Sleep records the requested duration and advances the mocked time
func (m *MockClock) Sleep(d time.Duration) {
	m.Slept = append(m.Slept, d)
	m.CurrentTime = m.CurrentTime.Add(d)
}

// Advance moves the mocked time forward by the given duration
func (m *MockClock) Advance(d time.Duration) {
	m.CurrentTime = m.CurrentTime.Add(d)
}

// Set sets the mocked current time to a specific value
func (m *MockClock) Set(t time.Time) {
	m.CurrentTime = t
}

// Ensure implementations satisfy the interface
var (
	_ Clock = RealClock{}
	_ Clock = (*MockClock)(nil)
)
