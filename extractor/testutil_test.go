package extractor

import (
	"strings"
	"sync"
	"time"

	"trademe-analyzer/dom"
)

func fixedClock() time.Time {
	return time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
}

type logBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (l *logBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *logBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

// panickyNode fails every text lookup but still exposes fragments.
type panickyNode struct{}

func (panickyNode) Tag() string                  { return "div" }
func (panickyNode) Text() string                 { panic("text unavailable") }
func (panickyNode) Attr(string) (string, bool)   { return "", false }
func (panickyNode) Query(string) []dom.Node      { return nil }
func (panickyNode) Fragments() []string          { return []string{"Sturdy garden bench"} }
func (panickyNode) Extent() dom.Extent           { return dom.Extent{} }
func (panickyNode) Contains(other dom.Node) bool { return false }
