package service

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter / Notifier: decouple services from wailsRuntime
// ─────────────────────────────────────────────────────────────

// EventEmitter is an interface for emitting events to the frontend.
// The App struct implements this by delegating to wailsRuntime.EventsEmit.
// Services receive this interface instead of a wailsRuntime context,
// which makes them independently testable with a mock emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Notifier shows modal messages to the user.
// The App struct implements this with native message dialogs.
type Notifier interface {
	Info(title, message string)
	Warning(title, message string)
	Error(title, message string)
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, string, any) {}

type noopNotifier struct{}

func (noopNotifier) Info(string, string)    {}
func (noopNotifier) Warning(string, string) {}
func (noopNotifier) Error(string, string)   {}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns a copy of the recorded emissions of one event.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// MockNotifier records modal messages.
type MockNotifier struct {
	mu       sync.Mutex
	Messages []Notice
}

// Notice is one recorded modal message.
type Notice struct {
	Level   string // "info" | "warning" | "error"
	Title   string
	Message string
}

func (m *MockNotifier) record(level, title, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, Notice{Level: level, Title: title, Message: message})
}

func (m *MockNotifier) Info(title, message string)    { m.record("info", title, message) }
func (m *MockNotifier) Warning(title, message string) { m.record("warning", title, message) }
func (m *MockNotifier) Error(title, message string)   { m.record("error", title, message) }

// Level returns a copy of the recorded messages at one level.
func (m *MockNotifier) Level(level string) []Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notice
	for _, n := range m.Messages {
		if n.Level == level {
			out = append(out, n)
		}
	}
	return out
}
