package editor

import "sync"

// Event names emitted by editors.
const (
	EventNotice         = "notice"
	EventChanged        = "document.changed"
	EventSaved          = "document.saved"
	EventAutosaveFailed = "autosave.failed"
)

// Emitter delivers editor events for one project to connected clients.
// The SSE broker implements it; tests use MockEmitter.
type Emitter interface {
	Emit(projectID, event string, data any)
}

type noopEmitter struct{}

func (noopEmitter) Emit(string, string, any) {}

// Level is the severity of a Notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a non-fatal, dismissable message for the user.
type Notice struct {
	Level   Level  `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ChangeInfo is the payload of EventChanged.
type ChangeInfo struct {
	Revision uint64 `json:"revision"`
	CanUndo  bool   `json:"canUndo"`
	CanRedo  bool   `json:"canRedo"`
}

// MockEmitter records every emitted event. It is safe for concurrent use
// because autosave outcomes arrive on timer goroutines.
type MockEmitter struct {
	mu     sync.Mutex
	events []EmittedEvent
}

// EmittedEvent is one recorded emission.
type EmittedEvent struct {
	ProjectID string
	Event     string
	Data      any
}

// Emit records the event.
func (m *MockEmitter) Emit(projectID, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, EmittedEvent{ProjectID: projectID, Event: event, Data: data})
}

// Events returns a copy of everything recorded so far.
func (m *MockEmitter) Events() []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmittedEvent(nil), m.events...)
}

// Named returns the recorded events with the given name.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	var out []EmittedEvent
	for _, e := range m.Events() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// Notices returns the payloads of recorded notices.
func (m *MockEmitter) Notices() []Notice {
	var out []Notice
	for _, e := range m.Named(EventNotice) {
		if n, ok := e.Data.(Notice); ok {
			out = append(out, n)
		}
	}
	return out
}
