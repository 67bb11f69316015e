package generation

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle of one generation request
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateRequesting SessionState = "requesting"
	StateStreaming  SessionState = "streaming"
	StateCompleted  SessionState = "completed"
	StateFailed     SessionState = "failed"
)

// FileStatus is the per-file lifecycle within a session
type FileStatus string

const (
	FileCreating FileStatus = "creating"
	FileComplete FileStatus = "complete"
)

// SessionFile is the client-visible projection of a generated file
type SessionFile struct {
	Name    string     `json:"name"`
	Content string     `json:"content"`
	Status  FileStatus `json:"status"`
}

// ActivityKind labels one activity-log entry
type ActivityKind string

const (
	ActivityThought  ActivityKind = "thought"
	ActivityRead     ActivityKind = "read"
	ActivityEdited   ActivityKind = "edited"
	ActivityDeployed ActivityKind = "deployed"
	ActivityError    ActivityKind = "error"
)

// ActivityEntry is one append-only line of the session's activity log
type ActivityEntry struct {
	ID        string       `json:"id"`
	Kind      ActivityKind `json:"kind"`
	Message   string       `json:"message"`
	FileName  string       `json:"fileName,omitempty"`
	Details   string       `json:"details,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Session reduces the event stream of one generation request into an
// ordered file collection and an activity log. It is a state machine:
// idle -> requesting -> streaming -> completed | failed. Events arriving
// after a terminal state are dropped. Not safe for concurrent use; one
// goroutine owns a session.
type Session struct {
	state      SessionState
	files      []SessionFile
	index      map[string]int
	activity   []ActivityEntry
	failure    string
	buildError bool

	now   func() time.Time
	newID func() string
}

// NewSession creates an idle session
func NewSession() *Session {
	return &Session{
		state: StateIdle,
		index: make(map[string]int),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Begin marks the request as submitted, before any event has arrived
func (s *Session) Begin() {
	if s.state == StateIdle {
		s.state = StateRequesting
	}
}

// Apply folds one decoded event into the session. Files keep the order
// of first appearance. A file event for an unseen name creates the
// entry implicitly, because reordering of file_start against file must
// never be fatal.
func (s *Session) Apply(ev Event) {
	if s.state == StateCompleted || s.state == StateFailed {
		return
	}
	if s.state == StateRequesting || s.state == StateIdle {
		s.state = StateStreaming
	}

	switch ev.Type {
	case EventStatus, EventThinking:
		s.log(ActivityThought, ev.Message, "")

	case EventFileStart:
		s.upsert(ev.FileName, nil)
		s.log(ActivityRead, ev.Message, ev.FileName)

	case EventFile:
		s.upsert(ev.Data.Name, ev.Data)

	case EventFileComplete:
		if idx, ok := s.index[ev.FileName]; ok {
			s.files[idx].Status = FileComplete
		}
		s.log(ActivityEdited, ev.Message, ev.FileName)

	case EventComplete:
		// Covers dropped file_complete frames: everything still
		// creating is forced complete.
		for i := range s.files {
			s.files[i].Status = FileComplete
		}
		s.state = StateCompleted
		s.log(ActivityDeployed, ev.Message, "")

	case EventError:
		// Partial work is preserved, never rolled back
		s.state = StateFailed
		s.failure = ev.Message
		s.buildError = IsBuildError(ev.Message)
		s.log(ActivityError, ev.Message, "")
	}
}

func (s *Session) upsert(name string, data *GeneratedFile) {
	if idx, ok := s.index[name]; ok {
		if data != nil {
			s.files[idx].Content = data.Content
		}
		return
	}
	file := SessionFile{Name: name, Status: FileCreating}
	if data != nil {
		file.Content = data.Content
	}
	s.index[name] = len(s.files)
	s.files = append(s.files, file)
}

func (s *Session) log(kind ActivityKind, message, fileName string) {
	s.activity = append(s.activity, ActivityEntry{
		ID:        s.newID(),
		Kind:      kind,
		Message:   message,
		FileName:  fileName,
		Timestamp: s.now(),
	})
}

// State returns the current lifecycle state
func (s *Session) State() SessionState {
	return s.state
}

// Files returns the file collection in first-seen order
func (s *Session) Files() []SessionFile {
	out := make([]SessionFile, len(s.files))
	copy(out, s.files)
	return out
}

// Activity returns the append-only activity log
func (s *Session) Activity() []ActivityEntry {
	out := make([]ActivityEntry, len(s.activity))
	copy(out, s.activity)
	return out
}

// FailureMessage returns the error event's message, if the session failed
func (s *Session) FailureMessage() string {
	return s.failure
}

// BuildError reports whether the failure looked like a structural build
// problem, which the UI surfaces as a blocking modal instead of a toast
func (s *Session) BuildError() bool {
	return s.buildError
}

// Terminal reports whether the session accepts no further events
func (s *Session) Terminal() bool {
	return s.state == StateCompleted || s.state == StateFailed
}

// BuildErrorReporter returns the callback handed to the build/preview
// collaborator. A compile failure after completion moves the session to
// failed without discarding the generated files; the marker classifier
// decides whether the UI gets a blocking modal or a toast.
func (s *Session) BuildErrorReporter() BuildErrorFunc {
	return func(message string) {
		if s.state != StateCompleted {
			return
		}
		s.state = StateFailed
		s.failure = message
		s.buildError = IsBuildError(message)
		s.log(ActivityError, message, "")
	}
}
