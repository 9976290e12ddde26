package app

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// State is a pipeline lifecycle stage.
type State int32

const (
	StateIdle State = iota
	StateLoadingConditions
	StateProcessingFile
	StateWritingFileResult
	StateMerging
	StateDone
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingConditions:
		return "loading-conditions"
	case StateProcessingFile:
		return "processing-file"
	case StateWritingFileResult:
		return "writing-file-result"
	case StateMerging:
		return "merging"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Progress is a point-in-time view of a run. Total <= 0 means the row count
// is unknown.
type Progress struct {
	File      string
	Processed int64
	Total     int64
	Matched   int64
	Elapsed   time.Duration
}

// EventKind classifies events delivered on RunContext.Events.
type EventKind int

const (
	EventProgress EventKind = iota
	EventLog
	EventState
)

// Event is a progress, log or state notification.
type Event struct {
	Kind     EventKind
	Progress Progress
	Message  string
	State    State
}

// defaultLogWait bounds how long a log event waits for room in the event
// buffer.
const defaultLogWait = 500 * time.Millisecond

// RunContext is the state shared between a running pipeline and whoever
// drives it. Counters are atomic so a UI can poll Snapshot at any interval.
// Progress and state events are dropped when the buffer is full; log events
// wait up to logWait for the reader to catch up.
type RunContext struct {
	ID string

	logWait time.Duration

	state     atomic.Int32
	cancelled atomic.Bool
	file      atomic.Value
	processed atomic.Int64
	total     atomic.Int64
	matched   atomic.Int64
	started   atomic.Int64

	events chan Event
}

// NewRunContext creates a run context with an event buffer of the given size.
func NewRunContext(buffer int) *RunContext {
	if buffer < 0 {
		buffer = 0
	}
	rc := &RunContext{ID: uuid.NewString(), logWait: defaultLogWait, events: make(chan Event, buffer)}
	rc.file.Store("")
	rc.started.Store(time.Now().UnixNano())
	return rc
}

// Events returns the buffered event stream. It is never closed.
func (r *RunContext) Events() <-chan Event {
	return r.events
}

// Cancel requests cooperative cancellation; it is honored between chunks.
func (r *RunContext) Cancel() {
	r.cancelled.Store(true)
}

// Cancelled reports whether Cancel was called.
func (r *RunContext) Cancelled() bool {
	return r.cancelled.Load()
}

// State returns the current lifecycle stage.
func (r *RunContext) State() State {
	return State(r.state.Load())
}

// Snapshot returns the current file-level progress.
func (r *RunContext) Snapshot() Progress {
	file, _ := r.file.Load().(string)
	return Progress{
		File:      file,
		Processed: r.processed.Load(),
		Total:     r.total.Load(),
		Matched:   r.matched.Load(),
		Elapsed:   time.Since(time.Unix(0, r.started.Load())),
	}
}

func (r *RunContext) setState(s State) {
	r.state.Store(int32(s))
	r.emit(Event{Kind: EventState, State: s})
}

// startFile resets the per-file counters.
func (r *RunContext) startFile(name string, total int64) {
	r.file.Store(name)
	r.processed.Store(0)
	r.matched.Store(0)
	r.total.Store(total)
	r.started.Store(time.Now().UnixNano())
}

func (r *RunContext) logf(format string, args ...any) {
	ev := Event{Kind: EventLog, Message: fmt.Sprintf(format, args...)}
	select {
	case r.events <- ev:
		return
	default:
	}
	if r.logWait <= 0 {
		return
	}
	timer := time.NewTimer(r.logWait)
	defer timer.Stop()
	select {
	case r.events <- ev:
	case <-timer.C:
	}
}

func (r *RunContext) emit(ev Event) {
	select {
	case r.events <- ev:
	default:
	}
}

// RenderBar draws a fixed-width text bar such as "[#####-----] 50%". An
// unknown total renders as "[----------] ??%".
func RenderBar(done, total int64, width int) string {
	if total <= 0 || done < 0 {
		return "[" + strings.Repeat("-", width) + "] ??%"
	}
	pct := done * 100 / total
	pct = max(0, min(100, pct))
	filled := int(int64(width) * pct / 100)
	return fmt.Sprintf("[%s%s] %02d%%", strings.Repeat("#", filled), strings.Repeat("-", width-filled), pct)
}

// FormatElapsed renders a duration as HH:MM:SS.
func FormatElapsed(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// ProgressText renders the progress line shown to operators.
func ProgressText(p Progress) string {
	total := "?"
	if p.Total > 0 {
		total = humanize.Comma(p.Total)
	}
	return fmt.Sprintf("%s 已处理 %s/%s 行 | 已运行 %s | 命中 %s 行",
		RenderBar(p.Processed, p.Total, 30), humanize.Comma(p.Processed), total,
		FormatElapsed(p.Elapsed), humanize.Comma(p.Matched))
}
