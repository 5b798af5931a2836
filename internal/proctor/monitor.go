// Package proctor turns client-reported proctoring signals into violation
// events: a monotonically increasing counter, a server report per event and
// a user-visible warning. The monitor only reports — it never decrements the
// counter and never decides to submit the attempt.
package proctor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/quizora/quizora-backend/internal/model"
	"github.com/rs/zerolog"
)

// SignalKind identifies the raw client-side event class.
type SignalKind string

const (
	SignalTabHidden      SignalKind = "tab_hidden"
	SignalFullscreenExit SignalKind = "fullscreen_exit"
	SignalCopy           SignalKind = "copy"
	SignalCut            SignalKind = "cut"
	SignalKeyDown        SignalKind = "keydown"
)

// TargetKind classifies the event target. Students must be able to edit
// their own answers, so input and contenteditable targets are exempt from
// clipboard and keyboard interception.
type TargetKind string

const (
	TargetInput    TargetKind = "input"
	TargetEditable TargetKind = "editable"
	TargetOther    TargetKind = "other"
)

// Signal is one raw proctoring-relevant event reported by the client.
type Signal struct {
	Kind   SignalKind `json:"kind"`
	Target TargetKind `json:"target"`
	// Keyboard fields, set when Kind is keydown.
	Key   string `json:"key,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Shift bool   `json:"shift,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
}

// Decision is the monitor's verdict on a signal.
type Decision struct {
	// Counted is true when the signal produced a violation.
	Counted bool `json:"counted"`
	// Count is the violation counter after this signal.
	Count int                 `json:"count"`
	Kind  model.ViolationKind `json:"kind,omitempty"`
	// Warning is shown to the student, naming the violation, the new count
	// and the configured limit when one exists.
	Warning string `json:"warning,omitempty"`
	// SuppressDefault instructs the client to cancel the browser's default
	// action for the intercepted event.
	SuppressDefault bool `json:"suppress_default"`
}

// Reporter delivers each new counter value to the server. Fire-and-forget
// from the monitor's perspective: a failed report is logged, never blocks
// and never rolls the counter back.
type Reporter interface {
	ReportViolation(ctx context.Context, count int, kind model.ViolationKind, detail string) error
}

// Monitor evaluates signals under one mutex so that two violation classes
// firing in the same instant serialize: the counter never skips and never
// double-counts, and every report carries the value it was incremented to.
type Monitor struct {
	mu       sync.Mutex
	cfg      model.QuizConfig
	count    int
	reporter Reporter
	log      zerolog.Logger
}

// NewMonitor creates a Monitor seeded with the attempt's persisted violation
// count.
func NewMonitor(cfg model.QuizConfig, initialCount int, reporter Reporter, log zerolog.Logger) *Monitor {
	return &Monitor{
		cfg:      cfg,
		count:    initialCount,
		reporter: reporter,
		log:      log.With().Str("component", "violation_monitor").Logger(),
	}
}

// Count returns the current violation counter.
func (m *Monitor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// SelectionSuppressed reports whether global text selection outside input
// fields should be disabled. A UX directive for the client, not a violation.
func (m *Monitor) SelectionSuppressed() bool {
	return m.cfg.SuppressSelection
}

// Evaluate classifies a signal and, when it is a violation under the quiz
// configuration, increments the counter and reports the new value.
func (m *Monitor) Evaluate(ctx context.Context, sig Signal) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	kind, detail, suppress, counted := m.classify(sig)
	if !counted {
		return Decision{SuppressDefault: suppress}
	}

	m.count++
	d := Decision{
		Counted:         true,
		Count:           m.count,
		Kind:            kind,
		Warning:         m.warning(kind),
		SuppressDefault: suppress,
	}

	if m.reporter != nil {
		if err := m.reporter.ReportViolation(ctx, m.count, kind, detail); err != nil {
			m.log.Warn().Err(err).Int("count", m.count).Str("kind", string(kind)).Msg("Violation report failed")
		}
	}
	return d
}

// classify maps a signal to a violation kind under the configured
// protections. suppress is returned even for exempt keyboard targets so the
// client still cancels nothing it shouldn't.
func (m *Monitor) classify(sig Signal) (kind model.ViolationKind, detail string, suppress, counted bool) {
	switch sig.Kind {
	case SignalTabHidden:
		if !m.cfg.DetectTabSwitch {
			return "", "", false, false
		}
		return model.ViolationTabSwitch, "document hidden", false, true

	case SignalFullscreenExit:
		if !m.cfg.RequireFullscreen {
			return "", "", false, false
		}
		return model.ViolationFullscreenExit, "left fullscreen", false, true

	case SignalCopy, SignalCut:
		if !m.cfg.BlockClipboard || exemptTarget(sig.Target) {
			return "", "", false, false
		}
		return model.ViolationCopyAttempt, string(sig.Kind) + " outside input", true, true

	case SignalKeyDown:
		if !m.cfg.BlockShortcuts || exemptTarget(sig.Target) {
			return "", "", false, false
		}
		return classifyKey(sig)

	default:
		return "", "", false, false
	}
}

func exemptTarget(t TargetKind) bool {
	return t == TargetInput || t == TargetEditable
}

// classifyKey matches intercepted shortcut combinations. Every match is both
// counted and suppressed.
func classifyKey(sig Signal) (model.ViolationKind, string, bool, bool) {
	key := strings.ToLower(sig.Key)
	mod := sig.Ctrl || sig.Meta

	if key == "printscreen" {
		return model.ViolationPrintScreen, "print screen", true, true
	}
	if key == "f12" {
		return model.ViolationShortcut, "devtools (F12)", true, true
	}
	if mod && sig.Shift && (key == "i" || key == "j" || key == "c") {
		return model.ViolationShortcut, "devtools (ctrl+shift+" + key + ")", true, true
	}
	if mod && !sig.Shift {
		switch key {
		case "c", "x":
			return model.ViolationCopyAttempt, "ctrl+" + key, true, true
		case "v":
			return model.ViolationPasteAttempt, "ctrl+v", true, true
		case "a", "p", "s":
			return model.ViolationShortcut, "ctrl+" + key, true, true
		}
	}
	return "", "", false, false
}

// warning builds the student-facing message. Caller holds the lock.
func (m *Monitor) warning(kind model.ViolationKind) string {
	if m.cfg.ViolationLimit > 0 {
		return fmt.Sprintf("Violation detected: %s. This is violation %d of %d allowed.",
			kind.Label(), m.count, m.cfg.ViolationLimit)
	}
	return fmt.Sprintf("Violation detected: %s. Total violations: %d.", kind.Label(), m.count)
}
