package proctor

import (
	"context"
	"sync"
	"testing"

	"github.com/quizora/quizora-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedReport struct {
	count int
	kind  model.ViolationKind
}

type captureReporter struct {
	mu      sync.Mutex
	reports []recordedReport
	err     error
}

func (r *captureReporter) ReportViolation(_ context.Context, count int, kind model.ViolationKind, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.reports = append(r.reports, recordedReport{count: count, kind: kind})
	return nil
}

func (r *captureReporter) all() []recordedReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedReport, len(r.reports))
	copy(out, r.reports)
	return out
}

func allOnConfig() model.QuizConfig {
	return model.QuizConfig{
		RequireFullscreen: true,
		DetectTabSwitch:   true,
		BlockClipboard:    true,
		BlockShortcuts:    true,
	}
}

func TestTabHiddenIncrementsAndReportsOnce(t *testing.T) {
	rep := &captureReporter{}
	m := NewMonitor(allOnConfig(), 0, rep, zerolog.Nop())

	d := m.Evaluate(context.Background(), Signal{Kind: SignalTabHidden})
	require.True(t, d.Counted)
	assert.Equal(t, 1, d.Count)
	assert.Equal(t, model.ViolationTabSwitch, d.Kind)
	assert.Contains(t, d.Warning, "1")

	reports := rep.all()
	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].count)
}

func TestRapidEventsCountExactly(t *testing.T) {
	rep := &captureReporter{}
	m := NewMonitor(allOnConfig(), 0, rep, zerolog.Nop())

	// Ten concurrent signals: the counter lands on exactly 10 and every
	// report carries a distinct value.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Evaluate(context.Background(), Signal{Kind: SignalTabHidden})
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, m.Count())
	reports := rep.all()
	require.Len(t, reports, 10)
	seen := map[int]bool{}
	for _, r := range reports {
		seen[r.count] = true
	}
	assert.Len(t, seen, 10, "no two reports may carry the same counter value")
}

func TestCounterSeededFromPersistedValue(t *testing.T) {
	m := NewMonitor(allOnConfig(), 4, nil, zerolog.Nop())
	d := m.Evaluate(context.Background(), Signal{Kind: SignalFullscreenExit})
	assert.Equal(t, 5, d.Count)
}

func TestInputTargetsExemptFromClipboardAndKeys(t *testing.T) {
	rep := &captureReporter{}
	m := NewMonitor(allOnConfig(), 0, rep, zerolog.Nop())

	// Copying inside an answer field is the student editing their own work.
	d := m.Evaluate(context.Background(), Signal{Kind: SignalCopy, Target: TargetInput})
	assert.False(t, d.Counted)
	assert.False(t, d.SuppressDefault)

	d = m.Evaluate(context.Background(), Signal{Kind: SignalKeyDown, Target: TargetEditable, Key: "c", Ctrl: true})
	assert.False(t, d.Counted)

	// The same events outside an input are violations.
	d = m.Evaluate(context.Background(), Signal{Kind: SignalCopy, Target: TargetOther})
	assert.True(t, d.Counted)
	assert.True(t, d.SuppressDefault)
	assert.Equal(t, model.ViolationCopyAttempt, d.Kind)

	assert.Equal(t, 1, m.Count())
	assert.Len(t, rep.all(), 1)
}

func TestDisabledProtectionsIgnoreSignals(t *testing.T) {
	m := NewMonitor(model.QuizConfig{}, 0, nil, zerolog.Nop())

	for _, sig := range []Signal{
		{Kind: SignalTabHidden},
		{Kind: SignalFullscreenExit},
		{Kind: SignalCopy, Target: TargetOther},
		{Kind: SignalKeyDown, Target: TargetOther, Key: "c", Ctrl: true},
	} {
		d := m.Evaluate(context.Background(), sig)
		assert.False(t, d.Counted, string(sig.Kind))
		assert.False(t, d.SuppressDefault, string(sig.Kind))
	}
	assert.Equal(t, 0, m.Count())
}

func TestKeyClassification(t *testing.T) {
	cases := []struct {
		name string
		sig  Signal
		kind model.ViolationKind
	}{
		{"print screen", Signal{Kind: SignalKeyDown, Key: "PrintScreen"}, model.ViolationPrintScreen},
		{"f12", Signal{Kind: SignalKeyDown, Key: "F12"}, model.ViolationShortcut},
		{"devtools inspector", Signal{Kind: SignalKeyDown, Key: "I", Ctrl: true, Shift: true}, model.ViolationShortcut},
		{"copy shortcut", Signal{Kind: SignalKeyDown, Key: "c", Ctrl: true}, model.ViolationCopyAttempt},
		{"cut shortcut", Signal{Kind: SignalKeyDown, Key: "x", Meta: true}, model.ViolationCopyAttempt},
		{"paste shortcut", Signal{Kind: SignalKeyDown, Key: "v", Ctrl: true}, model.ViolationPasteAttempt},
		{"select all", Signal{Kind: SignalKeyDown, Key: "a", Ctrl: true}, model.ViolationShortcut},
		{"print", Signal{Kind: SignalKeyDown, Key: "p", Ctrl: true}, model.ViolationShortcut},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMonitor(allOnConfig(), 0, nil, zerolog.Nop())
			tc.sig.Target = TargetOther
			d := m.Evaluate(context.Background(), tc.sig)
			require.True(t, d.Counted)
			assert.Equal(t, tc.kind, d.Kind)
			assert.True(t, d.SuppressDefault)
		})
	}
}

func TestHarmlessKeysPassThrough(t *testing.T) {
	m := NewMonitor(allOnConfig(), 0, nil, zerolog.Nop())

	for _, sig := range []Signal{
		{Kind: SignalKeyDown, Target: TargetOther, Key: "Enter"},
		{Kind: SignalKeyDown, Target: TargetOther, Key: "Tab"},
		{Kind: SignalKeyDown, Target: TargetOther, Key: "c"}, // no modifier
		{Kind: SignalKeyDown, Target: TargetOther, Key: "c", Shift: true},
	} {
		d := m.Evaluate(context.Background(), sig)
		assert.False(t, d.Counted, sig.Key)
		assert.False(t, d.SuppressDefault, sig.Key)
	}
}

func TestReportFailureNeverRollsBack(t *testing.T) {
	rep := &captureReporter{err: context.DeadlineExceeded}
	m := NewMonitor(allOnConfig(), 0, rep, zerolog.Nop())

	d := m.Evaluate(context.Background(), Signal{Kind: SignalTabHidden})
	assert.True(t, d.Counted)
	assert.Equal(t, 1, d.Count)
	assert.Equal(t, 1, m.Count())
}

func TestWarningNamesLimitWhenConfigured(t *testing.T) {
	cfg := allOnConfig()
	cfg.ViolationLimit = 3
	m := NewMonitor(cfg, 1, nil, zerolog.Nop())

	d := m.Evaluate(context.Background(), Signal{Kind: SignalTabHidden})
	assert.Contains(t, d.Warning, "2 of 3")
}

func TestSelectionSuppression(t *testing.T) {
	assert.False(t, NewMonitor(model.QuizConfig{}, 0, nil, zerolog.Nop()).SelectionSuppressed())
	assert.True(t, NewMonitor(model.QuizConfig{SuppressSelection: true}, 0, nil, zerolog.Nop()).SelectionSuppressed())
}
