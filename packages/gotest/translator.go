package gotest

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/kernspec/packages/event"
	"go.uber.org/zap"
)

// NoResultMessage is the exception message of tests that never reported a
// result, typically because the test binary panicked or was killed. Any
// output the test printed follows it on the next line.
const NoResultMessage = "no result reported"

type testState struct {
	name        string
	parent      *testState
	group       *event.Group
	output      []string
	childFailed bool
}

type packageState struct {
	name    string
	group   *event.Group
	started bool
	failed  bool
	output  []string
	tests   map[string]*testState
	order   []*testState
}

// Translator maps test2json events onto an event.Reporter. It is not safe for
// concurrent use.
type Translator struct {
	reporter *event.Reporter
	logger   *zap.Logger

	packages map[string]*packageState
	order    []*packageState
	build    map[string][]string

	first, last time.Time
	closed      bool
}

type TranslatorOption func(*Translator)

func WithLogger(logger *zap.Logger) TranslatorOption {
	return func(t *Translator) {
		t.logger = logger
	}
}

func NewTranslator(r *event.Reporter, opts ...TranslatorOption) *Translator {
	t := &Translator{
		reporter: r,
		logger:   zap.NewNop(),
		packages: make(map[string]*packageState),
		build:    make(map[string][]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handle processes a single event
func (t *Translator) Handle(ev TestEvent) error {
	if t.closed {
		return event.ErrFinished
	}
	if !ev.Time.IsZero() {
		if t.first.IsZero() {
			t.first = ev.Time
		}
		t.last = ev.Time
	}
	if ev.Action == ActionBuildOutput && ev.ImportPath != "" {
		t.build[ev.ImportPath] = append(t.build[ev.ImportPath], ev.Output)
		return nil
	}
	if ev.Package == "" {
		t.logger.Debug("ignoring event without package", zap.String("action", ev.Action))
		return nil
	}

	pkg := t.pkg(ev.Package)
	if ev.IsPackageEvent() {
		switch {
		case ev.Action == ActionOutput:
			pkg.output = append(pkg.output, ev.Output)
		case ev.IsTerminal():
			return t.finishPackage(pkg, ev.Action == ActionFail, t.build[ev.FailedBuild], false)
		}
		return nil
	}

	switch {
	case ev.Action == ActionRun:
		_, err := t.test(pkg, ev.Test)
		return err
	case ev.Action == ActionOutput:
		ts, err := t.test(pkg, ev.Test)
		if err != nil {
			return err
		}
		ts.output = append(ts.output, ev.Output)
	case ev.IsTerminal():
		ts, err := t.test(pkg, ev.Test)
		if err != nil {
			return err
		}
		return t.finishTest(pkg, ts, statusFor(ev.Action), time.Duration(ev.Elapsed*float64(time.Second)), "")
	}
	return nil
}

// Duration is the span between the first and last timestamped events
func (t *Translator) Duration() time.Duration {
	return t.last.Sub(t.first)
}

// Close fails every test that is still running, finishes open groups and
// dumps the summary. Calling Close more than once is a no-op.
func (t *Translator) Close() error {
	if t.closed {
		return nil
	}
	for _, pkg := range append([]*packageState(nil), t.order...) {
		if err := t.finishPackage(pkg, false, nil, true); err != nil {
			return err
		}
	}
	t.closed = true
	return t.reporter.Finish(t.Duration())
}

func (t *Translator) pkg(name string) *packageState {
	if pkg, ok := t.packages[name]; ok {
		return pkg
	}
	pkg := &packageState{
		name:  name,
		group: &event.Group{Description: name},
		tests: make(map[string]*testState),
	}
	t.packages[name] = pkg
	t.order = append(t.order, pkg)
	return pkg
}

// startPackage reports the package group lazily, so packages without tests
// never show up.
func (t *Translator) startPackage(pkg *packageState) error {
	if pkg.started {
		return nil
	}
	pkg.started = true
	return t.reporter.GroupStarted(pkg.group)
}

func (t *Translator) test(pkg *packageState, name string) (*testState, error) {
	if ts, ok := pkg.tests[name]; ok {
		return ts, nil
	}
	if err := t.startPackage(pkg); err != nil {
		return nil, err
	}

	ts := &testState{name: name, parent: findParent(pkg, name)}
	if p := ts.parent; p != nil && p.group == nil {
		p.group = &event.Group{Description: p.name, Parent: groupOf(pkg, p.parent)}
		if err := t.reporter.GroupStarted(p.group); err != nil {
			return nil, err
		}
	}
	pkg.tests[name] = ts
	pkg.order = append(pkg.order, ts)
	return ts, nil
}

func (t *Translator) finishTest(pkg *packageState, ts *testState, status event.Status, elapsed time.Duration, note string) error {
	delete(pkg.tests, ts.name)
	for i, o := range pkg.order {
		if o == ts {
			pkg.order = append(pkg.order[:i], pkg.order[i+1:]...)
			break
		}
	}

	failed := status == event.StatusFailed
	if failed {
		pkg.failed = true
		for p := ts.parent; p != nil; p = p.parent {
			p.childFailed = true
		}
	}

	// A test with subtests is reported through them unless it failed on
	// its own.
	report := ts.group == nil || (failed && !ts.childFailed)
	if report {
		e := &event.Example{
			Description:     shortName(ts),
			FullDescription: pkg.name + " " + ts.name,
			Group:           groupOf(pkg, ts.parent),
			Status:          status,
			Duration:        elapsed,
		}
		if failed {
			msg := CleanOutput(ts.output)
			switch {
			case note == "":
			case msg == "":
				msg = note
			default:
				msg = note + "\n" + msg
			}
			e.Exception = &event.Exception{Message: msg}
		}
		if err := t.reporter.ExampleFinished(e); err != nil {
			return err
		}
	}

	if ts.group != nil {
		return t.reporter.GroupFinished(ts.group)
	}
	return nil
}

func (t *Translator) finishPackage(pkg *packageState, failed bool, buildOutput []string, incomplete bool) error {
	// innermost tests started last
	for len(pkg.order) > 0 {
		ts := pkg.order[len(pkg.order)-1]
		if err := t.finishTest(pkg, ts, event.StatusFailed, 0, NoResultMessage); err != nil {
			return err
		}
	}

	if failed && !pkg.failed {
		if err := t.startPackage(pkg); err != nil {
			return err
		}
		msg := CleanOutput(append(append([]string(nil), buildOutput...), pkg.output...))
		if msg == "" {
			msg = "package failed"
		}
		pkg.failed = true
		e := &event.Example{
			Description:     pkg.name,
			FullDescription: pkg.name,
			Group:           pkg.group,
			Status:          event.StatusFailed,
			Exception:       &event.Exception{Message: msg},
		}
		if err := t.reporter.ExampleFinished(e); err != nil {
			return err
		}
	}

	if incomplete {
		t.logger.Debug("package did not report a result", zap.String("package", pkg.name))
	}

	delete(t.packages, pkg.name)
	for i, o := range t.order {
		if o == pkg {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}

	if pkg.started {
		return t.reporter.GroupFinished(pkg.group)
	}
	return nil
}

// findParent returns the nearest running ancestor of a subtest
func findParent(pkg *packageState, name string) *testState {
	for i := strings.LastIndexByte(name, '/'); i > 0; i = strings.LastIndexByte(name[:i], '/') {
		if p, ok := pkg.tests[name[:i]]; ok {
			return p
		}
	}
	return nil
}

func groupOf(pkg *packageState, parent *testState) *event.Group {
	if parent != nil && parent.group != nil {
		return parent.group
	}
	return pkg.group
}

func shortName(ts *testState) string {
	if ts.parent == nil {
		return ts.name
	}
	return strings.TrimPrefix(ts.name, ts.parent.name+"/")
}

func statusFor(action string) event.Status {
	switch action {
	case ActionFail:
		return event.StatusFailed
	case ActionSkip:
		return event.StatusPending
	default:
		return event.StatusPassed
	}
}

var framingPrefixes = []string{
	"=== RUN", "=== PAUSE", "=== CONT", "=== NAME",
	"--- PASS", "--- FAIL", "--- SKIP",
}

// CleanOutput joins collected output, drops test2json framing lines and
// removes the indentation shared by the remaining lines.
func CleanOutput(chunks []string) string {
	var kept []string
	for _, line := range strings.Split(strings.Join(chunks, ""), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "PASS" || trimmed == "FAIL" || isFraming(trimmed) {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t\r"))
	}

	indent := -1
	for _, line := range kept {
		if line == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent > 0 {
		for i, line := range kept {
			if len(line) >= indent {
				kept[i] = line[indent:]
			}
		}
	}
	return strings.Trim(strings.Join(kept, "\n"), "\n")
}

func isFraming(line string) bool {
	for _, prefix := range framingPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// Translate feeds every event read from r into t. Lines that are not test
// events are logged and skipped. It does not call Close.
func Translate(ctx context.Context, r io.Reader, t *Translator) error {
	dec := NewDecoder(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ev, raw, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, ErrNotEvent) {
			t.logger.Debug("skipping non-event line", zap.Error(err), zap.ByteString("line", raw))
			continue
		}
		if err != nil {
			return err
		}

		if err := t.Handle(ev); err != nil {
			return err
		}
	}
}
