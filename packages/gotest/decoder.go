package gotest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tidwall/gjson"
)

// Actions emitted by test2json
const (
	ActionStart  = "start"
	ActionRun    = "run"
	ActionPause  = "pause"
	ActionCont   = "cont"
	ActionPass   = "pass"
	ActionBench  = "bench"
	ActionFail   = "fail"
	ActionOutput = "output"
	ActionSkip   = "skip"

	ActionBuildOutput = "build-output"
	ActionBuildFail   = "build-fail"
)

// ErrNotEvent is returned for lines that are not test2json events, such as
// build output interleaved with the stream.
var ErrNotEvent = errors.New("not a test event")

// maxLineSize bounds a single event line; verbose tests can print long lines
const maxLineSize = 4 * 1024 * 1024

// TestEvent is one line of `go test -json` output
type TestEvent struct {
	Time    time.Time
	Action  string
	Package string
	Test    string
	Elapsed float64
	Output  string

	// ImportPath and FailedBuild are set by newer toolchains when a
	// package fails to build.
	ImportPath  string
	FailedBuild string
}

// IsPackageEvent reports whether the event refers to the package as a whole
func (e TestEvent) IsPackageEvent() bool {
	return e.Test == ""
}

// IsTerminal reports whether the action ends a test or package
func (e TestEvent) IsTerminal() bool {
	return e.Action == ActionPass || e.Action == ActionFail || e.Action == ActionSkip
}

// ParseEvent decodes a single test2json line
func ParseEvent(line []byte) (TestEvent, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' || !gjson.ValidBytes(line) {
		return TestEvent{}, ErrNotEvent
	}

	fields := gjson.GetManyBytes(line, "Time", "Action", "Package", "Test", "Elapsed", "Output", "ImportPath", "FailedBuild")
	if !fields[1].Exists() {
		return TestEvent{}, fmt.Errorf("%w: missing Action", ErrNotEvent)
	}

	ev := TestEvent{
		Action:  fields[1].String(),
		Package: fields[2].String(),
		Test:    fields[3].String(),
		Elapsed: fields[4].Float(),
		Output:  fields[5].String(),

		ImportPath:  fields[6].String(),
		FailedBuild: fields[7].String(),
	}
	if fields[0].Exists() {
		ts, err := time.Parse(time.RFC3339Nano, fields[0].String())
		if err != nil {
			return TestEvent{}, fmt.Errorf("%w: invalid Time %q: %v", ErrNotEvent, fields[0].String(), err)
		}
		ev.Time = ts
	}
	return ev, nil
}

// Decoder reads test2json events from a stream
type Decoder struct {
	scanner *bufio.Scanner
	line    int
}

func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{scanner: scanner}
}

// Next returns the next event. It returns io.EOF at the end of the stream.
// Undecodable lines yield an error wrapping ErrNotEvent together with the
// raw line, and decoding may continue.
func (d *Decoder) Next() (TestEvent, []byte, error) {
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return TestEvent{}, nil, fmt.Errorf("reading test events: %w", err)
		}
		return TestEvent{}, nil, io.EOF
	}
	d.line++

	raw := d.scanner.Bytes()
	ev, err := ParseEvent(raw)
	if err != nil {
		return TestEvent{}, raw, fmt.Errorf("line %d: %w", d.line, err)
	}
	return ev, raw, nil
}
