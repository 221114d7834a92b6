// Package console implements the interactive search surface of the CLI:
// a query is read from an input, a 調査中 placeholder is shown while the
// API call is in flight, and the JSON response is pretty-printed into an
// output sink. Overlapping searches are sequenced so a slow response can
// never overwrite a newer one.
package console

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
)

// Input yields the current query text.
type Input interface {
	Value() string
}

// Sink receives display text. Implementations must tolerate concurrent calls.
type Sink interface {
	SetText(string)
}

// Monitor performs the actual lookup and returns the raw response body.
type Monitor interface {
	Monitor(ctx context.Context, url string) ([]byte, error)
}

const (
	searchingText = "調査中..."
	errorText     = "エラーが発生しました"
)

// Field is an Input backed by a mutex-guarded string.
type Field struct {
	mu sync.Mutex
	s  string
}

func (f *Field) Set(s string) {
	f.mu.Lock()
	f.s = s
	f.mu.Unlock()
}

func (f *Field) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}

// WriterSink writes each text update as a line to W.
type WriterSink struct {
	mu sync.Mutex
	W  io.Writer
}

func (w *WriterSink) SetText(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	io.WriteString(w.W, s+"\n")
}

// Searcher runs searches against a Monitor and renders results into Out.
type Searcher struct {
	In  Input
	Out Sink
	API Monitor

	mu  sync.Mutex
	seq uint64
}

// NewSearcher wires a search handler over the given ports.
func NewSearcher(in Input, out Sink, api Monitor) *Searcher {
	return &Searcher{In: in, Out: out, API: api}
}

// Search reads the current query, shows the placeholder, and fires the
// lookup in the background. The returned channel closes when the search
// has finished (whether or not its result was applied). Calling Search
// again before completion invalidates the earlier search: its result is
// discarded when it eventually lands.
func (s *Searcher) Search(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	query := s.In.Value()

	s.mu.Lock()
	s.seq++
	mine := s.seq
	s.mu.Unlock()

	s.Out.SetText(searchingText)

	go func() {
		defer close(done)

		text := errorText
		body, err := s.API.Monitor(ctx, query)
		if err == nil {
			if pretty, ok := indentJSON(body); ok {
				text = pretty
			}
		}

		s.mu.Lock()
		if mine == s.seq {
			s.Out.SetText(text)
		}
		s.mu.Unlock()
	}()

	return done
}

// indentJSON reformats a JSON document with two-space indentation.
// Anything that is not valid JSON reports !ok.
func indentJSON(body []byte) (string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return "", false
	}
	return strings.TrimSpace(buf.String()), true
}
