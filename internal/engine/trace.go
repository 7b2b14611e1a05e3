package engine

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// GuardValue is one guard fact and the value it resolved to while tracing.
type GuardValue struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

// TraceEntry describes a rule about to be matched.
type TraceEntry struct {
	ScopeID   string       `json:"scope_id"`
	Scope     string       `json:"scope,omitempty"`
	Depth     int          `json:"depth"`
	RuleIndex int          `json:"rule_index"`
	Doc       string       `json:"doc,omitempty"`
	Guards    []GuardValue `json:"guards"`
}

// Tracer receives a diagnostic dump of every rule before it is matched.
//
// Tracing resolves each guard an extra time, so a dynamic fact is recomputed
// once more per reference when a tracer is installed. Tracing never changes
// which rules fire.
type Tracer interface {
	TraceRule(entry TraceEntry)
}

// trace resolves the guards of a rule and hands them to the tracer.
// An undeclared guard fails here, before matching.
func (s *Scope) trace(index int, guards []string, doc string) error {
	values := make([]GuardValue, 0, len(guards))
	for _, name := range guards {
		value, err := s.resolve(name)
		if err != nil {
			return err
		}
		values = append(values, GuardValue{Name: name, Value: value})
	}
	s.engine.tracer.TraceRule(TraceEntry{
		ScopeID:   s.id,
		Scope:     s.name,
		Depth:     s.depth,
		RuleIndex: index,
		Doc:       doc,
		Guards:    values,
	})
	return nil
}

const (
	traceRule   = "---------------------------------------"
	traceHeader = "======================================="
)

// TextTracer writes the classic separator-bracketed dump:
//
//	---------------------------------------
//	it_is_hot & am_thirsty
//	=======================================
//	|=-	it_is_hot = true
//	|=-	am_thirsty = true
//	---------------------------------------
//
// Thread-safety: TextTracer serializes writes with an internal mutex.
type TextTracer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextTracer creates a tracer writing to w.
func NewTextTracer(w io.Writer) *TextTracer {
	return &TextTracer{w: w}
}

// TraceRule implements Tracer.
func (t *TextTracer) TraceRule(entry TraceEntry) {
	names := make([]string, len(entry.Guards))
	for i, g := range entry.Guards {
		names[i] = g.Name
	}

	var b strings.Builder
	fmt.Fprintln(&b, traceRule)
	fmt.Fprintln(&b, strings.Join(names, " & "))
	fmt.Fprintln(&b, traceHeader)
	for _, g := range entry.Guards {
		fmt.Fprintf(&b, "|=-\t%s = %t\n", g.Name, g.Value)
	}
	fmt.Fprintln(&b, traceRule)

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.w, b.String())
}

// SlogTracer emits one debug record per rule through a structured logger.
type SlogTracer struct {
	logger *slog.Logger
}

// NewSlogTracer creates a tracer logging to logger, or slog.Default() if nil.
func NewSlogTracer(logger *slog.Logger) *SlogTracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogTracer{logger: logger}
}

// TraceRule implements Tracer.
func (t *SlogTracer) TraceRule(entry TraceEntry) {
	attrs := make([]any, 0, len(entry.Guards)+4)
	attrs = append(attrs,
		"scope", entry.ScopeID,
		"rule", entry.RuleIndex,
	)
	if entry.Doc != "" {
		attrs = append(attrs, "doc", entry.Doc)
	}
	for _, g := range entry.Guards {
		attrs = append(attrs, slog.Bool("guard."+g.Name, g.Value))
	}
	t.logger.Debug("rule trace", attrs...)
}

// TraceFunc adapts a function to the Tracer interface.
type TraceFunc func(entry TraceEntry)

// TraceRule implements Tracer.
func (f TraceFunc) TraceRule(entry TraceEntry) { f(entry) }
