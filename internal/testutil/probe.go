package testutil

import (
	"errors"
	"sync"
)

// ErrProbeFailed is returned by a probe configured to fail.
var ErrProbeFailed = errors.New("probe failed")

// Probe is a call-counted boolean function for dynamic fact tests.
//
// A probe returns its scripted values in order, repeating the last one once
// the script is exhausted. An empty script always returns Value.
//
// Thread-safety: Probe is safe for concurrent use via internal mutex.
type Probe struct {
	mu     sync.Mutex
	script []bool
	value  bool
	fail   bool
	calls  int
}

// NewProbe creates a probe that always returns value.
func NewProbe(value bool) *Probe {
	return &Probe{value: value}
}

// NewScriptedProbe creates a probe returning values in order.
func NewScriptedProbe(values ...bool) *Probe {
	p := &Probe{script: values}
	if len(values) > 0 {
		p.value = values[len(values)-1]
	}
	return p
}

// NewFailingProbe creates a probe whose every call returns ErrProbeFailed.
func NewFailingProbe() *Probe {
	return &Probe{fail: true}
}

// Func returns the probe as a fact function.
func (p *Probe) Func() func() (bool, error) {
	return p.Call
}

// Call invokes the probe once.
func (p *Probe) Call() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.calls
	p.calls++
	if p.fail {
		return false, ErrProbeFailed
	}
	if idx < len(p.script) {
		return p.script[idx], nil
	}
	return p.value, nil
}

// Calls returns how many times the probe was invoked.
func (p *Probe) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
