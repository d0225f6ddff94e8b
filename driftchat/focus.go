package driftchat

import "sync"

// FocusSource is the navigation-focus event source collaborator. The SDK has
// no dependency on any navigation framework; a thin UI adapter calls Focus
// and Blur on a FocusEmitter when the relevant screen gains or loses focus.
type FocusSource interface {
	OnFocus(fn func())
	OnBlur(fn func())
}

// FocusEmitter is the default FocusSource implementation.
type FocusEmitter struct {
	mu    sync.Mutex
	focus []func()
	blur  []func()
}

func NewFocusEmitter() *FocusEmitter {
	return &FocusEmitter{}
}

func (e *FocusEmitter) OnFocus(fn func()) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	e.focus = append(e.focus, fn)
	e.mu.Unlock()
}

func (e *FocusEmitter) OnBlur(fn func()) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	e.blur = append(e.blur, fn)
	e.mu.Unlock()
}

// Focus notifies focus subscribers in registration order.
func (e *FocusEmitter) Focus() {
	e.mu.Lock()
	fns := make([]func(), len(e.focus))
	copy(fns, e.focus)
	e.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Blur notifies blur subscribers in registration order.
func (e *FocusEmitter) Blur() {
	e.mu.Lock()
	fns := make([]func(), len(e.blur))
	copy(fns, e.blur)
	e.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
