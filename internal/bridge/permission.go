package bridge

import (
	"context"
	"sync"
)

// PermissionState is the answer to a permission query.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

// Permissions is the capability check behind checkPermissions and
// requestPermissions. Platforms with a runtime permission gate plug in a
// real request flow here.
type Permissions interface {
	Check(ctx context.Context) PermissionState
	Request(ctx context.Context) PermissionState
}

// PresencePermissions grants access whenever a sensor exists. No prompt is
// ever shown.
type PresencePermissions bool

func (p PresencePermissions) Check(context.Context) PermissionState {
	if p {
		return PermissionGranted
	}
	return PermissionDenied
}

func (p PresencePermissions) Request(ctx context.Context) PermissionState {
	return p.Check(ctx)
}

// AskFunc asks the user (or an operator) to allow accelerometer access.
type AskFunc func(ctx context.Context) (bool, error)

// PromptPermissions reports "prompt" until Request has run the ask flow
// once. A failing ask counts as a denial.
type PromptPermissions struct {
	present bool
	ask     AskFunc

	mu    sync.Mutex
	state PermissionState
}

func NewPromptPermissions(present bool, ask AskFunc) *PromptPermissions {
	p := &PromptPermissions{present: present, ask: ask, state: PermissionPrompt}
	if !present {
		p.state = PermissionDenied
	}
	return p
}

func (p *PromptPermissions) Check(context.Context) PermissionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *PromptPermissions) Request(ctx context.Context) PermissionState {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.present {
		return PermissionDenied
	}
	if p.state != PermissionPrompt {
		return p.state
	}

	ok, err := p.ask(ctx)
	switch {
	case err != nil, !ok:
		p.state = PermissionDenied
	default:
		p.state = PermissionGranted
	}
	return p.state
}
