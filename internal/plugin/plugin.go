// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package plugin is the host side of the plugin contract: named plugins
// expose remote-callable methods which resolve with a payload or reject
// with a message, plus per-plugin event listeners.
package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Call is one remote method invocation.
type Call struct {
	Method string         `json:"method"`
	Data   map[string]any `json:"data,omitempty"`
}

// Result is either a resolved payload or a rejection message.
type Result struct {
	Data  map[string]any `json:"data,omitempty"`
	Error string         `json:"error,omitempty"`
}

func Resolve(data map[string]any) Result {
	if data == nil {
		data = map[string]any{}
	}
	return Result{Data: data}
}

func Reject(msg string) Result {
	return Result{Error: msg}
}

// OK reports whether the call resolved.
func (r Result) OK() bool {
	return r.Error == ""
}

// Method implements one remote-callable operation.
type Method func(ctx context.Context, call Call) Result

// Plugin is what the host dispatches to.
type Plugin interface {
	Name() string
	Methods() map[string]Method
	Listeners() *Listeners
}

// Lifecycle is implemented by plugins that react to the application being
// paused, resumed or torn down.
type Lifecycle interface {
	HandleOnPause()
	HandleOnResume()
	HandleOnDestroy()
}

// Host keeps the registered plugins and routes calls and lifecycle
// transitions to them.
type Host struct {
	log zerolog.Logger

	mu      sync.RWMutex
	plugins map[string]Plugin
}

func NewHost(log zerolog.Logger) *Host {
	return &Host{
		log:     log,
		plugins: make(map[string]Plugin),
	}
}

// Register adds p under its name.
func (h *Host) Register(p Plugin) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.plugins[p.Name()]; ok {
		return fmt.Errorf("plugin %q already registered", p.Name())
	}
	h.plugins[p.Name()] = p
	h.log.Info().Str("plugin", p.Name()).Int("methods", len(p.Methods())).Msg("plugin registered")
	return nil
}

// Plugin returns the plugin registered under name.
func (h *Host) Plugin(name string) (Plugin, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.plugins[name]
	return p, ok
}

// Names returns the registered plugin names in sorted order.
func (h *Host) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.namesLocked()
}

// Dispatch invokes call.Method on the named plugin.
func (h *Host) Dispatch(ctx context.Context, name string, call Call) Result {
	p, ok := h.Plugin(name)
	if !ok {
		return Reject(fmt.Sprintf("%q plugin is not implemented", name))
	}

	m, ok := p.Methods()[call.Method]
	if !ok {
		return Reject(fmt.Sprintf("%q method is not implemented on %s", call.Method, name))
	}

	res := m(ctx, call)
	if !res.OK() {
		h.log.Debug().Str("plugin", name).Str("method", call.Method).Str("reason", res.Error).Msg("call rejected")
	}
	return res
}

// Pause forwards the pause transition to every plugin that cares.
func (h *Host) Pause() {
	h.eachLifecycle(Lifecycle.HandleOnPause)
}

func (h *Host) Resume() {
	h.eachLifecycle(Lifecycle.HandleOnResume)
}

// Destroy tears every plugin down and drops all of their listeners.
func (h *Host) Destroy() {
	h.eachLifecycle(Lifecycle.HandleOnDestroy)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, p := range h.plugins {
		p.Listeners().RemoveAll()
	}
}

func (h *Host) eachLifecycle(fn func(Lifecycle)) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, name := range h.namesLocked() {
		if lc, ok := h.plugins[name].(Lifecycle); ok {
			fn(lc)
		}
	}
}

func (h *Host) namesLocked() []string {
	names := make([]string, 0, len(h.plugins))
	for n := range h.plugins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
