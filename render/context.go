// Package render drives a pluggable template engine through a buffer-based
// layout-inheritance protocol (§4.11–§4.13), enforcing path-traversal
// safety and output collision detection on every write.
package render

import (
	"sync"

	"go.jacobcolvin.com/struktur/model"
)

// BufferMode controls how a write to a named buffer combines with
// whatever the buffer already holds.
type BufferMode string

// Buffer write modes (§4.11).
const (
	BufferReplace BufferMode = "replace"
	BufferAppend  BufferMode = "append"
	BufferPrepend BufferMode = "prepend"
)

// Buffer is one named scratch area a template can write into and a layout
// can later `yield`.
type Buffer struct {
	Name        string
	Content     string
	Mode        BufferMode
	Destination string
}

// Context is a per-build (or per-sub-render) render context: it owns the
// canonical model, the build directory, and the buffer/output maps a
// single render pass mutates. A sub-render (e.g. render_file) must create
// a *new* Context so buffer state from one file never leaks into another
// (§4.11).
type Context struct {
	Canonical *model.Canonical
	BuildDir  string

	mu      sync.Mutex
	buffers map[string]*Buffer
	outputs map[string]string // output path -> rendered content, queued for write.
}

// NewContext returns a fresh Context sharing canonical/buildDir but owning
// its own empty buffer and output maps.
func NewContext(canonical *model.Canonical, buildDir string) *Context {
	return &Context{
		Canonical: canonical,
		BuildDir:  buildDir,
		buffers:   make(map[string]*Buffer),
		outputs:   make(map[string]string),
	}
}

// Sub returns a new Context for a nested render (e.g. render_file), sharing
// the same canonical model and build directory but starting with empty
// buffers and outputs.
func (c *Context) Sub() *Context {
	return NewContext(c.Canonical, c.BuildDir)
}

// WriteBuffer applies content to the named buffer per mode, creating the
// buffer if absent.
func (c *Context) WriteBuffer(name string, mode BufferMode, destination, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.buffers[name]
	if !ok {
		c.buffers[name] = &Buffer{Name: name, Content: content, Mode: mode, Destination: destination}

		return
	}

	switch mode {
	case BufferPrepend:
		existing.Content = content + existing.Content
	case BufferAppend:
		existing.Content += content
	default:
		existing.Content = content
	}

	if destination != "" {
		existing.Destination = destination
	}
}

// ReadBuffer returns the named buffer's content, or "" if absent -- reads
// never fail (§4.11 "reads by name return empty string when absent").
func (c *Context) ReadBuffer(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.buffers[name]; ok {
		return b.Content
	}

	return ""
}

// HasBuffer reports whether name has been written to.
func (c *Context) HasBuffer(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.buffers[name]

	return ok
}

// QueueOutput records rendered content for an output path, to be written
// once the renderer's write phase runs path-safety and collision checks.
func (c *Context) QueueOutput(path, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.outputs[path] = content
}

// Outputs returns a snapshot of every queued output path -> content.
func (c *Context) Outputs() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]string, len(c.outputs))
	for k, v := range c.outputs {
		out[k] = v
	}

	return out
}
