package render

import (
	"fmt"

	"go.jacobcolvin.com/struktur/model"
)

// ValidationResult is the outcome of an adapter's Validate call.
type ValidationResult struct {
	Valid bool
	Err   error
}

// HelperFunc is a template helper: an arbitrary Go function the adapter
// exposes to templates under a name. Adapters decide how to adapt it to
// their own engine's calling convention.
type HelperFunc any

// Adapter is the required operation set every template engine backend
// must implement (§4.12). It is deliberately small and capability-set
// shaped rather than one monolithic interface: Renderer type-asserts an
// Adapter against PartialLoader/StrictCompiler/EngineHelperInstaller to
// discover optional capabilities, the same way the teacher's Annotator
// type-asserts against RootAnnotator rather than growing Annotator itself
// (magicschema/annotation.go). Adding a third engine requires only
// implementing Adapter (plus whichever optional interfaces it supports).
type Adapter interface {
	// Name identifies the engine, e.g. "gotemplate".
	Name() string

	// Render renders templateName with ctx bound as the template's data
	// context, returning the rendered string.
	Render(templateName string, ctx any) (string, error)

	// Validate reports whether templateName compiles without rendering it.
	Validate(templateName string) ValidationResult

	// RegisterHelper installs fn under name for every subsequent Render.
	RegisterHelper(name string, fn HelperFunc)

	// RegisterPartial registers source as a partial/include under name.
	RegisterPartial(name string, source string) error

	// SetSearchPaths sets the ordered list of directories Render resolves
	// bare template names against.
	SetSearchPaths(paths []string)
}

// PartialLoader is an optional Adapter capability: recursive, format-
// agnostic partial loading from a directory, each file registered under
// its path relative to dir.
type PartialLoader interface {
	LoadPartials(dir string) error
}

// StrictCompiler is an optional Adapter capability: a compile mode that
// fails on undefined identifiers/helpers instead of silently rendering
// zero values.
type StrictCompiler interface {
	SetStrict(strict bool)
}

// EngineHelperInstaller is an optional Adapter capability: installing
// engine-bound helpers (render_file, file, partial_exists) that need
// access to the renderer's shared output queue and build context, as
// opposed to the pure generic/schema/buffer helpers Renderer registers
// directly via RegisterHelper.
type EngineHelperInstaller interface {
	RegisterEngineHelpers(buildCtx *Context)
}

// NotFoundError reports a missing template with suggestions for a likely
// intended name (e.g. a matching basename under a different extension).
type NotFoundError struct {
	Template    string
	SearchPaths []string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("%s: %q (searched %v)", model.ErrTemplateNotFound, e.Template, e.SearchPaths)
	}

	return fmt.Sprintf("%s: %q (searched %v); did you mean %v?", model.ErrTemplateNotFound, e.Template, e.SearchPaths, e.Suggestions)
}

func (e *NotFoundError) Unwrap() error { return model.ErrTemplateNotFound }

// SyntaxError reports a template that failed to compile.
type SyntaxError struct {
	Template string
	Line     int
	Col      int
	Msg      string
}

func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %q: %s", model.ErrTemplateSyntax, e.Template, e.Msg)
	}

	return fmt.Sprintf("%s: %q:%d:%d: %s", model.ErrTemplateSyntax, e.Template, e.Line, e.Col, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return model.ErrTemplateSyntax }

// RenderError reports a runtime rendering failure.
type RenderError struct {
	Template string
	Msg      string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s: %q: %s", model.ErrTemplateRender, e.Template, e.Msg)
}

func (e *RenderError) Unwrap() error { return model.ErrTemplateRender }

// BufferNotFoundError reports a yield/buffer reference with no matching
// write, when helper semantics require that to be fatal rather than
// silently empty.
type BufferNotFoundError struct {
	Name      string
	Available []string
}

func (e *BufferNotFoundError) Error() string {
	return fmt.Sprintf("%s: %q (available: %v)", model.ErrBufferNotFound, e.Name, e.Available)
}

func (e *BufferNotFoundError) Unwrap() error { return model.ErrBufferNotFound }

// CircularExtendsError reports a layout `extends` chain that loops back on
// itself.
type CircularExtendsError struct {
	Chain []string
}

func (e *CircularExtendsError) Error() string {
	return fmt.Sprintf("%s: %v", model.ErrCircularExtends, e.Chain)
}

func (e *CircularExtendsError) Unwrap() error { return model.ErrCircularExtends }
