package render

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.jacobcolvin.com/struktur/model"
	"go.jacobcolvin.com/struktur/pathsafe"
)

// TemplateContext is what templates see as their data root (§4.13
// "Template context surfaced to templates"): the instance with
// $id=="global" if one exists, the full canonical indexes, and a hidden
// reference to the render Context buffer helpers close over.
type TemplateContext struct {
	Global        *model.CanonicalInstance
	Instances     []*model.CanonicalInstance
	InstancesByID map[string]*model.CanonicalInstance
	ClassesByID   map[string]*model.ResolvedClass
	AspectsByID   map[string]*model.AspectSummary

	// Context is a hidden reference templates never address directly --
	// only the buffer helpers installed against it do.
	Context *Context
}

// Renderer drives an Adapter through the fixed phase sequence of §4.13.
type Renderer struct {
	adapter      Adapter
	canonical    *model.Canonical
	buildDir     string
	templateDirs []string
	collisions   *pathsafe.CollisionTracker
}

// NewRenderer wires an Adapter to a canonical model and build directory.
// templateDirs are searched, in order, for both templates and partials.
func NewRenderer(adapter Adapter, canonical *model.Canonical, buildDir string, templateDirs []string) *Renderer {
	adapter.SetSearchPaths(templateDirs)

	return &Renderer{
		adapter:      adapter,
		canonical:    canonical,
		buildDir:     buildDir,
		templateDirs: templateDirs,
		collisions:   pathsafe.NewCollisionTracker(),
	}
}

// ValidateTasks implements §4.13 phase 1: every task has non-empty
// template and output, and (since model.RenderTask is a strict two-field
// struct) no extra keys can even be represented.
func ValidateTasks(tasks []model.RenderTask) error {
	for i, t := range tasks {
		if t.Template == "" || t.Output == "" {
			return fmt.Errorf("%w: render task %d requires non-empty template and output", model.ErrMissingRequiredField, i)
		}
	}

	return nil
}

// RegisterHelpers implements §4.13 phase 2: bulk-registers the generic,
// schema, and buffer helpers against ctx.
func (r *Renderer) RegisterHelpers(ctx *Context) {
	for name, fn := range GenericHelpers() {
		r.adapter.RegisterHelper(name, fn)
	}

	for name, fn := range SchemaHelpers(r.canonical) {
		r.adapter.RegisterHelper(name, fn)
	}

	for name, fn := range BufferHelpers(ctx) {
		r.adapter.RegisterHelper(name, fn)
	}

	if installer, ok := r.adapter.(EngineHelperInstaller); ok {
		installer.RegisterEngineHelpers(ctx)
	}
}

// LoadPartials implements §4.13 phase 3: loads every template directory's
// files as partials (when the adapter supports it), named by their path
// relative to that directory. Cross-directory name collisions are the
// adapter's responsibility to reject from RegisterPartial (which
// LoadPartials calls internally per file) with model.ErrPartialCollision,
// since only the adapter's registry knows whether a name is already taken.
func (r *Renderer) LoadPartials() error {
	loader, ok := r.adapter.(PartialLoader)
	if !ok {
		return nil
	}

	for _, dir := range r.templateDirs {
		if err := loader.LoadPartials(dir); err != nil {
			return err
		}
	}

	return nil
}

// Preflight implements §4.13 phase 4: resolves every task's template
// against the adapter, collecting every TemplateNotFound (with
// extension-hint suggestions) before returning, rather than aborting on
// the first miss.
func (r *Renderer) Preflight(tasks []model.RenderTask) []error {
	var errs []error

	for _, t := range tasks {
		result := r.adapter.Validate(t.Template)
		if result.Valid {
			continue
		}

		var notFound *NotFoundError
		if asNotFound(result.Err, &notFound) {
			notFound.Suggestions = suggestNames(notFound.Template, r.templateDirs)
			errs = append(errs, notFound)

			continue
		}

		errs = append(errs, result.Err)
	}

	return errs
}

func asNotFound(err error, target **NotFoundError) bool {
	nf, ok := err.(*NotFoundError) //nolint:errorlint // adapters construct this type directly, no wrapping expected.
	if !ok {
		return false
	}

	*target = nf

	return true
}

// suggestNames offers, for each of templateDirs, the missing template's
// path with its extension stripped, as an extension hint. It does not
// check whether a file exists at any suggested path.
func suggestNames(missing string, templateDirs []string) []string {
	base := strings.TrimSuffix(filepath.Base(missing), filepath.Ext(missing))

	var suggestions []string

	for _, dir := range templateDirs {
		candidate := filepath.Join(filepath.Dir(missing), base)
		if candidate != missing {
			suggestions = append(suggestions, filepath.Join(dir, candidate))
		}
	}

	return suggestions
}

// Render runs the content and layout phases (§4.13 phases 6–7) for every
// task, against a fresh Context per task so buffer state never leaks
// across files, then the write phase (phase 8) against the shared
// collision tracker.
func (r *Renderer) Render(tasks []model.RenderTask, writer func(path, content string) error) error {
	tmplCtx := r.templateContext(nil)

	for _, t := range tasks {
		ctx := NewContext(r.canonical, r.buildDir)
		tmplCtx.Context = ctx

		r.RegisterHelpers(ctx)

		rendered, err := r.adapter.Render(t.Template, tmplCtx)
		if err != nil {
			return fmt.Errorf("rendering task %q -> %q: %w", t.Template, t.Output, err)
		}

		ctx.QueueOutput(t.Output, rendered)

		if err := r.writeOutputs(ctx, writer); err != nil {
			return err
		}
	}

	return nil
}

func (r *Renderer) writeOutputs(ctx *Context, writer func(path, content string) error) error {
	outputs := ctx.Outputs()

	paths := make([]string, 0, len(outputs))
	for p := range outputs {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	for _, relOutput := range paths {
		absOutput, err := pathsafe.Resolve(r.buildDir, relOutput)
		if err != nil {
			return err
		}

		if err := r.collisions.Register(absOutput, pathsafe.Task{Output: relOutput}); err != nil {
			return err
		}

		if err := writer(absOutput, outputs[relOutput]); err != nil {
			return fmt.Errorf("writing %q: %w", absOutput, err)
		}
	}

	return nil
}

func (r *Renderer) templateContext(ctx *Context) *TemplateContext {
	var global *model.CanonicalInstance
	if g, ok := r.canonical.InstancesByID["global"]; ok {
		global = g
	}

	return &TemplateContext{
		Global:        global,
		Instances:     r.canonical.Instances,
		InstancesByID: r.canonical.InstancesByID,
		ClassesByID:   r.canonical.ClassesByID,
		AspectsByID:   r.canonical.AspectsByID,
		Context:       ctx,
	}
}
