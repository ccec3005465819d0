// Package orchestrator drives one build end to end: the ten fixed phases
// of §4.15, each wrapped with its own name on failure and logged through
// the ambient log package.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.jacobcolvin.com/struktur/buildconfig"
	"go.jacobcolvin.com/struktur/canonical"
	"go.jacobcolvin.com/struktur/loader"
	"go.jacobcolvin.com/struktur/manifest"
	"go.jacobcolvin.com/struktur/model"
	"go.jacobcolvin.com/struktur/render"
	"go.jacobcolvin.com/struktur/render/gotemplate"
	"go.jacobcolvin.com/struktur/resolver"
	"go.jacobcolvin.com/struktur/validate"
)

// Result is everything a completed build produced, for a caller (CLI or
// test) that wants more than a pass/fail signal.
type Result struct {
	BuildDir   string
	Canonical  *model.Canonical
	Validation model.ValidationSummary
}

// Options configures a single Build call.
type Options struct {
	Config  *buildconfig.Config
	Version string

	// Logger receives an Info-level record as each phase starts and
	// another as it completes. Defaults to
	// slog.Default() when nil.
	Logger *slog.Logger

	// Now is injectable for deterministic tests; defaults to time.Now.
	Now func() time.Time

	// LintSignificantArrays is forwarded to the Multi-Pass Validator's
	// lint pass (§4.9 "configurable names").
	LintSignificantArrays []string
}

// Build runs every phase of one build in order, aborting at the first
// failing phase (validation failures abort at phase 6 specifically, with
// an error wrapping model.ErrSchemaViolation). ctx is checked
// between phases so a caller can cancel a build in flight without
// corrupting a prior one -- every write this package performs lands via
// write-to-temp-then-rename or only after every upstream phase succeeded.
func Build(ctx context.Context, opts Options) (*Result, error) {
	o := newRun(opts)

	if err := o.checkCtx(ctx); err != nil {
		return nil, err
	}

	if err := o.phase(ctx, "validate-inputs", o.validateInputs); err != nil {
		return nil, err
	}

	if err := o.phase(ctx, "resolve-build-dir", o.resolveBuildDir); err != nil {
		return nil, err
	}

	if err := o.phase(ctx, "load-classes", o.loadClasses); err != nil {
		return nil, err
	}

	if err := o.phase(ctx, "load-aspects", o.loadAspects); err != nil {
		return nil, err
	}

	if err := o.phase(ctx, "load-instances", o.loadInstances); err != nil {
		return nil, err
	}

	if err := o.phase(ctx, "validate", o.validateInstances); err != nil {
		return nil, err
	}

	if err := o.phase(ctx, "write-canonical", o.writeCanonical); err != nil {
		return nil, err
	}

	if err := o.phase(ctx, "write-meta", o.writeMeta); err != nil {
		return nil, err
	}

	if err := o.phase(ctx, "render", o.render); err != nil {
		return nil, err
	}

	if err := o.phase(ctx, "write-manifest", o.writeManifest); err != nil {
		return nil, err
	}

	return &Result{
		BuildDir:   o.buildDir,
		Canonical:  o.canonical,
		Validation: o.canonical.Validation,
	}, nil
}

// run carries the state one Build call accumulates phase to phase. It
// exists so each phase method can read what an earlier phase produced
// without Build threading a dozen parameters through ten calls.
type run struct {
	opts Options
	now  func() time.Time
	log  *slog.Logger

	root      string
	buildDir  string
	hash      string
	inputs    manifest.Inputs
	aspects   map[string]*model.AspectDef
	resolved  map[string]*model.ResolvedClass
	instances []*model.Instance
	canonical *model.Canonical

	pendingValidation model.ValidationSummary
}

func newRun(opts Options) *run {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &run{opts: opts, now: now, log: logger}
}

// phase runs fn, logging its start and completion and wrapping any failure
// with name (§4.15 "any exception is annotated with the phase name").
func (o *run) phase(ctx context.Context, name string, fn func() error) error {
	if err := o.checkCtx(ctx); err != nil {
		return err
	}

	o.log.Info("build phase starting", slog.String("phase", name))

	if err := fn(); err != nil {
		return fmt.Errorf("phase %s: %w", name, err)
	}

	o.log.Info("build phase complete", slog.String("phase", name))

	return nil
}

func (o *run) checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("build canceled: %w", err)
	}

	return nil
}

func (o *run) cfg() *buildconfig.Config { return o.opts.Config }

// validateInputs implements phase 1: classDirs and instanceDirs must each
// be non-empty, and buildDir must be set.
func (o *run) validateInputs() error {
	cfg := o.cfg()

	if len(cfg.ClassDirs) == 0 {
		return fmt.Errorf("%w: classDirs", model.ErrMissingRequiredField)
	}

	if len(cfg.InstanceDirs) == 0 {
		return fmt.Errorf("%w: instanceDirs", model.ErrMissingRequiredField)
	}

	if cfg.BuildDir == "" {
		return fmt.Errorf("%w: buildDir", model.ErrMissingRequiredField)
	}

	return nil
}

// resolveBuildDir implements phase 2: content-address the input directory
// tuple, place the build under `<root>/build-<hash8>/`, and detect whether
// that root's prior manifest (if any) names a different hash for the same
// explicit buildDir -- a warning by default, fatal under
// cfg.FailOnCollisions (§4.14).
func (o *run) resolveBuildDir() error {
	cfg := o.cfg()
	root := cfg.BuildDir

	o.inputs = manifest.Inputs{
		ClassDirs:    dirPaths(cfg.ClassDirs),
		AspectDirs:   dirPaths(cfg.AspectDirs),
		InstanceDirs: dirPaths(cfg.InstanceDirs),
		TemplateDirs: dirPaths(cfg.TemplateDirs),
	}
	o.hash = manifest.Hash(o.inputs)
	o.root = root
	o.buildDir = filepath.Join(root, manifest.BuildDirName(o.inputs))

	collides, previous, err := manifest.CheckCollision(root, o.hash)
	if err != nil {
		return err
	}

	if collides {
		msg := fmt.Sprintf("%q was last built from a different input set (hash %s)", root, previous.Hash)

		if cfg.FailOnCollisions {
			return fmt.Errorf("%w: %s", model.ErrMissingBuildDir, msg)
		}

		o.log.Warn("build manifest collision", slog.String("root", root), slog.String("previous_hash", previous.Hash))
	}

	if err := os.MkdirAll(o.buildDir, 0o755); err != nil {
		return fmt.Errorf("creating build directory %q: %w", o.buildDir, err)
	}

	return nil
}

// loadClasses implements phase 3.
func (o *run) loadClasses() error {
	classes, err := loader.LoadClasses(o.cfg().ClassDirs)
	if err != nil {
		return err
	}

	resolved, err := resolver.New(classes).ResolveAll()
	if err != nil {
		return err
	}

	o.resolved = resolved

	return nil
}

// loadAspects implements phase 4: load every aspect definition, available
// to both the validator's aspect pass and the canonical builder's merge.
func (o *run) loadAspects() error {
	aspects, err := loader.LoadAspects(o.cfg().AspectDirs)
	if err != nil {
		return err
	}

	o.aspects = aspects

	return nil
}

// loadInstances implements phase 5: load every instance fragment, reject
// the build outright if any file had no resolvable $class, then merge
// fragments sharing an $id.
func (o *run) loadInstances() error {
	result, err := loader.LoadInstances(o.cfg().InstanceDirs)
	if err != nil {
		return err
	}

	if len(result.Rejected) > 0 {
		return fmt.Errorf("%w: %d file(s) with no $class: %v", model.ErrMissingRequiredField, len(result.Rejected), result.Rejected)
	}

	merged, stats, err := loader.MergeInstances(result.Instances)
	if err != nil {
		return err
	}

	o.instances = merged

	o.log.Info("instances merged",
		slog.Int("fragments", stats.FragmentsIn),
		slog.Int("records", stats.RecordsOut),
		slog.Int("merged", stats.Merged))

	return nil
}

// validateInstances implements phase 6: every merged instance runs
// through the Multi-Pass Validator against its resolved class; any
// level=error result anywhere aborts the build with every finding
// attached, not just the first.
func (o *run) validateInstances() error {
	v := validate.New()
	v.LintSignificantArrays = o.opts.LintSignificantArrays

	byInstance := make(map[string][]model.ValidationResult, len(o.instances))

	for _, inst := range o.instances {
		resolved, ok := o.resolved[inst.Class]
		if !ok {
			byInstance[inst.ID] = []model.ValidationResult{{
				Level:    model.LevelError,
				Code:     "unresolved-class",
				Layer:    model.LayerBase,
				Message:  fmt.Sprintf("%s: %q", model.ErrUnresolvedClass, inst.Class),
				Instance: inst.ID,
			}}

			continue
		}

		byInstance[inst.ID] = v.Validate(inst, resolved, o.aspects)
	}

	summary := validate.Summarize(len(o.instances), byInstance)
	summary.Errors = append(summary.Errors, o.checkClassConstraints()...)

	sort.Slice(summary.Errors, func(i, j int) bool {
		if summary.Errors[i].Instance != summary.Errors[j].Instance {
			return summary.Errors[i].Instance < summary.Errors[j].Instance
		}

		return summary.Errors[i].Code < summary.Errors[j].Code
	})

	o.pendingValidation = summary

	if validate.HasErrors(summary) {
		return fmt.Errorf("%w:\n%s", model.ErrSchemaViolation, validate.FormatSummary(&summary))
	}

	return nil
}

// checkClassConstraints runs the Schema Constraint Checker (§4.8) once per
// resolved class, promoting its diagnostic-only findings to level=error
// when cfg.PromoteConstraintConflicts is set (Open Question (c)).
func (o *run) checkClassConstraints() []model.ValidationResult {
	names := make([]string, 0, len(o.resolved))
	for name := range o.resolved {
		names = append(names, name)
	}

	sort.Strings(names)

	promote := o.cfg().PromoteConstraintConflicts

	var results []model.ValidationResult

	for _, name := range names {
		for _, r := range resolver.CheckConstraints(o.resolved[name]) {
			if promote {
				r.Level = model.LevelError
			}

			results = append(results, r)
		}
	}

	return results
}

// writeCanonical implements phase 7: assemble the canonical model and
// atomically write canonical.json under the build directory.
func (o *run) writeCanonical() error {
	built, err := canonical.Build(o.instances, o.resolved, o.aspects, o.pendingValidation, o.now())
	if err != nil {
		return err
	}

	o.canonical = built

	data, err := json.MarshalIndent(built, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling canonical model: %w", err)
	}

	return writeAtomicFile(filepath.Join(o.buildDir, "canonical.json"), data)
}

// writeMeta implements phase 8: one file per resolved class under
// meta/classes/, plus the validation summary, mirroring the canonical
// model's own indexes onto disk for tooling that wants them file-at-a-time
// instead of parsing the whole canonical document.
func (o *run) writeMeta() error {
	classesDir := filepath.Join(o.buildDir, "meta", "classes")
	if err := os.MkdirAll(classesDir, 0o755); err != nil {
		return fmt.Errorf("creating %q: %w", classesDir, err)
	}

	for name, resolved := range o.resolved {
		data, err := json.MarshalIndent(resolved, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling class %q: %w", name, err)
		}

		if err := os.WriteFile(filepath.Join(classesDir, name+".json"), data, 0o644); err != nil {
			return fmt.Errorf("writing class %q: %w", name, err)
		}
	}

	metaDir := filepath.Join(o.buildDir, "meta")

	validationData, err := json.MarshalIndent(o.canonical.Validation, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling validation summary: %w", err)
	}

	if err := os.WriteFile(filepath.Join(metaDir, "validation.json"), validationData, 0o644); err != nil {
		return fmt.Errorf("writing validation.json: %w", err)
	}

	return nil
}

// render implements phase 9: collect every render task (config-first, then
// each instance's own $render, per spec), validate them all preflight, and
// render+write every output.
func (o *run) render() error {
	tasks := o.renderTasks()
	if len(tasks) == 0 {
		return nil
	}

	if err := render.ValidateTasks(tasks); err != nil {
		return err
	}

	adapter, err := newAdapter(o.cfg().Engine, o.cfg().StrictTemplates)
	if err != nil {
		return err
	}

	r := render.NewRenderer(adapter, o.canonical, o.buildDir, dirPaths(o.cfg().TemplateDirs))

	if err := r.LoadPartials(); err != nil {
		return err
	}

	if errs := r.Preflight(tasks); len(errs) > 0 {
		return fmt.Errorf("%d template(s) not found: %v", len(errs), errs)
	}

	return r.Render(tasks, writeOutputFile)
}

func (o *run) renderTasks() []model.RenderTask {
	tasks := append([]model.RenderTask{}, o.cfg().RenderTasks...)

	for _, inst := range o.instances {
		tasks = append(tasks, inst.Render...)
	}

	return tasks
}

// writeManifest implements phase 10: record the content-addressed build
// directory's input hash so a future build can detect whether it reused
// the same directory for a different input set.
func (o *run) writeManifest() error {
	version := o.opts.Version
	if version == "" {
		version = "dev"
	}

	return manifest.Write(o.root, version, o.hash, o.now().UTC().Format(time.RFC3339), o.inputs)
}

func newAdapter(engine string, strict bool) (render.Adapter, error) {
	switch engine {
	case "", "gotemplate":
		adapter := gotemplate.New()
		adapter.SetStrict(strict)

		return adapter, nil
	default:
		return nil, fmt.Errorf("unknown template engine %q", engine)
	}
}

func writeOutputFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %q: %w", path, err)
	}

	return os.WriteFile(path, []byte(content), 0o644)
}

func writeAtomicFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".struktur-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %q: %w", path, err)
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()

		return fmt.Errorf("writing temp file for %q: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file for %q: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming temp file into %q: %w", path, err)
	}

	return nil
}

func dirPaths(dirs []model.Dir) []string {
	out := make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = d.Path
	}

	return out
}
