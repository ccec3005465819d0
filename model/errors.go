// Package model defines the canonical data types struktur compiles
// class/aspect/instance definitions into, and the error taxonomy every
// other package wraps its failures in.
package model

import "errors"

// Loader errors.
var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidJSON          = errors.New("invalid json")
	ErrSchemaMetaValidation = errors.New("schema fails meta-validation")
	ErrDuplicateName        = errors.New("duplicate name")
	ErrLegacyShape          = errors.New("legacy shape")
	ErrArrayInstanceFile    = errors.New("array instance file")
	ErrReservedDirectory    = errors.New("reserved directory")
	ErrExplicitDirMissing   = errors.New("explicit directory missing")
)

// Resolver errors.
var (
	ErrUnknownParent       = errors.New("unknown parent")
	ErrCircularInheritance = errors.New("circular inheritance")
	ErrUnresolvedClass     = errors.New("unresolved class")
)

// Merger errors.
var (
	ErrTypeConflict = errors.New("type conflict")
	ErrClassMismatch = errors.New("class mismatch")
	ErrMissingID     = errors.New("missing id")
)

// Validator errors.
var (
	ErrSchemaViolation      = errors.New("schema violation")
	ErrMissingRequiredAspect = errors.New("missing required aspect")
	ErrUndeclaredAspect      = errors.New("undeclared aspect")
	ErrNoValidatorRegistered = errors.New("no validator registered")
	ErrUnknownEnvelopeKey    = errors.New("unknown envelope key")
)

// Constraint errors (diagnostic by default).
var (
	ErrRangeConflict        = errors.New("range conflict")
	ErrEnumConflict         = errors.New("enum conflict")
	ErrConstraintType       = errors.New("type conflict across lineage")
	ErrStringLengthConflict = errors.New("string length conflict")
	ErrArrayLengthConflict  = errors.New("array length conflict")
)

// Path errors.
var (
	ErrUnsafePath      = errors.New("unsafe path")
	ErrOutputCollision = errors.New("output collision")
)

// Template errors.
var (
	ErrTemplateNotFound  = errors.New("template not found")
	ErrTemplateSyntax    = errors.New("template syntax error")
	ErrTemplateRender    = errors.New("template render error")
	ErrBufferNotFound    = errors.New("buffer not found")
	ErrCircularExtends   = errors.New("circular extends")
	ErrPartialCollision  = errors.New("partial collision")
)

// Orchestrator errors.
var (
	ErrMissingBuildDir            = errors.New("missing build directory")
	ErrUnresolvedClassInCanonical = errors.New("unresolved class in canonical model")
)
