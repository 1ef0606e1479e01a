package logging

// Field name constants for structured logging.
const (
	// Common fields.
	FieldError      = "error"
	FieldPath       = "path"
	FieldURI        = "uri"
	FieldFiles      = "files"
	FieldWorkingDir = "working_dir"
	FieldDuration   = "duration"

	// Pipeline fields.
	FieldJob         = "job"
	FieldRevision    = "revision"
	FieldVersion     = "version"
	FieldDiagnostics = "diagnostics"
	FieldReused      = "reused"
	FieldDependents  = "dependents"

	// Configuration fields.
	FieldConfig       = "config"
	FieldIncludeRoots = "include_roots"
	FieldJobs         = "jobs"

	// LSP fields.
	FieldMethod = "method"
	FieldID     = "id"

	// Version fields.
	FieldCommit = "commit"
	FieldBuilt  = "built"
)
