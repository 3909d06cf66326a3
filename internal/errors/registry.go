package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (E001-E039)
	// ============================================

	"E001": {
		Category: CategoryRuntime,
		Message:  "Runner not found",
		Detail:   "The runner id does not name a live runner. It may have been stopped, or it was never spawned.",
	},
	"E002": {
		Category: CategoryRuntime,
		Message:  "Runner thread panicked",
		Detail:   "A worker thread terminated abnormally. Pending relocations targeting it will never complete.",
	},
	"E003": {
		Category: CategoryRuntime,
		Message:  "Executor already stopped",
		Detail:   "The executor has shut its workers down and no longer accepts operations.",
	},
	"E010": {
		Category: CategoryRuntime,
		Message:  "Synchronous call timed out",
		Detail:   "A blocking cross-thread call did not produce a result within the configured timeout. The owning runner may be stalled or its server overloaded.",
	},
	"E011": {
		Category: CategoryRuntime,
		Message:  "Synchronous call result type mismatch",
		Detail:   "The type-erased result of a cross-thread call could not be converted to the type the call site expects.",
	},

	// ============================================
	// Relocation Errors (E040-E059)
	// ============================================

	"E040": {
		Category: CategoryRelocation,
		Message:  "Server not present on source runner",
		Detail:   "The source runner does not hold a server of the requested kind. Only a runner that currently owns the server can give it up.",
	},
	"E041": {
		Category: CategoryRelocation,
		Message:  "Server kind already present on destination runner",
		Detail:   "Each runner holds at most one server per kind. Move the existing server away first.",
	},
	"E042": {
		Category: CategoryRelocation,
		Message:  "Server refused to detach",
		Detail:   "The server could not release its thread-affine state. It remains on its current runner.",
	},

	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},

	// ============================================
	// Inspector Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryInspector,
		Message:  "Inspector failed to start",
		Detail:   "The debug inspector could not bind its listen address.",
	},

	// ============================================
	// CLI Errors (E160-E179)
	// ============================================

	"E160": {
		Category: CategoryCLI,
		Message:  "Invalid command arguments",
	},
}
