package errors

import "sort"

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// Config (E100-E199)
	"E100": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration",
		Suggestion: "Check the SCRIBBLE_* environment variables and command-line flags",
	},
	"E101": {
		Category:   CategoryConfig,
		Message:    "Invalid tick rate",
		Suggestion: "Set SCRIBBLE_TICK_RATE to a positive value such as 90",
	},
	"E102": {
		Category:   CategoryConfig,
		Message:    "Invalid listen address",
		Suggestion: "Use host:port form, for example 0.0.0.0:5000",
	},
	"E103": {
		Category:   CategoryConfig,
		Message:    "Env file could not be loaded",
		Suggestion: "Check that the path passed to --env-file exists and is readable",
	},
	"E104": {
		Category:   CategoryConfig,
		Message:    "Invalid log settings",
		Suggestion: "SCRIBBLE_LOG_LEVEL is one of debug, info, warn, error; SCRIBBLE_LOG_FORMAT is text or json",
	},

	// Transport (E200-E299)
	"E200": {
		Category:   CategoryTransport,
		Message:    "Listener failed",
		Suggestion: "Another process may already be bound to the address",
	},
	"E201": {
		Category: CategoryTransport,
		Message:  "WebSocket upgrade failed",
	},
	"E202": {
		Category:   CategoryTransport,
		Message:    "LAN advertisement failed",
		Suggestion: "Disable it with --mdns=false if multicast is unavailable on this network",
	},
	"E203": {
		Category: CategoryTransport,
		Message:  "Server shutdown timed out",
	},

	// Session (E300-E399)
	"E300": {
		Category:   CategorySession,
		Message:    "Session limit reached",
		Suggestion: "Raise SCRIBBLE_MAX_SESSIONS or wait for participants to leave",
	},
	"E301": {
		Category: CategorySession,
		Message:  "Session closed",
	},
	"E302": {
		Category: CategorySession,
		Message:  "Malformed client frame",
	},
	"E303": {
		Category: CategorySession,
		Message:  "Render failed",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns every registered code in ascending order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for c := range registry {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
