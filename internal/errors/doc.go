// Package errors provides coded, actionable errors for the scribble host.
//
// Every error the host reports to an operator carries a short code that maps
// to a registered message, a longer explanation, and where possible a hint on
// how to fix it:
//
//	err := errors.New("E101").
//	    WithDetail(`tick rate "0" must be positive`).
//	    WithSuggestion("Set SCRIBBLE_TICK_RATE to a value such as 90")
//
//	errors.PrintError(err)
//	// ERROR E101: Invalid tick rate
//	//
//	//   tick rate "0" must be positive
//	//
//	//   Hint: Set SCRIBBLE_TICK_RATE to a value such as 90
//
// Codes are grouped by category:
//   - E100-E199 config: invalid or unreadable configuration
//   - E200-E299 transport: listener, upgrade and discovery failures
//   - E300-E399 session: admission and per-session failures
package errors
