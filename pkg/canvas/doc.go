// Package canvas implements the collaborative drawing model shared by every
// connected session.
//
// The package has three parts:
//
//   - Board holds the state every session sees: the completed drawings and one
//     in-progress drawing per registered participant. All access goes through
//     Board methods, each of which takes the board lock for exactly one logical
//     operation.
//   - Participant holds the state owned by a single session: its pen palette,
//     the selected pen, and the slot it was assigned on the board.
//   - Step runs one tick of interaction for one session. It applies the
//     session's input to the board and the participant and returns the
//     primitives to draw for that session.
//
// # Ordering
//
// Step emits primitives bottom to top: completed drawings first, then every
// participant's in-progress drawing, then the optional hover highlight.
//
// # Concurrency
//
// Board is safe for concurrent use. Participant is not; the caller owns it
// for the duration of a Step call.
package canvas
