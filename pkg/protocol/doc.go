// Package protocol implements the binary frames exchanged between the canvas
// host and its remote displays.
//
// The protocol carries input from client to server and rendered primitives
// from server to client. It has no knowledge of pixels: a client receives an
// ordered list of polylines and rectangles and draws them bottom to top.
//
// # Wire Format
//
// Every message is one frame with a 6-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHello (0x00): Server → Client session greeting
//   - FrameInput (0x01): Client → Server pointer and panel input
//   - FrameRender (0x02): Server → Client primitives for one tick
//   - FrameControl (0x03): Ping, pong, close
//   - FrameTab (0x04): Client → Server tab selection
//   - FrameError (0x05): Server → Client error message
//
// # Encoding
//
// Counts and indexes are varints, signed values use ZigZag varints, floats
// are IEEE 754 big-endian, and strings are varint length-prefixed UTF-8.
// Decoders validate every length against the remaining buffer before
// allocating.
package protocol
