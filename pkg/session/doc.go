// Package session provides the per-session state store.
//
// A Store maps an opaque session Key to a lazily created value. The first
// lookup for a key runs the factory; every later lookup returns the same
// Handle, so state created on a session's first tick survives across ticks:
//
//	views := session.NewStore[View]()
//	h := views.GetOrCreate(key, newView)
//	h.With(func(v *View) {
//	    // v is exclusively held until the callback returns
//	})
//
// The store serializes access to its map, not to the values it holds. Each
// Handle carries its own mutex; callers lock the handle before touching the
// value.
//
// # Teardown
//
// Entries can be removed explicitly with Delete when a session disconnects,
// or swept by an idle timeout (WithIdleTimeout). Close discards every entry.
package session
