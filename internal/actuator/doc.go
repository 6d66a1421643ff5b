// Package actuator executes pipeline node actions against the
// controlled target.
//
// Each node carries an action body whose "type" field selects the
// primitive. Supported types:
//
//   - click: tap a point; target [x, y, w, h] overrides the match box.
//   - swipe: drag from begin to end over duration_ms.
//   - press_key: press a key code.
//   - wait: sleep for wait_ms.
//   - do_nothing: succeed immediately. Nodes with no action body
//     default to this.
//
// Run reports completion as a bool; malformed bodies and controller
// failures are logged and reported as incomplete, never raised.
package actuator
