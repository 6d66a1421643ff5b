// Package notify fans task lifecycle notifications out to sinks.
//
// The execution engine emits notifications fire-and-forget; the Bus
// delivers each one to every attached sink and shields the engine from
// misbehaving consumers by recovering panics per sink. Sinks included
// here log notifications and bridge them onto MQTT; the API package
// attaches its WebSocket hub as another sink.
package notify
