// Package controller talks to the device agent over MQTT.
//
// The agent subscribes to command topics and answers on the matching
// reply topics. Every command carries a correlation id; replies are
// routed back to the waiting caller by that id, so multiple commands
// can be in flight at once.
//
//	visionflow/command/{device}/screencap  -> visionflow/reply/{device}/screencap
//	visionflow/command/{device}/input      -> visionflow/reply/{device}/input
//
// Screencap replies carry a base64-encoded PNG. Input commands (tap,
// swipe, press_key) are acknowledged with {"id": ..., "ok": true}.
package controller
