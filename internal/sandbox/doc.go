// Package sandbox builds the isolated documents mini-apps run in and tracks
// them from the host side.
//
// BuildDocument wraps untrusted HTML, CSS and JS in a page with a strict CSP
// and a bridge script. The bridge reports lifecycle, error, interaction and
// console messages to the host over postMessage, tagged with a per-document
// channel id and protocol version. The host page relays those messages to the
// backend, where Decode validates them and the Registry drives one Session
// state machine per channel:
//
//	loading -> ready | errored | timed_out
//	ready   -> errored
package sandbox
