// Package k8090 drives a Velleman K8090/VM8090 relay card over a serial link.
package k8090

// A Session owns one board: the transport, the cached state of the 8 relays
// and 8 buttons, and the card metadata (firmware version, event jumper).
//
// The protocol is half-duplex with one outstanding request at a time, so
// command issuance is serialized inside the session. A dedicated reader
// goroutine drains the transport continuously and routes every inbound
// frame either to the waiter of an in-flight command or to the unsolicited
// event path, so button presses and timer expirations are not lost while a
// command is pending.
//
// Relay and Button handles are index-only views over the session's state;
// they never hold independent copies.
