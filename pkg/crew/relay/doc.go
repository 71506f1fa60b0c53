// Package relay links two channel endpoints across a worker boundary through
// one ordered message transport per direction.
//
// Key operations:
// - Link: create a connected endpoint pair with bounded buffers
// - Send/TrySend: transmit a value, surfacing as a buffered value on the peer
// - Receive/TryReceive/Drain: consume values delivered by the peer
// - Close: transmit a control frame; the peer applies closure after draining
//   every value sent before it
//
// Closure is not instantaneous across the boundary. When a close races a
// final send from the other side, the closing side wins: a value arriving
// after the local close is dropped. Frames carry sequence numbers so this
// tie-break is deterministic.
package relay
