// Package stream implements a typed message channel with blocking and
// non-blocking operations and explicit close semantics.
//
// Key operations:
// - New/Buffered: create a rendezvous or bounded channel
// - Send/TrySend: deliver a value, suspending or refusing when full
// - Receive/TryReceive: take the oldest value, suspending or refusing when empty
// - Close: stop accepting sends; buffered values stay drainable
// - Drain: consume the channel as a lazily produced sequence
// - ReceiveAny: take the first value produced by any of several channels
//
// Delivery is FIFO in send order. Close is idempotent; receivers observe
// crew.ErrChannelClosed only after the buffer is fully drained.
package stream
