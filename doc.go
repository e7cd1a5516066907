// Package asyncstream adapts a synchronous, blocking byte stream into an
// asynchronous API of futures, suitable for an RPC transport that wants to
// issue reads and writes without parking its own goroutines on the stream.
//
// An Adapter owns two FIFO queues, one per direction. Each call to Write,
// WriteVectored, Read or TryRead enqueues a record and returns a Future. A
// single drain loop per direction, handed to a Scheduler, pops records in
// order and performs the blocking I/O. Futures in one direction therefore
// settle strictly in submission order, while the two directions proceed
// independently of each other.
//
// Reads have minimum and maximum thresholds. A read settles once at least its
// minimum number of bytes has been placed in the buffer (it may place up to
// the maximum). If the stream ends first, a strict read (Read) fails with a
// *ReadShortfallError, while a truncating read (TryRead) succeeds with however
// many bytes were available.
//
// Sub-packages provide concrete streams: package pipe carries the bytes over a
// bidirectional gRPC stream, and package muxstream exposes yamux streams.
package asyncstream
