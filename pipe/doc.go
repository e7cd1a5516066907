// Package pipe carries an asyncstream byte stream over a bidirectional gRPC
// stream.
//
// The PipeService has a single method, Open, whose request and response
// messages are google.protobuf.BytesValue frames. Frame boundaries carry no
// meaning: the bytes of all frames sent in one direction form a single byte
// stream. A client half-closing its side of the RPC ends the stream seen by
// the server; the server returning from the handler ends the stream seen by
// the client.
//
// On the server, a PipeServiceHandler wraps each opened pipe in an
// *asyncstream.Adapter and hands it to a serve function. On the client, Open
// returns an adapter for a newly opened pipe.
package pipe
