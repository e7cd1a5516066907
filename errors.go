package asyncstream

import (
	"fmt"
	"io"
	"strconv"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errorDomain = "asyncstream"

var (
	// ErrClosed is returned by writes issued after ShutdownWrite.
	ErrClosed = status.Error(codes.FailedPrecondition, "write() called after ShutdownWrite()")

	// ErrEndOfStream is returned by strict reads issued after the adapter has
	// already observed the end of the underlying stream.
	ErrEndOfStream = status.Error(codes.OutOfRange, "EOF when attempting to read")
)

// ReadShortfallError is returned by a strict read when the stream ends before
// the read's minimum number of bytes could be obtained. The buffer given to the
// read holds the BytesRead bytes that were obtained.
type ReadShortfallError struct {
	BytesRead int
	MinBytes  int
}

func (e *ReadShortfallError) Error() string {
	return fmt.Sprintf("EOF when attempting to read: got %d bytes, needed at least %d", e.BytesRead, e.MinBytes)
}

// Is reports a shortfall as an unexpected EOF, so callers can check for it
// with errors.Is(err, io.ErrUnexpectedEOF).
func (e *ReadShortfallError) Is(target error) bool {
	return target == io.ErrUnexpectedEOF
}

// GRPCStatus lets an RPC transport propagate the shortfall as an OutOfRange
// status. The counts are attached as an ErrorInfo detail.
func (e *ReadShortfallError) GRPCStatus() *status.Status {
	st := status.New(codes.OutOfRange, e.Error())
	withDetails, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason: "READ_SHORTFALL",
		Domain: errorDomain,
		Metadata: map[string]string{
			"bytes_read": strconv.Itoa(e.BytesRead),
			"min_bytes":  strconv.Itoa(e.MinBytes),
		},
	})
	if err != nil {
		return st
	}
	return withDetails
}

func checkReadBounds(p []byte, minBytes, maxBytes int) error {
	if minBytes < 0 || minBytes > maxBytes || maxBytes > len(p) {
		return status.Errorf(codes.InvalidArgument, "invalid read bounds: min %d, max %d, buffer size %d", minBytes, maxBytes, len(p))
	}
	return nil
}
