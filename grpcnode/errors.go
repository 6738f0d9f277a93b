package grpcnode

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrNotConnected = errors.New("grpcnode: client not connected")
	ErrNoDirectory  = errors.New("grpcnode: missing directory")
)

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, st.Message())
	case codes.FailedPrecondition:
		if st.Message() == ErrNoDirectory.Error() {
			return ErrNoDirectory
		}
		return err
	default:
		return err
	}
}
