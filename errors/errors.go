package errors

import (
	goerrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrValidation       = fmt.Errorf("validation error")
	ErrStoreUnavailable = fmt.Errorf("message store unavailable")
	ErrDeliveryFailure  = fmt.Errorf("delivery failure")
	ErrTransportClosed  = fmt.Errorf("transport closed")
	ErrUnknownSession   = fmt.Errorf("unknown session")
	ErrUnauthenticated  = fmt.Errorf("unauthenticated")
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrEmptyWords       = fmt.Errorf("no words have been found")
	ErrSearchDisabled   = fmt.Errorf("search is disabled")
)

// MapToGRPCError translates domain errors into gRPC status errors.
// Errors that already carry a status are returned unchanged.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case goerrors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case goerrors.Is(err, ErrStoreUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case goerrors.Is(err, ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case goerrors.Is(err, ErrSearchDisabled):
		return status.Error(codes.Unimplemented, err.Error())
	case goerrors.Is(err, ErrUnknownSession), goerrors.Is(err, ErrTransportClosed):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// Code returns a short machine readable identifier sent to clients in error events.
func Code(err error) string {
	switch {
	case goerrors.Is(err, ErrValidation):
		return "validation"
	case goerrors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case goerrors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "internal"
	}
}
