package snapshot

import (
	"errors"

	"github.com/tauraamui/xerror"
)

const errKind = xerror.Kind("snapshot")

var (
	ErrMetadataSerialization = xerror.NewWithKind(errKind, "unable to serialise snapshot metadata")
	ErrDestinationCollision  = xerror.NewWithKind(errKind, "snapshot destination already exists")
	ErrCreateDestination     = xerror.NewWithKind(errKind, "unable to create snapshot destination")
	ErrEncodeFrame           = xerror.NewWithKind(errKind, "unable to encode and write frame")
)

// failureKind is the label a failed snapshot is reported under.
func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrMetadataSerialization):
		return "metadata"
	case errors.Is(err, ErrDestinationCollision):
		return "collision"
	case errors.Is(err, ErrCreateDestination):
		return "create_destination"
	case errors.Is(err, ErrEncodeFrame):
		return "encode_frame"
	default:
		return "other"
	}
}
