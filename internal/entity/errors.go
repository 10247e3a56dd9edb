package entity

import (
	"errors"
	"fmt"
)

// Domain errors shared across resources. Storage adapters translate
// driver-level constraint violations into these sentinels.
var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("duplicate record")
	ErrMissingOwner    = errors.New("referenced record does not exist")
	ErrInvalidPK       = errors.New("invalid primary key")
	ErrVersionConflict = errors.New("stale version")
	ErrUnknownVariant  = errors.New("unknown variant")
)

// DomainMismatchError reports a value linked to a domain element that
// belongs to a different parameter than the value itself.
type DomainMismatchError struct {
	Kind            Kind
	ValuePK         int64
	ParameterPK     int64
	DomainElementPK int64
	DomainParameter int64
}

func (e *DomainMismatchError) Error() string {
	return fmt.Sprintf("%s pk=%d: domain element %d belongs to parameter %d, value references parameter %d",
		e.Kind, e.ValuePK, e.DomainElementPK, e.DomainParameter, e.ParameterPK)
}

// InvalidIdentifierTypeError reports an identifier whose type is not
// one of the recognized catalogs.
type InvalidIdentifierTypeError struct {
	Type string
}

func (e *InvalidIdentifierTypeError) Error() string {
	return fmt.Sprintf("invalid identifier type %q (want wals, iso639-3 or glottolog)", e.Type)
}

// CoordinateRangeError reports a language coordinate outside the valid
// latitude/longitude range.
type CoordinateRangeError struct {
	Field string
	Value float64
}

func (e *CoordinateRangeError) Error() string {
	return fmt.Sprintf("%s %v out of range", e.Field, e.Value)
}
