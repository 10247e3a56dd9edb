package entity

import (
	"errors"
	"testing"
)

func TestValueValidateDomainMismatch(t *testing.T) {
	val := NewValue("51A-abk", 1, 10)
	val.PK = 100
	val.DomainElement = &DomainElement{
		Base:        Base{PK: 55},
		ParameterPK: 11, // different parameter than the value
	}

	err := val.Validate()
	var mismatch *DomainMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected DomainMismatchError, got %v", err)
	}
	if mismatch.Kind != KindValue || mismatch.ValuePK != 100 {
		t.Fatalf("unexpected error identity: %+v", mismatch)
	}
	if mismatch.ParameterPK != 10 || mismatch.DomainElementPK != 55 || mismatch.DomainParameter != 11 {
		t.Fatalf("unexpected error detail: %+v", mismatch)
	}
}

func TestValueValidateAcceptsMatchingDomain(t *testing.T) {
	val := NewValue("51A-abk", 1, 10)
	val.DomainElement = &DomainElement{Base: Base{PK: 55}, ParameterPK: 10}
	if err := val.Validate(); err != nil {
		t.Fatalf("expected matching domain element to pass, got %v", err)
	}
}

func TestValueValidateSkipsUnloadedDomain(t *testing.T) {
	// With only the foreign key set there is nothing to compare here;
	// the storage adapter resolves the element and re-checks.
	pk := int64(55)
	val := NewValue("51A-abk", 1, 10)
	val.DomainElementPK = &pk
	if err := val.Validate(); err != nil {
		t.Fatalf("expected bare foreign key to pass, got %v", err)
	}
}

func TestValueSortedReferences(t *testing.T) {
	val := NewValue("51A-abk", 1, 10)
	val.References = []ValueReference{
		{Base: Base{PK: 3}, Key: "p. 40"},
		{Base: Base{PK: 2}, Key: "p. 12"},
		{Base: Base{PK: 1}, Key: "p. 12"},
	}

	refs := val.SortedReferences()
	wantPKs := []int64{1, 2, 3}
	for i, ref := range refs {
		if ref.PK != wantPKs[i] {
			t.Fatalf("position %d: expected pk %d, got %d", i, wantPKs[i], ref.PK)
		}
	}

	if val.References[0].PK != 3 {
		t.Fatalf("references were mutated: %+v", val.References)
	}
}
