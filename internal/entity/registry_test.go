package entity

import (
	"errors"
	"reflect"
	"testing"
)

func TestDefaultRegistryValidates(t *testing.T) {
	r := DefaultRegistry()
	if err := r.Validate(); err != nil {
		t.Fatalf("default registry failed validation: %v", err)
	}
	if got := r.Variants(KindLanguage); !reflect.DeepEqual(got, []string{BaseVariant}) {
		t.Fatalf("expected just the base variant, got %v", got)
	}
}

func TestRegistryNew(t *testing.T) {
	r := DefaultRegistry()

	inst, err := r.New(KindValue, BaseVariant)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := inst.(*Value); !ok {
		t.Fatalf("expected *Value, got %T", inst)
	}

	if _, err := r.New(KindValue, "wals-value"); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant, got %v", err)
	}
}

func TestRegistryRejectsDuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	spec := Spec{Kind: KindLanguage, Discriminator: BaseVariant, New: func() any { return NewLanguage("", "") }}
	if err := r.Register(spec); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := r.Register(spec); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestRegistryRejectsIncompleteSpec(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Spec{Kind: KindLanguage, Discriminator: "survey"}); err == nil {
		t.Fatalf("expected spec without constructor to fail")
	}
}

func TestRegistryAcceptsStampedSpecialization(t *testing.T) {
	r := NewRegistry()
	base := Spec{Kind: KindLanguage, Discriminator: BaseVariant, New: func() any { return NewLanguage("", "") }}
	survey := Spec{Kind: KindLanguage, Discriminator: "survey", New: func() any {
		lang := NewLanguage("", "")
		lang.PolymorphicType = "survey"
		return lang
	}}

	for _, spec := range []Spec{base, survey} {
		if err := r.Register(spec); err != nil {
			t.Fatalf("register %s/%s: %v", spec.Kind, spec.Discriminator, err)
		}
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("expected stamped specialization to validate, got %v", err)
	}
	if got := r.Variants(KindLanguage); !reflect.DeepEqual(got, []string{BaseVariant, "survey"}) {
		t.Fatalf("unexpected variants: %v", got)
	}
}

func TestRegistryValidateFailures(t *testing.T) {
	base := Spec{Kind: KindLanguage, Discriminator: BaseVariant, New: func() any { return NewLanguage("", "") }}

	tests := []struct {
		name  string
		specs []Spec
	}{
		{
			"missing base variant",
			[]Spec{{Kind: KindLanguage, Discriminator: "survey", New: func() any {
				lang := NewLanguage("", "")
				lang.PolymorphicType = "survey"
				return lang
			}}},
		},
		{
			"constructor builds the wrong kind",
			[]Spec{base, {Kind: KindLanguage, Discriminator: "survey", New: func() any {
				p := NewParameter("", "")
				p.PolymorphicType = "survey"
				return p
			}}},
		},
		{
			"constructor leaves the wrong stamp",
			[]Spec{base, {Kind: KindLanguage, Discriminator: "survey", New: func() any {
				return NewLanguage("", "") // still stamped base
			}}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRegistry()
			for _, spec := range tc.specs {
				if err := r.Register(spec); err != nil {
					t.Fatalf("register: %v", err)
				}
			}
			if err := r.Validate(); err == nil {
				t.Fatalf("expected validation to fail")
			}
		})
	}
}
