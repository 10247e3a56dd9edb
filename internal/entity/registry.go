package entity

import (
	"fmt"
	"sort"
)

// BaseVariant is the discriminator carried by rows of the core types
// themselves, as opposed to application-defined specializations.
const BaseVariant = "base"

// Spec registers one specialization of a core resource under a
// discriminator. New must return a fresh instance already stamped with
// the discriminator.
type Spec struct {
	Kind          Kind
	Discriminator string
	New           func() any
}

type variant interface {
	ObjectKind() Kind
	Variant() string
}

// Registry maps (kind, discriminator) pairs to concrete types.
// Applications register their specializations at startup; Validate
// runs as part of schema migration and an inconsistent mapping aborts
// the migration.
type Registry struct {
	specs map[Kind]map[string]Spec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[Kind]map[string]Spec)}
}

// Register adds a specialization. Registering the same (kind,
// discriminator) pair twice is an error: silent overrides are how
// mismatched dispatch tables happen.
func (r *Registry) Register(spec Spec) error {
	if spec.Kind == "" || spec.Discriminator == "" || spec.New == nil {
		return fmt.Errorf("register %q/%q: incomplete spec", spec.Kind, spec.Discriminator)
	}
	byDisc, ok := r.specs[spec.Kind]
	if !ok {
		byDisc = make(map[string]Spec)
		r.specs[spec.Kind] = byDisc
	}
	if _, dup := byDisc[spec.Discriminator]; dup {
		return fmt.Errorf("register %q/%q: already registered", spec.Kind, spec.Discriminator)
	}
	byDisc[spec.Discriminator] = spec
	return nil
}

// New returns a fresh instance of the concrete type registered for the
// discriminator.
func (r *Registry) New(kind Kind, discriminator string) (any, error) {
	if spec, ok := r.specs[kind][discriminator]; ok {
		return spec.New(), nil
	}
	return nil, fmt.Errorf("%s/%s: %w", kind, discriminator, ErrUnknownVariant)
}

// Variants lists the registered discriminators for a kind, sorted.
func (r *Registry) Variants(kind Kind) []string {
	out := make([]string, 0, len(r.specs[kind]))
	for disc := range r.specs[kind] {
		out = append(out, disc)
	}
	sort.Strings(out)
	return out
}

// Validate checks every registration: the constructed instance must
// report the registered kind and discriminator, and every kind with
// specializations must also carry the base variant. Migration refuses
// to proceed on any violation.
func (r *Registry) Validate() error {
	for kind, byDisc := range r.specs {
		if _, ok := byDisc[BaseVariant]; !ok {
			return fmt.Errorf("registry: kind %q has no %q variant", kind, BaseVariant)
		}
		for disc, spec := range byDisc {
			inst := spec.New()
			v, ok := inst.(variant)
			if !ok {
				return fmt.Errorf("registry: %s/%s constructs %T, which carries no discriminator", kind, disc, inst)
			}
			if v.ObjectKind() != kind {
				return fmt.Errorf("registry: %s/%s constructs a %s", kind, disc, v.ObjectKind())
			}
			if v.Variant() != disc {
				return fmt.Errorf("registry: %s/%s constructs an instance stamped %q", kind, disc, v.Variant())
			}
		}
	}
	return nil
}

// DefaultRegistry returns a registry with the base variant of every
// core resource registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, spec := range []Spec{
		{KindLanguage, BaseVariant, func() any { return NewLanguage("", "") }},
		{KindParameter, BaseVariant, func() any { return NewParameter("", "") }},
		{KindDomainElement, BaseVariant, func() any { return NewDomainElement(0, "", "") }},
		{KindValue, BaseVariant, func() any { return NewValue("", 0, 0) }},
		{KindContribution, BaseVariant, func() any { return NewContribution("", "") }},
		{KindContributor, BaseVariant, func() any { return NewContributor("", "") }},
		{KindSource, BaseVariant, func() any { return NewSource("", "") }},
		{KindSentence, BaseVariant, func() any { return NewSentence() }},
		{KindUnit, BaseVariant, func() any { return NewUnit("", "", 0) }},
		{KindUnitParameter, BaseVariant, func() any { return NewUnitParameter("", "") }},
		{KindUnitDomainElement, BaseVariant, func() any { return NewUnitDomainElement(0, "", "") }},
		{KindUnitValue, BaseVariant, func() any { return NewUnitValue("", 0, 0) }},
		{KindIdentifier, BaseVariant, func() any { return NewIdentifier("", "") }},
	} {
		if err := r.Register(spec); err != nil {
			panic(err)
		}
	}
	return r
}
