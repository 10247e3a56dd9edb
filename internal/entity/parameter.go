package entity

import "iter"

// Parameter is a comparable feature: something that can be measured
// or stated per language, with values drawn from an optional closed
// domain.
type Parameter struct {
	Base
	Poly
	Versioned
	IDNameDescription

	Domain []DomainElement `gorm:"foreignKey:ParameterPK;references:PK" json:"domain,omitempty"`
	Values []Value         `gorm:"foreignKey:ParameterPK;references:PK" json:"-"`
	Data   []Datum         `gorm:"polymorphic:Object;polymorphicValue:parameter" json:"data,omitempty"`
	Files  []File          `gorm:"polymorphic:Object;polymorphicValue:parameter" json:"files,omitempty"`
}

func (Parameter) TableName() string { return "parameters" }

func (p *Parameter) ObjectKind() Kind { return KindParameter }

// NewParameter returns a base-variant parameter.
func NewParameter(id, name string) *Parameter {
	return &Parameter{
		Poly:              Poly{PolymorphicType: BaseVariant},
		IDNameDescription: IDNameDescription{ID: id, Name: name},
	}
}

// DomainElement is one element of a parameter's closed value domain.
// (parameter, name) and (parameter, number) are unique.
type DomainElement struct {
	Base
	Poly
	Versioned
	IDNameDescription

	ParameterPK int64 `gorm:"not null" json:"parameter_pk"`
	Number      int   `json:"number"`

	Parameter *Parameter `gorm:"foreignKey:ParameterPK;references:PK" json:"-"`
	Data      []Datum    `gorm:"polymorphic:Object;polymorphicValue:domainelement" json:"data,omitempty"`
	Files     []File     `gorm:"polymorphic:Object;polymorphicValue:domainelement" json:"files,omitempty"`
}

func (DomainElement) TableName() string { return "domain_elements" }

func (de *DomainElement) ObjectKind() Kind { return KindDomainElement }

// NewDomainElement returns a base-variant domain element.
func NewDomainElement(parameterPK int64, id, name string) *DomainElement {
	return &DomainElement{
		Poly:              Poly{PolymorphicType: BaseVariant},
		IDNameDescription: IDNameDescription{ID: id, Name: name},
		ParameterPK:       parameterPK,
	}
}

// DataDict returns the key/value annotations as a map.
func (p *Parameter) DataDict() map[string]string { return DataDict(p.Data) }

// FilesDict returns the file annotations keyed by name.
func (p *Parameter) FilesDict() map[string]File { return FilesDict(p.Files) }

func (de *DomainElement) DataDict() map[string]string { return DataDict(de.Data) }

func (de *DomainElement) FilesDict() map[string]File { return FilesDict(de.Files) }

// GroupValuesByLanguage yields (language, values) pairs from a value
// slice.  Grouping is by consecutive run of the same language: a new
// pair starts at every language change, so input ordered by language
// yields one pair per language while unsorted input yields the same
// language once per run. The language is taken from the first value of
// the run and is nil when the association was not loaded.
func GroupValuesByLanguage(values []*Value) iter.Seq2[*Language, []*Value] {
	return func(yield func(*Language, []*Value) bool) {
		for start := 0; start < len(values); {
			end := start + 1
			for end < len(values) && values[end].LanguagePK == values[start].LanguagePK {
				end++
			}
			run := values[start:end:end]
			if !yield(run[0].Language, run) {
				return
			}
			start = end
		}
	}
}
