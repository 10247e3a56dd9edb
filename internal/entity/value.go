package entity

import "sort"

// Value is a measurement: the value a parameter takes for a language,
// as asserted by a contribution. When the parameter has a closed
// domain, the value points at one of its domain elements; that link is
// only valid when both sides agree on the parameter.
type Value struct {
	Base
	Poly
	Versioned
	IDNameDescription

	LanguagePK      int64    `gorm:"not null" json:"language_pk"`
	ParameterPK     int64    `gorm:"not null" json:"parameter_pk"`
	ContributionPK  *int64   `json:"contribution_pk,omitempty"`
	DomainElementPK *int64   `gorm:"column:domainelement_pk" json:"domainelement_pk,omitempty"`
	Frequency       *float64 `json:"frequency,omitempty"`
	Confidence      string   `gorm:"size:50" json:"confidence,omitempty"`

	Language       *Language        `gorm:"foreignKey:LanguagePK;references:PK" json:"language,omitempty"`
	Parameter      *Parameter       `gorm:"foreignKey:ParameterPK;references:PK" json:"-"`
	Contribution   *Contribution    `gorm:"foreignKey:ContributionPK;references:PK" json:"-"`
	DomainElement  *DomainElement   `gorm:"foreignKey:DomainElementPK;references:PK" json:"domainelement,omitempty"`
	References     []ValueReference `gorm:"foreignKey:ValuePK;references:PK" json:"references,omitempty"`
	SentenceAssocs []ValueSentence  `gorm:"foreignKey:ValuePK;references:PK" json:"sentence_assocs,omitempty"`
	Data           []Datum          `gorm:"polymorphic:Object;polymorphicValue:value" json:"data,omitempty"`
	Files          []File           `gorm:"polymorphic:Object;polymorphicValue:value" json:"files,omitempty"`
}

func (Value) TableName() string { return "values" }

func (v *Value) ObjectKind() Kind { return KindValue }

// NewValue returns a base-variant value.
func NewValue(id string, languagePK, parameterPK int64) *Value {
	return &Value{
		Poly:              Poly{PolymorphicType: BaseVariant},
		IDNameDescription: IDNameDescription{ID: id},
		LanguagePK:        languagePK,
		ParameterPK:       parameterPK,
	}
}

// Validate checks domain consistency against the loaded domain
// element. Storage adapters run the same check against the database
// when only the foreign key is set.
func (v *Value) Validate() error {
	if v.DomainElement != nil && v.DomainElement.ParameterPK != v.ParameterPK {
		return &DomainMismatchError{
			Kind:            KindValue,
			ValuePK:         v.PK,
			ParameterPK:     v.ParameterPK,
			DomainElementPK: v.DomainElement.PK,
			DomainParameter: v.DomainElement.ParameterPK,
		}
	}
	return nil
}

// SortedReferences returns the citation links ordered by key, then pk.
func (v *Value) SortedReferences() []ValueReference {
	refs := make([]ValueReference, len(v.References))
	copy(refs, v.References)
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Key != refs[j].Key {
			return refs[i].Key < refs[j].Key
		}
		return refs[i].PK < refs[j].PK
	})
	return refs
}

// DataDict returns the key/value annotations as a map.
func (v *Value) DataDict() map[string]string { return DataDict(v.Data) }

// FilesDict returns the file annotations keyed by name.
func (v *Value) FilesDict() map[string]File { return FilesDict(v.Files) }

// ValueReference cites a source for a value. Key is the citation
// context (typically page numbers).
type ValueReference struct {
	Base
	Versioned

	ValuePK     int64  `gorm:"not null" json:"value_pk"`
	SourcePK    int64  `gorm:"not null" json:"source_pk"`
	Key         string `gorm:"size:255" json:"key,omitempty"`
	Description string `json:"description,omitempty"`

	Value  *Value  `gorm:"foreignKey:ValuePK;references:PK" json:"-"`
	Source *Source `gorm:"foreignKey:SourcePK;references:PK" json:"source,omitempty"`
}

func (ValueReference) TableName() string { return "value_references" }

func (vr *ValueReference) ObjectKind() Kind { return KindValueReference }

// ValueSentence links a value to a sentence illustrating it.
type ValueSentence struct {
	Base
	Versioned

	ValuePK     int64  `gorm:"not null" json:"value_pk"`
	SentencePK  int64  `gorm:"not null" json:"sentence_pk"`
	Description string `json:"description,omitempty"`

	Value    *Value    `gorm:"foreignKey:ValuePK;references:PK" json:"-"`
	Sentence *Sentence `gorm:"foreignKey:SentencePK;references:PK" json:"sentence,omitempty"`
}

func (ValueSentence) TableName() string { return "value_sentences" }

func (vs *ValueSentence) ObjectKind() Kind { return KindValueSentence }
