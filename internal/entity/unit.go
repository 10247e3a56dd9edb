package entity

// Unit is a sub-language analysis unit: a word, morpheme or phrase of
// a language that unit parameters make statements about.
type Unit struct {
	Base
	Poly
	Versioned
	IDNameDescription

	LanguagePK int64 `gorm:"not null" json:"language_pk"`

	Language *Language `gorm:"foreignKey:LanguagePK;references:PK" json:"language,omitempty"`
	Data     []Datum   `gorm:"polymorphic:Object;polymorphicValue:unit" json:"data,omitempty"`
	Files    []File    `gorm:"polymorphic:Object;polymorphicValue:unit" json:"files,omitempty"`
}

func (Unit) TableName() string { return "units" }

func (u *Unit) ObjectKind() Kind { return KindUnit }

// NewUnit returns a base-variant unit.
func NewUnit(id, name string, languagePK int64) *Unit {
	return &Unit{
		Poly:              Poly{PolymorphicType: BaseVariant},
		IDNameDescription: IDNameDescription{ID: id, Name: name},
		LanguagePK:        languagePK,
	}
}

// DataDict returns the key/value annotations as a map.
func (u *Unit) DataDict() map[string]string { return DataDict(u.Data) }

// FilesDict returns the file annotations keyed by name.
func (u *Unit) FilesDict() map[string]File { return FilesDict(u.Files) }

// UnitParameter is a feature measured per unit rather than per
// language, with values drawn from an optional closed domain.
type UnitParameter struct {
	Base
	Poly
	Versioned
	IDNameDescription

	Domain     []UnitDomainElement `gorm:"foreignKey:UnitParameterPK;references:PK" json:"domain,omitempty"`
	UnitAssocs []UnitParameterUnit `gorm:"foreignKey:UnitParameterPK;references:PK" json:"unit_assocs,omitempty"`
	Data       []Datum             `gorm:"polymorphic:Object;polymorphicValue:unitparameter" json:"data,omitempty"`
	Files      []File              `gorm:"polymorphic:Object;polymorphicValue:unitparameter" json:"files,omitempty"`
}

func (UnitParameter) TableName() string { return "unit_parameters" }

func (up *UnitParameter) ObjectKind() Kind { return KindUnitParameter }

// NewUnitParameter returns a base-variant unit parameter.
func NewUnitParameter(id, name string) *UnitParameter {
	return &UnitParameter{
		Poly:              Poly{PolymorphicType: BaseVariant},
		IDNameDescription: IDNameDescription{ID: id, Name: name},
	}
}

func (up *UnitParameter) DataDict() map[string]string { return DataDict(up.Data) }

func (up *UnitParameter) FilesDict() map[string]File { return FilesDict(up.Files) }

// UnitDomainElement is one element of a unit parameter's closed
// domain. (unit parameter, name) is unique.
type UnitDomainElement struct {
	Base
	Poly
	Versioned
	IDNameDescription

	UnitParameterPK int64 `gorm:"column:unitparameter_pk;not null" json:"unitparameter_pk"`
	Ord             int   `gorm:"not null;default:1" json:"ord"`

	UnitParameter *UnitParameter `gorm:"foreignKey:UnitParameterPK;references:PK" json:"-"`
	Data          []Datum        `gorm:"polymorphic:Object;polymorphicValue:unitdomainelement" json:"data,omitempty"`
	Files         []File         `gorm:"polymorphic:Object;polymorphicValue:unitdomainelement" json:"files,omitempty"`
}

func (UnitDomainElement) TableName() string { return "unit_domain_elements" }

func (ude *UnitDomainElement) ObjectKind() Kind { return KindUnitDomainElement }

// NewUnitDomainElement returns a base-variant unit domain element.
func NewUnitDomainElement(unitParameterPK int64, id, name string) *UnitDomainElement {
	return &UnitDomainElement{
		Poly:              Poly{PolymorphicType: BaseVariant},
		IDNameDescription: IDNameDescription{ID: id, Name: name},
		UnitParameterPK:   unitParameterPK,
	}
}

// UnitValue is the value a unit parameter takes for a unit. The same
// domain-consistency rule as for Value applies, against the unit
// parameter's domain.
type UnitValue struct {
	Base
	Poly
	Versioned
	IDNameDescription

	UnitPK              int64  `gorm:"not null" json:"unit_pk"`
	UnitParameterPK     int64  `gorm:"column:unitparameter_pk;not null" json:"unitparameter_pk"`
	ContributionPK      *int64 `json:"contribution_pk,omitempty"`
	UnitDomainElementPK *int64 `gorm:"column:unitdomainelement_pk" json:"unitdomainelement_pk,omitempty"`

	Unit              *Unit              `gorm:"foreignKey:UnitPK;references:PK" json:"-"`
	UnitParameter     *UnitParameter     `gorm:"foreignKey:UnitParameterPK;references:PK" json:"-"`
	Contribution      *Contribution      `gorm:"foreignKey:ContributionPK;references:PK" json:"-"`
	UnitDomainElement *UnitDomainElement `gorm:"foreignKey:UnitDomainElementPK;references:PK" json:"unitdomainelement,omitempty"`
	Data              []Datum            `gorm:"polymorphic:Object;polymorphicValue:unitvalue" json:"data,omitempty"`
	Files             []File             `gorm:"polymorphic:Object;polymorphicValue:unitvalue" json:"files,omitempty"`
}

func (UnitValue) TableName() string { return "unit_values" }

func (uv *UnitValue) ObjectKind() Kind { return KindUnitValue }

// NewUnitValue returns a base-variant unit value.
func NewUnitValue(id string, unitPK, unitParameterPK int64) *UnitValue {
	return &UnitValue{
		Poly:              Poly{PolymorphicType: BaseVariant},
		IDNameDescription: IDNameDescription{ID: id},
		UnitPK:            unitPK,
		UnitParameterPK:   unitParameterPK,
	}
}

// Validate checks domain consistency against the loaded unit domain
// element.
func (uv *UnitValue) Validate() error {
	if uv.UnitDomainElement != nil && uv.UnitDomainElement.UnitParameterPK != uv.UnitParameterPK {
		return &DomainMismatchError{
			Kind:            KindUnitValue,
			ValuePK:         uv.PK,
			ParameterPK:     uv.UnitParameterPK,
			DomainElementPK: uv.UnitDomainElement.PK,
			DomainParameter: uv.UnitDomainElement.UnitParameterPK,
		}
	}
	return nil
}

func (uv *UnitValue) DataDict() map[string]string { return DataDict(uv.Data) }

func (uv *UnitValue) FilesDict() map[string]File { return FilesDict(uv.Files) }

// UnitParameterUnit links a unit to a unit parameter outside of any
// concrete value, carrying its own descriptive triple.
type UnitParameterUnit struct {
	Base
	Versioned
	IDNameDescription

	UnitPK          int64 `gorm:"not null" json:"unit_pk"`
	UnitParameterPK int64 `gorm:"column:unitparameter_pk;not null" json:"unitparameter_pk"`

	Unit          *Unit          `gorm:"foreignKey:UnitPK;references:PK" json:"unit,omitempty"`
	UnitParameter *UnitParameter `gorm:"foreignKey:UnitParameterPK;references:PK" json:"-"`
}

func (UnitParameterUnit) TableName() string { return "unit_parameter_units" }

func (upu *UnitParameterUnit) ObjectKind() Kind { return KindUnitParameterUnit }
