package entity

import "fmt"

// IdentifierType is the catalog an identifier comes from. The set is
// closed; anything else is rejected before write and by a check
// constraint on the table.
type IdentifierType string

const (
	IdentifierWALS      IdentifierType = "wals"
	IdentifierISO639_3  IdentifierType = "iso639-3"
	IdentifierGlottolog IdentifierType = "glottolog"
)

// ParseIdentifierType validates an arbitrary string against the
// closed catalog set.
func ParseIdentifierType(s string) (IdentifierType, error) {
	switch IdentifierType(s) {
	case IdentifierWALS, IdentifierISO639_3, IdentifierGlottolog:
		return IdentifierType(s), nil
	}
	return "", &InvalidIdentifierTypeError{Type: s}
}

// Identifier is an externally defined name for a language: a WALS
// code, an ISO 639-3 code or a Glottolog languoid. (name, type) pairs
// are unique.
type Identifier struct {
	Base
	Poly
	Versioned
	IDNameDescription

	Type IdentifierType `gorm:"size:20;not null;check:chk_identifiers_type,type IN ('wals','iso639-3','glottolog')" json:"type"`
	Lang string         `gorm:"size:20" json:"lang,omitempty"`

	LanguageIdentifiers []LanguageIdentifier `gorm:"foreignKey:IdentifierPK;references:PK" json:"-"`
}

func (Identifier) TableName() string { return "identifiers" }

func (i *Identifier) ObjectKind() Kind { return KindIdentifier }

// NewIdentifier returns a base-variant identifier. The external id is
// derived from the (type, name) pair, which is what makes an
// identifier unique. Type is validated on write, not here, so callers
// can build and inspect invalid ones.
func NewIdentifier(typ IdentifierType, name string) *Identifier {
	ident := &Identifier{
		Poly:              Poly{PolymorphicType: BaseVariant},
		IDNameDescription: IDNameDescription{Name: name},
		Type:              typ,
	}
	if name != "" {
		ident.ID = string(typ) + ":" + name
	}
	return ident
}

// Validate checks the catalog type.
func (i *Identifier) Validate() error {
	_, err := ParseIdentifierType(string(i.Type))
	return err
}

// URL returns the canonical catalog page for the identified language,
// or "" when the name is empty.
func (i *Identifier) URL() string {
	if i.Name == "" {
		return ""
	}
	switch i.Type {
	case IdentifierWALS:
		return fmt.Sprintf("https://wals.info/languoid/lect/wals_code_%s", i.Name)
	case IdentifierISO639_3:
		return fmt.Sprintf("https://iso639-3.sil.org/code/%s", i.Name)
	case IdentifierGlottolog:
		return fmt.Sprintf("https://glottolog.org/resource/languoid/id/%s", i.Name)
	}
	return ""
}

// LanguageIdentifier links a language to an identifier, optionally
// qualified by a description of the association.
type LanguageIdentifier struct {
	Base
	Versioned

	LanguagePK   int64  `gorm:"not null" json:"language_pk"`
	IdentifierPK int64  `gorm:"not null" json:"identifier_pk"`
	Description  string `json:"description,omitempty"`

	Language   *Language   `gorm:"foreignKey:LanguagePK;references:PK" json:"-"`
	Identifier *Identifier `gorm:"foreignKey:IdentifierPK;references:PK" json:"identifier,omitempty"`
}

func (LanguageIdentifier) TableName() string { return "language_identifiers" }

func (li *LanguageIdentifier) ObjectKind() Kind { return KindLanguageIdentifier }
