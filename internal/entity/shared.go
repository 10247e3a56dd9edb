package entity

import (
	"time"

	"gorm.io/gorm"
)

// Kind identifies a resource table. It doubles as the owner tag on
// annotation records and as the object type in the change history.
type Kind string

const (
	KindLanguage          Kind = "language"
	KindParameter         Kind = "parameter"
	KindDomainElement     Kind = "domainelement"
	KindValue             Kind = "value"
	KindContribution      Kind = "contribution"
	KindContributor       Kind = "contributor"
	KindSource            Kind = "source"
	KindSentence          Kind = "sentence"
	KindUnit              Kind = "unit"
	KindUnitParameter     Kind = "unitparameter"
	KindUnitDomainElement Kind = "unitdomainelement"
	KindUnitValue         Kind = "unitvalue"
	KindIdentifier        Kind = "identifier"

	// link tables, versioned like everything else
	KindLanguageIdentifier      Kind = "languageidentifier"
	KindValueReference          Kind = "valuereference"
	KindSentenceReference       Kind = "sentencereference"
	KindContributionContributor Kind = "contributioncontributor"
	KindValueSentence           Kind = "valuesentence"
	KindUnitParameterUnit       Kind = "unitparameterunit"
)

// Base carries the surrogate key and row bookkeeping shared by every
// persisted record. Deletion is logical: rows keep their change
// history after Delete.
type Base struct {
	PK        int64          `gorm:"primaryKey;autoIncrement" json:"pk"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ObjectPK returns the surrogate key.
func (b *Base) ObjectPK() int64 { return b.PK }

// Poly carries the single-table specialization discriminator. New rows
// default to the base variant; custom applications stamp their own
// discriminator through the Registry.
type Poly struct {
	PolymorphicType string `gorm:"size:20;not null;default:base" json:"polymorphic_type"`
}

// Variant returns the discriminator, defaulting to "base" for rows
// created before the discriminator was stamped.
func (p *Poly) Variant() string {
	if p.PolymorphicType == "" {
		return BaseVariant
	}
	return p.PolymorphicType
}

// Versioned carries the optimistic-lock counter managed by the change
// history plugin: stamped to 1 on create and bumped on every update.
type Versioned struct {
	Version int `gorm:"not null;default:1" json:"version"`
}

// CurrentVersion returns the version loaded from the database.
func (v *Versioned) CurrentVersion() int { return v.Version }

// SetVersion overwrites the version counter.
func (v *Versioned) SetVersion(n int) { v.Version = n }

// IDNameDescription is the descriptive triple most resources carry:
// an externally visible string identifier unique within the resource
// table, a display name and a free-text description. MarkupDescription
// holds the description with markup preserved where a dataset has one.
type IDNameDescription struct {
	ID                string `gorm:"size:255;uniqueIndex" json:"id"`
	Name              string `gorm:"size:255" json:"name"`
	Description       string `json:"description,omitempty"`
	MarkupDescription string `json:"markup_description,omitempty"`
}
