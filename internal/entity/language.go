package entity

// Language is a languoid: a language, dialect or language family a
// dataset makes statements about. Coordinates are optional; when set
// they must lie within the usual WGS84 bounds, enforced both here and
// by check constraints on the table.
type Language struct {
	Base
	Poly
	Versioned
	IDNameDescription

	Latitude  *float64 `gorm:"check:chk_languages_latitude,latitude BETWEEN -90 AND 90" json:"latitude,omitempty"`
	Longitude *float64 `gorm:"check:chk_languages_longitude,longitude BETWEEN -180 AND 180" json:"longitude,omitempty"`

	LanguageIdentifiers []LanguageIdentifier `gorm:"foreignKey:LanguagePK;references:PK" json:"language_identifiers,omitempty"`
	Values              []Value              `gorm:"foreignKey:LanguagePK;references:PK" json:"-"`
	Units               []Unit               `gorm:"foreignKey:LanguagePK;references:PK" json:"-"`
	Data                []Datum              `gorm:"polymorphic:Object;polymorphicValue:language" json:"data,omitempty"`
	Files               []File               `gorm:"polymorphic:Object;polymorphicValue:language" json:"files,omitempty"`
}

func (Language) TableName() string { return "languages" }

func (l *Language) ObjectKind() Kind { return KindLanguage }

// NewLanguage returns a base-variant language.
func NewLanguage(id, name string) *Language {
	return &Language{
		Poly:              Poly{PolymorphicType: BaseVariant},
		IDNameDescription: IDNameDescription{ID: id, Name: name},
	}
}

// Validate checks the coordinate ranges.
func (l *Language) Validate() error {
	if l.Latitude != nil && (*l.Latitude < -90 || *l.Latitude > 90) {
		return &CoordinateRangeError{Field: "latitude", Value: *l.Latitude}
	}
	if l.Longitude != nil && (*l.Longitude < -180 || *l.Longitude > 180) {
		return &CoordinateRangeError{Field: "longitude", Value: *l.Longitude}
	}
	return nil
}

// Identifiers returns the linked identifiers, in link order. The
// LanguageIdentifiers association must be loaded with its Identifier
// side for the result to be complete.
func (l *Language) Identifiers() []Identifier {
	out := make([]Identifier, 0, len(l.LanguageIdentifiers))
	for _, li := range l.LanguageIdentifiers {
		if li.Identifier != nil {
			out = append(out, *li.Identifier)
		}
	}
	return out
}

// DataDict returns the key/value annotations as a map.
func (l *Language) DataDict() map[string]string { return DataDict(l.Data) }

// FilesDict returns the file annotations keyed by name.
func (l *Language) FilesDict() map[string]File { return FilesDict(l.Files) }
