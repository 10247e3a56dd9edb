package entity

// Source is a bibliographical record values and sentences cite.
// The bibliographical fields follow BibTeX conventions; GlottologID
// and GoogleBookSearchID link the record to external catalogs.
type Source struct {
	Base
	Poly
	Versioned
	IDNameDescription

	BibTeXType         string `gorm:"column:bibtex_type;size:20" json:"bibtex_type,omitempty"`
	Author             string `gorm:"size:255" json:"author,omitempty"`
	Editor             string `gorm:"size:255" json:"editor,omitempty"`
	Year               string `gorm:"size:50" json:"year,omitempty"`
	Title              string `json:"title,omitempty"`
	BookTitle          string `gorm:"column:booktitle" json:"booktitle,omitempty"`
	Publisher          string `gorm:"size:255" json:"publisher,omitempty"`
	Pages              string `gorm:"size:100" json:"pages,omitempty"`
	GlottologID        string `gorm:"size:20" json:"glottolog_id,omitempty"`
	GoogleBookSearchID string `gorm:"size:40" json:"google_book_search_id,omitempty"`

	Data  []Datum `gorm:"polymorphic:Object;polymorphicValue:source" json:"data,omitempty"`
	Files []File  `gorm:"polymorphic:Object;polymorphicValue:source" json:"files,omitempty"`
}

func (Source) TableName() string { return "sources" }

func (s *Source) ObjectKind() Kind { return KindSource }

// NewSource returns a base-variant source.
func NewSource(id, name string) *Source {
	return &Source{
		Poly:              Poly{PolymorphicType: BaseVariant},
		IDNameDescription: IDNameDescription{ID: id, Name: name},
	}
}

// DataDict returns the key/value annotations as a map.
func (s *Source) DataDict() map[string]string { return DataDict(s.Data) }

// FilesDict returns the file annotations keyed by name.
func (s *Source) FilesDict() map[string]File { return FilesDict(s.Files) }
