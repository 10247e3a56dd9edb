package entity

import "sort"

// Sentence is an example sentence. Unlike the other resources it has
// no external identifier or name; sentences are reached through the
// values they illustrate.
type Sentence struct {
	Base
	Poly
	Versioned

	References []SentenceReference `gorm:"foreignKey:SentencePK;references:PK" json:"references,omitempty"`
	Data       []Datum             `gorm:"polymorphic:Object;polymorphicValue:sentence" json:"data,omitempty"`
	Files      []File              `gorm:"polymorphic:Object;polymorphicValue:sentence" json:"files,omitempty"`
}

func (Sentence) TableName() string { return "sentences" }

func (s *Sentence) ObjectKind() Kind { return KindSentence }

// NewSentence returns a base-variant sentence.
func NewSentence() *Sentence {
	return &Sentence{Poly: Poly{PolymorphicType: BaseVariant}}
}

// SortedReferences returns the citation links ordered by key, then pk.
func (s *Sentence) SortedReferences() []SentenceReference {
	refs := make([]SentenceReference, len(s.References))
	copy(refs, s.References)
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Key != refs[j].Key {
			return refs[i].Key < refs[j].Key
		}
		return refs[i].PK < refs[j].PK
	})
	return refs
}

// DataDict returns the key/value annotations as a map.
func (s *Sentence) DataDict() map[string]string { return DataDict(s.Data) }

// FilesDict returns the file annotations keyed by name.
func (s *Sentence) FilesDict() map[string]File { return FilesDict(s.Files) }

// SentenceReference cites a source for a sentence.
type SentenceReference struct {
	Base
	Versioned

	SentencePK  int64  `gorm:"not null" json:"sentence_pk"`
	SourcePK    int64  `gorm:"not null" json:"source_pk"`
	Key         string `gorm:"size:255" json:"key,omitempty"`
	Description string `json:"description,omitempty"`

	Sentence *Sentence `gorm:"foreignKey:SentencePK;references:PK" json:"-"`
	Source   *Source   `gorm:"foreignKey:SourcePK;references:PK" json:"source,omitempty"`
}

func (SentenceReference) TableName() string { return "sentence_references" }

func (sr *SentenceReference) ObjectKind() Kind { return KindSentenceReference }
