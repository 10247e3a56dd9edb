// Package load seeds a freshly migrated database from a JSON dataset
// file. Objects are staged under (kind, key) so later entries can
// reference earlier ones by key, and the whole dataset flushes in one
// transaction.
package load

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moyogo/clld/internal/entity"
	"github.com/moyogo/clld/internal/infrastructure/database/history"
)

// Actor is the name the change history records for loader writes.
const Actor = "db-init"

// Dataset is the file format consumed by the loader. Entries reference
// each other by dataset key: resources by their external id, sentences
// by an explicit key since they carry no id of their own.
type Dataset struct {
	Languages     []LanguageEntry     `json:"languages,omitempty"`
	Parameters    []ParameterEntry    `json:"parameters,omitempty"`
	Contributors  []ContributorEntry  `json:"contributors,omitempty"`
	Contributions []ContributionEntry `json:"contributions,omitempty"`
	Sources       []SourceEntry       `json:"sources,omitempty"`
	Sentences     []SentenceEntry     `json:"sentences,omitempty"`
	Values        []ValueEntry        `json:"values,omitempty"`
}

type LanguageEntry struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Latitude    *float64          `json:"latitude,omitempty"`
	Longitude   *float64          `json:"longitude,omitempty"`
	Identifiers []IdentifierEntry `json:"identifiers,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
}

type IdentifierEntry struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Lang        string `json:"lang,omitempty"`
	Description string `json:"description,omitempty"`
}

type ParameterEntry struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Domain      []DomainElementEntry `json:"domain,omitempty"`
	Data        map[string]string    `json:"data,omitempty"`
}

type DomainElementEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Number      int    `json:"number"`
	Description string `json:"description,omitempty"`
}

type ContributorEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

type ContributionEntry struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Date        string        `json:"date,omitempty"`
	Credits     []CreditEntry `json:"credits,omitempty"`
}

// CreditEntry credits a contributor on the enclosing contribution.
// Primary defaults to true; Ord to the position in the credits list.
type CreditEntry struct {
	Contributor string `json:"contributor"`
	Ord         int    `json:"ord,omitempty"`
	Primary     *bool  `json:"primary,omitempty"`
}

type SourceEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	BibTeXType  string `json:"bibtex_type,omitempty"`
	Author      string `json:"author,omitempty"`
	Editor      string `json:"editor,omitempty"`
	Year        string `json:"year,omitempty"`
	Title       string `json:"title,omitempty"`
	BookTitle   string `json:"booktitle,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	Pages       string `json:"pages,omitempty"`
	GlottologID string `json:"glottolog_id,omitempty"`
}

type SentenceEntry struct {
	Key        string            `json:"key"`
	References []ReferenceEntry  `json:"references,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
}

// ReferenceEntry cites a source; Key is the citation context,
// typically page numbers.
type ReferenceEntry struct {
	Source      string `json:"source"`
	Key         string `json:"key,omitempty"`
	Description string `json:"description,omitempty"`
}

type ValueEntry struct {
	ID            string            `json:"id"`
	Name          string            `json:"name,omitempty"`
	Language      string            `json:"language"`
	Parameter     string            `json:"parameter"`
	Contribution  string            `json:"contribution,omitempty"`
	DomainElement string            `json:"domainelement,omitempty"`
	Frequency     *float64          `json:"frequency,omitempty"`
	Confidence    string            `json:"confidence,omitempty"`
	References    []ReferenceEntry  `json:"references,omitempty"`
	Sentences     []string          `json:"sentences,omitempty"`
	Data          map[string]string `json:"data,omitempty"`
}

// Stats counts the rows a load created, per table of interest.
type Stats struct {
	Languages      int
	Identifiers    int
	Parameters     int
	DomainElements int
	Contributors   int
	Contributions  int
	Credits        int
	Sources        int
	Sentences      int
	Values         int
	References     int
}

type Loader struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewLoader(db *gorm.DB, logger *logrus.Logger) *Loader {
	return &Loader{db: db, logger: logger}
}

// LoadFile decodes the dataset file at path and loads it.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Stats, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var ds Dataset
	if err := json.NewDecoder(f).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return l.Load(ctx, &ds)
}

// Load flushes the dataset in one transaction. Any invalid entry or
// unresolved key rolls the whole load back.
func (l *Loader) Load(ctx context.Context, ds *Dataset) (*Stats, error) {
	ctx = history.WithActor(ctx, Actor)
	st := newStage()
	stats := &Stats{}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.loadLanguages(tx, ds, st, stats); err != nil {
			return err
		}
		if err := l.loadParameters(tx, ds, st, stats); err != nil {
			return err
		}
		if err := l.loadContributors(tx, ds, st, stats); err != nil {
			return err
		}
		if err := l.loadContributions(tx, ds, st, stats); err != nil {
			return err
		}
		if err := l.loadSources(tx, ds, st, stats); err != nil {
			return err
		}
		if err := l.loadSentences(tx, ds, st, stats); err != nil {
			return err
		}
		return l.loadValues(tx, ds, st, stats)
	})
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"languages":     stats.Languages,
		"parameters":    stats.Parameters,
		"contributors":  stats.Contributors,
		"contributions": stats.Contributions,
		"sources":       stats.Sources,
		"sentences":     stats.Sentences,
		"values":        stats.Values,
	}).Info("dataset loaded")
	return stats, nil
}

func (l *Loader) loadLanguages(tx *gorm.DB, ds *Dataset, st *stage, stats *Stats) error {
	for _, e := range ds.Languages {
		lang := entity.NewLanguage(e.ID, e.Name)
		lang.Description = e.Description
		lang.Latitude = e.Latitude
		lang.Longitude = e.Longitude
		if err := lang.Validate(); err != nil {
			return fmt.Errorf("language %q: %w", e.ID, err)
		}
		if err := create(tx, lang); err != nil {
			return fmt.Errorf("create language %q: %w", e.ID, err)
		}
		if err := st.add(entity.KindLanguage, e.ID, lang); err != nil {
			return err
		}
		stats.Languages++

		for _, ie := range e.Identifiers {
			ident, err := l.identifierFor(tx, st, ie)
			if err != nil {
				return fmt.Errorf("language %q: %w", e.ID, err)
			}
			link := &entity.LanguageIdentifier{
				LanguagePK:   lang.PK,
				IdentifierPK: ident.PK,
				Description:  ie.Description,
			}
			if err := create(tx, link); err != nil {
				return fmt.Errorf("link language %q to identifier %s:%s: %w", e.ID, ie.Type, ie.Name, err)
			}
		}
		if err := annotate(tx, lang.ObjectKind(), lang.PK, e.Data); err != nil {
			return fmt.Errorf("annotate language %q: %w", e.ID, err)
		}
	}
	return nil
}

// identifierFor returns the staged identifier for the (type, name)
// pair, creating it on first use. Identifiers are shared: two dialects
// may both carry the same ISO 639-3 code.
func (l *Loader) identifierFor(tx *gorm.DB, st *stage, e IdentifierEntry) (*entity.Identifier, error) {
	key := e.Type + ":" + e.Name
	if obj, ok := st.lookup(entity.KindIdentifier, key); ok {
		return obj.(*entity.Identifier), nil
	}
	typ, err := entity.ParseIdentifierType(e.Type)
	if err != nil {
		return nil, err
	}
	ident := entity.NewIdentifier(typ, e.Name)
	ident.Lang = e.Lang
	if err := create(tx, ident); err != nil {
		return nil, fmt.Errorf("create identifier %s:%s: %w", e.Type, e.Name, err)
	}
	if err := st.add(entity.KindIdentifier, key, ident); err != nil {
		return nil, err
	}
	return ident, nil
}

func (l *Loader) loadParameters(tx *gorm.DB, ds *Dataset, st *stage, stats *Stats) error {
	for _, e := range ds.Parameters {
		param := entity.NewParameter(e.ID, e.Name)
		param.Description = e.Description
		if err := create(tx, param); err != nil {
			return fmt.Errorf("create parameter %q: %w", e.ID, err)
		}
		if err := st.add(entity.KindParameter, e.ID, param); err != nil {
			return err
		}
		stats.Parameters++

		for i, de := range e.Domain {
			elem := entity.NewDomainElement(param.PK, de.ID, de.Name)
			elem.Description = de.Description
			elem.Number = de.Number
			if elem.Number == 0 {
				elem.Number = i + 1
			}
			if err := create(tx, elem); err != nil {
				return fmt.Errorf("create domain element %q: %w", de.ID, err)
			}
			if err := st.add(entity.KindDomainElement, de.ID, elem); err != nil {
				return err
			}
			stats.DomainElements++
		}
		if err := annotate(tx, param.ObjectKind(), param.PK, e.Data); err != nil {
			return fmt.Errorf("annotate parameter %q: %w", e.ID, err)
		}
	}
	return nil
}

func (l *Loader) loadContributors(tx *gorm.DB, ds *Dataset, st *stage, stats *Stats) error {
	for _, e := range ds.Contributors {
		c := entity.NewContributor(e.ID, e.Name)
		c.URL = e.URL
		c.Email = e.Email
		c.Address = e.Address
		if err := create(tx, c); err != nil {
			return fmt.Errorf("create contributor %q: %w", e.ID, err)
		}
		if err := st.add(entity.KindContributor, e.ID, c); err != nil {
			return err
		}
		stats.Contributors++
	}
	return nil
}

func (l *Loader) loadContributions(tx *gorm.DB, ds *Dataset, st *stage, stats *Stats) error {
	for _, e := range ds.Contributions {
		contrib := entity.NewContribution(e.ID, e.Name)
		contrib.Description = e.Description
		if e.Date != "" {
			d, err := time.Parse(time.DateOnly, e.Date)
			if err != nil {
				return fmt.Errorf("contribution %q: parse date %q: %w", e.ID, e.Date, err)
			}
			contrib.Date = &d
		}
		if err := create(tx, contrib); err != nil {
			return fmt.Errorf("create contribution %q: %w", e.ID, err)
		}
		if err := st.add(entity.KindContribution, e.ID, contrib); err != nil {
			return err
		}
		stats.Contributions++

		for i, ce := range e.Credits {
			obj, err := st.get(entity.KindContributor, ce.Contributor)
			if err != nil {
				return fmt.Errorf("contribution %q: %w", e.ID, err)
			}
			ord := ce.Ord
			if ord == 0 {
				ord = i + 1
			}
			primary := true
			if ce.Primary != nil {
				primary = *ce.Primary
			}
			credit := entity.NewCredit(contrib.PK, obj.(*entity.Contributor).PK, ord, primary)
			if err := create(tx, credit); err != nil {
				return fmt.Errorf("credit %q on contribution %q: %w", ce.Contributor, e.ID, err)
			}
			stats.Credits++
		}
	}
	return nil
}

func (l *Loader) loadSources(tx *gorm.DB, ds *Dataset, st *stage, stats *Stats) error {
	for _, e := range ds.Sources {
		src := entity.NewSource(e.ID, e.Name)
		src.Description = e.Description
		src.BibTeXType = e.BibTeXType
		src.Author = e.Author
		src.Editor = e.Editor
		src.Year = e.Year
		src.Title = e.Title
		src.BookTitle = e.BookTitle
		src.Publisher = e.Publisher
		src.Pages = e.Pages
		src.GlottologID = e.GlottologID
		if err := create(tx, src); err != nil {
			return fmt.Errorf("create source %q: %w", e.ID, err)
		}
		if err := st.add(entity.KindSource, e.ID, src); err != nil {
			return err
		}
		stats.Sources++
	}
	return nil
}

func (l *Loader) loadSentences(tx *gorm.DB, ds *Dataset, st *stage, stats *Stats) error {
	for _, e := range ds.Sentences {
		sent := entity.NewSentence()
		if err := create(tx, sent); err != nil {
			return fmt.Errorf("create sentence %q: %w", e.Key, err)
		}
		if err := st.add(entity.KindSentence, e.Key, sent); err != nil {
			return err
		}
		stats.Sentences++

		for _, re := range e.References {
			obj, err := st.get(entity.KindSource, re.Source)
			if err != nil {
				return fmt.Errorf("sentence %q: %w", e.Key, err)
			}
			ref := &entity.SentenceReference{
				SentencePK:  sent.PK,
				SourcePK:    obj.(*entity.Source).PK,
				Key:         re.Key,
				Description: re.Description,
			}
			if err := create(tx, ref); err != nil {
				return fmt.Errorf("reference %q on sentence %q: %w", re.Source, e.Key, err)
			}
			stats.References++
		}
		if err := annotate(tx, sent.ObjectKind(), sent.PK, e.Data); err != nil {
			return fmt.Errorf("annotate sentence %q: %w", e.Key, err)
		}
	}
	return nil
}

func (l *Loader) loadValues(tx *gorm.DB, ds *Dataset, st *stage, stats *Stats) error {
	for _, e := range ds.Values {
		langObj, err := st.get(entity.KindLanguage, e.Language)
		if err != nil {
			return fmt.Errorf("value %q: %w", e.ID, err)
		}
		paramObj, err := st.get(entity.KindParameter, e.Parameter)
		if err != nil {
			return fmt.Errorf("value %q: %w", e.ID, err)
		}
		param := paramObj.(*entity.Parameter)

		val := entity.NewValue(e.ID, langObj.(*entity.Language).PK, param.PK)
		val.Name = e.Name
		val.Frequency = e.Frequency
		val.Confidence = e.Confidence

		if e.Contribution != "" {
			obj, err := st.get(entity.KindContribution, e.Contribution)
			if err != nil {
				return fmt.Errorf("value %q: %w", e.ID, err)
			}
			pk := obj.(*entity.Contribution).PK
			val.ContributionPK = &pk
		}
		if e.DomainElement != "" {
			obj, err := st.get(entity.KindDomainElement, e.DomainElement)
			if err != nil {
				return fmt.Errorf("value %q: %w", e.ID, err)
			}
			elem := obj.(*entity.DomainElement)
			val.DomainElement = elem
			if err := val.Validate(); err != nil {
				return fmt.Errorf("value %q: %w", e.ID, err)
			}
			pk := elem.PK
			val.DomainElementPK = &pk
			val.DomainElement = nil
		}

		if err := create(tx, val); err != nil {
			return fmt.Errorf("create value %q: %w", e.ID, err)
		}
		if err := st.add(entity.KindValue, e.ID, val); err != nil {
			return err
		}
		stats.Values++

		for _, re := range e.References {
			obj, err := st.get(entity.KindSource, re.Source)
			if err != nil {
				return fmt.Errorf("value %q: %w", e.ID, err)
			}
			ref := &entity.ValueReference{
				ValuePK:     val.PK,
				SourcePK:    obj.(*entity.Source).PK,
				Key:         re.Key,
				Description: re.Description,
			}
			if err := create(tx, ref); err != nil {
				return fmt.Errorf("reference %q on value %q: %w", re.Source, e.ID, err)
			}
			stats.References++
		}
		for _, key := range e.Sentences {
			obj, err := st.get(entity.KindSentence, key)
			if err != nil {
				return fmt.Errorf("value %q: %w", e.ID, err)
			}
			link := &entity.ValueSentence{
				ValuePK:    val.PK,
				SentencePK: obj.(*entity.Sentence).PK,
			}
			if err := create(tx, link); err != nil {
				return fmt.Errorf("link sentence %q to value %q: %w", key, e.ID, err)
			}
		}
		if err := annotate(tx, val.ObjectKind(), val.PK, e.Data); err != nil {
			return fmt.Errorf("annotate value %q: %w", e.ID, err)
		}
	}
	return nil
}

// create persists a single staged object. Associations are omitted so
// every row passes through the history hooks individually.
func create(tx *gorm.DB, obj any) error {
	return tx.Omit(clause.Associations).Create(obj).Error
}

func annotate(tx *gorm.DB, kind entity.Kind, pk int64, m map[string]string) error {
	if len(m) == 0 {
		return nil
	}
	data := entity.NewData(kind, pk, m)
	return tx.Create(&data).Error
}

// stage resolves dataset keys to created objects during a load.
type stageKey struct {
	kind entity.Kind
	key  string
}

type stage struct {
	objects map[stageKey]any
}

func newStage() *stage {
	return &stage{objects: make(map[stageKey]any)}
}

func (s *stage) add(kind entity.Kind, key string, obj any) error {
	if key == "" {
		return fmt.Errorf("load: empty %s key", kind)
	}
	k := stageKey{kind: kind, key: key}
	if _, dup := s.objects[k]; dup {
		return fmt.Errorf("load: duplicate %s key %q", kind, key)
	}
	s.objects[k] = obj
	return nil
}

func (s *stage) lookup(kind entity.Kind, key string) (any, bool) {
	obj, ok := s.objects[stageKey{kind: kind, key: key}]
	return obj, ok
}

func (s *stage) get(kind entity.Kind, key string) (any, error) {
	obj, ok := s.lookup(kind, key)
	if !ok {
		return nil, fmt.Errorf("load: unknown %s key %q", kind, key)
	}
	return obj, nil
}
