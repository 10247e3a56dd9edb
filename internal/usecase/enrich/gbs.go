// Package enrich augments stored sources with Google Book Search
// volume data in three phases: download raw volume responses into a
// cache directory, update sources from cached hits, verify cached
// hits against the catalog record.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/moyogo/clld/internal/entity"
	"github.com/moyogo/clld/internal/infrastructure/database/history"
	"github.com/moyogo/clld/internal/repository"
)

const (
	// Actor is the name the change history records for enrichment
	// writes.
	Actor = "gbs"
	// DatumKey is the annotation key the cached volume is stored
	// under.
	DatumKey = "gbs"

	defaultBaseURL = "https://www.googleapis.com/books/v1/volumes"
)

// ConfirmFunc answers whether a mismatched volume still belongs to
// the source. The CLI wires an interactive prompt.
type ConfirmFunc func(prompt string) bool

type Service struct {
	sources  repository.SourceRepository
	logger   *logrus.Logger
	cacheDir string
	apiKey   string
	baseURL  string
	client   *http.Client
}

type Option func(*Service)

// WithBaseURL points the volumes API at a different endpoint.
func WithBaseURL(u string) Option {
	return func(s *Service) { s.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

func NewService(sources repository.SourceRepository, logger *logrus.Logger, cacheDir, apiKey string, opts ...Option) *Service {
	s := &Service{
		sources:  sources,
		logger:   logger,
		cacheDir: cacheDir,
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Download queries the volumes API for every source that names an
// author or editor and a title but has no cached response yet, and
// returns the number of queries sent. A 403 means the daily quota is
// spent and ends the run.
func (s *Service) Download(ctx context.Context) (int, error) {
	sources, err := s.sources.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return 0, fmt.Errorf("create cache dir: %w", err)
	}

	queried := 0
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return queried, err
		}
		creator := src.Author
		if creator == "" {
			creator = src.Editor
		}
		title := src.Title
		if title == "" {
			title = src.BookTitle
		}
		if creator == "" || title == "" {
			continue
		}
		path := s.cachePath(src.ID)
		if _, err := os.Stat(path); err == nil {
			continue
		}

		status, err := s.query(ctx, creator, title, src.Publisher, path)
		if err != nil {
			return queried, err
		}
		queried++
		if status == http.StatusForbidden {
			s.logger.Warn("google books daily quota reached, stopping")
			break
		}
	}
	s.logger.WithField("queried", queried).Info("google books download finished")
	return queried, nil
}

func (s *Service) query(ctx context.Context, creator, title, publisher, path string) (int, error) {
	terms := []string{"inauthor:" + creator, "intitle:" + title}
	if publisher != "" {
		terms = append(terms, "inpublisher:"+publisher)
	}
	params := url.Values{}
	params.Set("q", strings.Join(terms, " "))
	if s.apiKey != "" {
		params.Set("key", s.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	s.logger.WithFields(logrus.Fields{
		"status": resp.StatusCode,
		"q":      params.Get("q"),
	}).Debug("volumes query")
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return 0, fmt.Errorf("write cache: %w", err)
	}
	return resp.StatusCode, nil
}

// Update syncs sources with the cache and returns the number of
// sources holding a cached hit. A hit assigns the first volume's id
// and stores the volume under the gbs annotation key; a missing or
// empty cache clears a previously assigned id. Writes run under the
// gbs actor.
func (s *Service) Update(ctx context.Context) (int, error) {
	ctx = history.WithActor(ctx, Actor)
	sources, err := s.sources.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, src := range sources {
		vol, raw, err := s.cachedVolume(src.ID)
		if err != nil {
			s.logger.WithError(err).WithField("source", src.ID).Warn("skipping unreadable cache")
			continue
		}
		if vol == nil {
			if src.GoogleBookSearchID == "" {
				continue
			}
			src.GoogleBookSearchID = ""
			if _, err := s.sources.Update(ctx, src); err != nil {
				return assigned, fmt.Errorf("clear source %s: %w", src.ID, err)
			}
			if _, had := src.DataDict()[DatumKey]; had {
				if err := s.sources.SetDatum(ctx, src.PK, DatumKey, "{}"); err != nil {
					return assigned, err
				}
			}
			continue
		}

		if src.GoogleBookSearchID != vol.ID {
			src.GoogleBookSearchID = vol.ID
			if _, err := s.sources.Update(ctx, src); err != nil {
				return assigned, fmt.Errorf("update source %s: %w", src.ID, err)
			}
		}
		if src.DataDict()[DatumKey] != string(raw) {
			if err := s.sources.SetDatum(ctx, src.PK, DatumKey, string(raw)); err != nil {
				return assigned, err
			}
		}
		assigned++
	}
	s.logger.WithFields(logrus.Fields{
		"assigned": assigned,
		"sources":  len(sources),
	}).Info("google books ids updated")
	return assigned, nil
}

// Verify checks cached hits against the catalog record, asks confirm
// about the ones that differ and deletes the caches it rejects,
// returning the rejection count.
func (s *Service) Verify(ctx context.Context, confirm ConfirmFunc) (int, error) {
	if confirm == nil {
		confirm = func(string) bool { return false }
	}
	sources, err := s.sources.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	rejected := 0
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return rejected, err
		}
		vol, _, err := s.cachedVolume(src.ID)
		if err != nil {
			s.logger.WithError(err).WithField("source", src.ID).Warn("skipping unreadable cache")
			continue
		}
		if vol == nil || volumeMatches(src, vol) {
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"source":    src.ID,
			"volume":    vol.ID,
			"title":     strings.TrimSpace(vol.VolumeInfo.Title + " " + vol.VolumeInfo.Subtitle),
			"published": vol.VolumeInfo.PublishedDate,
			"authors":   strings.Join(vol.VolumeInfo.Authors, ", "),
			"publisher": vol.VolumeInfo.Publisher,
		}).Info("volume differs from source record")
		prompt := fmt.Sprintf("Keep volume %q for source %s?", vol.VolumeInfo.Title, src.ID)
		if confirm(prompt) {
			continue
		}
		if err := os.Remove(s.cachePath(src.ID)); err != nil {
			return rejected, fmt.Errorf("drop cache for %s: %w", src.ID, err)
		}
		rejected++
	}
	s.logger.WithField("rejected", rejected).Info("google books verification finished")
	return rejected, nil
}

func (s *Service) cachePath(sourceID string) string {
	return filepath.Join(s.cacheDir, sourceID+".json")
}

// cachedVolume returns the first volume of the cached response with
// its raw JSON, or nil when there is no cache or no hit.
func (s *Service) cachedVolume(sourceID string) (*volume, json.RawMessage, error) {
	rawList, err := os.ReadFile(s.cachePath(sourceID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	var list volumeList
	if err := json.Unmarshal(rawList, &list); err != nil {
		return nil, nil, fmt.Errorf("parse cache: %w", err)
	}
	if list.TotalItems == 0 || len(list.Items) == 0 {
		return nil, nil, nil
	}
	var vol volume
	if err := json.Unmarshal(list.Items[0], &vol); err != nil {
		return nil, nil, fmt.Errorf("parse cached volume: %w", err)
	}
	return &vol, list.Items[0], nil
}

type volumeList struct {
	TotalItems int               `json:"totalItems"`
	Items      []json.RawMessage `json:"items"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle"`
	Authors       []string `json:"authors"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
}

// volumeMatches accepts a volume when the publication year agrees or
// the title words line up: equal word sets, or a volume title of more
// than two words fully contained in the source title.
func volumeMatches(src *entity.Source, vol *volume) bool {
	year := strings.SplitN(vol.VolumeInfo.PublishedDate, "-", 2)[0]
	if year != "" && slugOf(year) == slugOf(src.Year) {
		return true
	}

	title := src.Description
	if title == "" {
		title = src.Title
	}
	if title == "" {
		title = src.BookTitle
	}
	twords := slugWords(title)
	iwords := slugWords(vol.VolumeInfo.Title + " " + vol.VolumeInfo.Subtitle)
	if len(iwords) == 0 {
		return false
	}
	return (len(iwords) == len(twords) || len(iwords) > 2) && lo.Every(twords, iwords)
}

// slugWords slugs each word of s and returns the distinct results.
func slugWords(s string) []string {
	return lo.Uniq(lo.FilterMap(strings.Fields(s), func(w string, _ int) (string, bool) {
		w = slugOf(w)
		return w, w != ""
	}))
}

// slugOf lowercases and strips everything but letters and digits.
func slugOf(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
