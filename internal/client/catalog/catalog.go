// Package catalog is the search-and-pick path for adding a medication from
// the drug registry. Searches spend the search allowance; picks go through
// the same admission gate as recognition.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/medkeeper/internal/client/gate"
	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

// MinQueryLength is the shortest query sent to the backend.
const MinQueryLength = 2

type Searcher interface {
	SearchCatalog(ctx context.Context, query, language string) ([]models.CatalogItem, error)
}

type Gate interface {
	CheckSearchQuota(ctx context.Context) error
	Admit(ctx context.Context, c models.Candidate) error
}

// Store creates medications and owns the cached limits.
type Store interface {
	Create(ctx context.Context, m models.NewMedication) (models.Medication, error)
	InvalidateLimits()
}

type Service struct {
	api   Searcher
	gate  Gate
	store Store
	lang  func() string
	log   logging.Logger

	mu      sync.Mutex
	query   string
	results []models.CatalogItem
}

func New(api Searcher, g Gate, store Store, lang func() string, log logging.Logger) *Service {
	if lang == nil {
		lang = func() string { return common.LanguageEnglish }
	}
	return &Service{api: api, gate: g, store: store, lang: lang, log: log}
}

// Search queries the registry. The previous results are replaced only on
// success.
func (s *Service) Search(ctx context.Context, query string) ([]models.CatalogItem, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return nil, fmt.Errorf("%w: query must be at least %d characters", common.ErrValidation, MinQueryLength)
	}
	if err := s.gate.CheckSearchQuota(ctx); err != nil {
		return nil, err
	}

	items, err := s.api.SearchCatalog(ctx, query, s.lang())
	if err != nil {
		if errors.Is(err, common.ErrQuotaExceeded) {
			s.store.InvalidateLimits()
			return nil, gate.SearchQuotaError()
		}
		return nil, fmt.Errorf("search catalog: %w", err)
	}
	s.store.InvalidateLimits()

	s.mu.Lock()
	s.query = query
	s.results = items
	s.mu.Unlock()

	s.log.Debug(ctx, "catalog search", "query", query, "results", len(items))
	return items, nil
}

// Results returns the last successful search.
func (s *Service) Results() (string, []models.CatalogItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query, append([]models.CatalogItem(nil), s.results...)
}

// Pick adds the n-th (1-based) item of the last search.
func (s *Service) Pick(ctx context.Context, n int) (models.Medication, error) {
	s.mu.Lock()
	if n < 1 || n > len(s.results) {
		count := len(s.results)
		s.mu.Unlock()
		return models.Medication{}, fmt.Errorf("%w: pick a number between 1 and %d", common.ErrValidation, count)
	}
	item := s.results[n-1]
	s.mu.Unlock()
	return s.Add(ctx, item)
}

// Add admits item and creates it with source "search".
func (s *Service) Add(ctx context.Context, item models.CatalogItem) (models.Medication, error) {
	c := item.ToCandidate()
	if err := s.gate.Admit(ctx, c); err != nil {
		return models.Medication{}, err
	}
	m, err := s.store.Create(ctx, c.ToNewMedication("", "", models.MethodSearch))
	if err != nil {
		return models.Medication{}, err
	}
	s.log.Info(ctx, "medication added from catalog", "id", m.ID, "catalog_id", item.ID)
	return m, nil
}
