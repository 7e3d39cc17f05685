package service

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/larpforge/storyai/internal/domain"
)

const (
	// candidateMultiplier oversizes the kNN searches relative to the final
	// budget so deduplication and per-document collapse don't starve the
	// merged list.
	candidateMultiplier = 3
	defaultBudget       = 8
)

// VectorSearchRepository defines the scoped nearest-neighbor searches the
// retriever runs. Scope is enforced in the query predicate: results for one
// LARP must never contain vectors indexed under another.
type VectorSearchRepository interface {
	NearestObjects(ctx context.Context, larpID string, vector []float32, k int) ([]*domain.RetrievalResult, error)
	NearestLoreChunks(ctx context.Context, larpID string, vector []float32, k int) ([]*domain.RetrievalResult, error)
	ListAlwaysInclude(ctx context.Context, larpID string) ([]*domain.RetrievalResult, error)
}

// RetrieveInput describes one retrieval request.
type RetrieveInput struct {
	LARPID string
	Query  string
	Budget int
	// PinnedFallback returns the always-include documents alone when the
	// query embedding fails, instead of failing the whole retrieval. Opt-in
	// resilience policy, never a hidden default.
	PinnedFallback bool
}

// RetrieveOutput is a ranked result list plus a degradation marker.
type RetrieveOutput struct {
	Results []*domain.RetrievalResult
	// Degraded is set when the results are the pinned fallback only.
	Degraded bool
}

// RetrieverService runs scoped vector searches over both knowledge-unit
// shapes and merges them into one ranked list.
type RetrieverService struct {
	client EmbeddingClient
	repo   VectorSearchRepository
}

// NewRetrieverService creates a new RetrieverService instance
func NewRetrieverService(client EmbeddingClient, repo VectorSearchRepository) *RetrieverService {
	return &RetrieverService{client: client, repo: repo}
}

// Retrieve embeds the query, searches object embeddings and lore chunks for
// the requested LARP, collapses lore hits to the best chunk per document,
// merges by similarity, prepends active always-include documents, and
// truncates to the budget.
func (s *RetrieverService) Retrieve(ctx context.Context, input RetrieveInput) (*RetrieveOutput, error) {
	if input.LARPID == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if input.Query == "" {
		return nil, domain.ErrEmptyQuery
	}
	budget := input.Budget
	if budget <= 0 {
		budget = defaultBudget
	}

	embedding, err := s.client.Embed(ctx, input.Query)
	if err != nil {
		if input.PinnedFallback && domain.IsRetryable(err) {
			pinned, pinnedErr := s.pinnedOnly(ctx, input.LARPID, budget)
			if pinnedErr == nil {
				log.Printf("retrieval degraded to pinned documents for larp %s: %v", input.LARPID, err)
				return &RetrieveOutput{Results: pinned, Degraded: true}, nil
			}
		}
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	k := budget * candidateMultiplier

	objects, err := s.repo.NearestObjects(ctx, input.LARPID, embedding.Vector, k)
	if err != nil {
		return nil, fmt.Errorf("object search failed: %w", err)
	}
	chunks, err := s.repo.NearestLoreChunks(ctx, input.LARPID, embedding.Vector, k)
	if err != nil {
		return nil, fmt.Errorf("lore search failed: %w", err)
	}

	if err := checkScope(input.LARPID, objects, chunks); err != nil {
		// Wrong-LARP leakage is a correctness bug, not a ranking nuisance.
		log.Printf("SCOPE VIOLATION: %v", err)
		return nil, err
	}

	merged := mergeRanked(objects, collapseByDocument(chunks))

	pinned, err := s.repo.ListAlwaysInclude(ctx, input.LARPID)
	if err != nil {
		return nil, fmt.Errorf("failed to load always-include documents: %w", err)
	}

	results := prependPinned(pinned, merged)
	if len(results) > budget {
		results = results[:budget]
	}

	return &RetrieveOutput{Results: results}, nil
}

func (s *RetrieverService) pinnedOnly(ctx context.Context, larpID string, budget int) ([]*domain.RetrievalResult, error) {
	pinned, err := s.repo.ListAlwaysInclude(ctx, larpID)
	if err != nil {
		return nil, err
	}
	sortPinned(pinned)
	if len(pinned) > budget {
		pinned = pinned[:budget]
	}
	return pinned, nil
}

// collapseByDocument keeps only the highest-similarity chunk per lore
// document, so one long document cannot crowd out other sources.
func collapseByDocument(chunks []*domain.RetrievalResult) []*domain.RetrievalResult {
	if len(chunks) == 0 {
		return nil
	}
	best := make(map[string]*domain.RetrievalResult, len(chunks))
	order := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c == nil {
			continue
		}
		existing, ok := best[c.DocumentID]
		if !ok {
			order = append(order, c.DocumentID)
			best[c.DocumentID] = c
		} else if c.Similarity > existing.Similarity {
			best[c.DocumentID] = c
		}
	}
	out := make([]*domain.RetrievalResult, 0, len(best))
	for _, docID := range order {
		out = append(out, best[docID])
	}
	return out
}

// mergeRanked merges result lists into one list sorted by similarity
// descending. Ties break on shorter preview, then ID, keeping the order
// deterministic for identical inputs.
func mergeRanked(lists ...[]*domain.RetrievalResult) []*domain.RetrievalResult {
	var merged []*domain.RetrievalResult
	for _, list := range lists {
		for _, r := range list {
			if r != nil {
				merged = append(merged, r)
			}
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Similarity != merged[j].Similarity {
			return merged[i].Similarity > merged[j].Similarity
		}
		if len(merged[i].Preview) != len(merged[j].Preview) {
			return len(merged[i].Preview) < len(merged[j].Preview)
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}

// prependPinned puts always-include documents ahead of the ranked list,
// deduplicated against documents already selected by similarity.
func prependPinned(pinned, ranked []*domain.RetrievalResult) []*domain.RetrievalResult {
	if len(pinned) == 0 {
		return ranked
	}
	sortPinned(pinned)

	pinnedDocs := make(map[string]bool, len(pinned))
	for _, p := range pinned {
		pinnedDocs[p.DocumentID] = true
	}

	out := make([]*domain.RetrievalResult, 0, len(pinned)+len(ranked))
	out = append(out, pinned...)
	for _, r := range ranked {
		if r.Kind == domain.UnitKindLore && pinnedDocs[r.DocumentID] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// sortPinned orders always-include documents by priority descending, then
// title, so the prepend order is stable.
func sortPinned(pinned []*domain.RetrievalResult) {
	sort.SliceStable(pinned, func(i, j int) bool {
		if pinned[i].Priority != pinned[j].Priority {
			return pinned[i].Priority > pinned[j].Priority
		}
		return pinned[i].Title < pinned[j].Title
	})
}

func checkScope(larpID string, lists ...[]*domain.RetrievalResult) error {
	for _, list := range lists {
		for _, r := range list {
			if r != nil && r.LARPID != larpID {
				return &domain.ScopeViolationError{
					RequestedLARP: larpID,
					ActualLARP:    r.LARPID,
					UnitID:        r.ID,
				}
			}
		}
	}
	return nil
}
