package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
	"github.com/custodia-labs/diarymem/internal/core/ports/driving"
	"github.com/custodia-labs/diarymem/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

const (
	// DefaultSearchLimit is used when SearchOptions.Limit is not positive.
	DefaultSearchLimit = 10

	// DefaultMinSimilarity drops weak semantic matches before fusion.
	DefaultMinSimilarity = 0.35

	// MaxSnippetLength bounds the snippet attached to search results.
	MaxSnippetLength = 3000

	// rrfK damps the influence of a single list's top ranks.
	rrfK = 60

	// snippetLeadIn is how much text is kept before the first matched term.
	snippetLeadIn = 200
)

// rankedHit is one entry's position in a single ranked list.
type rankedHit struct {
	result domain.SearchResult
}

// SearchService provides hybrid lexical + semantic search over entries.
type SearchService struct {
	lexical       driven.LexicalIndex
	chunks        driven.ChunkStore
	index         driving.IndexService
	embedder      driven.EmbeddingService
	minSimilarity float64
}

// NewSearchService creates a new search service.
// The embedder may be nil; search then stays lexical-only.
func NewSearchService(
	lexical driven.LexicalIndex,
	chunks driven.ChunkStore,
	index driving.IndexService,
	embedder driven.EmbeddingService,
) *SearchService {
	return &SearchService{
		lexical:       lexical,
		chunks:        chunks,
		index:         index,
		embedder:      embedder,
		minSimilarity: DefaultMinSimilarity,
	}
}

// SetMinSimilarity sets the semantic similarity threshold.
func (s *SearchService) SetMinSimilarity(threshold float64) {
	s.minSimilarity = threshold
}

// HybridSearch ranks entries by fusing lexical and semantic rankings.
func (s *SearchService) HybridSearch(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Hybrid Search")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	candidates := limit * 2

	semantic, err := s.hasEmbeddings(ctx)
	if err != nil {
		logger.Warn("Checking for embeddings failed: %v", err)
	}

	var lexicalHits, vectorHits []rankedHit
	var vectorRan bool
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		lexicalHits = s.lexicalSearch(ctx, query, candidates, opts.DateRange)
	}()

	if semantic {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vectorHits, vectorRan = s.vectorSearch(ctx, query, candidates, opts.DateRange)
		}()
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}

	logger.Debug("Lexical hits: %d, vector hits: %d (semantic=%t)", len(lexicalHits), len(vectorHits), vectorRan)

	if len(lexicalHits) == 0 && len(vectorHits) == 0 {
		return []domain.SearchResult{}, nil
	}

	if !vectorRan {
		results := make([]domain.SearchResult, 0, min(limit, len(lexicalHits)))
		for i := 0; i < len(lexicalHits) && i < limit; i++ {
			results = append(results, lexicalHits[i].result)
		}
		return results, nil
	}

	return reciprocalRankFusion(limit, lexicalHits, vectorHits), nil
}

// hasEmbeddings reports whether the semantic branch should run.
func (s *SearchService) hasEmbeddings(ctx context.Context) (bool, error) {
	if s.chunks == nil || s.index == nil {
		return false, nil
	}
	return s.chunks.HasAny(ctx)
}

// lexicalSearch runs the full-text query. Failures yield an empty list.
func (s *SearchService) lexicalSearch(
	ctx context.Context, query string, limit int, dateRange *domain.DateRange,
) []rankedHit {
	if s.lexical == nil {
		return nil
	}

	hits, err := s.lexical.SearchLexical(ctx, query, limit, dateRange)
	if err != nil {
		logger.Warn("Lexical search failed: %v", err)
		return nil
	}

	ranked := make([]rankedHit, len(hits))
	for i, hit := range hits {
		ranked[i] = rankedHit{result: domain.SearchResult{
			ID:      hit.EntryID,
			EntryID: hit.EntryID,
			Date:    hit.Date,
			Content: hit.Content,
			Snippet: GenerateSnippet(hit.Content, query, MaxSnippetLength),
			Score:   -hit.Rank,
			Source:  domain.SourceBM25,
		}}
	}
	return ranked
}

// vectorSearch embeds the query and returns the best chunk per entry.
// It reports false when the index was never queried: no provider, or the
// query could not be embedded.
func (s *SearchService) vectorSearch(
	ctx context.Context, query string, limit int, dateRange *domain.DateRange,
) ([]rankedHit, bool) {
	if s.embedder == nil {
		logger.Debug("Vector search skipped: %v", domain.ErrEmbeddingUnavailable)
		return nil, false
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed: %v", err)
		return nil, false
	}

	chunks, err := s.index.SearchByVector(ctx, vector, domain.VectorSearchOptions{
		Limit:         limit,
		DateRange:     dateRange,
		MinSimilarity: s.minSimilarity,
	})
	if err != nil {
		logger.Warn("Vector search failed: %v", err)
		return nil, false
	}

	// Chunks arrive best first, so the first chunk seen per entry is its best.
	seen := make(map[string]bool, len(chunks))
	ranked := make([]rankedHit, 0, len(chunks))
	for _, chunk := range chunks {
		if seen[chunk.EntryID] {
			continue
		}
		seen[chunk.EntryID] = true
		ranked = append(ranked, rankedHit{result: domain.SearchResult{
			ID:      chunk.ID,
			EntryID: chunk.EntryID,
			Date:    chunk.EntryDate,
			Content: chunk.Content,
			Snippet: GenerateSnippet(chunk.Content, query, MaxSnippetLength),
			Score:   chunk.Score,
			Source:  domain.SourceVector,
		}})
	}
	return ranked, true
}

// reciprocalRankFusion merges ranked lists. Each list contributes
// 1/(k+rank+1) per entry, where rank is the 0-based position. The result
// keeps the first list's payload for entries present in several lists.
func reciprocalRankFusion(limit int, lists ...[]rankedHit) []domain.SearchResult {
	scores := make(map[string]float64)
	payload := make(map[string]domain.SearchResult)

	for _, list := range lists {
		for rank, hit := range list {
			id := hit.result.EntryID
			scores[id] += 1.0 / float64(rrfK+rank+1)
			if _, ok := payload[id]; !ok {
				payload[id] = hit.result
			}
		}
	}

	results := make([]domain.SearchResult, 0, len(scores))
	for id, score := range scores {
		result := payload[id]
		result.Score = score
		result.Source = domain.SourceHybrid
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].EntryID < results[j].EntryID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// GenerateSnippet returns a window of content around the first query term
// (longer than two characters) that occurs in it. Content no longer than
// maxLength is returned trimmed. Truncated boundaries are marked with "...".
func GenerateSnippet(content, query string, maxLength int) string {
	runes := []rune(content)
	if maxLength <= 0 || len(runes) <= maxLength {
		return strings.TrimSpace(content)
	}

	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	start := 0
	for _, term := range strings.Fields(strings.ToLower(query)) {
		termRunes := []rune(term)
		if len(termRunes) <= 2 {
			continue
		}
		if idx := indexRunes(lower, termRunes); idx >= 0 {
			start = max(0, idx-snippetLeadIn)
			break
		}
	}

	end := min(len(runes), start+maxLength)
	snippet := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet += "..."
	}
	return snippet
}

// indexRunes returns the index of the first occurrence of needle in haystack, or -1.
func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if haystack[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}

// searchEntryIDs runs a hybrid search and returns the ranked entry ids.
func searchEntryIDs(ctx context.Context, search driving.SearchService, query string, limit int) ([]string, error) {
	if search == nil {
		return nil, errors.New("search service unavailable")
	}
	results, err := search.HybridSearch(ctx, query, domain.SearchOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.EntryID
	}
	return ids, nil
}
