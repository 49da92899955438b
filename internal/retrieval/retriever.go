package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/DougGuttenberg/halacha-helper/internal/domain"
	"github.com/DougGuttenberg/halacha-helper/internal/sefaria"
)

// Library is the slice of the Sefaria client the retriever consumes.
type Library interface {
	Search(ctx context.Context, query string, filters []string, maxHits int) ([]sefaria.Hit, error)
	FetchText(ctx context.Context, ref string) (*sefaria.TextResult, error)
}

// Search scopes per term language. Hebrew terms search the halakhah corpus
// directly; English terms cast a wider net that includes the Talmud as a
// supplement, never a replacement, for the Hebrew results.
var (
	hebrewFilters  = []string{"Halakhah"}
	englishFilters = []string{"Halakhah", "Talmud"}
)

const (
	// DefaultMaxSources caps the evidence set before ranking.
	DefaultMaxSources = 12
	// hitsPerQuery bounds how many hits of each search are considered.
	hitsPerQuery = 3
)

// Retriever fans out search and fetch calls against the library,
// deduplicates by ref, and returns a ranked, size-bounded evidence set.
type Retriever struct {
	lib        Library
	maxSources int
}

func New(lib Library, maxSources int) *Retriever {
	if maxSources <= 0 {
		maxSources = DefaultMaxSources
	}
	return &Retriever{lib: lib, maxSources: maxSources}
}

type searchQuery struct {
	term    string
	filters []string
}

// Retrieve gathers evidence for the given search terms. All searches run
// concurrently, their results merge in query order so the outcome is
// deterministic, then all fetches run concurrently. Individual call failures
// degrade to empty results; retrieval itself never fails.
func (r *Retriever) Retrieve(ctx context.Context, terms domain.SearchTerms) *domain.EvidenceSet {
	queries := make([]searchQuery, 0, len(terms.Hebrew)+len(terms.English))
	for _, t := range terms.Hebrew {
		queries = append(queries, searchQuery{term: t, filters: hebrewFilters})
	}
	for _, t := range terms.English {
		queries = append(queries, searchQuery{term: t, filters: englishFilters})
	}

	// Phase 1: concurrent searches, joined before the merge.
	hitsByQuery := make([][]sefaria.Hit, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			hits, err := r.lib.Search(gctx, q.term, q.filters, hitsPerQuery)
			if err != nil {
				slog.WarnContext(gctx, "search failed", "term", q.term, "error", err)
				return nil // degrade to empty, never abort retrieval
			}
			hitsByQuery[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	// Merge candidates deterministically: direct refs first, then hits in
	// query order, deduplicated by ref and capped before fetching.
	seen := make(map[string]bool)
	candidates := make([]string, 0, r.maxSources)
	add := func(ref string) {
		if ref == "" || seen[ref] || len(candidates) >= r.maxSources {
			return
		}
		seen[ref] = true
		candidates = append(candidates, ref)
	}
	for _, ref := range terms.SefariaRefs {
		add(ref)
	}
	for _, hits := range hitsByQuery {
		for _, h := range hits {
			add(h.Ref)
		}
	}

	// Phase 2: concurrent fetches, joined before ranking.
	fetched := make([]*sefaria.TextResult, len(candidates))
	g, gctx = errgroup.WithContext(ctx)
	for i, ref := range candidates {
		g.Go(func() error {
			tr, err := r.lib.FetchText(gctx, ref)
			if err != nil {
				slog.WarnContext(gctx, "fetch failed", "ref", ref, "error", err)
				return nil
			}
			fetched[i] = tr
			return nil
		})
	}
	_ = g.Wait()

	docs := make([]domain.Document, 0, len(candidates))
	kept := make(map[string]bool, len(candidates))
	for _, tr := range fetched {
		if tr == nil || kept[tr.Ref] {
			// The library canonicalizes refs, so two distinct requests can
			// resolve to the same citation.
			continue
		}
		kept[tr.Ref] = true
		cat, prio := Classify(tr.Ref)
		docs = append(docs, domain.Document{
			Ref:         tr.Ref,
			HebrewText:  tr.Hebrew,
			EnglishText: tr.English,
			Title:       tr.Title,
			Category:    cat,
			Priority:    prio,
		})
	}

	// Stable: equal-priority documents keep discovery order.
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Priority < docs[j].Priority
	})

	return &domain.EvidenceSet{
		Success:      len(docs) > 0,
		TotalSources: len(docs),
		Sources:      docs,
		SearchInfo: domain.SearchInfo{
			HebrewTermsUsed:   orEmpty(terms.Hebrew),
			EnglishTermsUsed:  orEmpty(terms.English),
			DirectRefsChecked: orEmpty(terms.SefariaRefs),
		},
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
