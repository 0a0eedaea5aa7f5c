package price

import (
	"context"
	"strings"
	"sync"
)

// Candidate is one search hit from an identity-based provider.
type Candidate struct {
	ID     string
	Symbol string
	Name   string
}

// matcher picks a canonical id out of search hits for a lower-cased query.
type matcher func(query string, candidates []Candidate) (string, bool)

// resolutionOrder runs after the alias table missed. The first matcher that
// returns an id wins.
var resolutionOrder = []matcher{
	matchSymbol,
	matchID,
	matchName,
	firstCandidate,
}

func matchSymbol(query string, candidates []Candidate) (string, bool) {
	for _, c := range candidates {
		if strings.EqualFold(c.Symbol, query) {
			return c.ID, true
		}
	}
	return "", false
}

func matchID(query string, candidates []Candidate) (string, bool) {
	for _, c := range candidates {
		if strings.EqualFold(c.ID, query) {
			return c.ID, true
		}
	}
	return "", false
}

func matchName(query string, candidates []Candidate) (string, bool) {
	for _, c := range candidates {
		if strings.EqualFold(c.Name, query) {
			return c.ID, true
		}
	}
	return "", false
}

func firstCandidate(_ string, candidates []Candidate) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[0].ID, true
}

type searchFunc func(ctx context.Context, query string) ([]Candidate, error)

// Resolver maps free-text queries to canonical provider ids. Successful
// resolutions are cached for the life of the process; the asset catalogue
// changes slowly enough that there is no expiry.
type Resolver struct {
	aliases map[string]string
	search  searchFunc

	mu    sync.RWMutex
	cache map[string]string
}

func NewResolver(aliases map[string]string, search searchFunc) *Resolver {
	return &Resolver{
		aliases: aliases,
		search:  search,
		cache:   make(map[string]string),
	}
}

// Resolve returns the canonical id for query or ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, query string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return "", ErrNotFound
	}

	if id, ok := r.aliases[q]; ok {
		return id, nil
	}

	r.mu.RLock()
	id, ok := r.cache[q]
	r.mu.RUnlock()
	if ok {
		return id, nil
	}

	candidates, err := r.search(ctx, q)
	if err != nil {
		return "", err
	}

	for _, match := range resolutionOrder {
		if id, ok := match(q, candidates); ok && id != "" {
			r.mu.Lock()
			r.cache[q] = id
			r.mu.Unlock()
			return id, nil
		}
	}
	return "", ErrNotFound
}
