package match

import (
	"strings"
	"sync"
)

// Confidence levels reported with a resolution
const (
	ConfidenceExact     = 1.0
	ConfidenceSubstring = 0.75
)

// Substring containment below this length matches too much
// ("sea" would hit every "Sea Day" variant), so short labels only
// resolve through exact or alias passes.
const minSubstringLen = 4

// MatchResult is the outcome of resolving one label. Ambiguous results
// carry no entity id: the caller must not guess, it leaves the record
// unresolved and logs the label for curation.
type MatchResult struct {
	EntityID   *int64
	Confidence float64
	Ambiguous  bool
}

type candidate struct {
	id   int64
	name string // normalized
}

// Catalog is an in-memory snapshot of canonical entity names and
// aliases, keyed by entity type. It is loaded once per run from the
// canonical tables and extended as the upserter creates new entities.
type Catalog struct {
	mu      sync.RWMutex
	names   map[string][]candidate        // entity type -> entities
	aliases map[string]map[string]int64   // entity type -> normalized alias -> id
	seen    map[string]map[int64]struct{} // entity type -> ids, guards duplicate AddEntity
}

func NewCatalog() *Catalog {
	return &Catalog{
		names:   make(map[string][]candidate),
		aliases: make(map[string]map[string]int64),
		seen:    make(map[string]map[int64]struct{}),
	}
}

// AddEntity registers a canonical entity under its normalized name
func (c *Catalog) AddEntity(entityType string, id int64, name string) {
	normalized := Normalize(name)
	if normalized == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seen[entityType] == nil {
		c.seen[entityType] = make(map[int64]struct{})
	}
	if _, dup := c.seen[entityType][id]; dup {
		return
	}
	c.seen[entityType][id] = struct{}{}
	c.names[entityType] = append(c.names[entityType], candidate{id: id, name: normalized})
}

// AddAlias registers an alternate spelling for an entity
func (c *Catalog) AddAlias(entityType string, alias string, id int64) {
	normalized := Normalize(alias)
	if normalized == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.aliases[entityType] == nil {
		c.aliases[entityType] = make(map[string]int64)
	}
	c.aliases[entityType][normalized] = id
}

// Engine resolves free-text labels against a Catalog
type Engine struct {
	catalog *Catalog
}

func NewEngine(catalog *Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Resolve maps a legacy label to a canonical entity id. Pass order:
// exact alias, exact name, then substring containment in either
// direction. Multiple equal-weight candidates yield Ambiguous with no
// id; no entity is ever created from here.
func (e *Engine) Resolve(label string, entityType string) MatchResult {
	normalized := Normalize(label)
	if normalized == "" {
		return MatchResult{}
	}

	c := e.catalog
	c.mu.RLock()
	defer c.mu.RUnlock()

	if id, ok := c.aliases[entityType][normalized]; ok {
		return MatchResult{EntityID: &id, Confidence: ConfidenceExact}
	}

	for _, cand := range c.names[entityType] {
		if cand.name == normalized {
			id := cand.id
			return MatchResult{EntityID: &id, Confidence: ConfidenceExact}
		}
	}

	if len(normalized) < minSubstringLen {
		return MatchResult{}
	}

	var hits []int64
	for _, cand := range c.names[entityType] {
		if len(cand.name) < minSubstringLen {
			continue
		}
		if strings.Contains(cand.name, normalized) || strings.Contains(normalized, cand.name) {
			hits = appendUnique(hits, cand.id)
		}
	}

	switch len(hits) {
	case 0:
		return MatchResult{}
	case 1:
		id := hits[0]
		return MatchResult{EntityID: &id, Confidence: ConfidenceSubstring}
	default:
		return MatchResult{Ambiguous: true}
	}
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
