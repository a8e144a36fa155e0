package store

import (
	"context"
	"fmt"

	"taskledger/pkg/ledger"
)

// Gateway is the single point where the structured document model crosses
// into the flat text the content store persists. It pairs a ContentStore
// with a per-author read cache for one ledger document path.
type Gateway struct {
	store ContentStore
	path  string
	cache *Cache
}

// NewGateway creates a gateway for one document path.
func NewGateway(cs ContentStore, path string, cache *Cache) *Gateway {
	return &Gateway{store: cs, path: path, cache: cache}
}

// FetchDocument performs a fresh read of the whole document, bypassing the
// cache. This is the only legitimate source of a version token for a write.
// A missing document reads as an empty one with an empty token, so the first
// write creates it.
func (g *Gateway) FetchDocument(ctx context.Context) (*ledger.Document, string, error) {
	content, token, err := g.store.Read(ctx, g.path)
	if IsNotFound(err) {
		return ledger.NewDocument(), "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch document %q: %w", g.path, err)
	}

	doc := ledger.ParseDocument(content)
	g.fillCache(doc)
	return doc, token, nil
}

// Save renders and persists the document under the token obtained from the
// FetchDocument call of the same attempt. Returns ErrConflict unchanged so
// callers can retry the whole cycle.
func (g *Gateway) Save(ctx context.Context, doc *ledger.Document, expectedToken string) (string, error) {
	token, err := g.store.Write(ctx, g.path, doc.Render(), expectedToken)
	if IsConflict(err) {
		return "", ErrConflict
	}
	if err != nil {
		return "", fmt.Errorf("failed to persist document %q: %w", g.path, err)
	}
	return token, nil
}

// CurrentTasks returns the author's recorded task list, consulting the cache
// first. The second return value reports whether the author has a section at
// all.
func (g *Gateway) CurrentTasks(ctx context.Context, author string) ([]string, bool, error) {
	if g.cache != nil {
		if section, ok := g.cache.Get(author); ok {
			return section.Tasks, true, nil
		}
	}

	doc, _, err := g.FetchDocument(ctx)
	if err != nil {
		return nil, false, err
	}

	section := doc.Section(author)
	if section == nil {
		return nil, false, nil
	}
	return section.Tasks, true, nil
}

// AllSections returns every author's current section in document order.
// Always a fresh read; used by the periodic report and the CLI.
func (g *Gateway) AllSections(ctx context.Context) ([]ledger.Section, error) {
	doc, _, err := g.FetchDocument(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Sections, nil
}

// InvalidateAuthor drops the author's cache entry after a successful write.
func (g *Gateway) InvalidateAuthor(author string) {
	if g.cache != nil {
		g.cache.Invalidate(author)
	}
}

// fillCache repopulates per-author entries from one fresh document read.
func (g *Gateway) fillCache(doc *ledger.Document) {
	if g.cache == nil {
		return
	}
	for _, section := range doc.Sections {
		g.cache.Put(section.Author, section)
	}
}
