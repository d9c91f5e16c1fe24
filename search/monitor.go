package search

import (
	"iter"

	"github.com/poiesic/omnidoc/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, mode Mode)
	AfterSemanticSearch(ids []uint64)
	AfterQueryEntityExtraction(entities []*core.Entity)
	FoundRelatedEntity(tuple string, entityId uint64)
	AfterEntityAnchoredSearch(iter.Seq[uint64])
	AfterFragmentRetrieval(fragments []*core.Fragment)
	SemanticAndEntityHit(fragment *core.Fragment)
	SemanticHit(fragment *core.Fragment)
	EntityHit(fragment *core.Fragment)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ Mode)                       {}
func (n *noopMonitor) AfterSemanticSearch(_ []uint64)               {}
func (n *noopMonitor) AfterQueryEntityExtraction(_ []*core.Entity)  {}
func (n *noopMonitor) FoundRelatedEntity(_ string, _ uint64)        {}
func (n *noopMonitor) AfterEntityAnchoredSearch(_ iter.Seq[uint64]) {}
func (n *noopMonitor) AfterFragmentRetrieval(_ []*core.Fragment)    {}
func (n *noopMonitor) SemanticAndEntityHit(_ *core.Fragment)        {}
func (n *noopMonitor) SemanticHit(_ *core.Fragment)                 {}
func (n *noopMonitor) EntityHit(_ *core.Fragment)                   {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)                {}
