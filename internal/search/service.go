package search

import (
	"context"

	"inkwell/api/pkg/logger"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
	log   logger.Logger
}

// NewService creates a search service. meili may be nil when Meilisearch is
// not configured.
func NewService(meili *Meili, pgfts *PgFTS, log logger.Logger) *Service {
	return &Service{meili: meili, pgfts: pgfts, log: log}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.WithField("error", err.Error()).Warn("meilisearch error, falling back to pgfts")
	}

	if s.pgfts == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.pgfts.Search(q)
	if err != nil {
		s.log.WithField("error", err.Error()).Error("pgfts search failed")
		return Response{Results: []Result{}, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexPage pushes a page into Meilisearch, fire and forget. The Postgres
// fallback needs no push since it reads search_text off the page row.
func (s *Service) IndexPage(rec PageRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexPage(rec); err != nil {
			s.log.WithFields(map[string]interface{}{
				"page":  rec.ID,
				"error": err.Error(),
			}).Warn("index page failed")
		}
	}()
}

// DeletePage removes a page from the search index, fire and forget.
func (s *Service) DeletePage(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeletePage(id); err != nil {
			s.log.WithFields(map[string]interface{}{
				"page":  id,
				"error": err.Error(),
			}).Warn("delete page from index failed")
		}
	}()
}

// ReindexAllFromPG reads every page out of Postgres and bulk-indexes it into
// Meilisearch. Called at boot when Meilisearch is reachable.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	records, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		s.log.WithField("error", err.Error()).Error("reindex load failed")
		return
	}
	if err := s.meili.IndexPages(records); err != nil {
		s.log.WithField("error", err.Error()).Error("reindex push failed")
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
