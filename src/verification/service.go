// Package verification runs the lifecycle for one verification request:
// collect evidence, persist the partial record, analyze, persist the final
// record.
package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tradesafe/tradeverify/src/collector"
	"github.com/tradesafe/tradeverify/src/matcher"
	"github.com/tradesafe/tradeverify/src/risk"
	"github.com/tradesafe/tradeverify/src/types"
)

// EvidenceCollector produces the frozen bundle for one request. It never
// fails; sources degrade individually.
type EvidenceCollector interface {
	Collect(ctx context.Context, req collector.Request) *collector.Bundle
}

// NarrativeOracle produces the free-text assessment, nil on any failure.
type NarrativeOracle interface {
	Narrative(ctx context.Context, req Request, bundle *collector.Bundle) *string
}

// Request is the accepted verification input. Immutable once validated.
type Request struct {
	Client      string
	Country     string
	Role        string
	ProductName string
	WebsiteURL  string
}

func (r Request) validate() error {
	if len(matcher.Normalize(r.Client)) < 2 {
		return fmt.Errorf("%w: entity name too short", matcher.ErrInvalidInput)
	}
	if len(r.Country) != 2 {
		return fmt.Errorf("%w: country must be an ISO-3166 alpha-2 code", matcher.ErrInvalidInput)
	}
	if r.Role != types.RoleImport && r.Role != types.RoleExport {
		return fmt.Errorf("%w: role must be Import or Export", matcher.ErrInvalidInput)
	}
	return nil
}

// Service glues collection, analysis and persistence into one synchronous
// run per request.
type Service struct {
	store     Store
	collector EvidenceCollector
	oracle    NarrativeOracle
}

func NewService(store Store, coll EvidenceCollector, oracle NarrativeOracle) *Service {
	return &Service{store: store, collector: coll, oracle: oracle}
}

// Run executes the full lifecycle and returns the final record. Only
// invalid input is rejected; every accepted request produces a record,
// degraded at worst, never an internal error.
func (s *Service) Run(ctx context.Context, req Request) (*types.Verification, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &types.Verification{
		ID:            uuid.NewString(),
		Client:        strings.TrimSpace(req.Client),
		ClientCountry: strings.ToUpper(req.Country),
		ClientRole:    req.Role,
		ProductName:   req.ProductName,
		State:         types.StateCreated,
		Sources:       "[]",
		Flags:         "[]",
		CreatedAt:     now,
	}

	rec.State = types.StateCollecting
	bundle := s.collector.Collect(ctx, collector.Request{
		Name:       rec.Client,
		Country:    rec.ClientCountry,
		WebsiteURL: req.WebsiteURL,
	})

	rec.State = types.StateCollected
	collectedAt := bundle.CollectedAt
	rec.DataCollectedAt = &collectedAt
	s.freezeEvidence(rec, bundle)

	// The partial record must be durable before analysis starts, so a
	// crash mid-analysis leaves a resumable record.
	s.persist(ctx, rec, "partial")

	rec.State = types.StateAnalyzing
	s.analyze(ctx, req, bundle, rec)

	s.persist(ctx, rec, "final")
	return rec, nil
}

// persist upserts the record, retrying once on a transient store failure.
func (s *Service) persist(ctx context.Context, rec *types.Verification, stage string) {
	err := s.store.Upsert(ctx, rec)
	if err == nil {
		return
	}
	log.Printf("verification: persist %s %s: %v, retrying", stage, rec.ID, err)
	if err := s.store.Upsert(ctx, rec); err != nil {
		log.Printf("verification: persist %s %s failed after retry: %v", stage, rec.ID, err)
	}
}

// freezeEvidence serializes the bundle onto the record's JSON columns.
func (s *Service) freezeEvidence(rec *types.Verification, bundle *collector.Bundle) {
	if b, err := json.Marshal(bundle); err == nil {
		rec.Evidence = string(b)
	}
	if b, err := json.Marshal(bundle.SourcesUsed); err == nil {
		rec.Sources = string(b)
	}
	if bundle.Website.URL != "" {
		url := bundle.Website.URL
		rec.WebsiteURL = &url
	}
	if p := bundle.Website.Page; p != nil && p.PublishedAt != nil {
		rec.PubDate = p.PublishedAt
	}
}

// analyze fills the risk fields and resolves the lifecycle to Completed,
// or AnalysisFailed when the scoring step itself breaks. An oracle
// failure is not an analysis failure; it only leaves the narrative null.
func (s *Service) analyze(ctx context.Context, req Request, bundle *collector.Bundle, rec *types.Verification) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("verification: analysis of %s failed: %v", rec.ID, r)
			rec.State = types.StateAnalysisFailed
			rec.Narrative = nil
			rec.ActivityLevel = nil
			rec.RiskScore = nil
			rec.Flags = "[]"
			rec.Confidence = nil
			rec.IsRedFlag = false
		}
	}()

	var narrative *string
	if s.oracle != nil {
		narrative = s.oracle.Narrative(ctx, req, bundle)
	}

	a := risk.Assess(bundle, narrative)

	rec.Narrative = a.Narrative
	rec.ActivityLevel = &a.ActivityLevel
	rec.RiskScore = &a.RiskScore
	rec.Confidence = &a.Confidence
	rec.IsRedFlag = a.IsRedFlag
	if b, err := json.Marshal(a.Flags); err == nil {
		rec.Flags = string(b)
	}

	now := time.Now().UTC()
	rec.LastVerifiedAt = &now
	rec.State = types.StateCompleted
}
