// Package service implements the consultation domain operations on top of
// the store and the connection hub.
package service

import (
	"context"
	"time"

	"github.com/ymzhao891/medichat/internal/domain"
	"github.com/ymzhao891/medichat/internal/hub"
	"github.com/ymzhao891/medichat/internal/store"
)

// Analyzer produces an analysis artifact from an anonymized transcript.
// It may be slow or unreliable; callers bound it with a timeout and never
// invoke it inside a transaction.
type Analyzer interface {
	Analyze(ctx context.Context, transcript []domain.TranscriptEntry) (string, error)
}

type Service struct {
	store           store.Store
	hub             *hub.Hub
	analyzer        Analyzer
	analysisTimeout time.Duration
}

func New(st store.Store, h *hub.Hub, analyzer Analyzer, analysisTimeout time.Duration) *Service {
	return &Service{
		store:           st,
		hub:             h,
		analyzer:        analyzer,
		analysisTimeout: analysisTimeout,
	}
}
