package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"outfitsquare/internal/model"
	"outfitsquare/internal/repository"
)

// historyListLimit caps how many records one listing returns.
const historyListLimit = 200

// HistoryService stores verification results. Scores are produced by the
// caller and stored as-is.
type HistoryService struct {
	historyRepo   repository.HistoryRepository
	relationships *RelationshipService
	db            *sqlx.DB

	now func() time.Time
}

func NewHistoryService(historyRepo repository.HistoryRepository, relationships *RelationshipService, db *sqlx.DB) *HistoryService {
	return &HistoryService{
		historyRepo:   historyRepo,
		relationships: relationships,
		db:            db,
		now:           time.Now,
	}
}

func (s *HistoryService) Record(ctx context.Context, userID string, req model.CreateHistoryRequest) (*model.HistoryRecord, error) {
	if strings.TrimSpace(req.ImageURI) == "" {
		return nil, model.ErrImageURIRequired
	}

	refs := model.URIList{}
	for _, uri := range req.ReferenceURIs {
		if uri = strings.TrimSpace(uri); uri != "" {
			refs = append(refs, uri)
		}
	}

	rec := &model.HistoryRecord{
		ID:               uuid.NewString(),
		UserID:           userID,
		ImageURI:         req.ImageURI,
		ReferenceURIs:    refs,
		Verdict:          req.Verdict,
		CredibilityScore: req.CredibilityScore,
		Summary:          req.Summary,
		CreatedAt:        model.At(s.now()),
	}
	if err := s.historyRepo.Create(ctx, s.db, rec); err != nil {
		return nil, fmt.Errorf("record history: %w", err)
	}

	log.Printf("[HistoryService] Record OK: user=%s record=%s verdict=%s", userID, rec.ID, rec.Verdict)
	return rec, nil
}

func (s *HistoryService) ListOwn(ctx context.Context, userID string) ([]model.HistoryRecord, error) {
	return s.historyRepo.ListByUser(ctx, userID, historyListLimit)
}

func (s *HistoryService) Delete(ctx context.Context, userID, recordID string) error {
	return s.historyRepo.Delete(ctx, recordID, userID)
}

// ListVisible returns the part of target's history that viewer may see under
// the target's privacy settings.
func (s *HistoryService) ListVisible(ctx context.Context, viewerID, targetID string) (*model.HistoryListResponse, error) {
	records, err := s.historyRepo.ListByUser(ctx, targetID, historyListLimit)
	if err != nil {
		return nil, err
	}

	filtered, visible, err := s.relationships.GetFilteredHistory(ctx, viewerID, targetID, records)
	if err != nil {
		return nil, err
	}
	return &model.HistoryListResponse{Records: filtered, Visible: visible}, nil
}
