package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"outfitsquare/internal/database"
	"outfitsquare/internal/model"
	"outfitsquare/internal/repository"
)

// nicknameUpdater rewrites the denormalized nickname copies on a rename,
// inside the caller's transaction.
type nicknameUpdater interface {
	RenameUserInTx(ctx context.Context, tx *sqlx.Tx, userID, nickname string) (*model.NicknameUpdateResult, error)
}

// UserService serves profiles and search over the user directory.
type UserService struct {
	directoryRepo repository.DirectoryRepository
	relationships *RelationshipService
	nicknames     nicknameUpdater
	db            *sqlx.DB
}

func NewUserService(
	directoryRepo repository.DirectoryRepository,
	relationships *RelationshipService,
	nicknames nicknameUpdater,
	db *sqlx.DB,
) *UserService {
	return &UserService{
		directoryRepo: directoryRepo,
		relationships: relationships,
		nicknames:     nicknames,
		db:            db,
	}
}

// GetProfile returns the directory entry with stats. The relationship block
// is filled in when a viewer is known. A user without a directory entry can
// still load their own (empty) profile.
func (s *UserService) GetProfile(ctx context.Context, userID string, viewerID *string) (*model.UserProfile, error) {
	entry, err := s.directoryRepo.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) || viewerID == nil || *viewerID != userID {
			return nil, err
		}
		entry = &model.DirectoryEntry{UserID: userID}
	}

	stats, err := s.relationships.GetUserStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &model.UserProfile{DirectoryEntry: *entry, Stats: *stats}
	if viewerID != nil {
		if profile.Relationship, err = s.relationships.GetRelationship(ctx, *viewerID, userID); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

// UpdateProfile stores avatar and phone on the directory entry and renames
// the user everywhere when the nickname changes. Both happen in one
// transaction.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest) (*model.UserProfile, error) {
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if req.Avatar != nil || req.Phone != nil {
			err := s.directoryRepo.Upsert(ctx, tx, &model.DirectoryEntry{
				UserID:    userID,
				Avatar:    req.Avatar,
				Phone:     req.Phone,
				UpdatedAt: model.At(time.Now()),
			})
			if err != nil {
				return err
			}
		}
		if req.Nickname != nil {
			if _, err := s.nicknames.RenameUserInTx(ctx, tx, userID, *req.Nickname); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	log.Printf("[UserService] UpdateProfile OK: user=%s", userID)
	return s.GetProfile(ctx, userID, &userID)
}

// Search matches nicknames by substring, with the viewer's follow status
// filled in by one batch lookup.
func (s *UserService) Search(ctx context.Context, query string, viewerID *string) ([]model.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.UserSummary{}, nil
	}

	users, err := s.directoryRepo.Search(ctx, query, model.MaxSearchResults)
	if err != nil {
		return nil, err
	}

	if viewerID != nil {
		users = s.relationships.enrichWithFollowStatus(ctx, *viewerID, users)
	}
	return users, nil
}
