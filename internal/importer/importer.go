// Package importer loads the JSON documents the app kept in device storage
// into the database. A document that fails validation is treated as empty:
// it is logged and skipped, and the rest of the import continues.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"outfitsquare/internal/database"
	"outfitsquare/internal/model"
	"outfitsquare/internal/repository"
)

// Import outcomes per document.
const (
	StatusImported = "imported"
	StatusReset    = "reset"   // failed validation, imported as empty
	StatusMissing  = "missing" // no such file in the export
)

// Report describes what happened to one document. Repaired counts
// timestamps that could not be parsed and were replaced with a fallback;
// those records are still imported.
type Report struct {
	Document string
	Status   string
	Records  int
	Skipped  int
	Repaired int
	Reason   error
}

// Repositories are the stores an import writes into.
type Repositories struct {
	Directory repository.DirectoryRepository
	Friends   repository.FriendRepository
	Follows   repository.FollowRepository
	Privacy   repository.PrivacyRepository
	History   repository.HistoryRepository
	Posts     repository.PostRepository
	Comments  repository.CommentRepository
	Ratings   repository.RatingRepository
}

type Importer struct {
	db    *sqlx.DB
	repos Repositories
	now   func() time.Time
}

func New(db *sqlx.DB, repos Repositories) *Importer {
	return &Importer{db: db, repos: repos, now: time.Now}
}

// ImportDir imports every known document found in dir. ownerID is the
// signed-in user of the device that produced the export; the friends
// document belongs to them.
func (im *Importer) ImportDir(ctx context.Context, dir, ownerID string) ([]Report, error) {
	var reports []Report

	steps := []struct {
		name string
		fn   func(ctx context.Context, data []byte) (Report, error)
	}{
		{DirectoryDocument, im.ImportDirectory},
		{FriendsDocument, func(ctx context.Context, data []byte) (Report, error) {
			return im.ImportFriends(ctx, ownerID, data)
		}},
		{PostsDocument, im.ImportPosts},
	}
	for _, step := range steps {
		data, err := os.ReadFile(filepath.Join(dir, step.name))
		if errors.Is(err, os.ErrNotExist) {
			reports = append(reports, Report{Document: step.name, Status: StatusMissing})
			continue
		}
		if err != nil {
			return reports, fmt.Errorf("read %s: %w", step.name, err)
		}
		report, err := step.fn(ctx, data)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}

	historyFiles, err := filepath.Glob(filepath.Join(dir, HistoryPrefix+"*.json"))
	if err != nil {
		return reports, fmt.Errorf("list history documents: %w", err)
	}
	sort.Strings(historyFiles)
	for _, path := range historyFiles {
		name := filepath.Base(path)
		userID := strings.TrimSuffix(strings.TrimPrefix(name, HistoryPrefix), ".json")
		data, err := os.ReadFile(path)
		if err != nil {
			return reports, fmt.Errorf("read %s: %w", name, err)
		}
		report, err := im.ImportHistory(ctx, userID, data)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}

	return reports, nil
}

// stamp resolves a legacy timestamp, counting it on report when it was
// unparseable.
func stamp(report *Report, l legacyTime, fallback time.Time) model.Timestamp {
	if l.invalid {
		report.Repaired++
	}
	return l.or(fallback)
}

func reset(name string, err error) Report {
	log.Printf("[Importer] %s is unusable, starting from an empty state: %v", name, err)
	return Report{Document: name, Status: StatusReset, Reason: err}
}

// ImportDirectory upserts the "all users" directory.
func (im *Importer) ImportDirectory(ctx context.Context, data []byte) (Report, error) {
	var doc directoryDocument
	if err := validateDocument(data, &doc); err != nil {
		return reset(DirectoryDocument, err), nil
	}

	report := Report{Document: DirectoryDocument, Status: StatusImported}
	now := model.At(im.now())

	err := database.WithTx(ctx, im.db, func(tx *sqlx.Tx) error {
		for userID, e := range doc {
			if strings.TrimSpace(userID) == "" {
				report.Skipped++
				continue
			}
			err := im.repos.Directory.Upsert(ctx, tx, &model.DirectoryEntry{
				UserID:    userID,
				Nickname:  strings.TrimSpace(e.Nickname),
				Avatar:    e.Avatar,
				Phone:     e.Phone,
				UpdatedAt: now,
			})
			if err != nil {
				return err
			}
			report.Records++
		}
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("import directory: %w", err)
	}

	log.Printf("[Importer] ImportDirectory OK: entries=%d skipped=%d", report.Records, report.Skipped)
	return report, nil
}

// ImportFriends loads the owner's friends, friend requests, follow edges and
// privacy settings.
func (im *Importer) ImportFriends(ctx context.Context, ownerID string, data []byte) (Report, error) {
	var doc friendsDocument
	if err := validateDocument(data, &doc); err != nil {
		return reset(FriendsDocument, err), nil
	}

	report := Report{Document: FriendsDocument, Status: StatusImported}
	now := im.now()

	err := database.WithTx(ctx, im.db, func(tx *sqlx.Tx) error {
		for _, f := range doc.Friends {
			if f.UserID == "" || f.UserID == ownerID {
				report.Skipped++
				continue
			}
			added := stamp(&report, f.AddedAt, now)
			err := im.repos.Directory.Upsert(ctx, tx, &model.DirectoryEntry{
				UserID: f.UserID, Nickname: strings.TrimSpace(f.Nickname), Avatar: f.Avatar, Phone: f.Phone, UpdatedAt: added,
			})
			if err != nil {
				return err
			}
			if _, err := im.repos.Friends.CreateFriendship(ctx, tx, ownerID, f.UserID, added); err != nil {
				return err
			}
			report.Records++
		}

		for _, r := range doc.FriendRequests {
			imported, err := im.importRequest(ctx, tx, r, now, &report)
			if err != nil {
				return err
			}
			if imported {
				report.Records++
			} else {
				report.Skipped++
			}
		}

		at := model.At(now)
		for _, id := range doc.Following {
			if id == "" || id == ownerID {
				report.Skipped++
				continue
			}
			if _, err := im.repos.Follows.Create(ctx, tx, ownerID, id, at); err != nil {
				return err
			}
			report.Records++
		}
		for _, id := range doc.Followers {
			if id == "" || id == ownerID {
				report.Skipped++
				continue
			}
			if _, err := im.repos.Follows.Create(ctx, tx, id, ownerID, at); err != nil {
				return err
			}
			report.Records++
		}
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("import friends: %w", err)
	}

	if doc.PrivacySettings != nil {
		settings := model.DefaultPrivacySettings(ownerID)
		p := doc.PrivacySettings
		if p.AllowFriendsViewHistory != nil {
			settings.AllowFriendsViewHistory = *p.AllowFriendsViewHistory
		}
		if p.HistoryVisibility != "" {
			settings.HistoryVisibility = p.HistoryVisibility
		}
		if p.HistoryTimeRange != "" {
			settings.HistoryTimeRange = p.HistoryTimeRange
		}
		settings.UpdatedAt = model.At(now)

		if err := settings.Validate(); err != nil {
			log.Printf("[Importer] Ignoring privacy settings for user=%s: %v", ownerID, err)
			report.Skipped++
		} else if err := im.repos.Privacy.Upsert(ctx, &settings); err != nil {
			return Report{}, fmt.Errorf("import privacy settings: %w", err)
		} else {
			report.Records++
		}
	}

	log.Printf("[Importer] ImportFriends OK: owner=%s records=%d skipped=%d repaired=%d", ownerID, report.Records, report.Skipped, report.Repaired)
	return report, nil
}

func (im *Importer) importRequest(ctx context.Context, tx *sqlx.Tx, r legacyFriendRequest, now time.Time, report *Report) (bool, error) {
	if r.ID == "" || r.FromUserID == "" || r.ToUserID == "" || r.FromUserID == r.ToUserID {
		return false, nil
	}
	status := r.Status
	if status == "" {
		status = model.RequestStatusPending
	}
	switch status {
	case model.RequestStatusPending, model.RequestStatusAccepted, model.RequestStatusRejected:
	default:
		return false, nil
	}

	_, err := im.repos.Friends.GetRequest(ctx, tx, r.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, model.ErrRequestNotFound) {
		return false, err
	}

	err = im.repos.Friends.CreateRequest(ctx, tx, &model.FriendRequest{
		ID:               r.ID,
		FromUserID:       r.FromUserID,
		FromUserNickname: strings.TrimSpace(r.FromUserNickname),
		FromUserAvatar:   r.FromUserAvatar,
		ToUserID:         r.ToUserID,
		Status:           status,
		CreatedAt:        stamp(report, r.CreatedAt, now),
	})
	return err == nil, err
}

// ImportPosts loads the square with each post's likes, comments and ratings.
// Posts already present are left untouched.
func (im *Importer) ImportPosts(ctx context.Context, data []byte) (Report, error) {
	var doc []legacyPost
	if err := validateDocument(data, &doc); err != nil {
		return reset(PostsDocument, err), nil
	}

	report := Report{Document: PostsDocument, Status: StatusImported}
	now := im.now()

	err := database.WithTx(ctx, im.db, func(tx *sqlx.Tx) error {
		for _, p := range doc {
			imported, err := im.importPost(ctx, tx, p, now, &report)
			if err != nil {
				return err
			}
			if imported {
				report.Records++
			} else {
				report.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("import posts: %w", err)
	}

	log.Printf("[Importer] ImportPosts OK: posts=%d skipped=%d repaired=%d", report.Records, report.Skipped, report.Repaired)
	return report, nil
}

func (im *Importer) importPost(ctx context.Context, tx *sqlx.Tx, p legacyPost, now time.Time, report *Report) (bool, error) {
	if p.ID == "" || p.UserID == "" {
		return false, nil
	}
	postType := p.Type
	if postType == "" {
		postType = model.PostTypeOriginal
		if p.OutfitChangeID != nil {
			postType = model.PostTypeOutfitChange
		}
	}
	if !model.IsValidPostType(postType) {
		return false, nil
	}

	created := p.CreatedAt.or(now)
	inserted, err := im.repos.Posts.Create(ctx, tx, &model.SquarePost{
		ID:               p.ID,
		UserID:           p.UserID,
		UserNickname:     strings.TrimSpace(p.UserNickname),
		UserAvatar:       p.UserAvatar,
		PostType:         postType,
		OutfitChangeID:   p.OutfitChangeID,
		OriginalImageURI: p.OriginalImageURI,
		ResultImageURI:   p.ResultImageURI,
		TemplateName:     p.TemplateName,
		Description:      p.Description,
		CreatedAt:        created,
	})
	if err != nil || !inserted {
		return false, err
	}
	if p.CreatedAt.invalid {
		report.Repaired++
	}

	if nickname := strings.TrimSpace(p.UserNickname); nickname != "" {
		err := im.repos.Directory.Upsert(ctx, tx, &model.DirectoryEntry{
			UserID: p.UserID, Nickname: nickname, Avatar: p.UserAvatar, UpdatedAt: created,
		})
		if err != nil {
			return false, err
		}
	}

	for _, uid := range p.Likes {
		if uid == "" {
			continue
		}
		if _, err := im.repos.Posts.Like(ctx, tx, p.ID, uid, created); err != nil {
			return false, err
		}
	}

	// Comment IDs are global, so a legacy ID already used by another post
	// gets a fresh one. storedIDs maps legacy IDs to what was written.
	storedIDs := make(map[string]string, len(p.Comments))
	for _, c := range p.Comments {
		if c.UserID == "" || strings.TrimSpace(c.Content) == "" {
			continue
		}
		id, err := im.freeCommentID(ctx, tx, c.ID)
		if err != nil {
			return false, err
		}
		replyTo := c.ReplyToCommentID
		if replyTo != nil {
			if stored, ok := storedIDs[*replyTo]; ok {
				replyTo = &stored
			}
		}
		err = im.repos.Comments.Create(ctx, tx, &model.SquareComment{
			ID:               id,
			PostID:           p.ID,
			UserID:           c.UserID,
			UserNickname:     strings.TrimSpace(c.UserNickname),
			UserAvatar:       c.UserAvatar,
			Content:          c.Content,
			ReplyToCommentID: replyTo,
			ReplyToUserID:    c.ReplyToUserID,
			ReplyToNickname:  c.ReplyToNickname,
			CreatedAt:        stamp(report, c.CreatedAt, created.Time),
		})
		if err != nil {
			return false, err
		}
		if _, seen := storedIDs[c.ID]; c.ID != "" && !seen {
			storedIDs[c.ID] = id
		}
	}

	for _, r := range p.UserRatings {
		if r.UserID == "" || r.Score < model.MinRatingScore || r.Score > model.MaxRatingScore {
			continue
		}
		err := im.repos.Ratings.Upsert(ctx, tx, &model.UserRating{
			PostID: p.ID, UserID: r.UserID, Score: r.Score, CreatedAt: stamp(report, r.CreatedAt, created.Time),
		})
		if err != nil {
			return false, err
		}
	}

	// A pin pointing at a comment that no longer exists is dropped.
	if p.PinnedCommentID != nil {
		if stored, ok := storedIDs[*p.PinnedCommentID]; ok {
			if err := im.repos.Posts.SetPinnedComment(ctx, tx, p.ID, &stored); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

// freeCommentID returns legacyID when no stored comment uses it yet, and a
// new UUID otherwise.
func (im *Importer) freeCommentID(ctx context.Context, tx *sqlx.Tx, legacyID string) (string, error) {
	if legacyID == "" {
		return uuid.NewString(), nil
	}
	_, err := im.repos.Comments.GetByID(ctx, tx, legacyID)
	if errors.Is(err, model.ErrCommentNotFound) {
		return legacyID, nil
	}
	if err != nil {
		return "", err
	}
	return uuid.NewString(), nil
}

// ImportHistory loads one user's verification history.
func (im *Importer) ImportHistory(ctx context.Context, userID string, data []byte) (Report, error) {
	name := HistoryPrefix + userID + ".json"

	var doc []legacyHistoryRecord
	if err := validateDocument(data, &doc); err != nil {
		return reset(name, err), nil
	}

	report := Report{Document: name, Status: StatusImported}
	now := im.now()

	err := database.WithTx(ctx, im.db, func(tx *sqlx.Tx) error {
		for _, r := range doc {
			if strings.TrimSpace(r.ImageURI) == "" {
				report.Skipped++
				continue
			}
			id := r.ID
			if id == "" {
				id = uuid.NewString()
			}
			refs := model.URIList{}
			for _, uri := range r.ReferenceURIs {
				if uri = strings.TrimSpace(uri); uri != "" {
					refs = append(refs, uri)
				}
			}
			err := im.repos.History.Create(ctx, tx, &model.HistoryRecord{
				ID:               id,
				UserID:           userID,
				ImageURI:         r.ImageURI,
				ReferenceURIs:    refs,
				Verdict:          r.Verdict,
				CredibilityScore: r.CredibilityScore,
				Summary:          r.Summary,
				CreatedAt:        stamp(&report, r.CreatedAt, now),
			})
			if err != nil {
				return err
			}
			report.Records++
		}
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("import history: %w", err)
	}

	log.Printf("[Importer] ImportHistory OK: user=%s records=%d skipped=%d repaired=%d", userID, report.Records, report.Skipped, report.Repaired)
	return report, nil
}
