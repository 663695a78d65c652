package service

import (
	"time"

	"outfitsquare/internal/model"
)

// HistoryAccess is the outcome of a history visibility check. A zero Cutoff
// means no time filter applies.
type HistoryAccess struct {
	Visible bool
	Cutoff  time.Time
}

// DecideHistoryAccess applies the target's privacy settings to a viewer.
// related is true when the two users are friends or follow each other.
func DecideHistoryAccess(viewerID, targetID string, settings model.FriendPrivacySettings, related bool, now time.Time) HistoryAccess {
	if viewerID == targetID {
		return HistoryAccess{Visible: true}
	}

	if settings.HistoryVisibility == model.VisibilityNone || !settings.AllowFriendsViewHistory {
		return HistoryAccess{}
	}

	switch settings.HistoryVisibility {
	case model.VisibilityEveryone:
	case model.VisibilityFriendsOnly:
		if !related {
			return HistoryAccess{}
		}
	default:
		return HistoryAccess{}
	}

	return HistoryAccess{Visible: true, Cutoff: historyCutoff(settings.HistoryTimeRange, now)}
}

func historyCutoff(timeRange string, now time.Time) time.Time {
	switch timeRange {
	case model.TimeRangeSixMonths:
		return now.AddDate(0, -6, 0)
	case model.TimeRangeThreeDays:
		return now.Add(-72 * time.Hour)
	}
	return time.Time{}
}

// Filter drops the records a viewer with this access may not see. Records
// created exactly at the cutoff are kept.
func (a HistoryAccess) Filter(records []model.HistoryRecord) []model.HistoryRecord {
	if !a.Visible {
		return []model.HistoryRecord{}
	}
	if a.Cutoff.IsZero() {
		return records
	}

	out := make([]model.HistoryRecord, 0, len(records))
	for _, rec := range records {
		if !rec.CreatedAt.Before(a.Cutoff) {
			out = append(out, rec)
		}
	}
	return out
}
