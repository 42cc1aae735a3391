package service

import (
	"context"

	"backend/internal/apperr"
	"backend/internal/game"
	"backend/internal/models"
)

// RankService answers rank and leaderboard page queries. Results are
// point-in-time snapshots: a caller's rank is only as fresh as its own
// entry fetch.
type RankService struct {
	board           LeaderboardStore
	pageSizeDefault int
	pageSizeMax     int
}

// NewRankService creates a new rank query service
func NewRankService(board LeaderboardStore, pageSizeDefault, pageSizeMax int) *RankService {
	return &RankService{
		board:           board,
		pageSizeDefault: pageSizeDefault,
		pageSizeMax:     pageSizeMax,
	}
}

// MyRank reports the caller's current standing, or nil when the caller has
// no leaderboard entry yet. Rank is one plus the number of entries with a
// strictly greater ordering key, read at the same consistency as the entry
// fetch.
func (s *RankService) MyRank(ctx context.Context, caller string) (*models.RankResponse, error) {
	if caller == "" {
		return nil, apperr.New(apperr.Unauthenticated, "sign-in required")
	}

	entry, err := s.board.Entry(ctx, caller)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to fetch entry", err)
	}
	if entry == nil {
		return nil, nil
	}

	above, err := s.board.CountStrictlyAbove(ctx, entry.OrderingKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to count ranks", err)
	}

	return &models.RankResponse{
		Rank:        above + 1,
		Score:       entry.BestScore,
		DisplayName: entry.DisplayName,
	}, nil
}

// TopPage returns one page of the board ordered best-first, with an opaque
// cursor for forward-only continuation. pageSize of zero takes the default;
// anything negative or above the configured max is rejected.
func (s *RankService) TopPage(ctx context.Context, pageSize int, cursorToken string) (*models.LeaderboardPageResponse, error) {
	if pageSize == 0 {
		pageSize = s.pageSizeDefault
	}
	if pageSize < 0 || pageSize > s.pageSizeMax {
		return nil, apperr.Newf(apperr.InvalidArgument, "page size must be between 1 and %d", s.pageSizeMax)
	}

	var after *game.Cursor
	if cursorToken != "" {
		c, err := game.DecodeCursor(cursorToken)
		if err != nil {
			return nil, err
		}
		after = c
	}

	entries, err := s.board.TopPage(ctx, pageSize, after)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to fetch page", err)
	}

	resp := &models.LeaderboardPageResponse{
		Entries: make([]models.PublicEntry, 0, len(entries)),
	}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, models.PublicEntry{
			DisplayName: entry.DisplayName,
			Score:       entry.BestScore,
		})
	}

	// A full page may be the last one; the follow-up request then comes
	// back empty with no cursor.
	if len(entries) == pageSize {
		last := entries[len(entries)-1]
		resp.NextCursor = game.Cursor{Key: last.OrderingKey, Owner: last.Owner}.Encode()
	}

	return resp, nil
}
