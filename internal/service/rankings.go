package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/vidvote/internal/convert"
	"github.com/and161185/vidvote/internal/errs"
	"github.com/and161185/vidvote/internal/model"
	"github.com/and161185/vidvote/internal/ranking"
)

// MaxPageSize is the largest rankings page the backend accepts.
const MaxPageSize = 100

// RankingMode selects where rankings are computed.
type RankingMode string

const (
	// ModeServer asks the rankings endpoint for a ready page.
	ModeServer RankingMode = "server"
	// ModeClient ranks the public video list locally.
	ModeClient RankingMode = "client"
)

// ParseRankingMode accepts "server" or "client"; empty means server.
func ParseRankingMode(s string) (RankingMode, error) {
	switch m := RankingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeServer:
		return ModeServer, nil
	case ModeClient:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown ranking mode %q", errs.ErrValidation, s)
}

// RankingAPI is the subset of the backend used for public listings.
type RankingAPI interface {
	PublicVideos(ctx context.Context) ([]model.PublicVideo, error)
	Vote(ctx context.Context, token string, id model.ID) error
	Rankings(ctx context.Context, q model.RankingQuery) (convert.List[model.RankingEntry], error)
	CityID(ctx context.Context, city, country string) (model.ID, error)
}

// RankingService exposes public videos, voting and rankings.
type RankingService interface {
	PublicVideos(ctx context.Context) ([]model.PublicVideo, error)
	Vote(ctx context.Context, id model.ID) error
	Query(ctx context.Context, q model.RankingQuery) (model.RankingPage, error)
	ResolveCity(ctx context.Context, city, country string) (model.ID, error)
}

type RankingServiceImpl struct {
	api      RankingAPI
	auth     TokenSource
	log      *zap.Logger
	mode     RankingMode
	pageSize int
}

// NewRankingService constructs RankingService. pageSize below 1 uses ranking.DefaultPageSize.
func NewRankingService(api RankingAPI, auth TokenSource, log *zap.Logger, mode RankingMode, pageSize int) *RankingServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	if mode == "" {
		mode = ModeServer
	}
	if pageSize < 1 {
		pageSize = ranking.DefaultPageSize
	}
	return &RankingServiceImpl{api: api, auth: auth, log: log, mode: mode, pageSize: pageSize}
}

// Mode returns the configured ranking mode.
func (s *RankingServiceImpl) Mode() RankingMode { return s.mode }

// PublicVideos lists published videos. No session is needed.
func (s *RankingServiceImpl) PublicVideos(ctx context.Context) ([]model.PublicVideo, error) {
	return s.api.PublicVideos(ctx)
}

// Vote casts a vote for id. It needs a session.
func (s *RankingServiceImpl) Vote(ctx context.Context, id model.ID) error {
	tok := s.auth.Token()
	if tok == "" {
		return errs.ErrUnauthenticated
	}
	if err := s.api.Vote(ctx, tok, id); err != nil {
		return err
	}
	s.log.Info("vote cast", zap.String("video_id", id.String()))
	return nil
}

// Query returns one rankings page. In server mode the backend pages and
// filters; a plain array reply carries no page count and TotalPages is 0.
// In client mode the public list is filtered by normalized city, sorted by
// votes and paged locally.
func (s *RankingServiceImpl) Query(ctx context.Context, q model.RankingQuery) (model.RankingPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = s.pageSize
	}
	if q.PageSize > MaxPageSize {
		return model.RankingPage{}, fmt.Errorf("%w: page size %d exceeds %d", errs.ErrValidation, q.PageSize, MaxPageSize)
	}
	q.City = strings.TrimSpace(q.City)

	if s.mode == ModeClient {
		pub, err := s.api.PublicVideos(ctx)
		if err != nil {
			return model.RankingPage{}, err
		}
		return ranking.Rank(convert.PublicToRanking(pub), q.City, q.Page, q.PageSize), nil
	}

	l, err := s.api.Rankings(ctx, q)
	if err != nil {
		return model.RankingPage{}, err
	}
	items := l.Items
	if items == nil {
		items = []model.RankingEntry{}
	}
	for i := range items {
		if items[i].Position == 0 {
			items[i].Position = (q.Page-1)*q.PageSize + i + 1
		}
	}
	return model.RankingPage{Items: items, Page: q.Page, PageSize: q.PageSize, TotalPages: l.TotalPages}, nil
}

// ResolveCity maps a city and country to the backend's city identifier.
func (s *RankingServiceImpl) ResolveCity(ctx context.Context, city, country string) (model.ID, error) {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	if city == "" || country == "" {
		return "", fmt.Errorf("%w: city and country are required", errs.ErrValidation)
	}
	return s.api.CityID(ctx, city, country)
}
