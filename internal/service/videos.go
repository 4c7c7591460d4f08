package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/vidvote/internal/errs"
	"github.com/and161185/vidvote/internal/model"
	"github.com/and161185/vidvote/internal/paging"
)

// DefaultRefreshConcurrency bounds RefreshAll when no limit is configured.
const DefaultRefreshConcurrency = 4

// VideoAPI is the subset of the backend used for the owner's videos.
type VideoAPI interface {
	MyVideos(ctx context.Context, token string) ([]model.Video, error)
	GetVideo(ctx context.Context, token string, id model.ID) (*model.Video, error)
	DeleteVideo(ctx context.Context, token string, id model.ID) error
	PublishVideo(ctx context.Context, token string, id model.ID) error
	UploadVideo(ctx context.Context, token string, req model.UploadRequest) (*model.UploadResult, error)
}

// VideoService manages the authenticated user's uploads.
type VideoService interface {
	// Load replaces the cached list with the server's.
	Load(ctx context.Context) ([]model.Video, error)
	// Refresh re-fetches one video and merges it into the cache.
	Refresh(ctx context.Context, id model.ID) (model.Video, error)
	// RefreshAll refreshes every cached video concurrently.
	RefreshAll(ctx context.Context) error
	// Publish lists a processed video publicly.
	Publish(ctx context.Context, id model.ID) error
	// Delete removes a video and reloads the list.
	Delete(ctx context.Context, id model.ID) error
	// Upload sends a new video file.
	Upload(ctx context.Context, req model.UploadRequest) (*model.UploadResult, error)
	// Videos returns the cached list.
	Videos() []model.Video
	// Page returns one page of the cached list.
	Page(page, size int) paging.Page[model.Video]
}

type VideoServiceImpl struct {
	api         VideoAPI
	auth        TokenSource
	log         *zap.Logger
	concurrency int

	mu         sync.Mutex
	videos     []model.Video
	listGen    uint64
	gen        map[model.ID]uint64
	publishing map[model.ID]struct{}
}

// NewVideoService constructs VideoService. concurrency bounds RefreshAll; values
// below 1 use DefaultRefreshConcurrency.
func NewVideoService(api VideoAPI, auth TokenSource, log *zap.Logger, concurrency int) *VideoServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = DefaultRefreshConcurrency
	}
	return &VideoServiceImpl{
		api:         api,
		auth:        auth,
		log:         log,
		concurrency: concurrency,
		gen:         map[model.ID]uint64{},
		publishing:  map[model.ID]struct{}{},
	}
}

func (s *VideoServiceImpl) token() (string, error) {
	tok := s.auth.Token()
	if tok == "" {
		return "", errs.ErrUnauthenticated
	}
	return tok, nil
}

// Load fetches the list and replaces the cache. A Load overtaken by a later
// Load returns ErrStale and leaves the cache alone.
func (s *VideoServiceImpl) Load(ctx context.Context) ([]model.Video, error) {
	tok, err := s.token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.listGen++
	g := s.listGen
	s.mu.Unlock()

	list, err := s.api.MyVideos(ctx, tok)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if g != s.listGen {
		return nil, errs.ErrStale
	}
	s.videos = slices.Clone(list)
	return slices.Clone(s.videos), nil
}

// Videos returns a copy of the cached list.
func (s *VideoServiceImpl) Videos() []model.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.videos)
}

// Page returns page number page of the cached list.
func (s *VideoServiceImpl) Page(page, size int) paging.Page[model.Video] {
	return paging.Paginate(s.Videos(), page, size)
}

func (s *VideoServiceImpl) begin(id model.ID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen[id]++
	return s.gen[id]
}

// Refresh fetches id and merges title, status, URLs and timestamps into the
// cached entry; fields the response omits keep their cached value. Only the
// most recently started Refresh for an id may write: an older response is
// dropped and ErrStale returned.
func (s *VideoServiceImpl) Refresh(ctx context.Context, id model.ID) (model.Video, error) {
	tok, err := s.token()
	if err != nil {
		return model.Video{}, err
	}
	g := s.begin(id)

	v, err := s.api.GetVideo(ctx, tok, id)
	if err != nil {
		return model.Video{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen[id] != g {
		s.log.Debug("dropping stale video response", zap.String("video_id", id.String()))
		return model.Video{}, errs.ErrStale
	}
	i := slices.IndexFunc(s.videos, func(c model.Video) bool { return c.ID == id })
	if i < 0 {
		return *v, nil
	}
	s.videos[i] = merge(s.videos[i], *v)
	return s.videos[i], nil
}

func merge(cur, upd model.Video) model.Video {
	if upd.Title != "" {
		cur.Title = upd.Title
	}
	if upd.Status != "" {
		cur.Status = upd.Status
	}
	if upd.OriginalURL != nil {
		cur.OriginalURL = upd.OriginalURL
	}
	if upd.ProcessedURL != nil {
		cur.ProcessedURL = upd.ProcessedURL
	}
	if upd.CreatedAt != nil {
		cur.CreatedAt = upd.CreatedAt
	}
	if upd.UploadedAt != nil {
		cur.UploadedAt = upd.UploadedAt
	}
	if upd.ProcessedAt != nil {
		cur.ProcessedAt = upd.ProcessedAt
	}
	return cur
}

// RefreshAll refreshes every cached video with bounded concurrency and
// returns the first error. Stale results are not errors here.
func (s *VideoServiceImpl) RefreshAll(ctx context.Context) error {
	if _, err := s.token(); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, v := range s.Videos() {
		id := v.ID
		g.Go(func() error {
			if _, err := s.Refresh(ctx, id); err != nil && !errors.Is(err, errs.ErrStale) {
				return fmt.Errorf("refresh %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Publish lists id publicly and refreshes it. The publish request is only
// sent for a video known to be processed; an uncached video is fetched first. A second Publish
// of the same id while one is running returns ErrInFlight.
func (s *VideoServiceImpl) Publish(ctx context.Context, id model.ID) error {
	tok, err := s.token()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, busy := s.publishing[id]; busy {
		s.mu.Unlock()
		return errs.ErrInFlight
	}
	s.publishing[id] = struct{}{}
	i := slices.IndexFunc(s.videos, func(c model.Video) bool { return c.ID == id })
	var cached *model.Video
	if i >= 0 {
		v := s.videos[i]
		cached = &v
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.publishing, id)
		s.mu.Unlock()
	}()

	if cached == nil {
		v, err := s.api.GetVideo(ctx, tok, id)
		if err != nil {
			return err
		}
		cached = v
	}
	if !cached.Processed() {
		return fmt.Errorf("video %s (%s): %w", id, cached.Status, errs.ErrNotProcessed)
	}

	if err := s.api.PublishVideo(ctx, tok, id); err != nil {
		return err
	}
	s.log.Info("video published", zap.String("video_id", id.String()))

	if _, err := s.Refresh(ctx, id); err != nil && !errors.Is(err, errs.ErrStale) {
		s.log.Warn("refresh after publish failed", zap.String("video_id", id.String()), zap.Error(err))
	}
	return nil
}

// Delete removes id on the server and reloads the list.
func (s *VideoServiceImpl) Delete(ctx context.Context, id model.ID) error {
	tok, err := s.token()
	if err != nil {
		return err
	}
	if err := s.api.DeleteVideo(ctx, tok, id); err != nil {
		return err
	}
	s.log.Info("video deleted", zap.String("video_id", id.String()))
	if _, err := s.Load(ctx); err != nil && !errors.Is(err, errs.ErrStale) {
		return fmt.Errorf("reload after delete: %w", err)
	}
	return nil
}

// Upload sends a new video.
func (s *VideoServiceImpl) Upload(ctx context.Context, req model.UploadRequest) (*model.UploadResult, error) {
	tok, err := s.token()
	if err != nil {
		return nil, err
	}
	res, err := s.api.UploadVideo(ctx, tok, req)
	if err != nil {
		return nil, err
	}
	s.log.Info("video uploaded", zap.String("video_id", res.ID.String()), zap.String("task_id", res.TaskID))
	return res, nil
}
