// Package api is the endpoint table of the video-rating backend. Every
// method returns canonical model records; response variants are folded by
// package convert before they leave this package.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"

	"github.com/and161185/vidvote/internal/convert"
	"github.com/and161185/vidvote/internal/errs"
	"github.com/and161185/vidvote/internal/model"
	"github.com/and161185/vidvote/internal/transport"
)

// Client exposes one method per backend operation.
type Client struct {
	t *transport.Client
}

// New wraps a transport client.
func New(t *transport.Client) *Client { return &Client{t: t} }

// Health returns the body of GET /health as text.
func (c *Client) Health(ctx context.Context) (string, error) {
	return c.t.Text(ctx, transport.Request{Path: "/health"})
}

// Signup creates an account. It does not produce a session.
func (c *Client) Signup(ctx context.Context, req model.SignupRequest) error {
	_, err := c.t.Do(ctx, transport.Request{Method: http.MethodPost, Path: "/api/auth/signup", Body: req})
	return err
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, cred model.Credentials) (model.LoginResult, error) {
	raw, err := c.t.Do(ctx, transport.Request{Method: http.MethodPost, Path: "/api/auth/login", Body: cred})
	if err != nil {
		return model.LoginResult{}, err
	}
	return convert.DecodeLogin(raw)
}

// Me fetches the profile bound to token.
func (c *Client) Me(ctx context.Context, token string) (*model.User, error) {
	raw, err := c.t.Do(ctx, transport.Request{Path: "/api/me", Token: token})
	if err != nil {
		return nil, err
	}
	u, err := convert.DecodeOne[model.User](raw)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("me: empty profile: %w", errs.ErrNotFound)
	}
	return u, nil
}

// Logout invalidates token on the server.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.t.Do(ctx, transport.Request{Method: http.MethodPost, Path: "/api/auth/logout", Token: token})
	return err
}

// MyVideos lists the caller's uploads.
func (c *Client) MyVideos(ctx context.Context, token string) ([]model.Video, error) {
	raw, err := c.t.Do(ctx, transport.Request{Path: "/api/videos", Token: token})
	if err != nil {
		return nil, err
	}
	l, err := convert.DecodeList[model.Video](raw)
	if err != nil {
		return nil, err
	}
	return l.Items, nil
}

// GetVideo fetches one of the caller's videos.
func (c *Client) GetVideo(ctx context.Context, token string, id model.ID) (*model.Video, error) {
	p, err := videoPath(id, "")
	if err != nil {
		return nil, err
	}
	raw, err := c.t.Do(ctx, transport.Request{Path: p, Token: token})
	if err != nil {
		return nil, err
	}
	v, err := convert.DecodeOne[model.Video](raw)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return &model.Video{ID: id}, nil
	}
	return v, nil
}

// DeleteVideo removes one of the caller's videos.
func (c *Client) DeleteVideo(ctx context.Context, token string, id model.ID) error {
	p, err := videoPath(id, "")
	if err != nil {
		return err
	}
	_, err = c.t.Do(ctx, transport.Request{Method: http.MethodDelete, Path: p, Token: token})
	return err
}

// PublishVideo lists a processed video publicly. The backend refuses
// videos that are not processed.
func (c *Client) PublishVideo(ctx context.Context, token string, id model.ID) error {
	p, err := videoPath(id, "/publish")
	if err != nil {
		return err
	}
	_, err = c.t.Do(ctx, transport.Request{Method: http.MethodPost, Path: p, Token: token})
	return err
}

// PublicVideos lists published videos.
func (c *Client) PublicVideos(ctx context.Context) ([]model.PublicVideo, error) {
	raw, err := c.t.Do(ctx, transport.Request{Path: "/api/public/videos"})
	if err != nil {
		return nil, err
	}
	l, err := convert.DecodeList[model.PublicVideo](raw)
	if err != nil {
		return nil, err
	}
	return l.Items, nil
}

// Vote casts one vote for a public video. Idempotency is up to the backend.
func (c *Client) Vote(ctx context.Context, token string, id model.ID) error {
	if strings.TrimSpace(id.String()) == "" {
		return fmt.Errorf("%w: empty video id", errs.ErrValidation)
	}
	p := "/api/public/videos/" + url.PathEscape(id.String()) + "/vote"
	_, err := c.t.Do(ctx, transport.Request{Method: http.MethodPost, Path: p, Token: token})
	return err
}

// Rankings fetches a rankings page as computed by the backend.
func (c *Client) Rankings(ctx context.Context, q model.RankingQuery) (convert.List[model.RankingEntry], error) {
	v, err := query.Values(q)
	if err != nil {
		return convert.List[model.RankingEntry]{}, err
	}
	raw, err := c.t.Do(ctx, transport.Request{Path: "/api/public/rankings", Query: v})
	if err != nil {
		return convert.List[model.RankingEntry]{}, err
	}
	return convert.DecodeList[model.RankingEntry](raw)
}

type cityQuery struct {
	City    string `url:"city"`
	Country string `url:"country"`
}

// CityID resolves a city name within a country to its backend identifier.
func (c *Client) CityID(ctx context.Context, city, country string) (model.ID, error) {
	v, err := query.Values(cityQuery{City: city, Country: country})
	if err != nil {
		return "", err
	}
	raw, err := c.t.Do(ctx, transport.Request{Path: "/api/location/city-id", Query: v})
	if err != nil {
		return "", err
	}
	return convert.DecodeCityID(raw)
}

// VideoStatuses lists the status values the backend knows about.
func (c *Client) VideoStatuses(ctx context.Context) ([]string, error) {
	raw, err := c.t.Do(ctx, transport.Request{Path: "/api/videos/statuses"})
	if err != nil {
		return nil, err
	}
	return convert.DecodeStatuses(raw)
}

func videoPath(id model.ID, suffix string) (string, error) {
	if strings.TrimSpace(id.String()) == "" {
		return "", fmt.Errorf("%w: empty video id", errs.ErrValidation)
	}
	return "/api/videos/" + url.PathEscape(id.String()) + suffix, nil
}
