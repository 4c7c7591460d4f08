package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/vidvote/internal/apitest"
	"github.com/and161185/vidvote/internal/errs"
	"github.com/and161185/vidvote/internal/model"
	"github.com/and161185/vidvote/internal/transport"
)

func setup(t *testing.T) (*apitest.Backend, *Client) {
	t.Helper()
	be := apitest.New(t)
	return be, New(transport.New(be.URL()))
}

func ana() model.User {
	return model.User{ID: "u1", FirstName: "Ana", LastName: "Pérez", Email: "a@b.com", City: "Bogotá", Country: "Colombia"}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	_, c := setup(t)
	s, err := c.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", s)
}

func TestSignupLoginMe(t *testing.T) {
	t.Parallel()
	be, c := setup(t)
	ctx := context.Background()

	err := c.Signup(ctx, model.SignupRequest{FirstName: "Ana", LastName: "P", Email: "a@b.com", Password1: "x", Password2: "x"})
	require.NoError(t, err)

	err = c.Signup(ctx, model.SignupRequest{Email: "a@b.com", Password1: "x", Password2: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	res, err := c.Login(ctx, model.Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.NotNil(t, res.User)
	assert.Equal(t, "Ana", res.User.FirstName)

	u, err := c.Me(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)

	_, err = c.Me(ctx, "bogus")
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	be.AccessTokenShape = true
	res, err = c.Login(ctx, model.Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Nil(t, res.User)

	_, err = c.Login(ctx, model.Credentials{Email: "a@b.com", Password: "wrong"})
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestLogin_NoToken(t *testing.T) {
	t.Parallel()
	be, c := setup(t)
	be.AddUser(ana(), "x")
	be.NoTokenInLogin = true
	_, err := c.Login(context.Background(), model.Credentials{Email: "a@b.com", Password: "x"})
	require.ErrorIs(t, err, errs.ErrNoToken)
}

func TestVideos_CRUD(t *testing.T) {
	t.Parallel()
	for _, envelope := range []bool{false, true} {
		be, c := setup(t)
		be.Envelope = envelope
		be.AddUser(ana(), "x")
		tok := be.IssueToken("a@b.com")
		be.AddVideo(model.Video{ID: "1", Title: "one", Status: "uploaded"})
		be.AddVideo(model.Video{ID: "2", Title: "two", Status: "processed"})
		ctx := context.Background()

		vs, err := c.MyVideos(ctx, tok)
		require.NoError(t, err)
		require.Len(t, vs, 2, "envelope=%v", envelope)

		v, err := c.GetVideo(ctx, tok, "2")
		require.NoError(t, err)
		assert.Equal(t, "two", v.Title)

		_, err = c.GetVideo(ctx, tok, "404")
		require.ErrorIs(t, err, errs.ErrNotFound)

		require.NoError(t, c.PublishVideo(ctx, tok, "2"))
		err = c.PublishVideo(ctx, tok, "1")
		require.Error(t, err)

		require.NoError(t, c.DeleteVideo(ctx, tok, "1"))
		vs, err = c.MyVideos(ctx, tok)
		require.NoError(t, err)
		require.Len(t, vs, 1)
	}
}

func TestEmptyIDNeverHitsNetwork(t *testing.T) {
	t.Parallel()
	be, c := setup(t)
	ctx := context.Background()
	_, err := c.GetVideo(ctx, "t", "")
	require.ErrorIs(t, err, errs.ErrValidation)
	require.ErrorIs(t, c.DeleteVideo(ctx, "t", " "), errs.ErrValidation)
	require.ErrorIs(t, c.PublishVideo(ctx, "t", ""), errs.ErrValidation)
	require.ErrorIs(t, c.Vote(ctx, "t", ""), errs.ErrValidation)
	require.Zero(t, be.TotalHits())
}

func TestPublicVoteRankings(t *testing.T) {
	t.Parallel()
	be, c := setup(t)
	be.AddUser(ana(), "x")
	tok := be.IssueToken("a@b.com")
	bog, med := "Bogotá", "Medellín"
	be.SetPublic([]model.PublicVideo{
		{ID: "10", Title: "a", Votes: 5, City: &bog},
		{ID: "11", Title: "b", Votes: 3, City: &med},
		{ID: "12", Title: "c", Votes: 1, City: &bog},
	})
	ctx := context.Background()

	pv, err := c.PublicVideos(ctx)
	require.NoError(t, err)
	require.Len(t, pv, 3)

	require.NoError(t, c.Vote(ctx, tok, "11"))
	assert.Equal(t, 4, be.Votes("11"))
	require.ErrorIs(t, c.Vote(ctx, tok, "11"), errs.ErrConflict)
	assert.Equal(t, 4, be.Votes("11"))
	require.ErrorIs(t, c.Vote(ctx, "", "11"), errs.ErrUnauthorized)

	l, err := c.Rankings(ctx, model.RankingQuery{Page: 1, PageSize: 1, City: "Bogotá"})
	require.NoError(t, err)
	require.Len(t, l.Items, 1)
	assert.Equal(t, model.ID("10"), l.Items[0].VideoID)
	assert.Equal(t, 1, l.Items[0].Position)

	be.Envelope = true
	l, err = c.Rankings(ctx, model.RankingQuery{Page: 2, PageSize: 1, City: "Bogotá"})
	require.NoError(t, err)
	require.Len(t, l.Items, 1)
	assert.Equal(t, 2, l.TotalPages)
	assert.Equal(t, model.ID("12"), l.Items[0].VideoID)
}

func TestCityIDAndStatuses(t *testing.T) {
	t.Parallel()
	_, c := setup(t)
	ctx := context.Background()

	id, err := c.CityID(ctx, "Bogotá", "Colombia")
	require.NoError(t, err)
	assert.Equal(t, model.ID("11001"), id)

	_, err = c.CityID(ctx, "Atlantis", "Colombia")
	require.ErrorIs(t, err, errs.ErrNotFound)

	st, err := c.VideoStatuses(ctx)
	require.NoError(t, err)
	assert.Contains(t, st, "processed")
}

func TestUploadVideo(t *testing.T) {
	t.Parallel()
	be, c := setup(t)
	be.AddUser(ana(), "x")
	tok := be.IssueToken("a@b.com")
	ctx := context.Background()

	res, err := c.UploadVideo(ctx, tok, model.UploadRequest{
		Title: "clip", Status: "uploaded", FileName: "clip.mp4", Content: bytes.NewReader(apitest.MP4(5000)),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)

	form := be.LastUpload()
	assert.Equal(t, "clip", form["title"])
	assert.Equal(t, "uploaded", form["status"])
	assert.Equal(t, "clip.mp4|video/mp4|5000", form["file:video_file"])
}

func TestUploadVideo_ResponseBody(t *testing.T) {
	t.Parallel()
	body := func(payload string) *Client {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, payload)
		}))
		t.Cleanup(srv.Close)
		return New(transport.New(srv.URL))
	}
	req := func() model.UploadRequest {
		return model.UploadRequest{Title: "clip", Content: bytes.NewReader(apitest.MP4(100))}
	}

	_, err := body(`{"task_id": [`).UploadVideo(context.Background(), "t", req())
	require.Error(t, err)

	res, err := body(``).UploadVideo(context.Background(), "t", req())
	require.NoError(t, err)
	assert.Equal(t, model.UploadResult{}, *res)
}

func TestUploadVideo_LocalValidation(t *testing.T) {
	t.Parallel()
	be, c := setup(t)
	ctx := context.Background()

	_, err := c.UploadVideo(ctx, "t", model.UploadRequest{Title: "x"})
	require.ErrorIs(t, err, errs.ErrMissingFile)

	_, err = c.UploadVideo(ctx, "t", model.UploadRequest{Title: "x", Content: strings.NewReader("")})
	require.ErrorIs(t, err, errs.ErrMissingFile)

	_, err = c.UploadVideo(ctx, "t", model.UploadRequest{Title: "", Content: bytes.NewReader(apitest.MP4(10))})
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = c.UploadVideo(ctx, "t", model.UploadRequest{Title: "x", Content: strings.NewReader("plain text, not a video")})
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = c.UploadVideo(ctx, "t", model.UploadRequest{Title: "x", Size: MaxUploadSize + 1, Content: bytes.NewReader(apitest.MP4(10))})
	require.ErrorIs(t, err, errs.ErrValidation)

	require.Zero(t, be.TotalHits())
}

func TestCapReader(t *testing.T) {
	t.Parallel()
	r := &capReader{r: strings.NewReader("abcdef"), left: 4}
	buf := make([]byte, 10)
	_, err := r.Read(buf)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestSeedDemo(t *testing.T) {
	t.Parallel()
	be, c := setup(t)
	be.SeedDemo()
	ctx := context.Background()

	res, err := c.Login(ctx, model.Credentials{Email: apitest.DemoEmail, Password: apitest.DemoPassword})
	require.NoError(t, err)
	vs, err := c.MyVideos(ctx, res.Token)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.True(t, vs[0].Processed())
	assert.False(t, vs[1].Processed())

	pub, err := c.PublicVideos(ctx)
	require.NoError(t, err)
	assert.Len(t, pub, 4)
}
