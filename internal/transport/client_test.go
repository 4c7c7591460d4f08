package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/vidvote/internal/errs"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestDo_NonSuccess_BodyOrStatus(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"body text", http.StatusBadRequest, `{"error":"title is required"}`, `{"error":"title is required"}`},
		{"empty body", http.StatusInternalServerError, "", "HTTP 500"},
		{"plain text", http.StatusConflict, "already voted", "already voted"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := c.Do(context.Background(), Request{Path: "/x"})
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())

			var he *HTTPError
			require.True(t, errors.As(err, &he))
			assert.Equal(t, tc.status, he.Status)
		})
	}
}

func TestDo_StatusSentinels(t *testing.T) {
	t.Parallel()
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			return
		case "/vote":
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.Do(context.Background(), Request{Path: "/me"})
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.NotErrorIs(t, err, errs.ErrNotFound)

	_, err = c.Do(context.Background(), Request{Path: "/missing"})
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = c.Do(context.Background(), Request{Path: "/vote"})
	require.ErrorIs(t, err, errs.ErrConflict)
}

func TestDo_JSONRoundTrip(t *testing.T) {
	t.Parallel()
	const doc = `{"items":[{"video_id":1,"title":"a","votes":3,"city":"Bogotá"}],"totalPages":2,"nested":{"ok":true,"n":null}}`
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = io.WriteString(w, doc)
	})
	raw, err := c.Do(context.Background(), Request{Path: "/api/public/rankings"})
	require.NoError(t, err)
	require.JSONEq(t, doc, string(raw))
}

func TestDo_NonJSONSuccessIsEmpty(t *testing.T) {
	t.Parallel()
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "ok")
	})
	raw, err := c.Do(context.Background(), Request{Path: "/health"})
	require.NoError(t, err)
	require.Nil(t, raw)

	txt, err := c.Text(context.Background(), Request{Path: "/health"})
	require.NoError(t, err)
	require.Equal(t, "ok", txt)
}

func TestDo_NoContent(t *testing.T) {
	t.Parallel()
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNoContent)
	})
	raw, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/auth/logout", Token: "t"})
	require.NoError(t, err)
	require.Nil(t, raw)
}

func TestDo_JSONBodyHeadersAndToken(t *testing.T) {
	t.Parallel()
	type seen struct {
		method, ct, auth, rid, query string
		body                         map[string]any
	}
	got := make(chan seen, 1)
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		_ = json.NewDecoder(r.Body).Decode(&m)
		got <- seen{r.Method, r.Header.Get("Content-Type"), r.Header.Get("Authorization"), r.Header.Get("X-Request-ID"), r.URL.RawQuery, m}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{}`)
	})

	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/auth/login",
		Query:  url.Values{"a": {"1"}},
		Body:   map[string]string{"email": "a@b.com", "password": "x"},
		Token:  "tok",
	})
	require.NoError(t, err)
	s := <-got
	assert.Equal(t, http.MethodPost, s.method)
	assert.Equal(t, "application/json", s.ct)
	assert.Equal(t, "Bearer tok", s.auth)
	assert.NotEmpty(t, s.rid)
	assert.Equal(t, "a=1", s.query)
	assert.Equal(t, "a@b.com", s.body["email"])
}

func TestDo_DefaultsAndCustomContentType(t *testing.T) {
	t.Parallel()
	type seen struct{ method, ct, auth string }
	got := make(chan seen, 2)
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		got <- seen{r.Method, r.Header.Get("Content-Type"), r.Header.Get("Authorization")}
	})

	_, err := c.Do(context.Background(), Request{Path: "/api/public/videos"})
	require.NoError(t, err)
	s := <-got
	assert.Equal(t, http.MethodGet, s.method)
	assert.Empty(t, s.ct)
	assert.Empty(t, s.auth)

	_, err = c.Do(context.Background(), Request{
		Method:  http.MethodPost,
		Path:    "/x",
		Body:    map[string]int{"a": 1},
		Headers: map[string]string{"content-type": "application/vnd.api+json"},
	})
	require.NoError(t, err)
	s = <-got
	assert.Equal(t, "application/vnd.api+json", s.ct)
}

func TestDo_MultipartSentUnmodified(t *testing.T) {
	t.Parallel()
	type part struct{ title, status, filename, fileCT, content string }
	got := make(chan part, 1)
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary=") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, fh, err := r.FormFile("video_file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(f)
		got <- part{r.FormValue("title"), r.FormValue("status"), fh.Filename, fh.Header.Get("Content-Type"), string(b)}
		w.WriteHeader(http.StatusCreated)
	})

	form := NewForm()
	form.Set("title", "first")
	form.Set("title", "clip")
	form.Set("status", "uploaded")
	form.SetFile("video_file", `my "clip".mp4`, "video/mp4", strings.NewReader("data"))

	_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/videos/upload", Body: form, Token: "t"})
	require.NoError(t, err)
	p := <-got
	assert.Equal(t, "clip", p.title)
	assert.Equal(t, "uploaded", p.status)
	assert.Equal(t, `my "clip".mp4`, p.filename)
	assert.Equal(t, "video/mp4", p.fileCT)
	assert.Equal(t, "data", p.content)
}

func TestDo_TransportErrorSurfaced(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := New(base).Do(context.Background(), Request{Path: "/health"})
	require.Error(t, err)
	var he *HTTPError
	require.False(t, errors.As(err, &he))
}

type denyLimiter struct{}

func (denyLimiter) Wait(context.Context) error { return errs.ErrRateLimited }

func TestDo_LimiterRefusal(t *testing.T) {
	t.Parallel()
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL, WithLimiter(denyLimiter{})).Do(context.Background(), Request{Path: "/x"})
	require.ErrorIs(t, err, errs.ErrRateLimited)
	require.False(t, called)
}

// Not parallel: it counts goroutines before the parallel tests resume.
func TestDo_FormReleasedWhenNotSent(t *testing.T) {
	before := runtime.NumGoroutine()
	form := func() *Form {
		f := NewForm()
		f.Set("title", "clip")
		f.SetFile("video_file", "clip.mp4", "video/mp4", strings.NewReader(strings.Repeat("x", 1<<16)))
		return f
	}

	denied := New("http://127.0.0.1:1", WithLimiter(denyLimiter{}))
	for range 20 {
		_, err := denied.Do(context.Background(), Request{Method: http.MethodPost, Path: "/u", Body: form()})
		require.ErrorIs(t, err, errs.ErrRateLimited)
	}
	bad := New("http://127.0.0.1:1")
	for range 20 {
		_, err := bad.Do(context.Background(), Request{Method: "bad method", Path: "/u", Body: form()})
		require.Error(t, err)
	}

	require.Eventually(t, func() bool { return runtime.NumGoroutine() <= before+2 },
		2*time.Second, 10*time.Millisecond, "form writers still running")
}

func TestIsJSON(t *testing.T) {
	t.Parallel()
	assert.True(t, isJSON("application/json"))
	assert.True(t, isJSON("application/json; charset=utf-8"))
	assert.True(t, isJSON("application/problem+json"))
	assert.False(t, isJSON("text/plain"))
	assert.False(t, isJSON(""))
}

func TestNew_TrimsBase(t *testing.T) {
	t.Parallel()
	require.Equal(t, "http://h:1", New("http://h:1///").BaseURL())
}
