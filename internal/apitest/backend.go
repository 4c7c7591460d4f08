// Package apitest runs an in-process fake of the video-rating backend, used by
// tests and by the local development server.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/and161185/vidvote/internal/model"
)

type account struct {
	password string
	user     model.User
}

// Backend is a fake backend. Exported fields tune its wire behaviour and
// may be changed before requests are made.
type Backend struct {
	// AccessTokenShape makes login answer {"access_token":...} without a user.
	AccessTokenShape bool
	// NoTokenInLogin makes login answer 200 with neither token field.
	NoTokenInLogin bool
	// Envelope wraps list responses as {"items": [...], "totalPages": n}.
	Envelope bool
	// MeStatus, when non-zero, is returned by /api/me instead of the profile.
	MeStatus int
	// LogoutStatus, when non-zero, is returned by /api/auth/logout.
	LogoutStatus int

	srv     *httptest.Server
	handler http.Handler

	mu       sync.Mutex
	accounts map[string]*account
	tokens   map[string]string
	videos   []*model.Video
	public   []model.PublicVideo
	hits     map[string]int
	voted    map[string]bool
	lastForm map[string]string
	nextID   int
}

// NewBackend returns a fake backend that is not listening yet; serve Handler
// to expose it.
func NewBackend() *Backend {
	b := &Backend{
		accounts: map[string]*account{},
		tokens:   map[string]string{},
		hits:     map[string]int{},
		voted:    map[string]bool{},
		nextID:   100,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", b.health)
	mux.HandleFunc("POST /api/auth/signup", b.signup)
	mux.HandleFunc("POST /api/auth/login", b.login)
	mux.HandleFunc("POST /api/auth/logout", b.auth(b.logout))
	mux.HandleFunc("GET /api/me", b.auth(b.me))
	mux.HandleFunc("GET /api/videos", b.auth(b.listVideos))
	mux.HandleFunc("GET /api/videos/statuses", b.statuses)
	mux.HandleFunc("POST /api/videos/upload", b.auth(b.upload))
	mux.HandleFunc("GET /api/videos/{id}", b.auth(b.getVideo))
	mux.HandleFunc("DELETE /api/videos/{id}", b.auth(b.deleteVideo))
	mux.HandleFunc("POST /api/videos/{id}/publish", b.auth(b.publish))
	mux.HandleFunc("GET /api/public/videos", b.publicVideos)
	mux.HandleFunc("POST /api/public/videos/{id}/vote", b.auth(b.vote))
	mux.HandleFunc("GET /api/public/rankings", b.rankings)
	mux.HandleFunc("GET /api/location/city-id", b.cityID)

	b.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits[r.Method+" "+r.URL.Path]++
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
	return b
}

// New starts a fake backend on a local port, closed at test cleanup.
func New(t testing.TB) *Backend {
	t.Helper()
	b := NewBackend()
	b.srv = httptest.NewServer(b.handler)
	t.Cleanup(b.srv.Close)
	return b
}

// Handler serves the fake API.
func (b *Backend) Handler() http.Handler { return b.handler }


// URL is the backend base URL.
func (b *Backend) URL() string { return b.srv.URL }

// Hits reports how many requests matched "METHOD /path".
func (b *Backend) Hits(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[key]
}

// TotalHits reports the number of requests received.
func (b *Backend) TotalHits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, v := range b.hits {
		n += v
	}
	return n
}

// AddUser registers an account directly.
func (b *Backend) AddUser(u model.User, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[u.Email] = &account{password: password, user: u}
}

// AddVideo stores a private video.
func (b *Backend) AddVideo(v model.Video) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := v
	b.videos = append(b.videos, &cp)
}

// SetVideoStatus changes the status of a stored video.
func (b *Backend) SetVideoStatus(id model.ID, status, processedURL string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range b.videos {
		if v.ID == id {
			v.Status = status
			if processedURL != "" {
				u := processedURL
				v.ProcessedURL = &u
			}
		}
	}
}

// SetPublic replaces the public video list.
func (b *Backend) SetPublic(vs []model.PublicVideo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.public = append([]model.PublicVideo(nil), vs...)
}

// Votes returns the vote count of a public video.
func (b *Backend) Votes(id model.ID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range b.public {
		if v.ID == id {
			return v.Votes
		}
	}
	return -1
}

// LastUpload returns the form fields of the most recent upload, with the
// file part reported as "file:<field>" => "<filename>|<content-type>|<bytes>".
func (b *Backend) LastUpload() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastForm
}

// IssueToken creates a valid token for an existing account.
func (b *Backend) IssueToken(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	tok := fmt.Sprintf("tok-%d", len(b.tokens)+1)
	b.tokens[tok] = email
	return tok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *Backend) auth(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		tok, ok := strings.CutPrefix(h, "Bearer ")
		b.mu.Lock()
		email, known := b.tokens[tok]
		b.mu.Unlock()
		if !ok || !known {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next(w, r, email)
	}
}

func (b *Backend) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, "ok")
}

func (b *Backend) signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Password1 != req.Password2 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "passwords do not match"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.accounts[req.Email]; dup {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
		return
	}
	b.nextID++
	b.accounts[req.Email] = &account{password: req.Password1, user: model.User{
		ID: model.ID(strconv.Itoa(b.nextID)), FirstName: req.FirstName, LastName: req.LastName,
		Email: req.Email, City: req.City, Country: req.Country,
	}}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "created"})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var cred model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	b.mu.Lock()
	acc, ok := b.accounts[cred.Email]
	if !ok || acc.password != cred.Password {
		b.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	tok := fmt.Sprintf("tok-%d", len(b.tokens)+1)
	b.tokens[tok] = cred.Email
	user := acc.user
	b.mu.Unlock()

	switch {
	case b.NoTokenInLogin:
		writeJSON(w, http.StatusOK, map[string]any{"user": user})
	case b.AccessTokenShape:
		writeJSON(w, http.StatusOK, map[string]any{"access_token": tok, "token_type": "Bearer", "expires_in": 3600})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"token": tok, "user": user})
	}
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request, _ string) {
	if b.LogoutStatus != 0 {
		w.WriteHeader(b.LogoutStatus)
		return
	}
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	delete(b.tokens, tok)
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) me(w http.ResponseWriter, _ *http.Request, email string) {
	if b.MeStatus != 0 {
		w.WriteHeader(b.MeStatus)
		return
	}
	b.mu.Lock()
	u := b.accounts[email].user
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, u)
}

func (b *Backend) list(w http.ResponseWriter, items any) {
	if b.Envelope {
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "totalPages": 1})
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (b *Backend) listVideos(w http.ResponseWriter, _ *http.Request, _ string) {
	b.mu.Lock()
	out := make([]model.Video, 0, len(b.videos))
	for _, v := range b.videos {
		out = append(out, *v)
	}
	b.mu.Unlock()
	b.list(w, out)
}

func (b *Backend) findVideo(id string) (*model.Video, int) {
	for i, v := range b.videos {
		if v.ID.String() == id {
			return v, i
		}
	}
	return nil, -1
}

func (b *Backend) getVideo(w http.ResponseWriter, r *http.Request, _ string) {
	b.mu.Lock()
	v, _ := b.findVideo(r.PathValue("id"))
	var cp model.Video
	if v != nil {
		cp = *v
	}
	b.mu.Unlock()
	if v == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found", "message": "Video no encontrado."})
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

func (b *Backend) deleteVideo(w http.ResponseWriter, r *http.Request, _ string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, i := b.findVideo(r.PathValue("id"))
	if i < 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	b.videos = append(b.videos[:i], b.videos[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (b *Backend) publish(w http.ResponseWriter, r *http.Request, _ string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, _ := b.findVideo(r.PathValue("id"))
	if v == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if !v.Processed() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "video not processed"})
		return
	}
	v.Status = "published"
	b.public = append(b.public, model.PublicVideo{ID: v.ID, Title: v.Title, ProcessedURL: v.ProcessedURL})
	writeJSON(w, http.StatusOK, map[string]string{"message": "published"})
}

func (b *Backend) upload(w http.ResponseWriter, r *http.Request, _ string) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	form := map[string]string{}
	for k, v := range r.MultipartForm.Value {
		form[k] = v[0]
	}
	for k, fhs := range r.MultipartForm.File {
		f, err := fhs[0].Open()
		if err != nil {
			continue
		}
		data, _ := io.ReadAll(f)
		_ = f.Close()
		form["file:"+k] = fmt.Sprintf("%s|%s|%d", fhs[0].Filename, fhs[0].Header.Get("Content-Type"), len(data))
	}

	b.mu.Lock()
	b.lastForm = form
	b.nextID++
	id := model.ID(strconv.Itoa(b.nextID))
	b.videos = append(b.videos, &model.Video{ID: id, Title: form["title"], Status: "uploaded"})
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"video_id": id, "message": "Video subido correctamente."})
}

func (b *Backend) statuses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []string{"uploaded", "processing", "processed", "published"})
}

func (b *Backend) publicVideos(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	out := append([]model.PublicVideo{}, b.public...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// vote allows one vote per user per video.
func (b *Backend) vote(w http.ResponseWriter, r *http.Request, email string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.public {
		if b.public[i].ID.String() == r.PathValue("id") {
			key := email + "|" + r.PathValue("id")
			if b.voted[key] {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "already voted"})
				return
			}
			b.voted[key] = true
			b.public[i].Votes++
			writeJSON(w, http.StatusOK, map[string]string{"message": "vote registered"})
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

// rankings paginates public videos already sorted by the caller's SetPublic order.
func (b *Backend) rankings(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	city := r.URL.Query().Get("city")
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	b.mu.Lock()
	var all []model.RankingEntry
	for _, v := range b.public {
		if city != "" && (v.City == nil || *v.City != city) {
			continue
		}
		all = append(all, model.RankingEntry{VideoID: v.ID, Title: v.Title, Votes: v.Votes, City: v.City})
	}
	b.mu.Unlock()

	total := (len(all) + size - 1) / size
	if total < 1 {
		total = 1
	}
	start := (page - 1) * size
	out := []model.RankingEntry{}
	if start < len(all) {
		end := min(start+size, len(all))
		out = all[start:end]
	}
	for i := range out {
		out[i].Position = start + i + 1
	}
	if b.Envelope {
		writeJSON(w, http.StatusOK, map[string]any{"items": out, "totalPages": total})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) cityID(w http.ResponseWriter, r *http.Request) {
	city, country := r.URL.Query().Get("city"), r.URL.Query().Get("country")
	if city == "" || country == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Bad Request", "message": "country and city are required"})
		return
	}
	if !strings.EqualFold(city, "Bogotá") || !strings.EqualFold(country, "Colombia") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found", "message": "city not found for country"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"city_id": 11001})
}
