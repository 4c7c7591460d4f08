// Package model defines the client-side records exchanged with the video-rating backend.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// ID is a backend identifier. Observed backends send it either as a JSON
// string or as a JSON number; both decode to the same textual form.
type ID string

// UnmarshalJSON accepts "42", 42 and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: want string or number, got %s", b)
	}
	*id = ID(n.String())
	return nil
}

// String returns the textual form of the identifier.
func (id ID) String() string { return string(id) }

// Session is the authentication state of the client. An empty Token means
// the user is not authenticated; the token itself is never validated locally.
type Session struct {
	Token string
	User  *User
}

// Authenticated reports whether a bearer token is present.
func (s Session) Authenticated() bool { return s.Token != "" }

// User is the profile of the logged-in account.
type User struct {
	ID        ID     `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
}

// Credentials is the body of the login endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the body of the signup endpoint.
type SignupRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
}

// LoginResult is the canonical form of a login response regardless of
// which field name the backend used for the token.
type LoginResult struct {
	Token     string
	TokenType string
	ExpiresIn int64
	User      *User
}

// Video is an upload owned by the current user.
type Video struct {
	ID           ID         `json:"video_id"`
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	OriginalURL  *string    `json:"original_url,omitempty"`
	ProcessedURL *string    `json:"processed_url,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UploadedAt   *time.Time `json:"uploaded_at,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

// Processed reports whether the video finished server-side processing.
func (v Video) Processed() bool {
	if strings.EqualFold(v.Status, "processed") {
		return true
	}
	return v.ProcessedURL != nil && *v.ProcessedURL != ""
}

// PublicVideo is a published video listed for voting.
type PublicVideo struct {
	ID           ID      `json:"video_id"`
	Title        string  `json:"title"`
	Votes        int     `json:"votes"`
	City         *string `json:"city,omitempty"`
	ProcessedURL *string `json:"processed_url,omitempty"`
}

// RankingEntry is one row of the public ranking.
type RankingEntry struct {
	Position int     `json:"position,omitempty"`
	VideoID  ID      `json:"video_id,omitempty"`
	Title    string  `json:"title,omitempty"`
	Username string  `json:"username,omitempty"`
	Votes    int     `json:"votes"`
	City     *string `json:"city,omitempty"`
}

// RankingPage is one page of rankings.
type RankingPage struct {
	Items      []RankingEntry `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// RankingQuery selects a rankings page. Zero values mean "backend default".
type RankingQuery struct {
	Page     int    `url:"page,omitempty"`
	PageSize int    `url:"pageSize,omitempty"`
	City     string `url:"city,omitempty"`
}

// UploadRequest describes a video upload. Content is streamed as the
// multipart file part; Size is zero when unknown.
type UploadRequest struct {
	Title    string
	Status   string
	FileName string
	Size     int64
	Content  io.Reader
}

// UploadResult is whatever the backend echoes back after an upload.
type UploadResult struct {
	ID      ID     `json:"video_id,omitempty"`
	TaskID  string `json:"task_id,omitempty"`
	Message string `json:"message,omitempty"`
}
