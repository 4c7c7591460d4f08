// Package convert normalizes backend response variants into canonical
// model records before any caller sees them.
package convert

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/and161185/vidvote/internal/errs"
	"github.com/and161185/vidvote/internal/model"
)

// Shape tells which wire variant a list response used.
type Shape int

const (
	// ShapeEmpty is an empty body or JSON null.
	ShapeEmpty Shape = iota
	// ShapeArray is a bare JSON array.
	ShapeArray
	// ShapeEnvelope is {"items": [...], "totalPages": n}.
	ShapeEnvelope
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeEnvelope:
		return "envelope"
	default:
		return "empty"
	}
}

// List is the canonical list record. TotalPages is zero when the backend did not report it.
type List[T any] struct {
	Items      []T
	TotalPages int
	Shape      Shape
}

var jsonNull = []byte("null")

func isEmpty(b []byte) bool {
	return len(b) == 0 || bytes.Equal(b, jsonNull)
}

// DecodeList accepts a bare array or an {items, totalPages} envelope.
func DecodeList[T any](raw json.RawMessage) (List[T], error) {
	b := bytes.TrimSpace(raw)
	if isEmpty(b) {
		return List[T]{Items: []T{}, Shape: ShapeEmpty}, nil
	}
	switch b[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return List[T]{}, fmt.Errorf("decode list: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return List[T]{Items: items, Shape: ShapeArray}, nil
	case '{':
		var env struct {
			Items      []T `json:"items"`
			TotalPages int `json:"totalPages"`
			TotalSnake int `json:"total_pages"`
		}
		if err := json.Unmarshal(b, &env); err != nil {
			return List[T]{}, fmt.Errorf("decode list envelope: %w", err)
		}
		if env.Items == nil {
			env.Items = []T{}
		}
		total := env.TotalPages
		if total == 0 {
			total = env.TotalSnake
		}
		return List[T]{Items: env.Items, TotalPages: total, Shape: ShapeEnvelope}, nil
	default:
		return List[T]{}, fmt.Errorf("decode list: unexpected json %.20q", b)
	}
}

// DecodeOne decodes a single object. An empty body yields nil.
func DecodeOne[T any](raw json.RawMessage) (*T, error) {
	b := bytes.TrimSpace(raw)
	if isEmpty(b) {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &v, nil
}

type loginWire struct {
	Token       string      `json:"token"`
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        *model.User `json:"user"`
}

// DecodeLogin extracts the bearer token from either "token" or
// "access_token"; a response with neither fails with errs.ErrNoToken.
func DecodeLogin(raw json.RawMessage) (model.LoginResult, error) {
	b := bytes.TrimSpace(raw)
	if isEmpty(b) {
		return model.LoginResult{}, errs.ErrNoToken
	}
	var w loginWire
	if err := json.Unmarshal(b, &w); err != nil {
		return model.LoginResult{}, fmt.Errorf("decode login: %w", err)
	}
	tok := w.Token
	if tok == "" {
		tok = w.AccessToken
	}
	if tok == "" {
		return model.LoginResult{}, errs.ErrNoToken
	}
	return model.LoginResult{Token: tok, TokenType: w.TokenType, ExpiresIn: w.ExpiresIn, User: w.User}, nil
}

// DecodeStatuses accepts ["a","b"] or {"statuses":["a","b"]}.
func DecodeStatuses(raw json.RawMessage) ([]string, error) {
	b := bytes.TrimSpace(raw)
	if isEmpty(b) {
		return []string{}, nil
	}
	if b[0] == '{' {
		var env struct {
			Statuses []string `json:"statuses"`
		}
		if err := json.Unmarshal(b, &env); err != nil {
			return nil, fmt.Errorf("decode statuses: %w", err)
		}
		if env.Statuses == nil {
			return []string{}, nil
		}
		return env.Statuses, nil
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode statuses: %w", err)
	}
	return out, nil
}

// DecodeCityID reads {"city_id": ...}. A missing id is errs.ErrNotFound.
func DecodeCityID(raw json.RawMessage) (model.ID, error) {
	var w struct {
		CityID model.ID `json:"city_id"`
	}
	b := bytes.TrimSpace(raw)
	if !isEmpty(b) {
		if err := json.Unmarshal(b, &w); err != nil {
			return "", fmt.Errorf("decode city id: %w", err)
		}
	}
	if w.CityID == "" {
		return "", fmt.Errorf("city id: %w", errs.ErrNotFound)
	}
	return w.CityID, nil
}

// PublicToRanking maps public videos to unpositioned ranking entries.
func PublicToRanking(in []model.PublicVideo) []model.RankingEntry {
	out := make([]model.RankingEntry, 0, len(in))
	for _, v := range in {
		out = append(out, model.RankingEntry{
			VideoID: v.ID,
			Title:   v.Title,
			Votes:   v.Votes,
			City:    v.City,
		})
	}
	return out
}
