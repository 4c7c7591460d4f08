package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/and161185/vidvote/internal/convert"
	"github.com/and161185/vidvote/internal/errs"
	"github.com/and161185/vidvote/internal/model"
	"github.com/and161185/vidvote/internal/transport"
)

const (
	// MaxUploadSize mirrors the backend limit.
	MaxUploadSize = 100 << 20
	// UploadMIME is the only media type the backend accepts.
	UploadMIME = "video/mp4"

	uploadFileField = "video_file"
	sniffLen        = 3072
)

// UploadVideo checks the request locally and then streams it as multipart.
// Local failures never reach the network.
func (c *Client) UploadVideo(ctx context.Context, token string, req model.UploadRequest) (*model.UploadResult, error) {
	content, err := checkUpload(req)
	if err != nil {
		return nil, err
	}

	form := transport.NewForm()
	form.Set("title", req.Title)
	if req.Status != "" {
		form.Set("status", req.Status)
	}
	name := req.FileName
	if name == "" {
		name = "video.mp4"
	}
	form.SetFile(uploadFileField, name, UploadMIME, content)

	raw, err := c.t.Do(ctx, transport.Request{Method: http.MethodPost, Path: "/api/videos/upload", Body: form, Token: token})
	if err != nil {
		return nil, err
	}
	res, err := convert.DecodeOne[model.UploadResult](raw)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &model.UploadResult{}, nil
	}
	return res, nil
}

func checkUpload(req model.UploadRequest) (io.Reader, error) {
	if req.Content == nil {
		return nil, errs.ErrMissingFile
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", errs.ErrValidation)
	}
	if req.Size > MaxUploadSize {
		return nil, fmt.Errorf("%w: file too large (max %d MiB)", errs.ErrValidation, MaxUploadSize>>20)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(req.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read video: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, errs.ErrMissingFile
	}
	if mt := mimetype.Detect(head); !mt.Is(UploadMIME) {
		return nil, fmt.Errorf("%w: mimeType must be %s, got %s", errs.ErrValidation, UploadMIME, mt.String())
	}
	return &capReader{r: io.MultiReader(bytes.NewReader(head), req.Content), left: MaxUploadSize}, nil
}

// capReader fails once more than left bytes were read.
type capReader struct {
	r    io.Reader
	left int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return n, fmt.Errorf("%w: file too large (max %d MiB)", errs.ErrValidation, MaxUploadSize>>20)
	}
	return n, err
}
