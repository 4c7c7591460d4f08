package transport

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// loggingTransport logs request metadata only: no bodies, no headers.
type loggingTransport struct {
	next http.RoundTripper
	log  *zap.Logger
}

func (t loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("request_id", req.Header.Get(requestIDHeader)),
		zap.Duration("dur", time.Since(start)),
	}
	if err != nil {
		t.log.Warn("http request failed", append(fields, zap.Error(err))...)
		return resp, err
	}
	t.log.Debug("http", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}
