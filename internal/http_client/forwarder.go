package http_client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"gw-ipn-relay/internal/custom_err"
)

const defaultForwardContentType = "application/x-www-form-urlencoded"

type Forwarder interface {
	Forward(ctx context.Context, url string, body []byte, contentType string) error
}

type httpForwarder struct {
	client  *http.Client
	timeout time.Duration
}

func NewForwarder(timeout time.Duration) Forwarder {
	return &httpForwarder{
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Forward отправляет тело без изменений. Повторов нет.
func (f *httpForwarder) Forward(ctx context.Context, url string, body []byte, contentType string) error {
	const op = "http_client.Forward"

	if contentType == "" {
		contentType = defaultForwardContentType
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, custom_err.ErrForwardDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, custom_err.ErrForwardDeliveryFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %w: status %d", op, custom_err.ErrForwardDeliveryFailed, resp.StatusCode)
	}
	return nil
}
