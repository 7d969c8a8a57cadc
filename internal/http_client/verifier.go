package http_client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gw-ipn-relay/internal/custom_err"
)

const (
	verifyPrefix   = "cmd=_notify-validate&"
	verifiedMarker = "VERIFIED"
)

// Verifier подтверждает подлинность уведомления у платёжной системы.
type Verifier interface {
	Verify(ctx context.Context, rawBody []byte) error
}

type ipnVerifier struct {
	client  *http.Client
	url     string
	timeout time.Duration
	log     *slog.Logger
}

func NewVerifier(url string, timeout time.Duration, log *slog.Logger) Verifier {
	return &ipnVerifier{
		client:  &http.Client{},
		url:     url,
		timeout: timeout,
		log:     log,
	}
}

// Verify отправляет исходное тело обратно с префиксом cmd=_notify-validate.
// Любой ответ, кроме VERIFIED, и любой сбой транспорта дают ErrVerificationFailed.
func (v *ipnVerifier) Verify(ctx context.Context, rawBody []byte) error {
	const op = "http_client.Verify"

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	body := make([]byte, 0, len(verifyPrefix)+len(rawBody))
	body = append(body, verifyPrefix...)
	body = append(body, rawBody...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, custom_err.ErrVerificationFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		v.log.Warn("проверка IPN не удалась", slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w: %v", op, custom_err.ErrVerificationFailed, err)
	}
	defer resp.Body.Close()

	answer, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, custom_err.ErrVerificationFailed, err)
	}

	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(answer)) != verifiedMarker {
		return fmt.Errorf("%s: %w: status %d, body %q", op, custom_err.ErrVerificationFailed, resp.StatusCode, strings.TrimSpace(string(answer)))
	}
	return nil
}

// NoOpVerifier принимает любое уведомление, используется при IPN_VERIFY_ENABLED=false.
type NoOpVerifier struct{}

func (NoOpVerifier) Verify(context.Context, []byte) error {
	return nil
}
