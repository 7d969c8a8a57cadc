package http_client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RatesResponse таблица курсов: код валюты в нижнем регистре -> единиц за 1 USD.
type RatesResponse struct {
	Date  string
	Rates map[string]decimal.Decimal
}

type RatesClient interface {
	GetUSDRates(ctx context.Context) (*RatesResponse, error)
}

type httpRatesClient struct {
	client  *http.Client
	url     string
	timeout time.Duration
	log     *slog.Logger
}

func NewRatesClient(url string, timeout time.Duration, log *slog.Logger) RatesClient {
	return &httpRatesClient{
		client:  &http.Client{},
		url:     url,
		timeout: timeout,
		log:     log,
	}
}

type currencyAPIResponse struct {
	Date string                     `json:"date"`
	USD  map[string]decimal.Decimal `json:"usd"`
}

func (c *httpRatesClient) GetUSDRates(ctx context.Context) (*RatesResponse, error) {
	const op = "http_client.GetUSDRates"

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("ошибка получения курсов", slog.String("op", op), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	var payload currencyAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	if len(payload.USD) == 0 {
		return nil, fmt.Errorf("%s: empty rate table", op)
	}

	rates := make(map[string]decimal.Decimal, len(payload.USD))
	for code, rate := range payload.USD {
		rates[strings.ToLower(code)] = rate
	}

	c.log.Debug("курсы получены",
		slog.String("date", payload.Date),
		slog.Int("count", len(rates)),
		slog.Duration("duration", time.Since(start)))

	return &RatesResponse{Date: payload.Date, Rates: rates}, nil
}
