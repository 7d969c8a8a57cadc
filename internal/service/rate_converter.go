package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/internal/http_client"
	"gw-ipn-relay/internal/models"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

const ratesCacheKey = "usd_rates"

type Converter interface {
	// Convert приводит сумму к учётной валюте.
	Convert(ctx context.Context, amount decimal.Decimal, currency string) (decimal.Decimal, error)
}

type RateConverter struct {
	client http_client.RatesClient
	cache  *cache.Cache
	log    *slog.Logger
}

// NewRateConverter при ttl <= 0 кэш не используется и курсы запрашиваются на каждую конвертацию.
func NewRateConverter(client http_client.RatesClient, ttl time.Duration, log *slog.Logger) *RateConverter {
	c := &RateConverter{
		client: client,
		log:    log,
	}
	if ttl > 0 {
		c.cache = cache.New(ttl, 2*ttl)
	}
	return c
}

func (c *RateConverter) Convert(ctx context.Context, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	const op = "service.Convert"

	code := strings.TrimSpace(currency)
	if strings.EqualFold(code, models.AccountingCurrency) {
		return amount, nil
	}

	rates, err := c.rates(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w: %v", op, custom_err.ErrConversionUnavailable, err)
	}

	rate, ok := rates[strings.ToLower(code)]
	if !ok || !rate.IsPositive() {
		c.log.Warn("курс валюты не найден", slog.String("currency", code))
		return decimal.Zero, fmt.Errorf("%s: %w: no rate for %q", op, custom_err.ErrConversionUnavailable, code)
	}

	return amount.Div(rate), nil
}

func (c *RateConverter) rates(ctx context.Context) (map[string]decimal.Decimal, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(ratesCacheKey); ok {
			c.log.Debug("курсы взяты из кэша")
			return cached.(map[string]decimal.Decimal), nil
		}
	}

	resp, err := c.client.GetUSDRates(ctx)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.SetDefault(ratesCacheKey, resp.Rates)
	}
	return resp.Rates, nil
}
