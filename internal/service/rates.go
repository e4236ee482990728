package service

import (
	"context"

	"hyre/internal/domain"
)

// RatesProvider supplies the platform's time-scoped percentage rates.
// Read-only to this service.
type RatesProvider interface {
	GetRates(ctx context.Context) (*domain.PlatformRates, error)
}

// StaticRatesProvider serves rates fixed at startup from configuration.
type StaticRatesProvider struct {
	rates domain.PlatformRates
}

// NewStaticRatesProvider creates a rates provider with fixed rates.
func NewStaticRatesProvider(rates domain.PlatformRates) *StaticRatesProvider {
	return &StaticRatesProvider{rates: rates}
}

// GetRates returns the configured rates.
func (p *StaticRatesProvider) GetRates(ctx context.Context) (*domain.PlatformRates, error) {
	rates := p.rates
	return &rates, nil
}

// grossAmount applies VAT and the platform fee on top of a base price.
func grossAmount(base float64, rates *domain.PlatformRates) float64 {
	return base * (1 + (rates.VATRatePercent+rates.PlatformFeeRatePercent)/100)
}
