// Package settings keeps small operator-tunable configuration in Redis:
// quota-classification thresholds and overrides for the billing
// defaults. Values survive restarts and apply immediately without a
// deploy.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/voltlead/voltlead/internal/billing"
)

const (
	quotaThresholdsKey = "voltlead:settings:quota_thresholds"
	billingDefaultsKey = "voltlead:settings:billing_defaults"
)

// DefaultQuotaThresholds applies until an operator stores their own.
var DefaultQuotaThresholds = billing.QuotaThresholds{Green: 20, Yellow: 10}

var ErrInvalidThresholds = errors.New("settings: yellow threshold must not exceed green")

type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// QuotaThresholds returns the stored thresholds, falling back to the
// defaults when none were ever saved.
func (s *Store) QuotaThresholds(ctx context.Context) (billing.QuotaThresholds, error) {
	payload, err := s.client.Get(ctx, quotaThresholdsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return DefaultQuotaThresholds, nil
	}
	if err != nil {
		return billing.QuotaThresholds{}, fmt.Errorf("settings: read quota thresholds: %w", err)
	}
	var th billing.QuotaThresholds
	if err := json.Unmarshal(payload, &th); err != nil {
		return billing.QuotaThresholds{}, fmt.Errorf("settings: decode quota thresholds: %w", err)
	}
	return th, nil
}

func (s *Store) SetQuotaThresholds(ctx context.Context, th billing.QuotaThresholds) error {
	if th.Yellow > th.Green || th.Yellow < 0 {
		return ErrInvalidThresholds
	}
	raw, err := json.Marshal(th)
	if err != nil {
		return fmt.Errorf("settings: encode quota thresholds: %w", err)
	}
	if err := s.client.Set(ctx, quotaThresholdsKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("settings: store quota thresholds: %w", err)
	}
	return nil
}

// BillingDefaults returns operator overrides merged over the standard
// defaults. Zero-valued fields in the stored payload keep the standard
// value.
func (s *Store) BillingDefaults(ctx context.Context) (billing.Defaults, error) {
	std := billing.StandardDefaults()
	payload, err := s.client.Get(ctx, billingDefaultsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return std, nil
	}
	if err != nil {
		return billing.Defaults{}, fmt.Errorf("settings: read billing defaults: %w", err)
	}
	var stored billing.Defaults
	if err := json.Unmarshal(payload, &stored); err != nil {
		return billing.Defaults{}, fmt.Errorf("settings: decode billing defaults: %w", err)
	}
	return mergeDefaults(std, stored), nil
}

func (s *Store) SetBillingDefaults(ctx context.Context, d billing.Defaults) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("settings: encode billing defaults: %w", err)
	}
	if err := s.client.Set(ctx, billingDefaultsKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("settings: store billing defaults: %w", err)
	}
	return nil
}

func mergeDefaults(std, stored billing.Defaults) billing.Defaults {
	out := std
	if stored.MarkupSharePercent > 0 {
		out.MarkupSharePercent = stored.MarkupSharePercent
	}
	if stored.BaseCostForBilling > 0 {
		out.BaseCostForBilling = stored.BaseCostForBilling
	}
	if stored.EurToSekRate > 0 {
		out.EurToSekRate = stored.EurToSekRate
	}
	if stored.FinancingPercent > 0 {
		out.FinancingPercent = stored.FinancingPercent
	}
	if stored.CustomerPriceInclTax > 0 {
		out.CustomerPriceInclTax = stored.CustomerPriceInclTax
	}
	if stored.GreenTechDeductionPercent > 0 {
		out.GreenTechDeductionPercent = stored.GreenTechDeductionPercent
	}
	return out
}
