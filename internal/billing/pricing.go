package billing

import "time"

// ResolvePrice returns the per-lead price applicable to an organization
// for the given interest type as of a historical date. The matching
// history record wins; with no match (no history yet, or a gap) the
// organization's live price fields apply. A combined solar_battery lead
// always resolves to the sum of the solar and battery prices; there is
// no separate combined tariff. Unresolvable prices return 0, never an
// error.
func ResolvePrice(org Organization, interest InterestType, asOf time.Time) float64 {
	if interest == InterestSolarBattery {
		return ResolvePrice(org, InterestSolar, asOf) + ResolvePrice(org, InterestBattery, asOf)
	}

	for _, rec := range org.PriceHistory {
		if !rec.Contains(asOf) {
			continue
		}
		switch interest {
		case InterestSolar:
			return rec.PricePerSolarDeal
		case InterestBattery:
			return rec.PricePerBatteryDeal
		}
		return 0
	}

	switch interest {
	case InterestSolar:
		return org.PricePerSolarDeal
	case InterestBattery:
		return org.PricePerBatteryDeal
	}
	return 0
}
