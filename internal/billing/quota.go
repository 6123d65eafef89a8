package billing

// QuotaStatus classifies realized lead volume against a monthly quota.
// Used for capacity alerting only, never for invoicing.
type QuotaStatus string

const (
	QuotaGreen  QuotaStatus = "green"
	QuotaYellow QuotaStatus = "yellow"
	QuotaRed    QuotaStatus = "red"
)

// QuotaThresholds are the operator-configured classification bounds.
type QuotaThresholds struct {
	Green  int `json:"green"`
	Yellow int `json:"yellow"`
}

// ClassifyQuota grades an actual lead count against thresholds.
func ClassifyQuota(actual int, th QuotaThresholds) QuotaStatus {
	switch {
	case actual >= th.Green:
		return QuotaGreen
	case actual >= th.Yellow:
		return QuotaYellow
	default:
		return QuotaRed
	}
}
