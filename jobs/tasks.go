// Package jobs runs the background work: monthly invoice snapshots and
// the hourly quota scan that flags partners starving for leads.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/voltlead/voltlead/internal/billing"
	"github.com/voltlead/voltlead/internal/partners"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoiceSnapshot freezes one month's invoicing totals.
	TaskInvoiceSnapshot = "billing:invoice_snapshot"
	// TaskQuotaScan classifies partner lead volume for the current month.
	TaskQuotaScan = "billing:quota_scan"
)

// InvoiceSnapshotPayload names the billing month to snapshot.
type InvoiceSnapshotPayload struct {
	BillingMonth time.Time `json:"billing_month"`
}

// NewInvoiceSnapshotTask constructs an Asynq task for an invoice run.
func NewInvoiceSnapshotTask(billingMonth time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(InvoiceSnapshotPayload{BillingMonth: billingMonth})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceSnapshot, body, asynq.Queue(QueueDefault)), nil
}

// QuotaScanPayload carries scheduling metadata.
type QuotaScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewQuotaScanTask constructs an Asynq task for a quota scan.
func NewQuotaScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(QuotaScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuotaScan, body, asynq.Queue(QueueDefault)), nil
}

// Tasks bundles the services the task handlers execute against.
type Tasks struct {
	logger   *slog.Logger
	billing  *billing.Service
	partners *partners.Service
	now      func() time.Time
}

func NewTasks(logger *slog.Logger, billingSvc *billing.Service, partnersSvc *partners.Service) *Tasks {
	return &Tasks{logger: logger, billing: billingSvc, partners: partnersSvc, now: time.Now}
}

// Handlers returns the registrations for the worker mux.
func (t *Tasks) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskInvoiceSnapshot, Handler: t.HandleInvoiceSnapshot},
		{Type: TaskQuotaScan, Handler: t.HandleQuotaScan},
	}
}

// HandleInvoiceSnapshot materializes the invoicing totals for the
// payload's billing month. A zero month means the current one, so cron
// entries need no payload rewriting.
func (t *Tasks) HandleInvoiceSnapshot(ctx context.Context, task *asynq.Task) error {
	var payload InvoiceSnapshotPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	month := payload.BillingMonth
	if month.IsZero() {
		month = t.now()
	}
	count, err := t.billing.RunInvoiceSnapshot(ctx, month)
	if err != nil {
		return err
	}
	t.logger.Info("invoice snapshot complete",
		"billing_month", month.Format("2006-01"), "organizations", count)
	return nil
}

// HandleQuotaScan logs every partner below its yellow threshold.
func (t *Tasks) HandleQuotaScan(ctx context.Context, task *asynq.Task) error {
	var payload QuotaScanPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	reports, err := t.partners.QuotaOverview(ctx, t.now())
	if err != nil {
		return err
	}
	red := 0
	for _, report := range reports {
		if report.Status != billing.QuotaRed {
			continue
		}
		red++
		t.logger.Warn("partner under quota",
			"org_id", report.OrganizationID,
			"org_name", report.OrganizationName,
			"lead_count", report.LeadCount,
			"monthly_quota", report.MonthlyQuota)
	}
	t.logger.Info("quota scan complete", "partners", len(reports), "red", red)
	return nil
}
