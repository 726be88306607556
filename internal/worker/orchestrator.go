package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrilink/crm-sync/internal/config"
	"github.com/agrilink/crm-sync/internal/domain"
	"github.com/agrilink/crm-sync/internal/events"
	"github.com/agrilink/crm-sync/internal/fetch"
	"github.com/agrilink/crm-sync/internal/normalize"
	"github.com/agrilink/crm-sync/internal/observability"
	"github.com/agrilink/crm-sync/internal/repository"
)

// CRMClient is the slice of the CRM surface the orchestrator drives.
type CRMClient interface {
	ResolveOrCreateContact(ctx context.Context, reg domain.Registration) (string, bool, error)
	CreateLead(ctx context.Context, contactID string, reg domain.Registration, createdAt time.Time) (string, error)
	UploadContactAttachment(ctx context.Context, contactID string, content []byte, filename string) error
}

// Dependencies bundles the orchestrator's collaborators.
type Dependencies struct {
	Records    repository.RecordRepository
	Profiles   repository.ProfileRepository
	CRM        CRMClient
	Fetcher    fetch.Fetcher
	Dispatcher events.Dispatcher
}

// Orchestrator is the polling sync loop. Records are processed strictly
// one at a time, which bounds CRM call concurrency to one. Every observed
// record's status advances exactly once, whatever the CRM outcome: a
// failed sync is notified, not retried on the next poll.
type Orchestrator struct {
	deps     Dependencies
	logger   *zap.Logger
	metrics  *observability.Metrics
	interval time.Duration
	now      func() time.Time
}

// New builds an orchestrator.
func New(deps Dependencies, cfg config.SyncConfig, logger *zap.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		deps:     deps,
		logger:   logger,
		metrics:  metrics,
		interval: cfg.PollInterval(),
		now:      time.Now,
	}
}

// Run polls until the context is cancelled. Cancellation aborts the wait
// between cycles immediately but never interrupts the record currently in
// flight.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		if _, err := o.RunOnce(ctx); err != nil && ctx.Err() == nil {
			o.logger.Error("poll cycle failed", zap.Error(err))
		}

		timer := time.NewTimer(o.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// CycleResult summarizes one poll cycle.
type CycleResult struct {
	Processed int
	Synced    int
	Failed    int
}

// RunOnce executes a single poll cycle over a snapshot of pending records.
func (o *Orchestrator) RunOnce(ctx context.Context) (CycleResult, error) {
	var result CycleResult

	records, err := o.deps.Records.FetchPending(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch pending records: %w", err)
	}
	o.logger.Info("poll cycle started", zap.Int("pending", len(records)))

	for _, record := range records {
		// Finish the in-flight record on cancellation, then stop before
		// starting the next one.
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		result.Processed++
		if err := o.processRecord(ctx, record); err != nil {
			result.Failed++
			o.metrics.RecordSyncOutcome("failed")
			o.logger.Error("record sync failed",
				zap.String("record_id", record.ID),
				zap.Error(err))
		} else {
			result.Synced++
			o.metrics.RecordSyncOutcome("synced")
		}

		// The status write is what guarantees forward progress; it happens
		// even when every CRM step failed.
		if err := o.deps.Records.MarkInProgress(ctx, record.ID); err != nil {
			o.logger.Error("failed to advance record status",
				zap.String("record_id", record.ID),
				zap.Error(err))
		}
	}
	return result, nil
}

func (o *Orchestrator) processRecord(ctx context.Context, record domain.PendingRecord) error {
	profile, err := o.deps.Profiles.GetByRef(ctx, record.UserRef)
	if err != nil {
		o.publishFailure(ctx, record.ID, nil, err)
		return fmt.Errorf("load profile %s: %w", record.UserRef, err)
	}

	reg := normalize.NewRegistration(record, profile)
	o.logger.Debug("record normalized",
		zap.String("record_id", record.ID),
		zap.String("phone", reg.NormalizedPhone))

	contactID, created, err := o.deps.CRM.ResolveOrCreateContact(ctx, reg)
	if err != nil {
		o.publishFailure(ctx, record.ID, &reg, err)
		return fmt.Errorf("resolve contact: %w", err)
	}

	leadID, err := o.deps.CRM.CreateLead(ctx, contactID, reg, o.now())
	if err != nil {
		o.publishFailure(ctx, record.ID, &reg, err)
		return fmt.Errorf("create lead: %w", err)
	}

	uploaded := 0
	if created {
		// Existing contacts already carry their attachments; uploading
		// again on re-sync would duplicate them.
		uploaded = o.uploadAttachments(ctx, contactID, profile)
	}

	_ = o.deps.Dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventRegistrationSynced,
		RecordID:  record.ID,
		Timestamp: o.now(),
		Payload: events.RegistrationSyncedPayload{
			Registration:        reg,
			ContactID:           contactID,
			LeadID:              leadID,
			ContactCreated:      created,
			AttachmentsUploaded: uploaded,
		},
	})
	return nil
}

// uploadAttachments fetches and uploads each identity photo; one bad photo
// never blocks the others or the record.
func (o *Orchestrator) uploadAttachments(ctx context.Context, contactID string, profile domain.UserProfile) int {
	uploaded := 0
	for _, photo := range profile.Photos() {
		content, err := o.deps.Fetcher.Fetch(ctx, photo.URL)
		if err != nil {
			o.logger.Warn("attachment fetch failed",
				zap.String("contact_id", contactID),
				zap.String("file", photo.FileName),
				zap.Error(err))
			continue
		}
		if err := o.deps.CRM.UploadContactAttachment(ctx, contactID, content, photo.FileName); err != nil {
			o.logger.Warn("attachment upload failed",
				zap.String("contact_id", contactID),
				zap.String("file", photo.FileName),
				zap.Error(err))
			continue
		}
		uploaded++
	}
	return uploaded
}

func (o *Orchestrator) publishFailure(ctx context.Context, recordID string, reg *domain.Registration, cause error) {
	_ = o.deps.Dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventRegistrationFailed,
		RecordID:  recordID,
		Timestamp: o.now(),
		Payload: events.RegistrationFailedPayload{
			Registration: reg,
			Reason:       cause.Error(),
		},
	})
}
