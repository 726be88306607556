package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agrilink/crm-sync/internal/config"
	"github.com/agrilink/crm-sync/internal/domain"
	"github.com/agrilink/crm-sync/internal/events"
	"github.com/agrilink/crm-sync/internal/observability"
)

// calls is a shared append-only log the fakes write to, so tests can
// assert cross-component ordering.
type calls struct {
	log []string
}

func (c *calls) add(entry string) {
	c.log = append(c.log, entry)
}

type fakeRecords struct {
	calls    *calls
	pending  []domain.PendingRecord
	fetchErr error
	marked   []string
}

func (f *fakeRecords) FetchPending(ctx context.Context) ([]domain.PendingRecord, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.pending, nil
}

func (f *fakeRecords) MarkInProgress(ctx context.Context, recordID string) error {
	f.calls.add("mark:" + recordID)
	f.marked = append(f.marked, recordID)
	return nil
}

type fakeProfiles struct {
	profiles map[string]domain.UserProfile
	err      error
}

func (f *fakeProfiles) GetByRef(ctx context.Context, ref string) (domain.UserProfile, error) {
	if f.err != nil {
		return domain.UserProfile{}, f.err
	}
	return f.profiles[ref], nil
}

type fakeCRM struct {
	calls           *calls
	existingByPhone map[string]string
	resolveErr      error
	leadErr         error
	uploadErr       error
	contactSeq      int
	uploads         []string
}

func (f *fakeCRM) ResolveOrCreateContact(ctx context.Context, reg domain.Registration) (string, bool, error) {
	f.calls.add("resolve:" + reg.NormalizedPhone)
	if f.resolveErr != nil {
		return "", false, f.resolveErr
	}
	if id, ok := f.existingByPhone[reg.NormalizedPhone]; ok {
		return id, false, nil
	}
	f.contactSeq++
	id := fmt.Sprintf("contact-%d", f.contactSeq)
	if f.existingByPhone == nil {
		f.existingByPhone = map[string]string{}
	}
	f.existingByPhone[reg.NormalizedPhone] = id
	return id, true, nil
}

func (f *fakeCRM) CreateLead(ctx context.Context, contactID string, reg domain.Registration, createdAt time.Time) (string, error) {
	f.calls.add("lead:" + contactID)
	if f.leadErr != nil {
		return "", f.leadErr
	}
	return "lead-" + contactID, nil
}

func (f *fakeCRM) UploadContactAttachment(ctx context.Context, contactID string, content []byte, filename string) error {
	f.calls.add("upload:" + filename)
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, filename)
	return nil
}

type fakeFetcher struct {
	failURLs map[string]bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.failURLs[url] {
		return nil, errors.New("download failed")
	}
	return []byte("photo"), nil
}

type harness struct {
	calls      *calls
	records    *fakeRecords
	crm        *fakeCRM
	dispatcher events.Dispatcher
	synced     []events.Event
	failed     []events.Event
	orch       *Orchestrator
}

func newHarness(t *testing.T, pending []domain.PendingRecord, profiles map[string]domain.UserProfile) *harness {
	t.Helper()
	h := &harness{calls: &calls{}}
	h.records = &fakeRecords{calls: h.calls, pending: pending}
	h.crm = &fakeCRM{calls: h.calls}
	h.dispatcher = events.NewInMemoryDispatcher()
	h.dispatcher.Subscribe(events.EventRegistrationSynced, func(ctx context.Context, e events.Event) error {
		h.calls.add("notify:synced:" + e.RecordID)
		h.synced = append(h.synced, e)
		return nil
	})
	h.dispatcher.Subscribe(events.EventRegistrationFailed, func(ctx context.Context, e events.Event) error {
		h.calls.add("notify:failed:" + e.RecordID)
		h.failed = append(h.failed, e)
		return nil
	})

	h.orch = New(Dependencies{
		Records:    h.records,
		Profiles:   &fakeProfiles{profiles: profiles},
		CRM:        h.crm,
		Fetcher:    &fakeFetcher{},
		Dispatcher: h.dispatcher,
	}, config.SyncConfig{PollIntervalSeconds: 1}, zap.NewNop(), observability.NewMetrics())
	return h
}

func pendingRecord(id string) domain.PendingRecord {
	return domain.PendingRecord{
		ID:          id,
		UserRef:     "user-" + id,
		Status:      domain.RecordStatusPending,
		FarmSize:    "5-10",
		Crops:       []string{"Maize"},
		Fertilizers: []domain.FertilizerEntry{{Code: "UREA46", Quantity: 2}},
	}
}

func profileFor(id string) domain.UserProfile {
	return domain.UserProfile{
		Ref:            "user-" + id,
		FirstName:      "Bupe",
		LastName:       "Mwansa",
		Phone:          "0955123456",
		IDPhotoURL:     "https://files.example/" + id + "/front.jpg",
		IDPhotoBackURL: "https://files.example/" + id + "/back.jpg",
		SelfiePhotoURL: "https://files.example/" + id + "/selfie.jpg",
	}
}

func TestRunOnce_FullPipelineInOrder(t *testing.T) {
	h := newHarness(t,
		[]domain.PendingRecord{pendingRecord("rec-1")},
		map[string]domain.UserProfile{"user-rec-1": profileFor("rec-1")},
	)

	result, err := h.orch.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, CycleResult{Processed: 1, Synced: 1}, result)

	require.Equal(t, []string{
		"resolve:+260 955 123 456",
		"lead:contact-1",
		"upload:ID_Front.jpg",
		"upload:ID_Back.jpg",
		"upload:Selfie.jpg",
		"notify:synced:rec-1",
		"mark:rec-1",
	}, h.calls.log)

	require.Len(t, h.synced, 1)
	payload := h.synced[0].Payload.(events.RegistrationSyncedPayload)
	require.True(t, payload.ContactCreated)
	require.Equal(t, "contact-1", payload.ContactID)
	require.Equal(t, "lead-contact-1", payload.LeadID)
	require.Equal(t, 3, payload.AttachmentsUploaded)
}

func TestRunOnce_ExistingContactSkipsAttachments(t *testing.T) {
	h := newHarness(t,
		[]domain.PendingRecord{pendingRecord("rec-1")},
		map[string]domain.UserProfile{"user-rec-1": profileFor("rec-1")},
	)
	h.crm.existingByPhone = map[string]string{"+260 955 123 456": "contact-77"}

	_, err := h.orch.RunOnce(context.Background())
	require.NoError(t, err)

	require.Empty(t, h.crm.uploads)
	require.Len(t, h.synced, 1)
	payload := h.synced[0].Payload.(events.RegistrationSyncedPayload)
	require.False(t, payload.ContactCreated)
	require.Equal(t, "contact-77", payload.ContactID)
}

func TestRunOnce_RepeatedPhoneReusesContact(t *testing.T) {
	h := newHarness(t,
		[]domain.PendingRecord{pendingRecord("rec-1"), pendingRecord("rec-2")},
		map[string]domain.UserProfile{
			"user-rec-1": profileFor("rec-1"),
			"user-rec-2": profileFor("rec-2"),
		},
	)

	_, err := h.orch.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, h.synced, 2)
	first := h.synced[0].Payload.(events.RegistrationSyncedPayload)
	second := h.synced[1].Payload.(events.RegistrationSyncedPayload)
	require.True(t, first.ContactCreated)
	require.False(t, second.ContactCreated)
	require.Equal(t, first.ContactID, second.ContactID)
}

func TestRunOnce_FailureStillAdvancesStatusAndNotifies(t *testing.T) {
	h := newHarness(t,
		[]domain.PendingRecord{pendingRecord("rec-1")},
		map[string]domain.UserProfile{"user-rec-1": profileFor("rec-1")},
	)
	h.crm.leadErr = errors.New("lead rejected")

	_, err := h.orch.RunOnce(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"rec-1"}, h.records.marked)
	require.Len(t, h.failed, 1)
	require.Empty(t, h.synced)
	payload := h.failed[0].Payload.(events.RegistrationFailedPayload)
	require.Contains(t, payload.Reason, "lead rejected")

	// Notification precedes the status write.
	require.Equal(t, []string{
		"resolve:+260 955 123 456",
		"lead:contact-1",
		"notify:failed:rec-1",
		"mark:rec-1",
	}, h.calls.log)
}

func TestRunOnce_OneBadRecordDoesNotAbortBatch(t *testing.T) {
	h := newHarness(t,
		[]domain.PendingRecord{pendingRecord("rec-1"), pendingRecord("rec-2")},
		map[string]domain.UserProfile{
			"user-rec-1": profileFor("rec-1"),
			"user-rec-2": profileFor("rec-2"),
		},
	)
	h.crm.resolveErr = errors.New("crm down")

	result, err := h.orch.RunOnce(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"rec-1", "rec-2"}, h.records.marked)
	require.Len(t, h.failed, 2)
	require.Equal(t, CycleResult{Processed: 2, Failed: 2}, result)
}

func TestRunOnce_AttachmentFailureIsIsolated(t *testing.T) {
	h := newHarness(t,
		[]domain.PendingRecord{pendingRecord("rec-1")},
		map[string]domain.UserProfile{"user-rec-1": profileFor("rec-1")},
	)
	h.orch.deps.Fetcher = &fakeFetcher{failURLs: map[string]bool{
		"https://files.example/rec-1/back.jpg": true,
	}}

	_, err := h.orch.RunOnce(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"ID_Front.jpg", "Selfie.jpg"}, h.crm.uploads)
	require.Len(t, h.synced, 1)
	require.Equal(t, []string{"rec-1"}, h.records.marked)
	payload := h.synced[0].Payload.(events.RegistrationSyncedPayload)
	require.Equal(t, 2, payload.AttachmentsUploaded)
}

func TestRunOnce_FetchErrorBubbles(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.records.fetchErr = errors.New("store unavailable")

	_, err := h.orch.RunOnce(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "store unavailable")
}

func TestRunOnce_CancellationStopsBetweenRecords(t *testing.T) {
	h := newHarness(t,
		[]domain.PendingRecord{pendingRecord("rec-1"), pendingRecord("rec-2")},
		map[string]domain.UserProfile{
			"user-rec-1": profileFor("rec-1"),
			"user-rec-2": profileFor("rec-2"),
		},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.orch.RunOnce(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, h.records.marked)
}
