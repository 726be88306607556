package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agrilink/crm-sync/internal/domain"
	"github.com/agrilink/crm-sync/internal/events"
)

type captureSender struct {
	sent []string
	err  error
}

func (s *captureSender) SendHTML(ctx context.Context, text string) error {
	s.sent = append(s.sent, text)
	return s.err
}

func TestFormatSyncedMessage_AllFields(t *testing.T) {
	msg := FormatSyncedMessage(domain.Registration{
		FirstName:       "Bupe",
		SecondName:      "Mwansa",
		NormalizedPhone: "+260 955 123 456",
		FarmSize:        "5-10",
		Location:        "Chilanga",
		Crops:           []string{"Maize", "Soya"},
		Fertilizers:     []domain.FertilizerEntry{{Code: "UREA46", Quantity: 4}},
		Details:         "call before delivery",
	})

	require.Contains(t, msg, "<b>First name:</b> Bupe")
	require.Contains(t, msg, "<b>Second name:</b> Mwansa")
	require.Contains(t, msg, "<code>+260 955 123 456</code>")
	require.Contains(t, msg, "Maize\nSoya")
	require.Contains(t, msg, "UREA46 x4")
	require.Contains(t, msg, "call before delivery")
	require.NotContains(t, msg, notProvided)
}

func TestFormatSyncedMessage_Placeholders(t *testing.T) {
	msg := FormatSyncedMessage(domain.Registration{NormalizedPhone: "+260 000 000 000"})

	// Crops, fertilizers, and details each fall back to the placeholder.
	require.Equal(t, 3, strings.Count(msg, notProvided))
}

func TestNotificationService_SendsOnSyncedEvent(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	sender := &captureSender{}
	NewNotificationService(dispatcher, sender, zap.NewNop()).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventRegistrationSynced,
		RecordID: "rec-1",
		Payload: events.RegistrationSyncedPayload{
			Registration: domain.Registration{FirstName: "Bupe"},
		},
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	require.Contains(t, sender.sent[0], "Bupe")
}

func TestNotificationService_FailureEventAndSwallowedSendError(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	sender := &captureSender{err: errors.New("sink down")}
	NewNotificationService(dispatcher, sender, zap.NewNop()).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventRegistrationFailed,
		RecordID: "rec-9",
		Payload:  events.RegistrationFailedPayload{Reason: "rate limit"},
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	require.Contains(t, sender.sent[0], "rec-9")
	require.Contains(t, sender.sent[0], "rate limit")
}

func TestNotificationService_FailureNamesFarmerWhenKnown(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	sender := &captureSender{}
	NewNotificationService(dispatcher, sender, zap.NewNop()).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventRegistrationFailed,
		RecordID: "rec-9",
		Payload: events.RegistrationFailedPayload{
			Registration: &domain.Registration{FirstName: "Bupe", SecondName: "Mwansa"},
			Reason:       "lead rejected",
		},
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	require.Contains(t, sender.sent[0], "Bupe Mwansa")
	require.Contains(t, sender.sent[0], "rec-9")
}
