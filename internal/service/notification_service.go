package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agrilink/crm-sync/internal/domain"
	"github.com/agrilink/crm-sync/internal/events"
	"github.com/agrilink/crm-sync/internal/notify"
)

const notProvided = "<i>Not provided</i>"

// NotificationService turns sync outcome events into human-readable
// Telegram messages. Delivery failures are logged and swallowed:
// notification is observability, not correctness, and must never fail the
// pipeline.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     notify.Sender
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender notify.Sender, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to sync outcome events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRegistrationSynced, n.handleSynced)
	n.dispatcher.Subscribe(events.EventRegistrationFailed, n.handleFailed)
}

func (n *NotificationService) handleSynced(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RegistrationSyncedPayload)
	if !ok {
		n.logger.Warn("unexpected payload for synced event", zap.String("record_id", event.RecordID))
		return nil
	}
	n.send(ctx, event.RecordID, FormatSyncedMessage(payload.Registration))
	return nil
}

func (n *NotificationService) handleFailed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RegistrationFailedPayload)
	if !ok {
		n.logger.Warn("unexpected payload for failed event", zap.String("record_id", event.RecordID))
		return nil
	}
	farmer := ""
	if payload.Registration != nil {
		farmer = payload.Registration.FullName()
	}
	n.send(ctx, event.RecordID, FormatFailureMessage(event.RecordID, farmer, payload.Reason))
	return nil
}

func (n *NotificationService) send(ctx context.Context, recordID, text string) {
	if err := n.sender.SendHTML(ctx, text); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("record_id", recordID),
			zap.Error(err))
	}
}

// FormatSyncedMessage renders the fixed-shape registration summary.
func FormatSyncedMessage(reg domain.Registration) string {
	var b strings.Builder

	b.WriteString("<b>🆕 New Registration (MobileApp)</b>\n\n")

	b.WriteString("<b>👤 Farmer</b>\n")
	fmt.Fprintf(&b, "• <b>First name:</b> %s\n", reg.FirstName)
	fmt.Fprintf(&b, "• <b>Second name:</b> %s\n", reg.SecondName)
	fmt.Fprintf(&b, "• <b>Phone:</b> <code>%s</code>\n\n", reg.NormalizedPhone)

	b.WriteString("<b>🚜 Farm</b>\n")
	fmt.Fprintf(&b, "• <b>Size (ha):</b> %s\n", reg.FarmSize)
	fmt.Fprintf(&b, "• <b>Location:</b> %s\n\n", reg.Location)

	b.WriteString("<b>🌱 Crops grown</b>\n")
	if len(reg.Crops) > 0 {
		b.WriteString(strings.Join(reg.Crops, "\n"))
	} else {
		b.WriteString(notProvided)
	}
	b.WriteString("\n\n")

	b.WriteString("<b>🧪 Fertilizers</b>\n")
	if len(reg.Fertilizers) > 0 {
		lines := make([]string, 0, len(reg.Fertilizers))
		for _, entry := range reg.Fertilizers {
			lines = append(lines, fmt.Sprintf("%s x%d", entry.Code, entry.Quantity))
		}
		b.WriteString(strings.Join(lines, "\n"))
	} else {
		b.WriteString(notProvided)
	}
	b.WriteString("\n\n")

	b.WriteString("<b>📝 Details</b>\n")
	if strings.TrimSpace(reg.Details) != "" {
		b.WriteString(reg.Details)
	} else {
		b.WriteString(notProvided)
	}

	return b.String()
}

// FormatFailureMessage renders the failure notice for a record. The farmer
// name is included when the record normalized far enough to know it.
func FormatFailureMessage(recordID, farmer, reason string) string {
	if farmer != "" {
		return fmt.Sprintf("⚠️ CRM sync failed for %s, record <code>%s</code>: %s", farmer, recordID, reason)
	}
	return fmt.Sprintf("⚠️ CRM sync failed for record <code>%s</code>: %s", recordID, reason)
}
