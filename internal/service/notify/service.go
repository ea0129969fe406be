package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	client "github.com/mamadbah2/dairy/pkg/clients/whatsapp"
)

// ErrNoPhone is returned when a farmer has no phone number on file.
var ErrNoPhone = errors.New("farmer has no phone number")

// Notifier describes the messages the services can push to farmers and operators.
type Notifier interface {
	CollectionReceipt(ctx context.Context, farmer models.Farmer, c models.Collection) error
	StatementReady(ctx context.Context, farmer models.Farmer, st models.BillStatement) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// WhatsAppNotifier delivers notifications through the WhatsApp Cloud API.
type WhatsAppNotifier struct {
	client  client.Client
	logger  *zap.Logger
	timeout time.Duration
}

// NewWhatsAppNotifier wires a new notifier instance.
func NewWhatsAppNotifier(c client.Client, logger *zap.Logger) *WhatsAppNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsAppNotifier{client: c, logger: logger, timeout: 10 * time.Second}
}

// CollectionReceipt sends the farmer a summary of one valuated collection.
func (n *WhatsAppNotifier) CollectionReceipt(ctx context.Context, farmer models.Farmer, c models.Collection) error {
	if farmer.Phone == "" {
		return ErrNoPhone
	}
	return n.send(ctx, farmer.Phone, FormatReceipt(farmer, c), false)
}

// StatementReady sends the farmer the totals of a bill period.
func (n *WhatsAppNotifier) StatementReady(ctx context.Context, farmer models.Farmer, st models.BillStatement) error {
	if farmer.Phone == "" {
		return ErrNoPhone
	}
	return n.send(ctx, farmer.Phone, FormatStatement(st), false)
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (n *WhatsAppNotifier) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	return n.send(ctx, req.To, req.Message, req.PreviewURL)
}

func (n *WhatsAppNotifier) send(ctx context.Context, to, body string, preview bool) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	resp, err := n.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         to,
		Body:       body,
		PreviewURL: preview,
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	n.logger.Debug("notification sent", zap.String("to", client.NormalizePhone(to)), zap.String("message_id", resp.MessageID()))
	return nil
}

// Disabled drops farmer notifications and rejects operator messages. It is
// used when no WhatsApp credentials are configured.
type Disabled struct{}

// ErrDisabled is returned by Disabled.SendOutbound.
var ErrDisabled = errors.New("notifications are not configured")

func (Disabled) CollectionReceipt(context.Context, models.Farmer, models.Collection) error {
	return nil
}

func (Disabled) StatementReady(context.Context, models.Farmer, models.BillStatement) error {
	return nil
}

func (Disabled) SendOutbound(context.Context, models.OutboundMessageRequest) error {
	return ErrDisabled
}

// FormatReceipt renders the text of a collection receipt.
func FormatReceipt(farmer models.Farmer, c models.Collection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Milk receipt %s %s\n", c.Date, c.Shift)
	if farmer.Name != "" {
		fmt.Fprintf(&b, "%s (%s)\n", farmer.Name, farmer.Code)
	}
	fmt.Fprintf(&b, "Qty: %.2f kg / %.2f L\n", c.QtyKg, c.Liters)
	fmt.Fprintf(&b, "Fat: %.1f%%  SNF: %.2f%%\n", c.Fat, c.Snf)
	fmt.Fprintf(&b, "Rate: %.2f  Amount: %.2f", c.Rate, c.Amount)
	if c.BonusAmount > 0 {
		fmt.Fprintf(&b, "\nBonus: %.2f", c.BonusAmount)
	}
	return b.String()
}

// FormatStatement renders the text of a bill-period statement.
func FormatStatement(st models.BillStatement) string {
	return fmt.Sprintf("Bill %s to %s\nEntries: %d\nLiters: %.2f\nAmount: %.2f\nBonus: %.2f",
		st.FromDate, st.ToDate, st.Entries, st.Liters, st.Amount, st.BonusAmount)
}
