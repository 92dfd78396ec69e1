package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"

	"github.com/tutorhub/scheduler/internal/model"
)

// TelegramNotifier delivers booking updates to users with a linked chat.
type TelegramNotifier struct {
	bot    *bot.Bot
	logger *zap.Logger
}

func NewTelegramNotifier(token string, logger *zap.Logger) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{bot: b, logger: logger}, nil
}

func (n *TelegramNotifier) BookingConfirmed(ctx context.Context, booking *model.Booking, host, participant *model.User) {
	text := fmt.Sprintf("Booking confirmed: %s, %s – %s",
		booking.Kind,
		booking.Start.Format("Mon 2 Jan 15:04"),
		booking.End.Format("15:04"))

	n.send(ctx, host, text, booking.ID)
	n.send(ctx, participant, text, booking.ID)
}

func (n *TelegramNotifier) BookingCanceled(ctx context.Context, booking *model.Booking, host, participant *model.User) {
	text := fmt.Sprintf("Booking canceled: %s, %s – %s",
		booking.Kind,
		booking.Start.Format("Mon 2 Jan 15:04"),
		booking.End.Format("15:04"))

	n.send(ctx, host, text, booking.ID)
	n.send(ctx, participant, text, booking.ID)
}

func (n *TelegramNotifier) send(ctx context.Context, user *model.User, text string, bookingID int64) {
	if user == nil || user.TelegramID == nil {
		return
	}

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *user.TelegramID,
		Text:   text,
	})
	if err != nil {
		n.logger.Warn("Failed to send booking notification",
			zap.Int64("booking_id", bookingID),
			zap.Int64("user_id", user.ID),
			zap.Error(err))
	}
}
