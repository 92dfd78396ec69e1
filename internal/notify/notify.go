package notify

import (
	"context"

	"github.com/tutorhub/scheduler/internal/model"
)

// Notifier is informed after a booking transitions to confirmed or canceled.
// Delivery is fire-and-forget, at-least-once; a failed notification never
// rolls back the booking.
type Notifier interface {
	BookingConfirmed(ctx context.Context, booking *model.Booking, host, participant *model.User)
	BookingCanceled(ctx context.Context, booking *model.Booking, host, participant *model.User)
}

// Noop is used when no delivery channel is configured.
type Noop struct{}

func (Noop) BookingConfirmed(context.Context, *model.Booking, *model.User, *model.User) {}
func (Noop) BookingCanceled(context.Context, *model.Booking, *model.User, *model.User)  {}
