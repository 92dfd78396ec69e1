package service

import (
	"context"
	"time"

	"github.com/tutorhub/scheduler/internal/model"
	"github.com/tutorhub/scheduler/internal/schedule"
)

// Narrow persistence interfaces consumed by the services. The pgx
// repositories satisfy them; tests substitute in-memory fakes.

type RuleStore interface {
	Create(ctx context.Context, rule *model.AvailabilityRule) error
	GetByID(ctx context.Context, id int64) (*model.AvailabilityRule, error)
	GetActiveByOwner(ctx context.Context, ownerID int64) ([]*model.AvailabilityRule, error)
	Deactivate(ctx context.Context, id, ownerID int64) error
}

type SlotStore interface {
	Create(ctx context.Context, slot *model.AvailabilitySlot) error
	GetByID(ctx context.Context, id int64) (*model.AvailabilitySlot, error)
	GetByOwner(ctx context.Context, ownerID int64, from, to time.Time) ([]*model.AvailabilitySlot, error)
	ApplyWriteSet(ctx context.Context, ws schedule.WriteSet) error
}

type BookingStore interface {
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	GetBySlot(ctx context.Context, slotID int64) ([]*model.Booking, error)
	GetBySlots(ctx context.Context, slotIDs []int64) (map[int64][]*model.Booking, error)
	GetConfirmedByUser(ctx context.Context, userID int64) ([]*model.Booking, error)
	GetByParticipant(ctx context.Context, participantID int64) ([]*model.Booking, error)
	GetByHost(ctx context.Context, hostID int64) ([]*model.Booking, error)
	CommitBooking(ctx context.Context, b *model.Booking, slotVersion int64) error
	UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error
	ExpirePending(ctx context.Context, cutoff time.Time) ([]int64, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// WindowCache is the availability cache collaborator. Mutating services call
// Flush for the owner's scope; the core never reaches in here. Get's second
// return distinguishes a cached empty result from a miss, so fully booked
// owners are not recomputed on every query.
type WindowCache interface {
	Get(ctx context.Context, ownerID int64, from, to time.Time) ([]model.BookableWindow, bool)
	Set(ctx context.Context, ownerID int64, from, to time.Time, windows []model.BookableWindow)
	Flush(ctx context.Context, ownerID int64)
}

// Clock supplies the current instant; the core never reads the system locale
// or wall clock directly.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock is the production Clock.
var SystemClock Clock = systemClock{}
