package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tutorhub/scheduler/internal/model"
	"github.com/tutorhub/scheduler/internal/repository"
	"github.com/tutorhub/scheduler/internal/schedule"
)

// ── Mock RuleStore ──

type mockRuleStore struct {
	rules  map[int64]*model.AvailabilityRule
	nextID int64
}

func newMockRuleStore() *mockRuleStore {
	return &mockRuleStore{rules: make(map[int64]*model.AvailabilityRule), nextID: 1}
}

func (m *mockRuleStore) Create(_ context.Context, rule *model.AvailabilityRule) error {
	rule.ID = m.nextID
	m.nextID++
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt
	m.rules[rule.ID] = rule
	return nil
}

func (m *mockRuleStore) GetByID(_ context.Context, id int64) (*model.AvailabilityRule, error) {
	return m.rules[id], nil
}

func (m *mockRuleStore) GetActiveByOwner(_ context.Context, ownerID int64) ([]*model.AvailabilityRule, error) {
	var out []*model.AvailabilityRule
	for _, r := range m.rules {
		if r.OwnerID == ownerID && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRuleStore) Deactivate(_ context.Context, id, ownerID int64) error {
	r, ok := m.rules[id]
	if !ok || r.OwnerID != ownerID {
		return fmt.Errorf("rule not found")
	}
	r.IsActive = false
	return nil
}

// ── Mock SlotStore ──

type mockSlotStore struct {
	slots  map[int64]*model.AvailabilitySlot
	nextID int64

	// ownerReads counts GetByOwner calls; failApplies makes the next N
	// ApplyWriteSet calls lose the optimistic race.
	ownerReads  int
	failApplies int
}

func newMockSlotStore() *mockSlotStore {
	return &mockSlotStore{slots: make(map[int64]*model.AvailabilitySlot), nextID: 1}
}

func (m *mockSlotStore) add(slot *model.AvailabilitySlot) *model.AvailabilitySlot {
	if slot.ID == 0 {
		slot.ID = m.nextID
		m.nextID++
	} else if slot.ID >= m.nextID {
		m.nextID = slot.ID + 1
	}
	if slot.Version == 0 {
		slot.Version = 1
	}
	m.slots[slot.ID] = slot
	return slot
}

func (m *mockSlotStore) Create(_ context.Context, slot *model.AvailabilitySlot) error {
	m.add(slot)
	return nil
}

func (m *mockSlotStore) GetByID(_ context.Context, id int64) (*model.AvailabilitySlot, error) {
	s, ok := m.slots[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockSlotStore) GetByOwner(_ context.Context, ownerID int64, from, to time.Time) ([]*model.AvailabilitySlot, error) {
	m.ownerReads++
	window := model.TimeRange{Start: from, End: to}
	var out []*model.AvailabilitySlot
	for _, s := range m.slots {
		if s.OwnerID == ownerID && s.Range().Overlaps(window) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockSlotStore) ApplyWriteSet(_ context.Context, ws schedule.WriteSet) error {
	if m.failApplies > 0 {
		m.failApplies--
		return repository.ErrVersionMismatch
	}
	for _, slot := range ws.ToUpdate {
		existing, ok := m.slots[slot.ID]
		if !ok || existing.Version != slot.Version {
			return repository.ErrVersionMismatch
		}
	}
	for _, slot := range ws.ToCreate {
		m.add(slot)
	}
	for _, slot := range ws.ToUpdate {
		existing := m.slots[slot.ID]
		existing.Start = slot.Start
		existing.End = slot.End
		existing.Version++
		slot.Version = existing.Version
	}
	for _, id := range ws.ToDelete {
		delete(m.slots, id)
	}
	return nil
}

// ── Mock BookingStore ──

type mockBookingStore struct {
	bookings map[int64]*model.Booking
	slots    *mockSlotStore
	nextID   int64

	// failCommits makes the next N commits lose the optimistic race.
	failCommits int
}

func newMockBookingStore(slots *mockSlotStore) *mockBookingStore {
	return &mockBookingStore{bookings: make(map[int64]*model.Booking), slots: slots, nextID: 1}
}

func (m *mockBookingStore) add(b *model.Booking) *model.Booking {
	if b.ID == 0 {
		b.ID = m.nextID
		m.nextID++
	}
	m.bookings[b.ID] = b
	return b
}

func (m *mockBookingStore) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *mockBookingStore) GetBySlot(_ context.Context, slotID int64) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.SlotID == slotID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockBookingStore) GetBySlots(ctx context.Context, slotIDs []int64) (map[int64][]*model.Booking, error) {
	out := make(map[int64][]*model.Booking)
	for _, id := range slotIDs {
		bs, _ := m.GetBySlot(ctx, id)
		if len(bs) > 0 {
			out[id] = bs
		}
	}
	return out, nil
}

func (m *mockBookingStore) GetConfirmedByUser(_ context.Context, userID int64) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.Status == model.BookingStatusConfirmed && (b.HostID == userID || b.ParticipantID == userID) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockBookingStore) GetByParticipant(_ context.Context, participantID int64) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.ParticipantID == participantID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockBookingStore) GetByHost(_ context.Context, hostID int64) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.HostID == hostID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockBookingStore) CommitBooking(_ context.Context, b *model.Booking, slotVersion int64) error {
	if m.failCommits > 0 {
		m.failCommits--
		m.slots.slots[b.SlotID].Version++
		return repository.ErrVersionMismatch
	}
	slot, ok := m.slots.slots[b.SlotID]
	if !ok {
		return fmt.Errorf("slot not found")
	}
	if slot.Version != slotVersion {
		return repository.ErrVersionMismatch
	}
	slot.Version++
	m.add(b)
	return nil
}

func (m *mockBookingStore) UpdateStatus(_ context.Context, id int64, status model.BookingStatus) error {
	b, ok := m.bookings[id]
	if !ok {
		return fmt.Errorf("booking not found")
	}
	if b.Status == model.BookingStatusCanceled {
		// Canceled is terminal, and re-canceling stays a no-op.
		if status == model.BookingStatusCanceled {
			return nil
		}
		return fmt.Errorf("booking already canceled")
	}
	b.Status = status
	return nil
}

func (m *mockBookingStore) ExpirePending(_ context.Context, cutoff time.Time) ([]int64, error) {
	var slotIDs []int64
	for _, b := range m.bookings {
		if b.Status == model.BookingStatusPending && b.CreatedAt.Before(cutoff) {
			b.Status = model.BookingStatusCanceled
			slotIDs = append(slotIDs, b.SlotID)
		}
	}
	return slotIDs, nil
}

// ── Mock UserStore ──

type mockUserStore struct {
	users map[int64]*model.User
}

func newMockUserStore(users ...*model.User) *mockUserStore {
	m := &mockUserStore{users: make(map[int64]*model.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	return m.users[id], nil
}

// ── Mock WindowCache ──

type mockCache struct {
	entries map[string][]model.BookableWindow
	flushes []int64
}

func cacheKey(ownerID int64, from, to time.Time) string {
	return fmt.Sprintf("%d:%d:%d", ownerID, from.Unix(), to.Unix())
}

func (m *mockCache) Get(_ context.Context, ownerID int64, from, to time.Time) ([]model.BookableWindow, bool) {
	windows, ok := m.entries[cacheKey(ownerID, from, to)]
	return windows, ok
}

func (m *mockCache) Set(_ context.Context, ownerID int64, from, to time.Time, windows []model.BookableWindow) {
	if m.entries == nil {
		m.entries = make(map[string][]model.BookableWindow)
	}
	m.entries[cacheKey(ownerID, from, to)] = windows
}

func (m *mockCache) Flush(_ context.Context, ownerID int64) {
	prefix := fmt.Sprintf("%d:", ownerID)
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	m.flushes = append(m.flushes, ownerID)
}

// ── Fixed clock and recording notifier ──

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recordingNotifier struct {
	confirmed []int64
	canceled  []int64
}

func (n *recordingNotifier) BookingConfirmed(_ context.Context, b *model.Booking, _, _ *model.User) {
	n.confirmed = append(n.confirmed, b.ID)
}

func (n *recordingNotifier) BookingCanceled(_ context.Context, b *model.Booking, _, _ *model.User) {
	n.canceled = append(n.canceled, b.ID)
}

func testLogger() *zap.Logger { return zap.NewNop() }
