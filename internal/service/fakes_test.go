package service

// In-memory fakes for the store interfaces.  They implement only what the
// services under test touch and keep enough state to assert side effects.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otelciro/channel-sync/internal/model"
	"github.com/otelciro/channel-sync/internal/repository"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type fakeMappings struct {
	byKey   map[string]uint64 // "connID/kind/code" -> internal id
	created []model.ChannelMapping
	err     error
}

func newFakeMappings() *fakeMappings {
	return &fakeMappings{byKey: make(map[string]uint64)}
}

func mappingKey(connectionID uint64, kind model.MappingKind, code string) string {
	return fmt.Sprintf("%d/%s/%s", connectionID, kind, code)
}

func (f *fakeMappings) Resolve(_ context.Context, connectionID uint64, kind model.MappingKind, code string) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if id, ok := f.byKey[mappingKey(connectionID, kind, code)]; ok {
		return id, nil
	}
	return 0, repository.ErrNotFound
}

func (f *fakeMappings) Create(_ context.Context, m *model.ChannelMapping) error {
	f.created = append(f.created, *m)
	f.byKey[mappingKey(m.ConnectionID, m.Kind, m.ChannelCode)] = m.InternalID
	return nil
}

type fakeRoomTypes struct {
	types []model.RoomType
}

func (f *fakeRoomTypes) GetByID(_ context.Context, id uint64) (*model.RoomType, error) {
	for i := range f.types {
		if f.types[i].ID == id {
			rt := f.types[i]
			return &rt, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRoomTypes) GetByCode(_ context.Context, hotelID uint64, code string) (*model.RoomType, error) {
	for i := range f.types {
		if f.types[i].HotelID == hotelID && strings.EqualFold(f.types[i].Code, code) {
			rt := f.types[i]
			return &rt, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRoomTypes) FirstByHotel(_ context.Context, hotelID uint64) (*model.RoomType, error) {
	for i := range f.types {
		if f.types[i].HotelID == hotelID {
			rt := f.types[i]
			return &rt, nil
		}
	}
	return nil, repository.ErrNoRoomTypes
}

type fakeRatePlans struct {
	plans []model.RatePlan
}

func (f *fakeRatePlans) GetByCode(_ context.Context, hotelID uint64, code string) (*model.RatePlan, error) {
	for i := range f.plans {
		if f.plans[i].HotelID == hotelID && strings.EqualFold(f.plans[i].Code, code) {
			rp := f.plans[i]
			return &rp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRatePlans) FirstByHotel(_ context.Context, hotelID uint64) (*model.RatePlan, error) {
	for i := range f.plans {
		if f.plans[i].HotelID == hotelID {
			rp := f.plans[i]
			return &rp, nil
		}
	}
	return nil, repository.ErrNoRoomTypes
}

type fakeAllocations struct {
	alloc *model.ChannelAllocation
	err   error
}

func (f *fakeAllocations) GetFor(_ context.Context, _, _, _ uint64) (*model.ChannelAllocation, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.alloc == nil {
		return nil, repository.ErrNotFound
	}
	a := *f.alloc
	return &a, nil
}

// fakeReservations implements both reservationStore and overlapCounter,
// like the real ReservationRepo does.  CountOverlapping mirrors the SQL:
// only statuses that count against allocation, half-open date overlap.
type fakeReservations struct {
	nextID    uint64
	stored    []model.Reservation
	createErr error
	countErr  error
}

func (f *fakeReservations) Create(_ context.Context, res *model.Reservation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	res.ID = f.nextID
	f.stored = append(f.stored, *res)
	return nil
}

func (f *fakeReservations) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	for i := range f.stored {
		if f.stored[i].ID == id {
			r := f.stored[i]
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeReservations) CountOverlapping(_ context.Context, hotelID, roomTypeID uint64, checkIn, checkOut time.Time) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for i := range f.stored {
		r := &f.stored[i]
		if r.HotelID == hotelID && r.RoomTypeID == roomTypeID &&
			r.Status.CountsAgainstAllocation() &&
			model.Overlaps(r.CheckIn, r.CheckOut, checkIn, checkOut) {
			n++
		}
	}
	return n, nil
}

type fakeGuests struct {
	nextID  uint64
	guests  []model.Guest
	updates int
}

func (f *fakeGuests) FindByEmail(_ context.Context, hotelID uint64, email string) (*model.Guest, error) {
	for i := range f.guests {
		if f.guests[i].HotelID == hotelID && strings.EqualFold(f.guests[i].Email, email) {
			g := f.guests[i]
			return &g, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeGuests) FindByPhone(_ context.Context, hotelID uint64, phone string) (*model.Guest, error) {
	for i := range f.guests {
		if f.guests[i].HotelID == hotelID && f.guests[i].Phone == phone {
			g := f.guests[i]
			return &g, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeGuests) Create(_ context.Context, g *model.Guest) error {
	f.nextID++
	g.ID = f.nextID
	f.guests = append(f.guests, *g)
	return nil
}

func (f *fakeGuests) Update(_ context.Context, g *model.Guest) error {
	f.updates++
	for i := range f.guests {
		if f.guests[i].ID == g.ID {
			f.guests[i] = *g
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeConnections struct {
	conns map[uint64]*model.ChannelConnection
}

func (f *fakeConnections) GetByID(_ context.Context, id uint64) (*model.ChannelConnection, error) {
	if c, ok := f.conns[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

type fakeInbound struct {
	nextID  uint64
	records map[string]*model.InboundReservation
}

func newFakeInbound() *fakeInbound {
	return &fakeInbound{records: make(map[string]*model.InboundReservation)}
}

func naturalKey(connectionID uint64, channelReservationID string) string {
	return fmt.Sprintf("%d/%s", connectionID, channelReservationID)
}

func (f *fakeInbound) GetByNaturalKey(_ context.Context, connectionID uint64, channelReservationID string) (*model.InboundReservation, error) {
	if r, ok := f.records[naturalKey(connectionID, channelReservationID)]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeInbound) InsertPending(_ context.Context, rec *model.InboundReservation) error {
	key := naturalKey(rec.ConnectionID, rec.ChannelReservationID)
	if existing, ok := f.records[key]; ok {
		existing.RawPayload = rec.RawPayload
		existing.Status = model.InboundPending
		existing.ErrorDetail = ""
		rec.ID = existing.ID
		rec.Status = model.InboundPending
		return nil
	}
	f.nextID++
	rec.ID = f.nextID
	rec.Status = model.InboundPending
	cp := *rec
	f.records[key] = &cp
	return nil
}

func (f *fakeInbound) MarkProcessed(_ context.Context, id, reservationID uint64, warnings string) error {
	for _, r := range f.records {
		if r.ID == id {
			r.Status = model.InboundProcessed
			rid := reservationID
			r.ReservationID = &rid
			r.Warnings = warnings
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeInbound) MarkError(_ context.Context, id uint64, detail string) error {
	for _, r := range f.records {
		if r.ID == id {
			r.Status = model.InboundError
			r.ErrorDetail = detail
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeInventory struct {
	nextID       uint64
	records      map[string]*model.InventoryRecord // "hotel/roomType/date"
	conflictOnce bool                              // force one CAS conflict per update
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{records: make(map[string]*model.InventoryRecord)}
}

func invKey(hotelID, roomTypeID uint64, date time.Time) string {
	return fmt.Sprintf("%d/%d/%s", hotelID, roomTypeID, date.Format("2006-01-02"))
}

func (f *fakeInventory) Get(_ context.Context, hotelID, roomTypeID uint64, date time.Time) (*model.InventoryRecord, error) {
	if r, ok := f.records[invKey(hotelID, roomTypeID, date)]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeInventory) GetRange(_ context.Context, hotelID, roomTypeID uint64, from, to time.Time) (map[string]*model.InventoryRecord, error) {
	out := make(map[string]*model.InventoryRecord)
	for _, d := range model.DaysBetween(from, to) {
		if r, ok := f.records[invKey(hotelID, roomTypeID, d)]; ok {
			cp := *r
			out[d.Format("2006-01-02")] = &cp
		}
	}
	return out, nil
}

func (f *fakeInventory) Insert(_ context.Context, rec *model.InventoryRecord) error {
	key := invKey(rec.HotelID, rec.RoomTypeID, rec.Date)
	if _, ok := f.records[key]; ok {
		return fmt.Errorf("duplicate inventory row")
	}
	f.nextID++
	rec.ID = f.nextID
	rec.Version = 1
	cp := *rec
	f.records[key] = &cp
	return nil
}

func (f *fakeInventory) UpdateCAS(_ context.Context, rec *model.InventoryRecord) error {
	key := invKey(rec.HotelID, rec.RoomTypeID, rec.Date)
	stored, ok := f.records[key]
	if !ok {
		return repository.ErrNotFound
	}
	if f.conflictOnce {
		f.conflictOnce = false
		stored.Version++
		return repository.ErrVersionConflict
	}
	if stored.Version != rec.Version {
		return repository.ErrVersionConflict
	}
	cp := *rec
	cp.Version = rec.Version + 1
	f.records[key] = &cp
	return nil
}

type fakePusher struct {
	jobs []PushJob
	err  error
}

func (f *fakePusher) PublishPushJob(_ context.Context, job PushJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeConfirmations struct {
	published int
	err       error
}

func (f *fakeConfirmations) PublishReservationConfirmed(_ context.Context, _ uint64, _ string, _ *model.Reservation) error {
	f.published++
	return f.err
}
