package inventory

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meddispense/m/domain"
	"meddispense/m/internal/queue"
)

// AllMedicines is the synthetic category that always heads Categories.
const AllMedicines = "All Medicines"

// QueueName selects one of the two hardware command queues.
type QueueName string

const (
	DispenseQueue QueueName = "dispense"
	RestockQueue  QueueName = "restock"
)

// Gateway durably stores the full catalog. Save is called after every mutation.
type Gateway interface {
	Save(ctx context.Context, catalog []domain.Medicine) error
}

// Publisher receives a copy of every queued command.
type Publisher interface {
	Publish(ctx context.Context, queue QueueName, entry domain.QueueEntry) error
}

// Store owns the catalog and both command queues behind one mutex, so each
// commit validates, applies, persists and enqueues without interleaving with
// another commit or with a queue read.
//
// Persistence is best effort: when Gateway.Save fails the caller gets a
// *PersistenceError, but the catalog change and its queue entry remain in place.
//
// Entries reach the Publisher in the order they were enqueued. Publishing runs
// outside the store lock, so a slow publisher delays the committing caller but
// never blocks queue reads.
type Store struct {
	mu       sync.Mutex
	catalog  []domain.Medicine
	index    map[string]int
	dispense *queue.FIFO[domain.QueueEntry]
	restock  *queue.FIFO[domain.QueueEntry]

	gateway Gateway
	events  Publisher
	logger  *zap.Logger

	// tickets is guarded by mu and numbers entries for the publisher.
	tickets uint64
	turn    *mirrorTurn

	now   func() time.Time
	newID func() uuid.UUID
}

// New builds a Store around an already loaded catalog. publisher may be nil.
func New(catalog []domain.Medicine, gateway Gateway, publisher Publisher, logger *zap.Logger) (*Store, error) {
	if gateway == nil {
		return nil, fmt.Errorf("%w: gateway is required", ErrInvalidInput)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		catalog:  make([]domain.Medicine, 0, len(catalog)),
		index:    make(map[string]int, len(catalog)),
		dispense: queue.New[domain.QueueEntry](),
		restock:  queue.New[domain.QueueEntry](),
		gateway:  gateway,
		events:   publisher,
		logger:   logger,
		turn:     newMirrorTurn(),
		now:      time.Now,
		newID:    uuid.New,
	}
	for _, med := range catalog {
		if strings.TrimSpace(med.ID) == "" {
			return nil, fmt.Errorf("%w: catalog record without id", ErrInvalidInput)
		}
		if _, dup := s.index[med.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s in catalog", ErrInvalidInput, med.ID)
		}
		if med.Stock < 0 {
			return nil, fmt.Errorf("%w: negative stock for %s in catalog", ErrInvalidInput, med.ID)
		}
		s.index[med.ID] = len(s.catalog)
		s.catalog = append(s.catalog, med)
	}
	return s, nil
}

// List returns a copy of the catalog in insertion order.
func (s *Store) List() []domain.Medicine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Medicine, len(s.catalog))
	copy(out, s.catalog)
	return out
}

// Categories returns AllMedicines followed by each distinct category in order
// of first appearance.
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{AllMedicines: {}}
	out := []string{AllMedicines}
	for _, med := range s.catalog {
		if _, ok := seen[med.Category]; ok {
			continue
		}
		seen[med.Category] = struct{}{}
		out = append(out, med.Category)
	}
	return out
}

func (s *Store) Get(id string) (domain.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return domain.Medicine{}, &NotFoundError{ID: id}
	}
	return s.catalog[i], nil
}

func (s *Store) Stock(id string) (int64, error) {
	med, err := s.Get(id)
	if err != nil {
		return 0, err
	}
	return med.Stock, nil
}

// Dispense commits an order: every line is checked before any stock moves,
// then all lines are decremented together and the order is queued for the
// dispensing actuator as one entry.
func (s *Store) Dispense(ctx context.Context, items []domain.DispenseItem) (domain.QueueEntry, error) {
	if len(items) == 0 {
		return domain.QueueEntry{}, fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}
	for _, item := range items {
		if strings.TrimSpace(item.ID) == "" || item.Quantity <= 0 {
			return domain.QueueEntry{}, fmt.Errorf("%w: id and a positive quantity are required for each item", ErrInvalidInput)
		}
	}

	s.mu.Lock()
	if err := validateDispense(s.stockLocked, items); err != nil {
		s.mu.Unlock()
		return domain.QueueEntry{}, err
	}
	for _, item := range items {
		s.catalog[s.index[item.ID]].Stock -= item.Quantity
	}

	entry := s.newEntry()
	entry.Order = append([]domain.DispenseItem(nil), items...)

	err := s.persistLocked(ctx, "dispense")
	s.dispense.Push(entry)
	ticket := s.ticketLocked()
	s.mu.Unlock()

	s.logger.Debug("order committed",
		zap.String("entry_id", entry.ID.String()),
		zap.Int("items", len(entry.Order)),
	)
	s.publish(ctx, ticket, DispenseQueue, entry)
	return cloneEntry(entry), err
}

type UpsertStatus string

const (
	Deleted   UpsertStatus = "deleted"
	Restocked UpsertStatus = "restocked"
	Added     UpsertStatus = "added"
)

// UpsertRequest carries an add-or-restock update. Name, Category, Price and
// Image are only consulted when ID is not yet in the catalog.
type UpsertRequest struct {
	ID       string
	Name     string
	Category string
	Price    *float64
	Image    string
	Quantity int64
}

type UpsertResult struct {
	Status   UpsertStatus
	Medicine domain.Medicine
	// Entry is the restock command queued by the update, nil for deletions.
	Entry *domain.QueueEntry
}

// Upsert applies the add-or-restock policy. An explicit zero quantity on an
// existing id removes the record. Any other quantity on an existing id is
// added to its stock and queued as a delta. An unknown id creates a new
// record, which requires name, category, price and image.
func (s *Store) Upsert(ctx context.Context, req UpsertRequest) (UpsertResult, error) {
	if strings.TrimSpace(req.ID) == "" {
		return UpsertResult{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}

	s.mu.Lock()
	i, exists := s.index[req.ID]

	switch {
	case exists && req.Quantity == 0:
		removed := s.catalog[i]
		s.removeLocked(i)
		err := s.persistLocked(ctx, "delete")
		s.mu.Unlock()
		s.logger.Debug("medicine removed", zap.String("id", removed.ID))
		return UpsertResult{Status: Deleted, Medicine: removed}, err

	case exists:
		stock := s.catalog[i].Stock
		if req.Quantity < -stock {
			s.mu.Unlock()
			return UpsertResult{}, fmt.Errorf("%w: restock of %d would take %s below zero", ErrInvalidInput, req.Quantity, req.ID)
		}
		if req.Quantity > math.MaxInt64-stock {
			s.mu.Unlock()
			return UpsertResult{}, fmt.Errorf("%w: restock of %d overflows stock for %s", ErrInvalidInput, req.Quantity, req.ID)
		}
		s.catalog[i].Stock += req.Quantity
		updated := s.catalog[i]

		delta := updated
		delta.Stock = req.Quantity
		entry := s.newEntry()
		entry.Store = &delta

		err := s.persistLocked(ctx, "restock")
		s.restock.Push(entry)
		ticket := s.ticketLocked()
		s.mu.Unlock()

		s.publish(ctx, ticket, RestockQueue, entry)
		queued := cloneEntry(entry)
		return UpsertResult{Status: Restocked, Medicine: updated, Entry: &queued}, err
	}

	if req.Name == "" || req.Category == "" || req.Price == nil || req.Image == "" {
		s.mu.Unlock()
		return UpsertResult{}, ErrInvalidNewItem
	}
	if req.Quantity < 0 {
		s.mu.Unlock()
		return UpsertResult{}, fmt.Errorf("%w: initial quantity cannot be negative", ErrInvalidInput)
	}

	med := domain.Medicine{
		ID:       req.ID,
		Name:     req.Name,
		Category: req.Category,
		Price:    *req.Price,
		Stock:    req.Quantity,
		Image:    req.Image,
	}
	s.index[med.ID] = len(s.catalog)
	s.catalog = append(s.catalog, med)

	record := med
	entry := s.newEntry()
	entry.Store = &record

	err := s.persistLocked(ctx, "add")
	s.restock.Push(entry)
	ticket := s.ticketLocked()
	s.mu.Unlock()

	s.logger.Debug("medicine added", zap.String("id", med.ID), zap.Int64("stock", med.Stock))
	s.publish(ctx, ticket, RestockQueue, entry)
	queued := cloneEntry(entry)
	return UpsertResult{Status: Added, Medicine: med, Entry: &queued}, err
}

// Dequeue removes and returns the oldest entry of the named queue, or ErrEmpty.
func (s *Store) Dequeue(name QueueName) (domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.queue(name).Pop()
	if !ok {
		return domain.QueueEntry{}, ErrEmpty
	}
	return entry, nil
}

// Peek returns the oldest entry of the named queue without removing it.
func (s *Store) Peek(name QueueName) (domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.queue(name).Peek()
	if !ok {
		return domain.QueueEntry{}, ErrEmpty
	}
	return cloneEntry(entry), nil
}

// Flush discards every entry of the named queue and reports how many were dropped.
func (s *Store) Flush(name QueueName) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.queue(name).Reset()
	if n > 0 {
		s.logger.Info("queue flushed", zap.String("queue", string(name)), zap.Int("dropped", n))
	}
	return n
}

func (s *Store) QueueLen(name QueueName) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue(name).Len()
}

func (s *Store) queue(name QueueName) *queue.FIFO[domain.QueueEntry] {
	switch name {
	case DispenseQueue:
		return s.dispense
	case RestockQueue:
		return s.restock
	default:
		panic(fmt.Sprintf("inventory: unknown queue %q", name))
	}
}

func (s *Store) stockLocked(id string) (int64, bool) {
	i, ok := s.index[id]
	if !ok {
		return 0, false
	}
	return s.catalog[i].Stock, true
}

func (s *Store) removeLocked(i int) {
	delete(s.index, s.catalog[i].ID)
	s.catalog = append(s.catalog[:i], s.catalog[i+1:]...)
	for j := i; j < len(s.catalog); j++ {
		s.index[s.catalog[j].ID] = j
	}
}

func (s *Store) persistLocked(ctx context.Context, op string) error {
	snapshot := make([]domain.Medicine, len(s.catalog))
	copy(snapshot, s.catalog)
	if err := s.gateway.Save(ctx, snapshot); err != nil {
		s.logger.Error("catalog write failed, in-memory state kept",
			zap.String("op", op),
			zap.Error(err),
		)
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

// ticketLocked reserves the next publish turn. Call it right after the push.
func (s *Store) ticketLocked() uint64 {
	t := s.tickets
	s.tickets++
	return t
}

func (s *Store) publish(ctx context.Context, ticket uint64, name QueueName, entry domain.QueueEntry) {
	s.turn.wait(ticket)
	defer s.turn.done()
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, name, cloneEntry(entry)); err != nil {
		s.logger.Warn("queue entry not mirrored",
			zap.String("queue", string(name)),
			zap.String("entry_id", entry.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Store) newEntry() domain.QueueEntry {
	return domain.QueueEntry{ID: s.newID(), Timestamp: s.now().UnixMilli()}
}

func cloneEntry(e domain.QueueEntry) domain.QueueEntry {
	if e.Order != nil {
		e.Order = append([]domain.DispenseItem(nil), e.Order...)
	}
	if e.Store != nil {
		med := *e.Store
		e.Store = &med
	}
	return e
}

// mirrorTurn lets publishers run one at a time in ticket order.
type mirrorTurn struct {
	mu   sync.Mutex
	cond *sync.Cond
	next uint64
}

func newMirrorTurn() *mirrorTurn {
	m := &mirrorTurn{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mirrorTurn) wait(ticket uint64) {
	m.mu.Lock()
	for m.next != ticket {
		m.cond.Wait()
	}
	m.mu.Unlock()
}

func (m *mirrorTurn) done() {
	m.mu.Lock()
	m.next++
	m.cond.Broadcast()
	m.mu.Unlock()
}
