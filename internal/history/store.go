// Package history keeps the bounded, deduplicated, most-recent-first list of
// catalog entities a user has viewed.
//
// The in-memory list is authoritative for the running process. Every change is
// written through to a storage.Storage on a best-effort basis: read failures
// degrade to an empty list and write failures are logged, never returned.
package history

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hpungsan/coursedesk/internal/logging"
	"github.com/hpungsan/coursedesk/internal/storage"
)

const (
	// MaxItems is the default cap on the list length.
	MaxItems = 10

	// StorageKey is the default key the list is persisted under.
	StorageKey = "coursedesk:recently-viewed"
)

// LoadStatus classifies the outcome of reading the persisted list.
type LoadStatus string

const (
	StatusFound       LoadStatus = "found"
	StatusMissing     LoadStatus = "missing"
	StatusCorrupt     LoadStatus = "corrupt"
	StatusUnavailable LoadStatus = "unavailable"
)

// LoadResult is the outcome of reading the persisted list.
// Items is empty unless Status is StatusFound.
type LoadResult struct {
	Items  []ViewedItem
	Status LoadStatus
	Err    error
}

// Option configures a Store.
type Option func(*Store)

// WithMaxItems overrides MaxItems. Values < 1 are ignored.
func WithMaxItems(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxItems = n
		}
	}
}

// WithKey overrides StorageKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used for swallowed storage failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the recently-viewed list.
type Store struct {
	mu       sync.Mutex
	storage  storage.Storage
	key      string
	maxItems int
	now      func() time.Time
	log      *slog.Logger

	items    []ViewedItem
	hydrated bool
	// dirty is set while the last write to storage failed; memory then holds
	// changes storage does not.
	dirty bool
}

// NewStore returns a Store over st. The persisted list is read lazily on first use.
func NewStore(st storage.Storage, opts ...Option) *Store {
	s := &Store{
		storage:  st,
		key:      StorageKey,
		maxItems: MaxItems,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrDefault(s.log)
	return s
}

// Read returns the persisted list and how reading it went. It does not touch
// the in-memory list. The returned list is normalized: invalid entries are
// dropped, duplicates collapse to the most recent, order is newest first and
// the length is capped.
func (s *Store) Read() LoadResult {
	raw, ok, err := s.storage.Get(s.key)
	if err != nil {
		return LoadResult{Items: []ViewedItem{}, Status: StatusUnavailable, Err: err}
	}
	if !ok {
		return LoadResult{Items: []ViewedItem{}, Status: StatusMissing}
	}

	var items []ViewedItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return LoadResult{Items: []ViewedItem{}, Status: StatusCorrupt, Err: err}
	}

	return LoadResult{Items: s.normalize(items), Status: StatusFound}
}

// Load refreshes the in-memory list from storage and returns a copy of it.
// Missing, corrupt or unreadable data yields an empty list on first use. Once
// loaded, a refresh never replaces changes that failed to persist, and an
// unreadable store leaves the in-memory list as it is.
func (s *Store) Load() []ViewedItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hydrateLocked(true)
	return cloneItems(s.items)
}

// Items returns a copy of the in-memory list, loading it first if needed.
func (s *Store) Items() []ViewedItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hydrateLocked(false)
	return cloneItems(s.items)
}

// AddItem records a view of item: it is stamped with the current time, any
// previous entry with the same id and type is dropped, the item goes to the
// front and the list is capped. Invalid items are logged and ignored.
func (s *Store) AddItem(item ViewedItem) {
	if err := item.Validate(); err != nil {
		s.log.Warn("history: ignoring invalid item", "id", item.ID, "type", item.Type, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hydrateLocked(false)

	entry := item.clone()
	entry.ViewedAt = s.now().UnixMilli()

	next := make([]ViewedItem, 0, len(s.items)+1)
	next = append(next, entry)
	for _, existing := range s.items {
		if existing.Key() != entry.Key() {
			next = append(next, existing)
		}
	}
	if len(next) > s.maxItems {
		next = next[:s.maxItems]
	}

	s.items = next
	s.persistLocked()
}

// Remove drops the entry with the given id and type. Missing entries are a no-op.
func (s *Store) Remove(id string, typ ItemType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hydrateLocked(false)

	key := ViewedItem{ID: id, Type: typ}.Key()
	next := make([]ViewedItem, 0, len(s.items))
	for _, existing := range s.items {
		if existing.Key() != key {
			next = append(next, existing)
		}
	}
	if len(next) == len(s.items) {
		return
	}

	s.items = next
	s.persistLocked()
}

// ClearItems empties the list and removes the persisted key.
func (s *Store) ClearItems() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []ViewedItem{}
	s.hydrated = true
	s.dirty = false
	if err := s.storage.Remove(s.key); err != nil {
		s.dirty = true
		s.log.Error("history: failed to remove persisted list", "key", s.key, "error", err)
	}
}

func (s *Store) hydrateLocked(force bool) {
	if s.hydrated && (!force || s.dirty) {
		return
	}
	res := s.Read()
	switch res.Status {
	case StatusCorrupt:
		s.log.Error("history: persisted list is corrupt, starting empty", "key", s.key, "error", res.Err)
	case StatusUnavailable:
		if s.hydrated {
			s.log.Warn("history: storage unavailable, keeping in-memory list", "key", s.key, "error", res.Err)
			return
		}
		s.log.Error("history: storage unavailable, starting empty", "key", s.key, "error", res.Err)
	}
	s.items = res.Items
	s.hydrated = true
}

func (s *Store) persistLocked() {
	data, err := json.Marshal(s.items)
	if err != nil {
		s.dirty = true
		s.log.Error("history: failed to encode list", "error", err)
		return
	}
	if err := s.storage.Set(s.key, string(data)); err != nil {
		s.dirty = true
		s.log.Error("history: failed to persist list", "key", s.key, "items", len(s.items), "error", err)
		return
	}
	s.dirty = false
}

func (s *Store) normalize(items []ViewedItem) []ViewedItem {
	valid := make([]ViewedItem, 0, len(items))
	for _, it := range items {
		if it.Validate() == nil {
			valid = append(valid, it)
		}
	}

	// Newest first; ties keep stored order.
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].ViewedAt > valid[j].ViewedAt
	})

	seen := make(map[string]bool, len(valid))
	out := make([]ViewedItem, 0, len(valid))
	for _, it := range valid {
		if seen[it.Key()] {
			continue
		}
		seen[it.Key()] = true
		out = append(out, it)
		if len(out) == s.maxItems {
			break
		}
	}
	return out
}
