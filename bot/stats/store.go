// Package stats keeps the durable usage statistics of the bot: per-user
// conversion counters plus global totals, stored as one JSON record that is
// always read, modified and written back as a whole.
package stats

import (
	"fmt"
	"sort"
	"strconv"
)

// UserStats holds per-user counters.
type UserStats struct {
	Conversions int64 `json:"conversions"`
	Images      int64 `json:"images"`
}

// Entry pairs a user id with its counters.
type Entry struct {
	ID string
	UserStats
}

// Store is the in-memory form of the durable record.
// Users keep the order in which they were first inserted.
type Store struct {
	users            map[string]*UserStats
	order            []string
	count            int
	totalConversions int64
	totalImages      int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{users: make(map[string]*UserStats)}
}

// UserKey converts a Telegram user id into the record key.
func UserKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// EnsureUser inserts a zero-valued entry for id if it is missing.
// It reports whether a new entry was created.
func (s *Store) EnsureUser(id string) bool {
	if _, ok := s.users[id]; ok {
		return false
	}
	s.users[id] = &UserStats{}
	s.order = append(s.order, id)
	s.count = len(s.order)
	return true
}

// RecordConversion adds one conversion of images pages to the user and the totals.
func (s *Store) RecordConversion(id string, images int) error {
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("record conversion for %s: %w", id, ErrUnknownUser)
	}
	if images < 0 {
		return fmt.Errorf("record conversion for %s: negative image count %d", id, images)
	}
	u.Conversions++
	u.Images += int64(images)
	s.totalConversions++
	s.totalImages += int64(images)
	return nil
}

// ResetUser zeroes the user's counters. Count and global totals are left as they are.
func (s *Store) ResetUser(id string) bool {
	u, ok := s.users[id]
	if !ok {
		return false
	}
	*u = UserStats{}
	return true
}

// User returns the counters of id.
func (s *Store) User(id string) (UserStats, bool) {
	u, ok := s.users[id]
	if !ok {
		return UserStats{}, false
	}
	return *u, true
}

// Users lists all entries in insertion order.
func (s *Store) Users() []Entry {
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, Entry{ID: id, UserStats: *s.users[id]})
	}
	return out
}

// TopUsers returns up to n users ranked by conversions, highest first.
// Users with equal conversions keep their insertion order.
func (s *Store) TopUsers(n int) []Entry {
	entries := s.Users()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Conversions > entries[j].Conversions
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// UserCount is the number of known users.
func (s *Store) UserCount() int { return s.count }

// TotalConversions is the number of documents produced since the record was created.
func (s *Store) TotalConversions() int64 { return s.totalConversions }

// TotalImages is the number of images placed into documents since the record was created.
func (s *Store) TotalImages() int64 { return s.totalImages }

func (s *Store) put(id string, u UserStats) {
	if existing, ok := s.users[id]; ok {
		*existing = u
		return
	}
	s.users[id] = &u
	s.order = append(s.order, id)
	s.count = len(s.order)
}
