package session

import "sync"

// Registry is an in-memory store of user sessions.
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	lockMu sync.Mutex
	locks  map[int64]*sync.Mutex
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// session returns the entry for userID, creating it if needed. Caller holds mu.
func (r *Registry) session(userID int64) *Session {
	s, ok := r.sessions[userID]
	if !ok {
		s = &Session{}
		r.sessions[userID] = s
	}
	return s
}

// AddImage appends ref to the user's pending images and returns the new count.
func (r *Registry) AddImage(userID int64, ref string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session(userID)
	s.Images = append(s.Images, ref)
	return len(s.Images)
}

// Images returns a copy of the user's pending images in arrival order.
func (r *Registry) Images(userID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	if !ok || len(s.Images) == 0 {
		return []string{}
	}
	out := make([]string, len(s.Images))
	copy(out, s.Images)
	return out
}

// Pending reports how many images the user has sent since the last clear.
func (r *Registry) Pending(userID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.sessions[userID]; ok {
		return len(s.Images)
	}
	return 0
}

// Clear empties the user's images and resets the choice.
// It returns the number of images removed; an unknown user is a no-op.
func (r *Registry) Clear(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok {
		return 0
	}
	n := len(s.Images)
	s.Images = nil
	s.Choice = ChoiceNone
	return n
}

// SetChoice records the keyboard the user is expected to answer next.
func (r *Registry) SetChoice(userID int64, c Choice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session(userID).Choice = c
}

// Choice returns the outstanding choice, or ChoiceNone if there is none.
func (r *Registry) Choice(userID int64) Choice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sessions[userID]; ok {
		return s.Choice
	}
	return ChoiceNone
}

// ConsumeChoice returns the outstanding choice and resets it to ChoiceNone.
func (r *Registry) ConsumeChoice(userID int64) Choice {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok {
		return ChoiceNone
	}
	c := s.Choice
	s.Choice = ChoiceNone
	return c
}

// Lock serializes event handling for one user and returns the unlock func.
// Different users never block each other.
func (r *Registry) Lock(userID int64) func() {
	r.lockMu.Lock()
	m, ok := r.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		r.locks[userID] = m
	}
	r.lockMu.Unlock()

	m.Lock()
	return m.Unlock
}
