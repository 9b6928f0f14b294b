package conversation

import (
	"sync"

	"adminbot/internal/models"
)

// ModeKind identifies what a chat is currently doing
type ModeKind int

const (
	ModeIdle ModeKind = iota
	ModeCreatingDish
	ModeEditingDish
	ModeEditingDishField
	ModeSearchingDish
)

func (k ModeKind) String() string {
	switch k {
	case ModeIdle:
		return "idle"
	case ModeCreatingDish:
		return "creating_dish"
	case ModeEditingDish:
		return "editing_dish"
	case ModeEditingDishField:
		return "editing_dish_field"
	case ModeSearchingDish:
		return "searching_dish"
	default:
		return "unknown"
	}
}

// CreateStep is the current prompt of the dish creation flow
type CreateStep int

const (
	StepName CreateStep = iota
	StepDescription
	StepPrice
	StepPrepTime
)

// DishDraft accumulates the fields of a dish being created
type DishDraft struct {
	RestaurantID    int64
	Name            string
	Description     string
	Price           models.Price
	PreparationTime int
	IsSpicy         bool
	IsVegetarian    bool

	// IdempotencyKey is generated once per draft and sent with the create call
	IdempotencyKey string
}

// Mode is a tagged variant; only the fields relevant to Kind are set.
type Mode struct {
	Kind   ModeKind
	Draft  *DishDraft // ModeCreatingDish
	Step   CreateStep // ModeCreatingDish
	DishID int64      // ModeEditingDish, ModeEditingDishField
	Field  Field      // ModeEditingDishField
}

// Idle returns the initial mode
func Idle() Mode {
	return Mode{Kind: ModeIdle}
}

// CreatingDish returns the creation mode at the given step
func CreatingDish(draft *DishDraft, step CreateStep) Mode {
	return Mode{Kind: ModeCreatingDish, Draft: draft, Step: step}
}

// EditingDish returns the mode for a dish card that accepts "Field: value" blocks
func EditingDish(dishID int64) Mode {
	return Mode{Kind: ModeEditingDish, DishID: dishID}
}

// EditingDishField returns the mode waiting for a new value of one field
func EditingDishField(dishID int64, field Field) Mode {
	return Mode{Kind: ModeEditingDishField, DishID: dishID, Field: field}
}

// SearchingDish returns the mode waiting for a dish id
func SearchingDish() Mode {
	return Mode{Kind: ModeSearchingDish}
}

// ChatSession is the per-chat conversation state
type ChatSession struct {
	ChatID            int64
	Mode              Mode
	LastMenuMessageID int // 0 when nothing was rendered yet
}

// SessionStore keeps chat sessions. Implementations must be safe for concurrent use.
type SessionStore interface {
	// Get returns the session for chatID, creating an Idle one if needed
	Get(chatID int64) ChatSession
	Set(session ChatSession)
}

// MemoryStore is an in-process SessionStore. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]ChatSession
}

// NewMemoryStore creates an empty session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]ChatSession)}
}

func (s *MemoryStore) Get(chatID int64) ChatSession {
	s.mu.RLock()
	session, ok := s.sessions[chatID]
	s.mu.RUnlock()
	if ok {
		return session
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[chatID]; ok {
		return session
	}
	session = ChatSession{ChatID: chatID, Mode: Idle()}
	s.sessions[chatID] = session
	return session
}

func (s *MemoryStore) Set(session ChatSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ChatID] = session
}

func (s *MemoryStore) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
