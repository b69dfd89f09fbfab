package ideas

import (
	"strings"
	"sync"
)

type Idea struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Store holds ideas in memory. There is deliberately no database:
// this API exists as a deployment target for the analysis tooling.
type Store struct {
	mu     sync.RWMutex
	ideas  []Idea
	lastID int64
}

func NewStore() *Store {
	return &Store{
		ideas: []Idea{
			{ID: 1, Title: "Build microservices architecture", Description: "Modern cloud-native approach"},
			{ID: 2, Title: "Implement CI/CD pipeline", Description: "Automate deployments"},
			{ID: 3, Title: "Add monitoring and observability", Description: "Track application metrics"},
		},
	}
}

// NewEmptyStore exists for tests.
func NewEmptyStore() *Store {
	return &Store{}
}

func (s *Store) List() []Idea {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Idea, len(s.ideas))
	copy(out, s.ideas)
	return out
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ideas)
}

func (s *Store) Get(id int64) (Idea, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, idea := range s.ideas {
		if idea.ID == id {
			return idea, true
		}
	}
	return Idea{}, false
}

// Create assigns max(existing)+1 as the new ID. The lastID floor keeps
// deletes from causing ID reuse within a process lifetime.
func (s *Store) Create(title, description string) Idea {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxID := s.lastID
	for _, idea := range s.ideas {
		if idea.ID > maxID {
			maxID = idea.ID
		}
	}
	idea := Idea{
		ID:          maxID + 1,
		Title:       strings.TrimSpace(title),
		Description: description,
	}
	s.lastID = idea.ID
	s.ideas = append(s.ideas, idea)
	return idea
}

func (s *Store) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, idea := range s.ideas {
		if idea.ID == id {
			s.ideas = append(s.ideas[:i], s.ideas[i+1:]...)
			return true
		}
	}
	return false
}
