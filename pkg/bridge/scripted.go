package bridge

import (
	"sync"

	"github.com/testwiseco/testwise/pkg/coverage"
)

// Scripted is an in-memory Bridge used by tests and dry runs. Each Dump
// returns the next scripted file set, tagged with the active session, and
// every call is recorded so assertions can inspect the interaction.
type Scripted struct {
	mu      sync.Mutex
	session string
	scripts [][]coverage.FileDump

	Resets   int
	Sessions []string
	Dumps    int
}

// NewScripted creates a scripted bridge that serves the given file sets in
// order. Once the script is exhausted, Dump returns empty dumps.
func NewScripted(scripts ...[]coverage.FileDump) *Scripted {
	return &Scripted{scripts: scripts}
}

func (s *Scripted) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Resets++
	return nil
}

func (s *Scripted) StartSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = id
	s.Sessions = append(s.Sessions, id)
}

func (s *Scripted) Dump() (*coverage.RawDump, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Dumps++

	dump := &coverage.RawDump{SessionID: s.session}
	if len(s.scripts) > 0 {
		dump.Files = s.scripts[0]
		s.scripts = s.scripts[1:]
	}
	return dump, nil
}

func (s *Scripted) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}
