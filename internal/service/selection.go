package service

import (
	"fmt"
	"sync"
)

// Selection is the ordered list of input files chosen by the user.
// A path added twice is listed twice.
type Selection struct {
	mu    sync.Mutex
	paths []string
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{}
}

// Add appends paths in order and returns the updated list.
func (s *Selection) Add(paths ...string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		if p != "" {
			s.paths = append(s.paths, p)
		}
	}
	return s.copyLocked()
}

// Remove drops the entry at index and returns the updated list.
func (s *Selection) Remove(index int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.paths) {
		return s.copyLocked(), fmt.Errorf("selection: index %d out of range", index)
	}
	s.paths = append(s.paths[:index], s.paths[index+1:]...)
	return s.copyLocked(), nil
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = nil
}

// Paths returns a copy of the selected paths.
func (s *Selection) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *Selection) copyLocked() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}
