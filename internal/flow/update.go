package flow

import (
	"log/slog"

	"github.com/personabolt/personabolt/internal/merge"
	"github.com/personabolt/personabolt/internal/models"
)

// UpdatePersona merges a partial patch into the persona with the given id,
// keeping its position in the list and its id. Nested demographics and
// psychographics sub-fields merge without clobbering siblings. Returns false
// when the persona no longer exists; the update is then a no-op.
func (s *Session) UpdatePersona(id string, patch map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return false, ErrGenerationInProgress
	}
	for i, p := range s.personas {
		if p.ID != id {
			continue
		}
		updated, err := merge.Apply(p, patch)
		if err != nil {
			return false, err
		}
		// Ids are stable for the session lifetime; a patch cannot rewrite one.
		updated.ID = p.ID
		if err := updated.Validate(); err != nil {
			return false, err
		}
		s.personas[i] = updated
		slog.Debug("Session.UpdatePersona: persona patched", "id", id)
		return true, nil
	}
	slog.Debug("Session.UpdatePersona: persona not found, update ignored", "id", id)
	return false, nil
}

// UpdateStrategy merges a partial patch into the strategy at the given list
// index. Returns false for an out-of-range index; the update is then a no-op.
func (s *Session) UpdateStrategy(index int, patch map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return false, ErrGenerationInProgress
	}
	if index < 0 || index >= len(s.strategies) {
		slog.Debug("Session.UpdateStrategy: index out of range, update ignored", "index", index)
		return false, nil
	}
	updated, err := merge.Apply(s.strategies[index], patch)
	if err != nil {
		return false, err
	}
	if err := updated.Validate(); err != nil {
		return false, err
	}
	s.strategies[index] = updated
	slog.Debug("Session.UpdateStrategy: strategy patched", "index", index)
	return true, nil
}

// AddLink appends a reference link to the brief under composition. Duplicate
// links are rejected. Legal only at the input step.
func (s *Session) AddLink(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.briefEditableLocked(); err != nil {
		return err
	}
	if s.input == nil {
		s.input = &models.ProductInput{}
	}
	for _, existing := range s.input.Links {
		if existing == url {
			return models.ErrDuplicateLink
		}
	}
	s.input.Links = append(s.input.Links, url)
	return nil
}

// RemoveLink removes the reference link at the given index. Out-of-range
// indexes are a no-op.
func (s *Session) RemoveLink(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.briefEditableLocked(); err != nil {
		return err
	}
	if s.input == nil || index < 0 || index >= len(s.input.Links) {
		return nil
	}
	s.input.Links = append(s.input.Links[:index], s.input.Links[index+1:]...)
	return nil
}

// AddDocument attaches document metadata to the brief under composition.
func (s *Session) AddDocument(doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.briefEditableLocked(); err != nil {
		return err
	}
	if s.input == nil {
		s.input = &models.ProductInput{}
	}
	s.input.Documents = append(s.input.Documents, doc)
	return nil
}

// RemoveDocument removes the attachment at the given index. Out-of-range
// indexes are a no-op.
func (s *Session) RemoveDocument(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.briefEditableLocked(); err != nil {
		return err
	}
	if s.input == nil || index < 0 || index >= len(s.input.Documents) {
		return nil
	}
	s.input.Documents = append(s.input.Documents[:index], s.input.Documents[index+1:]...)
	return nil
}

// briefEditableLocked guards brief mutation: the brief is immutable outside
// the input step for the lifetime of a generation session.
func (s *Session) briefEditableLocked() error {
	if s.loading {
		return ErrGenerationInProgress
	}
	if s.step != models.StepInput {
		return ErrInvalidTransition
	}
	return nil
}
