// Package edit implements the draft-edit lifecycle shared by persona and
// strategy editing. An Editor holds a scratch copy of an entity; mutations
// accumulate on the draft and become visible to the rest of the application
// only on commit. Cancel discards the draft and leaves the authoritative
// value untouched.
package edit

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/personabolt/personabolt/internal/merge"
)

var (
	ErrNotEditing     = errors.New("no edit in progress")
	ErrAlreadyEditing = errors.New("an edit is already in progress")
	ErrNotAnImage     = errors.New("attachment is not an image")
)

// Editor manages one entity's edit session. Safe for concurrent use.
type Editor[T any] struct {
	mu      sync.Mutex
	draft   T
	editing bool
}

// Begin opens an edit session seeded with a copy of the current value.
func (e *Editor[T]) Begin(current T) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing {
		return ErrAlreadyEditing
	}
	// Deep copy through the merge layer so draft mutations cannot alias the
	// caller's slices.
	draft, err := merge.Apply(current, nil)
	if err != nil {
		return err
	}
	e.draft = draft
	e.editing = true
	return nil
}

// Editing reports whether an edit session is open.
func (e *Editor[T]) Editing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editing
}

// Draft returns the current draft value.
func (e *Editor[T]) Draft() (T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		var zero T
		return zero, ErrNotEditing
	}
	return e.draft, nil
}

// Mutate merges a partial patch into the draft. The authoritative value is
// untouched until Commit.
func (e *Editor[T]) Mutate(patch map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return ErrNotEditing
	}
	updated, err := merge.Apply(e.draft, patch)
	if err != nil {
		return err
	}
	e.draft = updated
	return nil
}

// Commit hands the draft to save and, if save accepts it, closes the session.
// A rejected save keeps the session open so the draft can be corrected.
func (e *Editor[T]) Commit(save func(T) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return ErrNotEditing
	}
	if err := save(e.draft); err != nil {
		return err
	}
	var zero T
	e.draft = zero
	e.editing = false
	return nil
}

// Cancel discards the draft and closes the session. A no-op when no edit is
// in progress.
func (e *Editor[T]) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	var zero T
	e.draft = zero
	e.editing = false
}

// SetListItem replaces one entry of a string-list field on the draft, leaving
// the other entries alone. Out-of-range indexes leave the list unchanged.
func (e *Editor[T]) SetListItem(field string, index int, value string, read func(T) []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return ErrNotEditing
	}
	updated, err := merge.Apply(e.draft, map[string]any{
		field: merge.SetIndex(read(e.draft), index, value),
	})
	if err != nil {
		return err
	}
	e.draft = updated
	return nil
}

// SetListFromText replaces a string-list field wholesale from newline
// delimited text, the way a textarea edits a list. Blank lines are dropped.
func (e *Editor[T]) SetListFromText(field, text string) error {
	return e.Mutate(map[string]any{field: merge.SplitLines(text)})
}

// DataURL encodes raw image bytes as a data URL for inline embedding. Content
// sniffing rejects anything that is not an image.
func DataURL(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrNotAnImage
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotAnImage, contentType)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
