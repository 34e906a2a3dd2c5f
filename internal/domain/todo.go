package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
	maxPriority          = 5
	maxTagLength         = 30
	maxTagCount          = 20
)

// Todo is the task entity. It is a value object: every mutation returns a
// fresh, re-validated copy and the original is left untouched. ID 0 means
// the todo has not been persisted yet; the storage layer assigns the ID on
// first save.
type Todo struct {
	ID          int64
	Title       string
	Description string
	IsDone      bool
	Priority    int
	DueDate     *time.Time
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpdateParams carries a partial update. Nil fields are left unchanged,
// which is how "not provided" is told apart from an explicit value.
// A nil Tags slice means unchanged; an empty non-nil slice clears all tags.
type UpdateParams struct {
	Title       *string
	Description *string
	IsDone      *bool
	Priority    *int
	DueDate     *time.Time
	Tags        []string
	UpdatedAt   *time.Time
}

// NewTodo creates a new unpersisted todo with validation.
func NewTodo(title, description string, priority int, dueDate *time.Time, tags []string) (Todo, error) {
	now := time.Now().UTC()

	t := Todo{
		Title:       title,
		Description: description,
		IsDone:      false,
		Priority:    priority,
		DueDate:     dueDate,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := t.validate(); err != nil {
		return Todo{}, err
	}

	return t, nil
}

// Update overlays the supplied fields onto the current values and returns a
// new validated instance. UpdatedAt advances to now unless the caller
// supplies one. ID and CreatedAt never change.
func (t Todo) Update(p UpdateParams) (Todo, error) {
	next := t
	next.Tags = append([]string(nil), t.Tags...)

	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.IsDone != nil {
		next.IsDone = *p.IsDone
	}
	if p.Priority != nil {
		next.Priority = *p.Priority
	}
	if p.DueDate != nil {
		next.DueDate = p.DueDate
	}
	if p.Tags != nil {
		next.Tags = append([]string(nil), p.Tags...)
	}

	if p.UpdatedAt != nil {
		next.UpdatedAt = *p.UpdatedAt
	} else {
		next.UpdatedAt = time.Now().UTC()
	}

	if err := next.validate(); err != nil {
		return Todo{}, err
	}

	return next, nil
}

// MarkAsDone returns a copy with IsDone set. Idempotent.
func (t Todo) MarkAsDone() (Todo, error) {
	done := true
	return t.Update(UpdateParams{IsDone: &done})
}

// MarkAsUndone returns a copy with IsDone cleared. Idempotent.
func (t Todo) MarkAsUndone() (Todo, error) {
	done := false
	return t.Update(UpdateParams{IsDone: &done})
}

// AddTag returns a copy with the normalized tag appended. Adding a tag that
// is already present (after normalization) is a no-op apart from UpdatedAt.
func (t Todo) AddTag(tag string) (Todo, error) {
	tags := append(append([]string(nil), t.Tags...), tag)
	return t.Update(UpdateParams{Tags: tags})
}

// RemoveTag returns a copy without the given tag. Removing an absent tag is
// not an error.
func (t Todo) RemoveTag(tag string) (Todo, error) {
	normalized := strings.ToLower(strings.TrimSpace(tag))

	tags := make([]string, 0, len(t.Tags))
	for _, existing := range t.Tags {
		if existing != normalized {
			tags = append(tags, existing)
		}
	}

	return t.Update(UpdateParams{Tags: tags})
}

// HasTag reports whether the todo carries the given tag after normalization.
func (t Todo) HasTag(tag string) bool {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	for _, existing := range t.Tags {
		if existing == normalized {
			return true
		}
	}
	return false
}

// validate enforces every entity invariant and normalizes title and tags in
// place. Construction and Update are the only callers, so no invalid Todo
// can escape the package boundary unless a caller builds the struct by hand.
func (t *Todo) validate() error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(t.Title) > maxTitleLength {
		return ErrTitleTooLong
	}

	if utf8.RuneCountInString(t.Description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}

	if t.Priority < 0 || t.Priority > maxPriority {
		return ErrInvalidPriority
	}

	normalized, err := NormalizeTags(t.Tags)
	if err != nil {
		return err
	}
	t.Tags = normalized

	// Only a previously persisted todo has a created_at worth comparing
	// against; a brand-new one is allowed any due date.
	if t.DueDate != nil && t.ID != 0 && !t.CreatedAt.IsZero() && t.DueDate.Before(t.CreatedAt) {
		return ErrDueBeforeCreated
	}

	return nil
}

// NormalizeTags trims, lower-cases and de-duplicates tags, dropping entries
// that are empty after trimming. First-occurrence order is preserved. A tag
// longer than 30 characters or a result of more than 20 tags is rejected.
func NormalizeTags(tags []string) ([]string, error) {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		tag = strings.ToLower(tag)
		if utf8.RuneCountInString(tag) > maxTagLength {
			return nil, ErrTagTooLong
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}

	if len(normalized) > maxTagCount {
		return nil, ErrTooManyTags
	}

	return normalized, nil
}
