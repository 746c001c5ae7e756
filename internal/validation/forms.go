package validation

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"yatube/internal/models"
)

// Field error messages shown next to form inputs.
const (
	MsgRequired      = "Обязательное поле."
	MsgInvalidChoice = "Выберите корректный вариант. Этого варианта нет среди допустимых значений."
)

// PostForm is the editable subset of a post: text, group and image.
type PostForm struct {
	Text    string
	GroupID *uint
}

// NewPostForm trims text and parses the raw group select value. An
// unparsable group is reported as a field error.
func NewPostForm(text, rawGroup string) (PostForm, models.FieldErrors) {
	form := PostForm{Text: strings.TrimSpace(text)}
	errs := models.FieldErrors{}
	groupID, ok := ParseGroupID(rawGroup)
	if !ok {
		errs.Add("group", MsgInvalidChoice)
	}
	form.GroupID = groupID
	return form, errs
}

// Validate reports missing required fields.
func (f PostForm) Validate() models.FieldErrors {
	errs := models.FieldErrors{}
	if strings.TrimSpace(f.Text) == "" {
		errs.Add("text", MsgRequired)
	}
	return errs
}

// ParseGroupID parses an optional group id. Empty means no group.
func ParseGroupID(raw string) (*uint, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		return nil, false
	}
	id := uint(n)
	return &id, true
}

// CommentForm carries the only editable comment field.
type CommentForm struct {
	Text string
}

func (f CommentForm) Validate() models.FieldErrors {
	errs := models.FieldErrors{}
	if strings.TrimSpace(f.Text) == "" {
		errs.Add("text", MsgRequired)
	}
	return errs
}

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// ValidateGroupSlug accepts URL-safe slugs of at most 50 characters.
func ValidateGroupSlug(slug string) error {
	if slug == "" || utf8.RuneCountInString(slug) > 50 || !slugPattern.MatchString(slug) {
		return models.NewValidationError("slug must be 1-50 letters, digits, hyphens or underscores")
	}
	return nil
}

// ValidateGroupTitle requires a non-empty title of at most 200 characters.
func ValidateGroupTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > 200 {
		return models.NewValidationError("title must be 1-200 characters")
	}
	return nil
}
