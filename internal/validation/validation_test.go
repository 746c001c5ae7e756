package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "SecurePass12!@", false},
		{"Exactly Min Length", "Abcdefghij1!", false},
		{"Exactly Max Length", "A" + strings.Repeat("b", 125) + "1!", false},
		{"Too Short", "Small1!", true},
		{"Too Long", "A" + strings.Repeat("b", 126) + "1!", true},
		{"No Upper", "securepass12!", true},
		{"No Lower", "SECUREPASS12!", true},
		{"No Digit", "SecurePass!!", true},
		{"No Special", "SecurePass123", true},
		{"Cyrillic", "ПарольНадежный1!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "test_user123", false},
		{"Dotted", "leo.tolstoy", false},
		{"Cyrillic", "лев", false},
		{"Too Short", "tu", true},
		{"Illegal Chars", "user@123", true},
		{"Starts Dash", "-user", true},
		{"Ends Underscore", "user_", true},
		{"Too Long", strings.Repeat("a", 151), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	emailAt254 := strings.Repeat("a", 64) + "@" + strings.Repeat("b", 185) + ".com"
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "test@example.com", false},
		{"Exactly 254 Characters", emailAt254, false},
		{"Too Long", "a" + emailAt254, true},
		{"Invalid Format", "not-an-email", true},
		{"Missing Domain", "user@", true},
		{"Multiple At Symbols", "user@@example.com", true},
		{"Trailing Dot In Domain", "user@example.com.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostForm(t *testing.T) {
	form, errs := NewPostForm("   ", "")
	assert.Empty(t, errs)
	assert.Nil(t, form.GroupID)
	assert.Equal(t, MsgRequired, form.Validate()["text"])

	form, errs = NewPostForm("  hello  ", "7")
	assert.Empty(t, errs)
	assert.Empty(t, form.Validate())
	assert.Equal(t, "hello", form.Text)
	require.NotNil(t, form.GroupID)
	assert.Equal(t, uint(7), *form.GroupID)

	_, errs = NewPostForm("x", "abc")
	assert.Equal(t, MsgInvalidChoice, errs["group"])
	_, errs = NewPostForm("x", "0")
	assert.Contains(t, errs, "group")
}

func TestCommentForm(t *testing.T) {
	assert.Contains(t, CommentForm{Text: "\n\t"}.Validate(), "text")
	assert.Empty(t, CommentForm{Text: "nice"}.Validate())
}

func TestValidateGroupSlug(t *testing.T) {
	assert.NoError(t, ValidateGroupSlug("cats_and-dogs2"))
	assert.Error(t, ValidateGroupSlug(""))
	assert.Error(t, ValidateGroupSlug("with space"))
	assert.Error(t, ValidateGroupSlug(strings.Repeat("a", 51)))

	assert.NoError(t, ValidateGroupTitle("Cats"))
	assert.Error(t, ValidateGroupTitle("  "))
}
