// Package validation checks user supplied form input before it reaches the
// services.
package validation

import (
	"errors"
	"regexp"
	"unicode"
	"unicode/utf8"
)

var (
	usernamePattern = regexp.MustCompile(`^[\p{L}0-9_.\-]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	digitPattern    = regexp.MustCompile(`[0-9]`)
	specialPattern  = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)
)

// ValidatePassword checks length and character class requirements.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < 12 {
		return errors.New("пароль должен содержать не менее 12 символов")
	}
	if n > 128 {
		return errors.New("пароль должен содержать не более 128 символов")
	}

	var hasUpper, hasLower bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}
	if !hasUpper {
		return errors.New("пароль должен содержать заглавную букву")
	}
	if !hasLower {
		return errors.New("пароль должен содержать строчную букву")
	}
	if !digitPattern.MatchString(password) {
		return errors.New("пароль должен содержать цифру")
	}
	if !specialPattern.MatchString(password) {
		return errors.New("пароль должен содержать спецсимвол (!@#$%^&*)")
	}
	return nil
}

// ValidateUsername allows letters, digits and . _ - with no leading or
// trailing separator.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < 3 {
		return errors.New("имя пользователя должно содержать не менее 3 символов")
	}
	if n > 150 {
		return errors.New("имя пользователя должно содержать не более 150 символов")
	}
	if !usernamePattern.MatchString(username) {
		return errors.New("допустимы только буквы, цифры и символы . _ -")
	}
	first, _ := utf8.DecodeRuneInString(username)
	last, _ := utf8.DecodeLastRuneInString(username)
	if isSeparator(first) || isSeparator(last) {
		return errors.New("имя пользователя не может начинаться или заканчиваться символами . _ -")
	}
	return nil
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == '.'
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return errors.New("адрес электронной почты не может быть длиннее 254 символов")
	}
	if !emailPattern.MatchString(email) {
		return errors.New("введите правильный адрес электронной почты")
	}
	return nil
}
