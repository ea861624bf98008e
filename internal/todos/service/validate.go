package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	maxEmailLen    = 254
	maxPasswordLen = 128
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateUsername(fe fieldErrors, username string) {
	n := utf8.RuneCountInString(username)
	switch {
	case n == 0:
		fe.add("username", "is required")
	case n < minUsernameLen || n > maxUsernameLen:
		fe.add("username", "must be between 3 and 50 characters")
	case strings.ContainsFunc(username, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '_' || r == '-')
	}):
		fe.add("username", "may only contain letters, digits, '.', '_' and '-'")
	}
}

func validateEmail(fe fieldErrors, email string) {
	if email == "" {
		fe.add("email", "is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || len(email) > maxEmailLen {
		fe.add("email", "must be a valid email address")
	}
}

func validatePassword(fe fieldErrors, password string) {
	n := utf8.RuneCountInString(password)
	switch {
	case n == 0:
		fe.add("password", "is required")
	case n > maxPasswordLen:
		fe.add("password", "must be at most 128 characters")
	}
}

func validateTodo(fe fieldErrors, t domain.Todo) {
	switch n := utf8.RuneCountInString(t.Title); {
	case strings.TrimSpace(t.Title) == "":
		fe.add("title", "is required")
	case n > domain.MaxTodoTitleLen:
		fe.add("title", "must be at most 100 characters")
	}
	if utf8.RuneCountInString(t.Description) > domain.MaxTodoDescriptionLen {
		fe.add("description", "must be at most 500 characters")
	}
}
