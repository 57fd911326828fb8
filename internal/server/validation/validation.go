// Package validation turns raw request input into immutable drafts the
// services accept. A draft value proves its fields passed validation.
package validation

import (
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
)

const (
	MinPasswordLen = 8
	// MaxPasswordLen is bcrypt's input limit in bytes.
	MaxPasswordLen = 72
	MaxNameLen     = 100
	MaxUserNameLen = 50
	MaxTaskTextLen = 1000
)

// Errors maps field names to reasons. It matches common.ErrValidation via
// errors.Is.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e Errors) Unwrap() error { return common.ErrValidation }

func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

type SignUpDraft struct {
	name     string
	userName string
	email    string
	password string
}

func (d SignUpDraft) Name() string     { return d.name }
func (d SignUpDraft) UserName() string { return d.userName }
func (d SignUpDraft) Email() string    { return d.email }
func (d SignUpDraft) Password() string { return d.password }

type LoginDraft struct {
	email    string
	password string
}

func (d LoginDraft) Email() string    { return d.email }
func (d LoginDraft) Password() string { return d.password }

type TaskDraft struct {
	text string
}

func (d TaskDraft) Text() string { return d.text }

// NewSignUp validates registration input. Name and username are trimmed,
// email is trimmed and lowercased, the password is taken as is.
func NewSignUp(name, userName, email, password string) (SignUpDraft, error) {
	errs := Errors{}

	name = strings.TrimSpace(name)
	switch {
	case name == "":
		errs["name"] = "is required"
	case utf8.RuneCountInString(name) > MaxNameLen:
		errs["name"] = "is too long"
	}

	userName = strings.TrimSpace(userName)
	switch {
	case userName == "":
		errs["username"] = "is required"
	case utf8.RuneCountInString(userName) > MaxUserNameLen:
		errs["username"] = "is too long"
	case strings.ContainsAny(userName, " \t\r\n"):
		errs["username"] = "must not contain spaces"
	}

	email, reason := normalizeEmail(email)
	if reason != "" {
		errs["email"] = reason
	}

	switch {
	case password == "":
		errs["password"] = "is required"
	case len(password) < MinPasswordLen:
		errs["password"] = "must be at least 8 characters"
	case len(password) > MaxPasswordLen:
		errs["password"] = "must be at most 72 bytes"
	}

	if err := errs.orNil(); err != nil {
		return SignUpDraft{}, err
	}
	return SignUpDraft{name: name, userName: userName, email: email, password: password}, nil
}

// NewLogin only checks presence; wrong values are a credentials failure,
// not a validation one.
func NewLogin(email, password string) (LoginDraft, error) {
	errs := Errors{}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		errs["email"] = "is required"
	}
	if password == "" {
		errs["password"] = "is required"
	}

	if err := errs.orNil(); err != nil {
		return LoginDraft{}, err
	}
	return LoginDraft{email: email, password: password}, nil
}

func NewTask(text string) (TaskDraft, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return TaskDraft{}, Errors{"text": "is required"}
	case utf8.RuneCountInString(text) > MaxTaskTextLen:
		return TaskDraft{}, Errors{"text": "is too long"}
	}
	return TaskDraft{text: text}, nil
}

func normalizeEmail(raw string) (string, string) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", "is required"
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", "is not a valid email address"
	}
	return email, ""
}
