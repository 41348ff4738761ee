// Package contact holds the contact form and its simulated delivery.
package contact

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultDelay is how long a simulated submission takes.
const DefaultDelay = 2 * time.Second

var ErrRejected = errors.New("contact: message could not be sent")

// Form is the contact form. Fields are set through named setters only.
type Form struct {
	name    string
	email   string
	message string
}

func (f *Form) SetName(v string)    { f.name = strings.TrimSpace(v) }
func (f *Form) SetEmail(v string)   { f.email = strings.TrimSpace(v) }
func (f *Form) SetMessage(v string) { f.message = strings.TrimSpace(v) }

func (f Form) Name() string    { return f.name }
func (f Form) Email() string   { return f.email }
func (f Form) Message() string { return f.message }

// Reset clears every field.
func (f *Form) Reset() { *f = Form{} }

// Empty reports whether every field is blank.
func (f Form) Empty() bool {
	return f.name == "" && f.email == "" && f.message == ""
}

// Notification is the toast shown after a submission.
type Notification struct {
	Title       string
	Description string
}

// Submitter delivers a filled-in form.
type Submitter interface {
	Submit(ctx context.Context, f Form) (Notification, error)
}

// Simulated pretends to send the form: it waits Delay and succeeds unless
// Fail says otherwise. It never touches the network.
type Simulated struct {
	Delay time.Duration
	Fail  func(Form) bool
}

func (s Simulated) Submit(ctx context.Context, f Form) (Notification, error) {
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Notification{}, ctx.Err()
	case <-timer.C:
	}
	if s.Fail != nil && s.Fail(f) {
		return Notification{}, ErrRejected
	}
	return Notification{
		Title:       "Message sent! ✨",
		Description: "Thanks for reaching out. I'll get back to you soon!",
	}, nil
}
