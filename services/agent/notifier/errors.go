package notifier

import (
	"errors"
	"fmt"
)

// ErrEmptyURL signals that an HTTP channel was configured without an URL
var ErrEmptyURL = errors.New("empty URL")

// ErrNoRecipients signals that the email channel was configured without recipients
var ErrNoRecipients = errors.New("no email recipients")

// ErrEmptySMTPHost signals that the email channel was configured without a SMTP host
var ErrEmptySMTPHost = errors.New("empty SMTP host")

type errStatusNotOK int

func (e errStatusNotOK) Error() string {
	return fmt.Sprintf("channel endpoint returned status %d", int(e))
}
