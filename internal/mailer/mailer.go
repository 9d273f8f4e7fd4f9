// Package mailer is the outbound mail collaborator: it accepts a message
// envelope and reports success or failure. The notifier treats it as a black
// box.
package mailer

import "context"

// Message is the envelope handed to the mail transport.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends a single message. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}
