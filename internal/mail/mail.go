// Package mail delivers HTML messages over authenticated SMTP.
package mail // import "streamlance.app/internal/mail"

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"time"

	gomail "github.com/wneessen/go-mail"

	"streamlance.app/internal/config"
)

type Kind int

const (
	KindTransport Kind = iota
	KindAuth
	KindRecipient
)

func (self Kind) String() string {
	switch self {
	case KindAuth:
		return "auth"
	case KindRecipient:
		return "recipient"
	}
	return "transport"
}

// DeliveryError is returned when a message wasn't accepted by the SMTP
// server.
type DeliveryError struct {
	Kind Kind
	To   string
	Err  error
}

var _ error = (*DeliveryError)(nil)

func (self *DeliveryError) Error() string {
	return fmt.Sprintf("mail: %s failure delivering to %q: %v",
		self.Kind, self.To, self.Err)
}

func (self *DeliveryError) Unwrap() error { return self.Err }

// KindOf returns kind of a delivery error, or KindTransport for any other
// error.
func KindOf(err error) Kind {
	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		return deliveryErr.Kind
	}
	return KindTransport
}

type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration

	// Plain disables STARTTLS and authentication. Only for local relays.
	Plain bool
}

// OptionsFromConfig returns SMTP options of the global configuration.
func OptionsFromConfig(opts *config.Options) Options {
	return Options{
		Host:     opts.SMTPHost(),
		Port:     opts.SMTPPort(),
		Username: opts.SMTPUsername(),
		Password: opts.SMTPPassword(),
		From:     opts.SenderEmail(),
		Timeout:  opts.SMTPTimeout(),
	}
}

func NewSender(opts Options) *Sender { return &Sender{opts: opts} }

// Sender opens a new SMTP session for every message.
type Sender struct {
	opts Options
}

// Send delivers an HTML message to a single recipient. A non-nil error is
// always a *DeliveryError.
func (self *Sender) Send(ctx context.Context, to, subject, htmlBody string,
) error {
	msg, err := self.newMessage(to, subject, htmlBody)
	if err != nil {
		return &DeliveryError{Kind: KindRecipient, To: to, Err: err}
	}

	client, err := self.newClient()
	if err != nil {
		return &DeliveryError{Kind: KindTransport, To: to, Err: err}
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return &DeliveryError{Kind: classify(err), To: to, Err: err}
	}
	return nil
}

func (self *Sender) newMessage(to, subject, htmlBody string,
) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(self.opts.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", self.opts.From, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)
	return msg, nil
}

func (self *Sender) newClient() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(self.opts.Port),
		gomail.WithTimeout(self.opts.Timeout),
	}

	if self.opts.Plain {
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	} else {
		opts = append(opts,
			gomail.WithTLSPolicy(gomail.TLSMandatory),
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(self.opts.Username),
			gomail.WithPassword(self.opts.Password))
	}

	client, err := gomail.NewClient(self.opts.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: create SMTP client: %w", err)
	}
	return client, nil
}

// classify sorts errors returned by the SMTP client. Recipient rejections and
// authentication failures are told apart only for logging.
func classify(err error) Kind {
	var sendErr *gomail.SendError
	if errors.As(err, &sendErr) && sendErr.Reason == gomail.ErrSMTPRcptTo {
		return KindRecipient
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch protoErr.Code {
		case 530, 534, 535:
			return KindAuth
		case 550, 551, 553:
			return KindRecipient
		}
	}
	return KindTransport
}
