// Package mailer provides an SMTP client for sending emails from a preset
// address. When the mail host credentials are missing the client runs
// disabled and drops messages instead of failing startup, which keeps local
// development working without an SMTP server.
package mailer

import (
	"crypto/tls"
	"fmt"
	"net/mail"
	"net/url"

	"github.com/dajohi/goemail"
)

// Client wraps an SMTP connection for outbound mail
type Client struct {
	smtp        *goemail.SMTP
	mailName    string
	mailAddress string
	disabled    bool
}

// IsEnabled returns whether the mail server is enabled
func (c *Client) IsEnabled() bool {
	return !c.disabled
}

// SendTo sends an HTML email to a list of recipient email addresses
func (c *Client) SendTo(subject, body string, recipients []string) error {
	if c.disabled || len(recipients) == 0 {
		return nil
	}

	msg := goemail.NewHTMLMessage(c.mailAddress, subject, body)
	msg.SetName(c.mailName)

	for _, v := range recipients {
		msg.AddTo(v)
	}

	return c.smtp.Send(msg)
}

// New returns a new mail client. Missing credentials yield a disabled client.
func New(host, user, password, emailAddress string, skipVerify bool) (*Client, error) {
	if host == "" || user == "" || password == "" {
		return &Client{
			disabled: true,
		}, nil
	}

	h := fmt.Sprintf("smtps://%v:%v@%v", user, password, host)
	u, err := url.Parse(h)
	if err != nil {
		return nil, err
	}

	a, err := mail.ParseAddress(emailAddress)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: skipVerify,
	}

	smtp, err := goemail.NewSMTP(u.String(), tlsConfig)
	if err != nil {
		return nil, err
	}

	return &Client{
		smtp:        smtp,
		mailName:    a.Name,
		mailAddress: a.Address,
	}, nil
}
