package mailer

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/wneessen/go-mail"
)

const defaultSMTPPort = 587

// SMTPConfig holds connection parameters for the SMTP transport, resolved
// from a connection string at startup.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLS is mandatory for any host that is not a loopback/development host.
	TLS bool
}

// ParseDSN resolves a connection string of the form
// smtp://[user[:password]@]host[:port] into an SMTPConfig.
// The smtps scheme forces TLS regardless of host.
func ParseDSN(dsn string) (SMTPConfig, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return SMTPConfig{}, fmt.Errorf("parsing SMTP connection string: %w", err)
	}
	if u.Scheme != "smtp" && u.Scheme != "smtps" {
		return SMTPConfig{}, fmt.Errorf("unsupported SMTP scheme %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return SMTPConfig{}, fmt.Errorf("SMTP connection string %q has no host", dsn)
	}

	port := defaultSMTPPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return SMTPConfig{}, fmt.Errorf("invalid SMTP port %q: %w", p, err)
		}
	}

	cfg := SMTPConfig{
		Host: host,
		Port: port,
		TLS:  u.Scheme == "smtps" || !isDevelopmentHost(host),
	}
	if u.User != nil {
		cfg.Username = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}
	return cfg, nil
}

// isDevelopmentHost reports whether the host is a loopback or well-known
// local mail catcher, where plaintext SMTP is acceptable.
func isDevelopmentHost(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	switch host {
	case "localhost", "mailhog", "mailpit":
		return true
	}
	return false
}

// SMTPTransport delivers transmissions over SMTP using the go-mail library.
// The configuration is immutable after construction, so a single transport
// may be shared by any number of concurrent senders.
type SMTPTransport struct {
	config SMTPConfig
}

// NewSMTPTransport creates an SMTPTransport from the given connection string.
func NewSMTPTransport(dsn string) (*SMTPTransport, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return &SMTPTransport{config: cfg}, nil
}

// Endpoint returns the host:port the transport connects to.
func (t *SMTPTransport) Endpoint() string {
	return net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))
}

// Send delivers tr using the configured SMTP server.
func (t *SMTPTransport) Send(ctx context.Context, tr Transmission) error {
	if tr.To == "" {
		return fmt.Errorf("transmission has no recipient")
	}
	if tr.From == "" {
		return fmt.Errorf("transmission has no sender address")
	}

	m := mail.NewMsg()
	if err := m.From(tr.From); err != nil {
		return fmt.Errorf("invalid from address %q: %w", tr.From, err)
	}
	if err := m.To(tr.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", tr.To, err)
	}
	m.Subject(tr.Subject)

	contentType := mail.TypeTextPlain
	if tr.HTML {
		contentType = mail.TypeTextHTML
	}
	m.SetBodyString(contentType, tr.Body)

	opts := []mail.Option{
		mail.WithPort(t.config.Port),
		mail.WithTLSPolicy(t.tlsPolicy()),
	}
	if t.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.config.Username),
			mail.WithPassword(t.config.Password),
		)
	}

	c, err := mail.NewClient(t.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	return c.DialAndSendWithContext(ctx, m)
}

func (t *SMTPTransport) tlsPolicy() mail.TLSPolicy {
	if t.config.TLS {
		return mail.TLSMandatory
	}
	return mail.NoTLS
}
