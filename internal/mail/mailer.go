// Package mail sends outbound email over SMTP. Messages are composed as
// multipart MIME with go-message; a Mailer refuses to send when any
// required SMTP setting is missing.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"

	"github.com/nhle/marketing-pilot/internal/logging"
	"github.com/nhle/marketing-pilot/internal/model"
)

// ErrNotConfigured is returned when a required SMTP setting is missing.
var ErrNotConfigured = errors.New("mail is not configured")

// Config holds the SMTP server settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// ConfigFrom converts the application SMTP section. From falls back to
// the SMTP user, which is what most relays expect.
func ConfigFrom(c model.SMTPConfig) Config {
	from := c.From
	if from == "" {
		from = c.User
	}
	return Config{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.User,
		Password: c.Pass,
		From:     from,
		FromName: c.FromName,
	}
}

// Validate reports every missing required setting at once.
func (c Config) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if c.Port == "" {
		missing = append(missing, "SMTP_PORT")
	}
	if c.Username == "" {
		missing = append(missing, "SMTP_USER")
	}
	if c.Password == "" {
		missing = append(missing, "SMTP_PASS/BREVO_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}

// Message is one outbound email. At least one of Text and HTML must be
// set; when only HTML is given a plain-text part is derived from it.
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text,omitempty"`
	HTML    string   `json:"html,omitempty"`
}

// Validate checks the message before any network activity.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return errors.New("message has no recipients")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("message subject must not be empty")
	}
	if m.Text == "" && m.HTML == "" {
		return errors.New("message body must not be empty")
	}
	return nil
}

// Sender delivers an already composed message.
type Sender func(ctx context.Context, cfg Config, from string, to []string, body []byte) error

// Mailer composes and sends messages with a fixed configuration.
type Mailer struct {
	cfg     Config
	send    Sender
	now     func() time.Time
	archive Archiver
	log     *slog.Logger
}

// Option customizes a Mailer.
type Option func(*Mailer)

// WithSender replaces the SMTP transport.
func WithSender(s Sender) Option {
	return func(m *Mailer) { m.send = s }
}

// WithArchiver files a copy of each sent message. Archive failures are
// logged and do not fail the send.
func WithArchiver(a Archiver) Option {
	return func(m *Mailer) { m.archive = a }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Mailer) { m.log = log }
}

// New returns a Mailer, or ErrNotConfigured if cfg is incomplete.
func New(cfg Config, opts ...Option) (*Mailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Mailer{cfg: cfg, send: sendSMTP, now: time.Now, log: logging.Discard()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Send composes msg and delivers it.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	to, err := parseRecipients(msg.To)
	if err != nil {
		return err
	}

	sentAt := m.now()
	body, err := Compose(m.cfg, msg, sentAt)
	if err != nil {
		return err
	}

	addrs := make([]string, len(to))
	for i, a := range to {
		addrs[i] = a.Address
	}
	if err := m.send(ctx, m.cfg, m.cfg.From, addrs, body); err != nil {
		return fmt.Errorf("sending %q: %w", msg.Subject, err)
	}

	if m.archive != nil {
		if err := m.archive.Archive(ctx, body, sentAt); err != nil {
			m.log.Warn("sent message was not archived", "subject", msg.Subject, "error", err)
		}
	}
	return nil
}

func parseRecipients(raw []string) ([]*gomail.Address, error) {
	out := make([]*gomail.Address, 0, len(raw))
	for _, r := range raw {
		a, err := gomail.ParseAddress(r)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient %q: %w", r, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Compose renders msg as an RFC 5322 message with a multipart/alternative
// body.
func Compose(cfg Config, msg Message, now time.Time) ([]byte, error) {
	to, err := parseRecipients(msg.To)
	if err != nil {
		return nil, err
	}

	var h gomail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*gomail.Address{{Name: cfg.FromName, Address: cfg.From}})
	h.SetAddressList("To", to)
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := gomail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("creating inline writer: %w", err)
	}

	text := msg.Text
	if text == "" {
		text = stripHTML(msg.HTML)
	}
	if err := writePart(tw, "text/plain", text); err != nil {
		return nil, err
	}
	if msg.HTML != "" {
		if err := writePart(tw, "text/html", msg.HTML); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing inline writer: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(tw *gomail.InlineWriter, contentType, body string) error {
	var ph gomail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	ph.Set("Content-Transfer-Encoding", "quoted-printable")

	w, err := tw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("creating %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("writing %s part: %w", contentType, err)
	}
	return w.Close()
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes HTML tags from a string and decodes common
// entities, providing a basic plain-text rendering.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>", "</tr>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
