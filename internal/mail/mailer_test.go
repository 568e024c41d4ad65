package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/marketing-pilot/internal/logging"
	"github.com/nhle/marketing-pilot/internal/model"
)

func testConfig() Config {
	return Config{
		Host:     "smtp.example.com",
		Port:     "587",
		Username: "relay-user",
		Password: "relay-pass",
		From:     "pilot@example.com",
		FromName: "Marketing Pilot",
	}
}

func TestConfigValidate_ListsMissing(t *testing.T) {
	err := Config{Host: "smtp.example.com"}.Validate()
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Contains(t, err.Error(), "SMTP_PORT")
	assert.Contains(t, err.Error(), "SMTP_USER")
	assert.Contains(t, err.Error(), "SMTP_PASS")
	assert.NotContains(t, err.Error(), "SMTP_HOST")
}

func TestConfigFrom_FallsBackToUser(t *testing.T) {
	cfg := ConfigFrom(model.SMTPConfig{Host: "h", Port: "25", User: "me@example.com", Pass: "p"})
	assert.Equal(t, "me@example.com", cfg.From)
	require.NoError(t, cfg.Validate())
}

func TestNew_FailsClosed(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCompose_MultipartAlternative(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	msg := Message{
		To:      []string{"Ana <ana@example.com>"},
		Subject: "Weekly report",
		HTML:    "<p>Tasks completed: <b>3</b></p>",
	}

	raw, err := Compose(testConfig(), msg, now)
	require.NoError(t, err)

	r, err := gomail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := r.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Weekly report", subject)

	to, err := r.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "ana@example.com", to[0].Address)

	date, err := r.Header.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(now))

	bodies := map[string]string{}
	for {
		p, err := r.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		h, ok := p.Header.(*gomail.InlineHeader)
		require.True(t, ok)
		ct, _, err := h.ContentType()
		require.NoError(t, err)
		b, err := io.ReadAll(p.Body)
		require.NoError(t, err)
		bodies[ct] = string(b)
	}

	assert.Equal(t, "Tasks completed: 3", bodies["text/plain"])
	assert.Equal(t, msg.HTML, bodies["text/html"])
}

func TestSend_UsesSender(t *testing.T) {
	var gotFrom string
	var gotTo []string
	var gotBody []byte
	m, err := New(testConfig(), WithSender(func(_ context.Context, _ Config, from string, to []string, body []byte) error {
		gotFrom, gotTo, gotBody = from, to, body
		return nil
	}))
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{
		To:      []string{"Ana <ana@example.com>", "bo@example.com"},
		Subject: "Hello",
		Text:    "plain body",
	})
	require.NoError(t, err)

	assert.Equal(t, "pilot@example.com", gotFrom)
	assert.Equal(t, []string{"ana@example.com", "bo@example.com"}, gotTo)
	assert.Contains(t, string(gotBody), "plain body")
}

func TestSend_RejectsInvalidMessage(t *testing.T) {
	called := false
	m, err := New(testConfig(), WithSender(func(context.Context, Config, string, []string, []byte) error {
		called = true
		return nil
	}))
	require.NoError(t, err)

	tests := []struct {
		name string
		msg  Message
	}{
		{"no recipients", Message{Subject: "s", Text: "t"}},
		{"no subject", Message{To: []string{"a@example.com"}, Text: "t"}},
		{"no body", Message{To: []string{"a@example.com"}, Subject: "s"}},
		{"bad address", Message{To: []string{"not an address"}, Subject: "s", Text: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, m.Send(context.Background(), tt.msg))
		})
	}
	assert.False(t, called)
}

func TestSend_WrapsTransportError(t *testing.T) {
	boom := errors.New("relay down")
	m, err := New(testConfig(), WithSender(func(context.Context, Config, string, []string, []byte) error {
		return boom
	}))
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s", Text: "t"})
	assert.ErrorIs(t, err, boom)
}

type recordingArchiver struct {
	raw    []byte
	sentAt time.Time
	err    error
}

func (a *recordingArchiver) Archive(_ context.Context, raw []byte, sentAt time.Time) error {
	a.raw, a.sentAt = raw, sentAt
	return a.err
}

func TestSend_ArchivesSentMessage(t *testing.T) {
	at := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	var sent []byte
	arch := &recordingArchiver{}
	m, err := New(testConfig(),
		WithSender(func(_ context.Context, _ Config, _ string, _ []string, body []byte) error {
			sent = body
			return nil
		}),
		WithArchiver(arch),
	)
	require.NoError(t, err)
	m.now = func() time.Time { return at }

	require.NoError(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s", Text: "t"}))
	assert.Equal(t, sent, arch.raw, "the archived copy is the delivered message")
	assert.Equal(t, at, arch.sentAt)
}

func TestSend_ArchiveFailureDoesNotFailSend(t *testing.T) {
	var logs bytes.Buffer
	m, err := New(testConfig(),
		WithSender(func(context.Context, Config, string, []string, []byte) error { return nil }),
		WithArchiver(&recordingArchiver{err: errors.New("imap login failed")}),
		WithLogger(logging.New(&logs, "debug", "text")),
	)
	require.NoError(t, err)

	require.NoError(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s", Text: "t"}))
	assert.Contains(t, logs.String(), "imap login failed")
}

func TestSend_NoArchiveWhenSendFails(t *testing.T) {
	arch := &recordingArchiver{}
	m, err := New(testConfig(),
		WithSender(func(context.Context, Config, string, []string, []byte) error { return errors.New("relay down") }),
		WithArchiver(arch),
	)
	require.NoError(t, err)

	assert.Error(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s", Text: "t"}))
	assert.Nil(t, arch.raw)
}

func TestNewIMAPArchiver_DefaultFolder(t *testing.T) {
	assert.Equal(t, "Sent", NewIMAPArchiver("imap.example.com", "993", "u", "p", "").folder)
	assert.Equal(t, "Archive", NewIMAPArchiver("imap.example.com", "993", "u", "p", "Archive").folder)
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"tags", "<p>Hello <b>world</b></p>", "Hello world"},
		{"breaks", "a<br>b<br/>c", "a\nb\nc"},
		{"entities", "Tom &amp; Jerry &lt;3", "Tom & Jerry <3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripHTML(tt.in))
		})
	}
}
