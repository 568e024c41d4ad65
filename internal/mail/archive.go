package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// Archiver files a copy of every sent message.
type Archiver interface {
	Archive(ctx context.Context, raw []byte, sentAt time.Time) error
}

// IMAPArchiver appends sent messages to a mailbox folder over IMAP.
type IMAPArchiver struct {
	host     string
	port     string
	username string
	password string
	folder   string
}

// NewIMAPArchiver returns an archiver for folder. Port 993 uses implicit
// TLS; any other port uses STARTTLS.
func NewIMAPArchiver(host, port, username, password, folder string) *IMAPArchiver {
	if folder == "" {
		folder = "Sent"
	}
	return &IMAPArchiver{
		host:     host,
		port:     port,
		username: username,
		password: password,
		folder:   folder,
	}
}

// connect dials and authenticates. The caller must log out.
func (a *IMAPArchiver) connect() (*imapclient.Client, error) {
	addr := a.host + ":" + a.port

	var client *imapclient.Client
	var err error
	if a.port == "993" {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(a.username, a.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("IMAP login for %s: %w", a.username, err)
	}
	return client, nil
}

// Archive appends raw to the folder, flagged as seen.
func (a *IMAPArchiver) Archive(ctx context.Context, raw []byte, sentAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client, err := a.connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	cmd := client.Append(a.folder, int64(len(raw)), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagSeen},
		Time:  sentAt,
	})
	if _, err := cmd.Write(raw); err != nil {
		_ = cmd.Close()
		return fmt.Errorf("writing message to %s: %w", a.folder, err)
	}
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("closing append to %s: %w", a.folder, err)
	}
	if _, err := cmd.Wait(); err != nil {
		return fmt.Errorf("appending to %s: %w", a.folder, err)
	}
	return nil
}
