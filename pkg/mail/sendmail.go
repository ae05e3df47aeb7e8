package mail

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// SendmailSender pipes messages to a local sendmail binary. The
// recipient list goes on the command line and the encoded message on
// standard input.
type SendmailSender struct {
	Path string

	// Args are extra arguments placed before the recipients.
	Args []string
}

// Send implements Sender.
func (s *SendmailSender) Send(ctx context.Context, m *Message) error {
	msg, err := m.build()
	if err != nil {
		return err
	}

	path := s.Path
	if path == "" {
		path = "/usr/sbin/sendmail"
	}

	args := []string{"-f", m.From, "-i"}
	args = append(args, s.Args...)
	args = append(args, m.To...)
	args = append(args, m.Cc...)
	args = append(args, m.Bcc...)

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode mail: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = &buf
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("sendmail %s: %w: %s", path, err, stderr.String())
	}
	return nil
}
