package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
)

// SpoolDir returns the spool directory under the data path.
func SpoolDir(dataPath string) string {
	return filepath.Join(dataPath, "spool")
}

// Spool writes the messages to the spool directory, one file per
// message. Spooled messages are picked up by a detached delivery
// process so the pusher's terminal is released immediately.
func Spool(dataPath string, msgs []*Message) error {
	dir := SpoolDir(dataPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create spool directory: %w", err)
	}
	for _, m := range msgs {
		bts, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode spooled mail: %w", err)
		}
		path := filepath.Join(dir, uuid.New().String()+".json")
		// Write then rename so the delivery process never reads a
		// partial file.
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, bts, 0o600); err != nil {
			return fmt.Errorf("write spooled mail: %w", err)
		}
		if err := os.Rename(tmp, path); err != nil {
			return fmt.Errorf("write spooled mail: %w", err)
		}
	}
	return nil
}

// Detach starts the delivery subcommand in its own session and
// returns without waiting for it.
func Detach(binPath string, environ []string) error {
	cmd := exec.Command(binPath, "deliver")
	cmd.Env = environ
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start delivery process: %w", err)
	}
	// The delivery process is deliberately not reaped here; it
	// reparents to init when this process exits.
	return cmd.Process.Release()
}

// DeliverSpool sends every spooled message and removes the files that
// were delivered. Undeliverable messages stay spooled for the next
// run.
func DeliverSpool(ctx context.Context, sender Sender, dataPath string) error {
	dir := SpoolDir(dataPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read spool directory: %w", err)
	}

	var firstErr error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		bts, err := os.ReadFile(path)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		var m Message
		if err := json.Unmarshal(bts, &m); err != nil {
			// A corrupt spool file would block the queue forever.
			_ = os.Remove(path)
			if firstErr == nil {
				firstErr = fmt.Errorf("corrupt spool file %s: %w", e.Name(), err)
			}
			continue
		}
		if err := sender.Send(ctx, &m); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		_ = os.Remove(path)
	}
	return firstErr
}
