package backend

import (
	"context"
	"fmt"

	"github.com/refgate/refgate/pkg/audit"
	"github.com/refgate/refgate/pkg/config"
	"github.com/refgate/refgate/pkg/gate"
	"github.com/refgate/refgate/pkg/mail"
	"github.com/refgate/refgate/pkg/webhook"
)

// notify produces every outward effect of one accepted reference
// update: the reference email, the per-commit emails, the webhook
// events, and the audit records.
func (b *Backend) notify(ctx context.Context, s *session, rc gate.RefChange) error {
	u, cs, err := s.gate.Describe(ctx, rc)
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}

	var refUpdateID string
	if b.store != nil {
		refUpdateID, err = b.store.RecordRefUpdate(ctx, &audit.RefUpdate{
			Repo:    s.env.RepoName,
			RefName: u.RefName,
			OldRev:  u.OldRev.String(),
			NewRev:  u.NewRev.String(),
			RefKind: u.Kind.String(),
			Pusher:  pusher(),
		})
		if err != nil {
			b.logger.Error("audit", "ref", u.RefName, "err", err)
		}
	}

	msgs, err := b.buildEmails(ctx, s, u, cs)
	if err != nil {
		return err
	}
	if err := b.deliverEmails(ctx, msgs, refUpdateID); err != nil {
		return err
	}

	b.sendWebhooks(ctx, s, u, cs, refUpdateID)
	return nil
}

// buildEmails renders the reference email and the per-commit emails
// for one update. It returns nothing when the reference has email
// notification disabled.
func (b *Backend) buildEmails(ctx context.Context, s *session, u *gate.Update, cs *gate.ChangeSet) ([]*mail.Message, error) {
	noEmails, err := s.gate.NoEmails(u.RefName)
	if err != nil {
		return nil, err
	}
	if noEmails {
		return nil, nil
	}

	opts := s.gate.Options()
	recipients := opts.List("mailing-list")
	if len(recipients) == 0 {
		return nil, nil
	}

	from := opts.String("email-from")
	if from == "" {
		from = b.cfg.Mail.From
	}
	if from == "" {
		from = "refgate@localhost"
	}

	headers := map[string]string{
		"X-Git-Refname": u.RefName,
		"X-Git-Oldrev":  u.OldRev.String(),
		"X-Git-Newrev":  u.NewRev.String(),
	}

	subject, body, err := s.gate.EmailContents(ctx, u, cs)
	if err != nil {
		return nil, err
	}

	msgs := []*mail.Message{{
		From:    from,
		To:      recipients,
		Subject: subject,
		Body:    body,
		Headers: headers,
	}}

	// One email per commit new to the repository, oldest first,
	// capped by the same ceiling the pre-receive check enforces.
	limit := opts.Int("max-commit-emails")
	for i, c := range cs.NewCommits() {
		if limit > 0 && i >= limit {
			break
		}
		show, err := s.repo.Show(c.ID)
		if err != nil {
			return nil, fmt.Errorf("show commit %s: %w", c.ID, err)
		}
		msgs = append(msgs, &mail.Message{
			From:    from,
			To:      recipients,
			Subject: fmt.Sprintf("[%s/%s] %s", s.env.RepoName, u.ShortRef(), c.Subject),
			Body:    string(show),
			Headers: map[string]string{
				"X-Git-Refname": u.RefName,
				"X-Git-Commit":  c.ID,
			},
		})
	}

	return msgs, nil
}

// deliverEmails hands the messages to the configured delivery path,
// either spooled for the detached delivery process or sent inline.
func (b *Backend) deliverEmails(ctx context.Context, msgs []*mail.Message, refUpdateID string) error {
	if len(msgs) == 0 {
		return nil
	}

	if b.cfg.Mail.Async {
		if err := mail.Spool(b.cfg.DataPath, msgs); err != nil {
			return err
		}
		if err := mail.Detach(config.BinPath(), b.cfg.Environ()); err != nil {
			return err
		}
		return nil
	}

	for _, m := range msgs {
		err := b.sender.Send(ctx, m)
		if err != nil {
			b.logger.Error("send mail", "subject", m.Subject, "err", err)
		}
		b.recordDelivery(ctx, refUpdateID, audit.DeliveryEmail, m.Subject, err)
	}
	return nil
}

// sendWebhooks fires the push event at every configured endpoint.
func (b *Backend) sendWebhooks(ctx context.Context, s *session, u *gate.Update, cs *gate.ChangeSet, refUpdateID string) {
	if len(b.cfg.Webhook.URLs) == 0 {
		return
	}

	payload := webhook.NewPushEvent(s.env.RepoName, pusher(), u, cs)
	for _, res := range webhook.SendEvent(ctx, &b.cfg.Webhook, webhook.EventPush, payload) {
		if res.Err != nil {
			b.logger.Error("webhook", "url", res.URL, "err", res.Err)
		} else if !res.Success() {
			b.logger.Error("webhook", "url", res.URL, "status", res.Status)
		}
		var err error
		if !res.Success() {
			err = fmt.Errorf("status %d: %v", res.Status, res.Err)
		}
		b.recordDelivery(ctx, refUpdateID, audit.DeliveryWebhook, res.URL, err)
	}
}

func (b *Backend) recordDelivery(ctx context.Context, refUpdateID, kind, destination string, derr error) {
	if b.store == nil || refUpdateID == "" {
		return
	}
	detail := ""
	if derr != nil {
		detail = derr.Error()
	}
	if err := b.store.RecordDelivery(ctx, &audit.Delivery{
		RefUpdateID: refUpdateID,
		Kind:        kind,
		Destination: destination,
		Success:     derr == nil,
		Detail:      detail,
	}); err != nil {
		b.logger.Error("audit", "delivery", destination, "err", err)
	}
}
