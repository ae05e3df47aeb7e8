package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/refgate/refgate/pkg/config"
	"github.com/refgate/refgate/pkg/mail"
)

var deliverCmd = &cobra.Command{
	Use:    "deliver",
	Short:  "Deliver spooled notification emails",
	Args:   cobra.NoArgs,
	Hidden: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)
		logger := log.FromContext(ctx)

		sender, err := mail.NewSender(&cfg.Mail)
		if err != nil {
			return err
		}
		if err := mail.DeliverSpool(ctx, sender, cfg.DataPath); err != nil {
			logger.Error("deliver spool", "err", err)
			return err
		}
		return nil
	},
}
