package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"streamlance.app/internal/config"
	"streamlance.app/internal/mail"
	"streamlance.app/internal/notify"
	"streamlance.app/internal/storage"
)

var errNoMailer = errors.New(
	"SMTP is not configured: set SMTP_USERNAME, SMTP_PASSWORD and SENDER_EMAIL")

var dispatchCmd = cobra.Command{
	Use:   "dispatch",
	Short: "Mail every subscriber a digest of new matching gigs",
	Args:  cobra.ExactArgs(0),

	RunE: func(cmd *cobra.Command, args []string) error {
		if !config.Opts.HasMailer() {
			return errNoMailer
		}

		return withStorage(
			func(ctx context.Context, store *storage.Storage) error {
				result, err := newDispatcher(store).Dispatch(ctx, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"recipients: %d, notified: %d, failed: %d, sent: %d\n",
					result.Recipients, result.Notified, result.Failed, result.Sent)
				return nil
			})
	},
}

func newDispatcher(store notify.Store) *notify.Dispatcher {
	return notify.New(store,
		mail.NewSender(mail.OptionsFromConfig(config.Opts)),
		notify.WithLookback(config.Opts.NotificationLookback()),
		notify.WithRateLimit(config.Opts.MailRateLimit()))
}
