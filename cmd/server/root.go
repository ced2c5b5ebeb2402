package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// newRootCmd returns the Cobra entrypoint. Without a subcommand it serves.
func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:   "server",
		Short: "Twitch EventSub receiver relaying suspicious user messages to Discord",
		Long: "Receives Twitch EventSub webhook calls, authenticates them with the shared secret and " +
			"forwards channel.suspicious_user.message events to a Discord webhook.",
		Example: "  server serve\n" +
			"  server sign --file notification.json\n" +
			"  server user twitchdev",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.AddCommand(serve)
	root.AddCommand(newSignCmd())
	root.AddCommand(newUserCmd())
	return root
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
