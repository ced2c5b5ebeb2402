package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Wissididom/twitch-sus-user-logger/internal/config"
	"github.com/Wissididom/twitch-sus-user-logger/internal/eventsub"
)

func newSignCmd() *cobra.Command {
	var (
		messageID   string
		timestamp   string
		file        string
		secret      string
		messageType string
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print EventSub headers for a request body",
		Long: "Sign a request body with the EventSub secret and print the headers Twitch would send, " +
			"for exercising the endpoint locally.",
		Example: "  server sign --file notification.json\n" +
			"  cat notification.json | server sign --type notification",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				secret = cfg.EventSubSecret
			}
			if secret == "" {
				return errors.New("EVENTSUB_SECRET or --secret is required")
			}

			body, err := readBody(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			if len(body) == 0 {
				return errors.New("body is empty")
			}

			if messageID == "" {
				messageID = uuid.NewString()
			}
			if timestamp == "" {
				timestamp = time.Now().UTC().Format(time.RFC3339Nano)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", eventsub.HeaderMessageID, messageID)
			fmt.Fprintf(out, "%s: %s\n", eventsub.HeaderMessageTimestamp, timestamp)
			fmt.Fprintf(out, "%s: %s\n", eventsub.HeaderMessageSignature, eventsub.Sign(messageID, timestamp, body, secret))
			fmt.Fprintf(out, "%s: %s\n", eventsub.HeaderMessageType, messageType)
			return nil
		},
	}
	cmd.Flags().StringVar(&messageID, "id", "", "Message ID (random when empty)")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "Message timestamp (now when empty)")
	cmd.Flags().StringVar(&file, "file", "-", "Body file, - for stdin")
	cmd.Flags().StringVar(&secret, "secret", "", "EventSub secret (defaults to EVENTSUB_SECRET)")
	cmd.Flags().StringVar(&messageType, "type", eventsub.MessageTypeNotification, "Message type header value")
	return cmd
}

// readBody returns the exact bytes to sign. No trailing newline is trimmed.
func readBody(stdin io.Reader, file string) ([]byte, error) {
	if file == "-" {
		body, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return body, nil
	}
	body, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}
