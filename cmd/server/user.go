package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Wissididom/twitch-sus-user-logger/internal/config"
	"github.com/Wissididom/twitch-sus-user-logger/internal/twitch"
)

func newUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user <login>",
		Short: "Look up a Twitch user's ID",
		Long: "Resolve a login with an app access token, for filling in broadcaster and moderator IDs " +
			"of an EventSub subscription condition.",
		Example: "  server user twitchdev",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			creds := cfg.TwitchCredentials()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			return lookupUser(ctx, cmd, twitch.NewAppTokens(creds), twitch.NewClient(creds.ClientID, 10*time.Second), args[0])
		},
	}
}

type appTokenSource interface {
	Token(ctx context.Context) (string, error)
}

type userGetter interface {
	GetUser(ctx context.Context, accessToken, login string) (*twitch.User, error)
}

func lookupUser(ctx context.Context, cmd *cobra.Command, tokens appTokenSource, users userGetter, login string) error {
	token, err := tokens.Token(ctx)
	if err != nil {
		return err
	}
	user, err := users.GetUser(ctx, token, login)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", login, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "id:           %s\nlogin:        %s\ndisplay_name: %s\n", user.ID, user.Login, user.DisplayName)
	return nil
}
