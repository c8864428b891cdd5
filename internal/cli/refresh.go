package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/megaganjotsingh/GSWebServiceHelper/auth"
)

func newRefreshCmd(root *rootFlags) *cobra.Command {
	var (
		refreshToken string
		accessToken  string
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Renew the stored bearer token",
		Long: `Renew the bearer token held in credentials.file when it expires
within two minutes. --refresh-token seeds the auth state from auth.token_url
and auth.client_id; --token stores an access token and its expiry.

Example:
  gsweb refresh
  gsweb refresh --token eyJhbGciOi... --refresh-token r-123`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStack(root, newLogger(cmd.ErrOrStderr(), root.verbose))
			if err != nil {
				return err
			}

			if accessToken != "" {
				if err := seedToken(s.store, accessToken); err != nil {
					return err
				}
			}

			if refreshToken != "" {
				if s.cfg.Auth.TokenURL == "" {
					return errors.New("auth.token_url is required with --refresh-token")
				}

				state, err := json.Marshal(auth.State{
					TokenURL:     s.cfg.Auth.TokenURL,
					ClientID:     s.cfg.Auth.ClientID,
					RefreshToken: refreshToken,
				})
				if err != nil {
					return fmt.Errorf("encoding auth state: %w", err)
				}
				if err := s.store.SetAuthState(state); err != nil {
					return fmt.Errorf("storing auth state: %w", err)
				}
			}

			outcome, err := s.renewer().Renew(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch outcome {
			case auth.Refreshed:
				fmt.Fprintln(out, okColor("token refreshed"))
			case auth.Fresh:
				fmt.Fprintln(out, okColor("token already fresh"))
			default:
				fmt.Fprintln(out, noticeColor("token renewal %s", outcome))
			}

			if exp, ok := s.store.Expiry(); ok {
				fmt.Fprintf(out, "expires %s\n", exp.Format("2006-01-02 15:04:05 MST"))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token to seed the auth state with")
	cmd.Flags().StringVar(&accessToken, "token", "", "Access token to store before renewing")

	return cmd
}

// seedToken stores token and, when it is a JWT, its expiry.
func seedToken(store auth.Store, token string) error {
	if err := store.SetBearerToken(token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}

	if exp, err := auth.ExpiryFromToken(token); err == nil {
		if err := store.SetExpiry(exp); err != nil {
			return fmt.Errorf("storing expiry: %w", err)
		}
	}

	return nil
}
