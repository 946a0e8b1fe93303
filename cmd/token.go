/*
Copyright © 2025 Ambor <saltbo@foxmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/infrastructure/config"
	"github.com/eslsoft/vocsync/internal/infrastructure/identity"
)

const (
	tokenTTLKey        = "identity.token_ttl"
	identitySigningKey = "identity.signing_key"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed session token for the configured user",
	Long: `Issue a signed session token for the user given by --user-id, --email and
--name. Pass the printed token with --token (or IDENTITY_TOKEN) to later
commands that share the same signing key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		token, err := issueToken(cfg.Identity, viper.GetDuration(tokenTTLKey))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime; 0 issues a token without expiry")
	tokenCmd.Flags().String("signing-key", "", "HMAC key used to sign the token")
	bindFlagToViper(tokenTTLKey, tokenCmd.Flags().Lookup("ttl"))
	bindFlagToViper(identitySigningKey, tokenCmd.Flags().Lookup("signing-key"))
}

// issueToken signs the static identity fields of cfg.
func issueToken(cfg config.IdentityConfig, ttl time.Duration) (string, error) {
	if strings.TrimSpace(cfg.SigningKey) == "" {
		return "", fmt.Errorf("%w: identity.signing_key is required", entity.ErrInvalidInput)
	}
	user := identity.User{ID: cfg.UserID, Email: cfg.Email, DisplayName: cfg.DisplayName}
	return identity.NewSigner(cfg.SigningKey).Issue(user, ttl)
}
