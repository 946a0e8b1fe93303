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
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eslsoft/vocsync/internal/app"
)

var rootCmd = &cobra.Command{
	Use:           "vocsync",
	Short:         "Back up vocabulary and share dictionaries with collaborators",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (json or text)")
	flags.String("db-driver", "", "local database driver (sqlite3 or postgres)")
	flags.String("db-dsn", "", "local database DSN")
	flags.String("remote-dsn", "", "remote document store DSN (memory:// or postgres://)")
	flags.String("token", "", "signed session token")
	flags.String("user-id", "", "current user id")
	flags.String("email", "", "current user email")
	flags.String("name", "", "current user display name")

	bindFlagToViper("log.level", flags.Lookup("log-level"))
	bindFlagToViper("log.format", flags.Lookup("log-format"))
	bindFlagToViper("database.driver", flags.Lookup("db-driver"))
	bindFlagToViper("database.dsn", flags.Lookup("db-dsn"))
	bindFlagToViper("remote.dsn", flags.Lookup("remote-dsn"))
	bindFlagToViper("identity.token", flags.Lookup("token"))
	bindFlagToViper("identity.user_id", flags.Lookup("user-id"))
	bindFlagToViper("identity.email", flags.Lookup("email"))
	bindFlagToViper("identity.display_name", flags.Lookup("name"))
}

// withContainer builds the application for one command run and tears it
// down afterwards.
func withContainer(ctx context.Context, fn func(*app.Container) error) error {
	container, cleanup, err := app.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer cleanup()
	return fn(container)
}
