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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eslsoft/vocsync/internal/app"
)

const (
	backupOwnerKey       = "backup.owner"
	backupBatchKey       = "sync.write_batch_size"
	backupConcurrencyKey = "sync.concurrency"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Mirror the local word list to the remote backup collection",
}

var backupUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Make the remote backup equal to the local word list",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withContainer(ctx, func(c *app.Container) error {
			owner, err := ownerFromFlagOrIdentity(viper.GetString(backupOwnerKey), c)
			if err != nil {
				return err
			}
			entries, err := c.Local.FetchAll(ctx)
			if err != nil {
				return fmt.Errorf("read local words: %w", err)
			}

			service := c.Backup.WithProgress(newCLIProgress(cmd.ErrOrStderr()))
			result, err := service.Upload(ctx, owner, entries)
			cmd.Printf("upload %s: %d uploaded, %d deleted, %d failed chunk(s)\n",
				owner, result.Uploaded, result.Deleted, result.FailedChunks)
			return err
		})
	},
}

var backupDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Merge the remote backup into the local word list",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withContainer(ctx, func(c *app.Container) error {
			owner, err := ownerFromFlagOrIdentity(viper.GetString(backupOwnerKey), c)
			if err != nil {
				return err
			}

			service := c.Backup.WithProgress(newCLIProgress(cmd.ErrOrStderr()))
			result, err := service.Download(ctx, owner)
			cmd.Printf("download %s: %d fetched, %d merged, %d inserted, %d skipped\n",
				owner, result.Fetched, result.Merged, result.Inserted, result.Skipped)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupUploadCmd, backupDownloadCmd)

	backupCmd.PersistentFlags().String("owner", "", "owner email of the backup (default: signed-in user)")
	backupCmd.PersistentFlags().Int("batch-size", 0, "documents per remote batch (max 500)")
	backupCmd.PersistentFlags().Int("concurrency", 0, "chunks committed in parallel during upload")

	bindBackupConfig()
}

func bindBackupConfig() {
	bindFlagToViper(backupOwnerKey, backupCmd.PersistentFlags().Lookup("owner"))
	bindFlagToViper(backupBatchKey, backupCmd.PersistentFlags().Lookup("batch-size"))
	bindFlagToViper(backupConcurrencyKey, backupCmd.PersistentFlags().Lookup("concurrency"))
}
