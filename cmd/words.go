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
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eslsoft/vocsync/internal/app"
	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/repository"
)

const (
	wordsFilterKey   = "words.list.filter"
	wordsOrderByKey  = "words.list.order_by"
	wordsPageKey     = "words.list.page"
	wordsPageSizeKey = "words.list.page_size"
)

var wordsCmd = &cobra.Command{
	Use:   "words",
	Short: "Manage the local word list",
}

var wordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List local words",
	Example: `  vocsync words list --filter 'favorite == true && difficulty >= 2' --order-by 'updated_at desc'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withContainer(ctx, func(c *app.Container) error {
			query := &repository.ListWordQuery{
				Pagination: repository.Pagination{
					PageNo:   viper.GetInt32(wordsPageKey),
					PageSize: viper.GetInt32(wordsPageSizeKey),
				},
				FilterOrder: repository.FilterOrder{
					Filter:  viper.GetString(wordsFilterKey),
					OrderBy: viper.GetString(wordsOrderByKey),
				},
			}
			words, total, err := c.Words.ListWords(ctx, query)
			if err != nil {
				return err
			}
			printWords(cmd.OutOrStdout(), words)
			cmd.Printf("%d of %d word(s)\n", len(words), total)
			return nil
		})
	},
}

var wordsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a word to the local list",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		word := wordFromFlags(cmd.Flags())
		return withContainer(ctx, func(c *app.Container) error {
			saved, err := c.Words.AddWord(ctx, word)
			if err != nil {
				return err
			}
			cmd.Printf("added %s (%s)\n", saved.Headword, saved.ID)
			return nil
		})
	},
}

var wordsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a word from the local list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withContainer(ctx, func(c *app.Container) error {
			if err := c.Words.DeleteWord(ctx, args[0]); err != nil {
				return err
			}
			cmd.Printf("deleted %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(wordsCmd)
	wordsCmd.AddCommand(wordsListCmd, wordsAddCmd, wordsDeleteCmd)

	wordsListCmd.Flags().String("filter", "", "CEL filter, e.g. headword.startsWith('ab')")
	wordsListCmd.Flags().String("order-by", "", "order keys: updated_at, headword, difficulty, id")
	wordsListCmd.Flags().Int32("page", 1, "page number, starting at 1")
	wordsListCmd.Flags().Int32("page-size", 50, "entries per page")
	wordFlags(wordsAddCmd.Flags())

	bindFlagToViper(wordsFilterKey, wordsListCmd.Flags().Lookup("filter"))
	bindFlagToViper(wordsOrderByKey, wordsListCmd.Flags().Lookup("order-by"))
	bindFlagToViper(wordsPageKey, wordsListCmd.Flags().Lookup("page"))
	bindFlagToViper(wordsPageSizeKey, wordsListCmd.Flags().Lookup("page-size"))
}

func printWords(out io.Writer, words []*entity.Word) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tHEADWORD\tLANG\tTAGS\tFAV\tDIFF\tSYNCED")
	for _, w := range words {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%d\t%t\n",
			w.ID, w.Headword, w.Language, strings.Join(w.Tags, ","), w.Favorite, w.Difficulty, w.IsSynced)
	}
	_ = tw.Flush()
}
