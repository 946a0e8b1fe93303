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
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/eslsoft/vocsync/internal/app"
	"github.com/eslsoft/vocsync/internal/entity"
)

var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Manage shared dictionaries",
}

var dictCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a shared dictionary owned by the signed-in user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withContainer(ctx, func(c *app.Container) error {
			ownerID, ok := c.Identity.CurrentUserID()
			if !ok {
				return entity.ErrUserNotAuthenticated
			}
			id, err := c.Collab.CreateSharedDictionary(ctx, ownerID, args[0])
			if err != nil {
				return err
			}
			cmd.Printf("created %s\n", id)
			return nil
		})
	},
}

var dictListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dictionaries visible to the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withContainer(ctx, func(c *app.Container) error {
			if err := c.Collab.RefreshDictionaries(ctx); err != nil {
				return err
			}
			printDictionaries(cmd.OutOrStdout(), c.Collab.Dictionaries())
			return nil
		})
	},
}

var dictDeleteCmd = &cobra.Command{
	Use:   "delete <dictionary-id>",
	Short: "Delete a dictionary with its words and collaborators",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRefreshedEngine(cmd, func(ctx context.Context, c *app.Container) error {
			if err := c.Collab.DeleteSharedDictionary(ctx, args[0]); err != nil {
				return err
			}
			cmd.Printf("deleted %s\n", args[0])
			return nil
		})
	},
}

var dictWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow membership, collaborator and word changes until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return withContainer(ctx, func(c *app.Container) error {
			unsubscribe := c.Collab.Subscribe(&printingObserver{out: cmd.OutOrStdout()})
			defer unsubscribe()
			if err := c.Collab.Start(); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		})
	},
}

var dictCollaboratorCmd = &cobra.Command{
	Use:     "collaborator",
	Aliases: []string{"collab"},
	Short:   "Manage collaborators of a shared dictionary",
}

var dictCollaboratorAddCmd = &cobra.Command{
	Use:   "add <dictionary-id> <email>",
	Short: "Add or update a collaborator",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user-id")
		displayName, _ := cmd.Flags().GetString("display-name")
		role, _ := cmd.Flags().GetString("role")
		ctx := cmd.Context()
		return withContainer(ctx, func(c *app.Container) error {
			if err := c.Collab.AddCollaborator(ctx, args[0], userID, args[1], displayName, entity.Role(role)); err != nil {
				return err
			}
			cmd.Printf("added %s to %s as %s\n", args[1], args[0], role)
			return nil
		})
	},
}

var dictCollaboratorRemoveCmd = &cobra.Command{
	Use:   "remove <dictionary-id> <email>",
	Short: "Remove a collaborator",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRefreshedEngine(cmd, func(ctx context.Context, c *app.Container) error {
			if err := c.Collab.RemoveCollaborator(ctx, args[0], args[1]); err != nil {
				return err
			}
			cmd.Printf("removed %s from %s\n", args[1], args[0])
			return nil
		})
	},
}

var dictCollaboratorRoleCmd = &cobra.Command{
	Use:   "role <dictionary-id> <email> <role>",
	Short: "Change a collaborator's role",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, ok := entity.ParseRole(args[2])
		if !ok {
			return fmt.Errorf("%w: unknown role %q", entity.ErrInvalidInput, args[2])
		}
		return withRefreshedEngine(cmd, func(ctx context.Context, c *app.Container) error {
			if err := c.Collab.UpdateCollaboratorRole(ctx, args[0], args[1], role); err != nil {
				return err
			}
			cmd.Printf("%s is now %s on %s\n", args[1], role, args[0])
			return nil
		})
	},
}

var dictWordCmd = &cobra.Command{
	Use:   "word",
	Short: "Manage words of a shared dictionary",
}

var dictWordAddCmd = &cobra.Command{
	Use:   "add <dictionary-id>",
	Short: "Add a word to a shared dictionary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		word := wordFromFlags(cmd.Flags())
		ctx := cmd.Context()
		return withContainer(ctx, func(c *app.Container) error {
			shared, err := c.Collab.AddWord(ctx, args[0], word)
			if err != nil {
				return err
			}
			cmd.Printf("added %s (%s) to %s\n", shared.Headword, shared.ID, args[0])
			return nil
		})
	},
}

var dictWordDeleteCmd = &cobra.Command{
	Use:   "delete <dictionary-id> <word-id>",
	Short: "Delete a word from a shared dictionary",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withContainer(ctx, func(c *app.Container) error {
			if err := c.Collab.DeleteWord(ctx, args[0], args[1]); err != nil {
				return err
			}
			cmd.Printf("deleted %s from %s\n", args[1], args[0])
			return nil
		})
	},
}

var dictWordLikeCmd = &cobra.Command{
	Use:   "like <dictionary-id> <word-id>",
	Short: "Toggle the signed-in user's like on a word",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withContainer(ctx, func(c *app.Container) error {
			liked, err := c.Collab.ToggleLike(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if liked {
				cmd.Printf("liked %s\n", args[1])
			} else {
				cmd.Printf("unliked %s\n", args[1])
			}
			return nil
		})
	},
}

var dictWordDifficultyCmd = &cobra.Command{
	Use:   "difficulty <dictionary-id> <word-id> <value>",
	Short: "Record the signed-in user's difficulty rating for a word",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("%w: difficulty must be a number", entity.ErrInvalidInput)
		}
		ctx := cmd.Context()
		return withContainer(ctx, func(c *app.Container) error {
			if err := c.Collab.UpdateDifficulty(ctx, args[0], args[1], value); err != nil {
				return err
			}
			cmd.Printf("rated %s: %d\n", args[1], value)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(dictCmd)
	dictCmd.AddCommand(dictCreateCmd, dictListCmd, dictDeleteCmd, dictWatchCmd, dictCollaboratorCmd, dictWordCmd)
	dictCollaboratorCmd.AddCommand(dictCollaboratorAddCmd, dictCollaboratorRemoveCmd, dictCollaboratorRoleCmd)
	dictWordCmd.AddCommand(dictWordAddCmd, dictWordDeleteCmd, dictWordLikeCmd, dictWordDifficultyCmd)

	dictCollaboratorAddCmd.Flags().String("user-id", "", "user id of the collaborator")
	dictCollaboratorAddCmd.Flags().String("display-name", "", "display name of the collaborator")
	dictCollaboratorAddCmd.Flags().String("role", string(entity.RoleViewer), "role: editor or viewer")
	_ = dictCollaboratorAddCmd.MarkFlagRequired("user-id")
	wordFlags(dictWordAddCmd.Flags())
}

// withRefreshedEngine loads the visible dictionaries before fn so
// permission checks see the current membership.
func withRefreshedEngine(cmd *cobra.Command, fn func(ctx context.Context, c *app.Container) error) error {
	ctx := cmd.Context()
	return withContainer(ctx, func(c *app.Container) error {
		if err := c.Collab.RefreshDictionaries(ctx); err != nil {
			return err
		}
		return fn(ctx, c)
	})
}

func printDictionaries(out io.Writer, dicts []entity.SharedDictionary) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tOWNER\tCOLLABORATORS\tCREATED")
	for _, d := range dicts {
		emails := make([]string, 0, len(d.Collaborators))
		for _, c := range d.Collaborators {
			emails = append(emails, fmt.Sprintf("%s(%s)", c.Email, c.Role))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Name, d.OwnerEmail, strings.Join(emails, ","), d.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}

// printingObserver writes engine notifications as they arrive.
type printingObserver struct {
	out io.Writer
}

func (o *printingObserver) DictionariesChanged(dicts []entity.SharedDictionary) {
	fmt.Fprintf(o.out, "dictionaries: %d visible\n", len(dicts))
	printDictionaries(o.out, dicts)
}

func (o *printingObserver) CollaboratorsChanged(dictionaryID string, collaborators []entity.Collaborator) {
	fmt.Fprintf(o.out, "collaborators of %s: %d\n", dictionaryID, len(collaborators))
}

func (o *printingObserver) WordsChanged(dictionaryID string, words []entity.SharedWord) {
	fmt.Fprintf(o.out, "words of %s: %d\n", dictionaryID, len(words))
	printSharedWords(o.out, words)
}

func printSharedWords(out io.Writer, words []entity.SharedWord) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tHEADWORD\tADDED BY\tLIKES")
	for i := range words {
		w := &words[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", w.ID, w.Headword, w.AddedByEmail, w.LikeCount())
	}
	_ = tw.Flush()
}
