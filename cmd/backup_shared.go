package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/eslsoft/vocsync/internal/app"
	"github.com/eslsoft/vocsync/internal/entity"
)

func normalizeValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	result := make([]string, 0, len(values))
	for _, value := range values {
		name := strings.TrimSpace(value)
		if name == "" {
			continue
		}
		result = append(result, name)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func bindFlagToViper(key string, flag *pflag.Flag) {
	if flag == nil {
		return
	}
	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// ownerFromFlagOrIdentity resolves the backup owner. The flag wins over the
// signed-in user's email.
func ownerFromFlagOrIdentity(flagValue string, c *app.Container) (string, error) {
	if owner := entity.NormalizeEmail(flagValue); owner != "" {
		return owner, nil
	}
	if email, ok := c.Identity.CurrentUserEmail(); ok {
		return email, nil
	}
	return "", fmt.Errorf("%w: pass --owner or sign in", entity.ErrUserNotAuthenticated)
}

// wordFlags registers the entry fields shared by local and shared word
// commands.
func wordFlags(flags *pflag.FlagSet) {
	flags.String("headword", "", "headword of the entry")
	flags.String("definition", "", "definition text")
	flags.String("phonetic", "", "phonetic transcription")
	flags.String("language", "en", "language code")
	flags.StringSlice("example", nil, "example sentence, repeatable")
	flags.StringSlice("tag", nil, "tag, comma separated or repeatable")
	flags.Bool("favorite", false, "mark as favorite")
	flags.Int("difficulty", 0, "difficulty rating")
}

func wordFromFlags(flags *pflag.FlagSet) *entity.Word {
	headword, _ := flags.GetString("headword")
	definition, _ := flags.GetString("definition")
	phonetic, _ := flags.GetString("phonetic")
	language, _ := flags.GetString("language")
	examples, _ := flags.GetStringSlice("example")
	tags, _ := flags.GetStringSlice("tag")
	favorite, _ := flags.GetBool("favorite")
	difficulty, _ := flags.GetInt("difficulty")
	return &entity.Word{
		Headword:   headword,
		Definition: definition,
		Phonetic:   phonetic,
		Language:   entity.Language(language),
		Examples:   normalizeValues(examples),
		Tags:       normalizeValues(tags),
		Favorite:   favorite,
		Difficulty: difficulty,
	}
}
