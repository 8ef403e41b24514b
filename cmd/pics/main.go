// Command pics downloads profile pictures for cached active profiles into
// the local picture directory.
package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/conradchan/igrestore/internal/pacing"
	"github.com/conradchan/igrestore/internal/pics"
	"github.com/conradchan/igrestore/internal/profiles"
)

const (
	commandUse              = "pics"
	commandShortDescription = "Download profile pictures for cached profiles"
	envPrefix               = "IGRESTORE_PICS"

	flagCacheName           = "cache"
	flagCacheDescription    = "Profile cache JSON file"
	flagPicsDirName         = "pics-dir"
	flagPicsDirDescription  = "Directory for downloaded pictures"
	flagMinDelayName        = "min-delay"
	flagMinDelayDescription = "Minimum delay between downloads"
	flagMaxDelayName        = "max-delay"
	flagMaxDelayDescription = "Maximum delay between downloads"

	defaultCachePath = "profiles.json"
	defaultPicsDir   = "pics"

	errMessageLoggerCreate = "create logger"
	loadCacheErrorFormat   = "load cache %s: %w"
	reportFormat           = "downloaded=%d skipped=%d failed=%d\n"
)

func main() {
	cobra.CheckErr(newPicsCommand().Execute())
}

func newPicsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   commandUse,
		Short: commandShortDescription,
		RunE:  runPicsCommand,
	}

	command.Flags().String(flagCacheName, defaultCachePath, flagCacheDescription)
	command.Flags().String(flagPicsDirName, defaultPicsDir, flagPicsDirDescription)
	command.Flags().Duration(flagMinDelayName, pacing.DefaultPictureMinDelay, flagMinDelayDescription)
	command.Flags().Duration(flagMaxDelayName, pacing.DefaultPictureMaxDelay, flagMaxDelayDescription)

	for _, flagName := range []string{flagCacheName, flagPicsDirName, flagMinDelayName, flagMaxDelayName} {
		bindFlagToViper(command, flagName)
	}

	cobra.OnInitialize(configureEnvironment)

	return command
}

func bindFlagToViper(command *cobra.Command, flagName string) {
	cobra.CheckErr(viper.BindPFlag(flagName, command.Flags().Lookup(flagName)))
}

func configureEnvironment() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func runPicsCommand(command *cobra.Command, _ []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", errMessageLoggerCreate, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	cachePath := viper.GetString(flagCacheName)
	cache, cacheErr := profiles.LoadCache(cachePath)
	if cacheErr != nil {
		return fmt.Errorf(loadCacheErrorFormat, cachePath, cacheErr)
	}

	downloader := pics.NewDownloader(pics.DownloaderConfig{
		Store:  pics.NewStore(viper.GetString(flagPicsDirName)),
		Logger: logger,
		Pacing: pacing.Config{
			MinDelay: viper.GetDuration(flagMinDelayName),
			MaxDelay: viper.GetDuration(flagMaxDelayName),
		},
	})

	report, runErr := downloader.Run(command.Context(), sortedProfiles(cache.Snapshot()))
	fmt.Printf(reportFormat, report.Downloaded, report.Skipped, report.Failed)
	return runErr
}

func sortedProfiles(profilesByUsername map[string]profiles.Profile) []profiles.Profile {
	usernames := make([]string, 0, len(profilesByUsername))
	for username := range profilesByUsername {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	ordered := make([]profiles.Profile, 0, len(usernames))
	for _, username := range usernames {
		ordered = append(ordered, profilesByUsername[username])
	}
	return ordered
}
