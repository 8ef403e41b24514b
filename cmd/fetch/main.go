// Command fetch resolves profile metadata for every username the
// relationship summary and roster reference, resuming from the cache.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/conradchan/igrestore/internal/pacing"
)

const (
	commandUse              = "fetch"
	commandShortDescription = "Fetch profile metadata for reconciled usernames"
	envPrefix               = "IGRESTORE_FETCH"

	flagSummaryName          = "results"
	flagSummaryDescription   = "Relationship summary JSON file"
	flagRosterName           = "roster"
	flagRosterDescription    = "Optional roster CSV with username and display_name columns"
	flagCacheName            = "cache"
	flagCacheDescription     = "Profile cache JSON file"
	flagSessionIDName        = "session-id"
	flagSessionIDDescription = "Instagram session cookie value for authenticated fetches"
	flagResetName            = "reset"
	flagResetDescription     = "Drop retryable cache entries before fetching"
	flagMinDelayName         = "min-delay"
	flagMinDelayDescription  = "Minimum delay between fetches"
	flagMaxDelayName         = "max-delay"
	flagMaxDelayDescription  = "Maximum delay between fetches"
	flagCheckpointName       = "checkpoint-every"
	flagCheckpointDesc       = "Persist the cache every N fetches"
	flagThresholdName        = "failure-threshold"
	flagThresholdDescription = "Consecutive failures before pausing"
	flagCooldownName         = "cooldown"
	flagCooldownDescription  = "Pause duration after the failure threshold trips"

	defaultSummaryPath      = "results.json"
	defaultCachePath        = "profiles.json"
	defaultCheckpointEvery  = 10
	defaultFailureThreshold = 5
	defaultCooldown         = 60 * time.Second

	errMessageLoggerCreate = "create logger"
)

func main() {
	cobra.CheckErr(newFetchCommand().Execute())
}

func newFetchCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   commandUse,
		Short: commandShortDescription,
		RunE:  runFetchCommand,
	}

	command.Flags().String(flagSummaryName, defaultSummaryPath, flagSummaryDescription)
	command.Flags().String(flagRosterName, "", flagRosterDescription)
	command.Flags().String(flagCacheName, defaultCachePath, flagCacheDescription)
	command.Flags().String(flagSessionIDName, "", flagSessionIDDescription)
	command.Flags().Bool(flagResetName, false, flagResetDescription)
	command.Flags().Duration(flagMinDelayName, pacing.DefaultProfileMinDelay, flagMinDelayDescription)
	command.Flags().Duration(flagMaxDelayName, pacing.DefaultProfileMaxDelay, flagMaxDelayDescription)
	command.Flags().Int(flagCheckpointName, defaultCheckpointEvery, flagCheckpointDesc)
	command.Flags().Int(flagThresholdName, defaultFailureThreshold, flagThresholdDescription)
	command.Flags().Duration(flagCooldownName, defaultCooldown, flagCooldownDescription)

	for _, flagName := range []string{
		flagSummaryName, flagRosterName, flagCacheName, flagSessionIDName, flagResetName,
		flagMinDelayName, flagMaxDelayName, flagCheckpointName, flagThresholdName, flagCooldownName,
	} {
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

func runFetchCommand(command *cobra.Command, _ []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", errMessageLoggerCreate, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application := NewFetchApplicationWithDependencies(FetchDependencies{Logger: logger})
	return application.Run(command.Context(), FetchConfiguration{
		SummaryPath:      viper.GetString(flagSummaryName),
		RosterPath:       viper.GetString(flagRosterName),
		CachePath:        viper.GetString(flagCacheName),
		SessionID:        viper.GetString(flagSessionIDName),
		Reset:            viper.GetBool(flagResetName),
		MinDelay:         viper.GetDuration(flagMinDelayName),
		MaxDelay:         viper.GetDuration(flagMaxDelayName),
		CheckpointEvery:  viper.GetInt(flagCheckpointName),
		FailureThreshold: viper.GetInt(flagThresholdName),
		Cooldown:         viper.GetDuration(flagCooldownName),
	})
}
