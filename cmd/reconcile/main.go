// Command reconcile parses an Instagram data export and writes the follower
// relationship summary.
package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	commandUse              = "reconcile"
	commandShortDescription = "Reconcile an Instagram export into a relationship summary"
	envPrefix               = "IGRESTORE_RECONCILE"
	flagExportDirName       = "export-dir"
	flagExportDirDesc       = "Directory containing (or equal to) the unpacked Instagram export"
	flagOutName             = "out"
	flagOutDescription      = "Output summary JSON file path"
	defaultExportDir        = "."
	defaultOutputFileName   = "results.json"
)

func main() {
	cobra.CheckErr(newReconcileCommand().Execute())
}

func newReconcileCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   commandUse,
		Short: commandShortDescription,
		RunE:  runReconcileCommand,
	}

	command.Flags().String(flagExportDirName, defaultExportDir, flagExportDirDesc)
	command.Flags().String(flagOutName, defaultOutputFileName, flagOutDescription)

	bindFlagToViper(command, flagExportDirName)
	bindFlagToViper(command, flagOutName)

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

func runReconcileCommand(command *cobra.Command, _ []string) error {
	application := NewReconcileApplication()
	return application.Run(command.Context(), ReconcileConfiguration{
		ExportBaseDir: viper.GetString(flagExportDirName),
		OutputPath:    viper.GetString(flagOutName),
	})
}
