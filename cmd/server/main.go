// Command server serves the triage surface: the merged account view plus the
// decision and tracked-people APIs.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/conradchan/igrestore/internal/pics"
	"github.com/conradchan/igrestore/internal/profiles"
	"github.com/conradchan/igrestore/internal/relation"
	"github.com/conradchan/igrestore/internal/server"
	"github.com/conradchan/igrestore/internal/store"
)

const (
	commandUse              = "server"
	commandShortDescription = "Serve the merged triage view over HTTP"
	envPrefix               = "IGRESTORE_SERVER"

	flagHostName           = "host"
	flagHostDescription    = "Host interface for the HTTP server"
	flagPortName           = "port"
	flagPortDescription    = "Port for the HTTP server"
	flagSummaryName        = "results"
	flagSummaryDescription = "Relationship summary JSON file"
	flagRosterName         = "roster"
	flagRosterDescription  = "Optional roster CSV overriding the summary account order"
	flagCacheName          = "cache"
	flagCacheDescription   = "Profile cache JSON file"
	flagDatabaseName       = "db"
	flagDatabaseDesc       = "SQLite database for decisions and tracked people"
	flagPicsDirName        = "pics-dir"
	flagPicsDirDescription = "Directory holding downloaded profile pictures"

	defaultHost        = "127.0.0.1"
	defaultPort        = 8080
	defaultSummaryPath = "results.json"
	defaultCachePath   = "profiles.json"
	defaultDatabase    = "triage.db"
	defaultPicsDir     = "pics"

	errMessageLoggerCreate   = "create logger"
	errMessageListenAndServe = "listen and serve"
	loadSummaryErrorFormat   = "load summary %s: %w"
	loadRosterErrorFormat    = "load roster %s: %w"
	loadCacheErrorFormat     = "load cache %s: %w"
	openStoreErrorFormat     = "open store %s: %w"
	noAccountsErrorMessage   = "no accounts to serve: provide a summary or a roster"
	logMessageStartingServer = "starting HTTP server"
	logMessageServerStopped  = "server stopped"
	logMessageListenError    = "server listen failure"
	logFieldAddress          = "address"
	logFieldAccounts         = "accounts"
	logFieldCachedProfiles   = "cached_profiles"
)

func main() {
	cobra.CheckErr(newServerCommand().Execute())
}

func newServerCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   commandUse,
		Short: commandShortDescription,
		RunE:  runServerCommand,
	}

	command.Flags().String(flagHostName, defaultHost, flagHostDescription)
	command.Flags().Int(flagPortName, defaultPort, flagPortDescription)
	command.Flags().String(flagSummaryName, defaultSummaryPath, flagSummaryDescription)
	command.Flags().String(flagRosterName, "", flagRosterDescription)
	command.Flags().String(flagCacheName, defaultCachePath, flagCacheDescription)
	command.Flags().String(flagDatabaseName, defaultDatabase, flagDatabaseDesc)
	command.Flags().String(flagPicsDirName, defaultPicsDir, flagPicsDirDescription)

	for _, flagName := range []string{
		flagHostName, flagPortName, flagSummaryName, flagRosterName,
		flagCacheName, flagDatabaseName, flagPicsDirName,
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

func runServerCommand(*cobra.Command, []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", errMessageLoggerCreate, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	accounts, accountsErr := loadAccounts(viper.GetString(flagRosterName), viper.GetString(flagSummaryName))
	if accountsErr != nil {
		return accountsErr
	}

	cachePath := viper.GetString(flagCacheName)
	cache, cacheErr := profiles.LoadCache(cachePath)
	if cacheErr != nil {
		return fmt.Errorf(loadCacheErrorFormat, cachePath, cacheErr)
	}

	databasePath := viper.GetString(flagDatabaseName)
	decisionStore, storeErr := store.Open(databasePath)
	if storeErr != nil {
		return fmt.Errorf(openStoreErrorFormat, databasePath, storeErr)
	}
	defer decisionStore.Close()

	pictureDirectory := viper.GetString(flagPicsDirName)
	service := &server.TriageService{
		Accounts:      accounts,
		ProfileCache:  cache,
		DecisionStore: decisionStore,
		PictureStore:  pics.NewStore(pictureDirectory),
	}

	router, routerErr := server.NewRouter(server.RouterConfig{
		Service:          service,
		Store:            decisionStore,
		PictureDirectory: pictureDirectory,
		Logger:           logger,
	})
	if routerErr != nil {
		return routerErr
	}

	address := fmt.Sprintf("%s:%d", viper.GetString(flagHostName), viper.GetInt(flagPortName))
	logger.Info(logMessageStartingServer,
		zap.String(logFieldAddress, address),
		zap.Int(logFieldAccounts, len(accounts)),
		zap.Int(logFieldCachedProfiles, cache.Len()),
	)

	httpServer := &http.Server{Addr: address, Handler: router}
	if listenErr := httpServer.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
		logger.Error(logMessageListenError, zap.Error(listenErr))
		return fmt.Errorf("%s: %w", errMessageListenAndServe, listenErr)
	}

	logger.Info(logMessageServerStopped)
	return nil
}

// loadAccounts prefers the roster when one is supplied; otherwise the account
// list is derived from the summary's username union.
func loadAccounts(rosterPath string, summaryPath string) ([]relation.AccountRecord, error) {
	if rosterPath != "" {
		accounts, rosterErr := relation.LoadRoster(rosterPath)
		if rosterErr != nil {
			return nil, fmt.Errorf(loadRosterErrorFormat, rosterPath, rosterErr)
		}
		return accounts, nil
	}

	summary, summaryErr := relation.ReadSummaryFile(summaryPath)
	if summaryErr != nil {
		if errors.Is(summaryErr, os.ErrNotExist) {
			return nil, errors.New(noAccountsErrorMessage)
		}
		return nil, fmt.Errorf(loadSummaryErrorFormat, summaryPath, summaryErr)
	}

	usernames := summary.Usernames()
	accounts := make([]relation.AccountRecord, 0, len(usernames))
	for _, username := range usernames {
		accounts = append(accounts, relation.AccountRecord{Username: username})
	}
	return accounts, nil
}
