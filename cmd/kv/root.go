package kv

import (
	"github.com/ValentinKolb/kvmodel/cmd/util"
	"github.com/ValentinKolb/kvmodel/lib/model"
	"github.com/ValentinKolb/kvmodel/lib/store"
	"github.com/spf13/cobra"
)

var (
	storage     *model.Storage
	storeConfig *util.StoreConfig

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Inspect and modify the durable and session stores",
		PersistentPreRunE:  setupStorage,
		PersistentPostRunE: closeStorage,
	}
)

func init() {
	// Add common storage flags to the KV command
	util.SetupStoreFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(hasCmd)
	KeyValueCommands.AddCommand(keysCmd)
	KeyValueCommands.AddCommand(clearCmd)
	KeyValueCommands.AddCommand(infoCmd)
	KeyValueCommands.AddCommand(dumpCmd)
	KeyValueCommands.AddCommand(restoreCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupStorage opens both stores
func setupStorage(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	storeConfig = util.GetStoreConfig()

	var err error
	storage, err = util.OpenStorage(storeConfig)
	return err
}

// closeStorage saves the session store and closes both stores
func closeStorage(_ *cobra.Command, _ []string) error {
	if storage == nil {
		return nil
	}
	return util.CloseStorage(storage, storeConfig)
}

// selected returns the store chosen with --session
func selected() store.IStore {
	return storage.For(util.GetScope())
}
