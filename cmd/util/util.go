package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ValentinKolb/kvmodel/lib/db"
	"github.com/ValentinKolb/kvmodel/lib/db/engines/flat"
	"github.com/ValentinKolb/kvmodel/lib/db/engines/sqlite"
	"github.com/ValentinKolb/kvmodel/lib/logging"
	"github.com/ValentinKolb/kvmodel/lib/model"
	"github.com/ValentinKolb/kvmodel/lib/store"
	"github.com/ValentinKolb/kvmodel/lib/store/lstore"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// InitConfig loads env files and initializes viper
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("kvmodel")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// InitLogging configures all loggers from the log-level setting
func InitLogging() {
	if err := logging.Init(viper.GetString("log-level"), os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// StoreConfig describes where the two stores of a storage live
type StoreConfig struct {
	// DBPath is the SQLite file of the durable store (sqlite.MemoryPath for a throwaway store)
	DBPath string
	// BusyTimeoutMillis is the SQLite busy timeout
	BusyTimeoutMillis int
	// Synchronous is the SQLite synchronous pragma
	Synchronous string
	// SessionFile is an optional snapshot the session store is loaded from and saved to
	SessionFile string
	// Shards is the shard count of the in-memory session store (0 = number of CPUs)
	Shards int
}

func (c *StoreConfig) String() string {
	session := c.SessionFile
	if session == "" {
		session = "<memory>"
	}
	return fmt.Sprintf("Durable: %s (busy-timeout=%dms, synchronous=%s)\nSession: %s (shards=%d)",
		c.DBPath, c.BusyTimeoutMillis, c.Synchronous, session, c.Shards)
}

// SetupStoreFlags adds the storage flags to a command
func SetupStoreFlags(cmd *cobra.Command) {
	key := "db"
	cmd.PersistentFlags().String(key, "kvmodel.db", WrapString("Path of the SQLite file backing the durable store (:memory: for a store that is discarded on exit)"))

	key = "db-busy-timeout"
	cmd.PersistentFlags().Int(key, 5000, WrapString("How long to wait for a lock on the SQLite file (in ms)"))

	key = "db-synchronous"
	cmd.PersistentFlags().String(key, "NORMAL", WrapString("SQLite synchronous mode (OFF, NORMAL, FULL)"))

	key = "session-file"
	cmd.PersistentFlags().String(key, "", WrapString("Snapshot file the session store is loaded from and saved back to. Without it the session store only lives for one command"))

	key = "session-shards"
	cmd.PersistentFlags().Int(key, 0, WrapString("Number of shards of the session store (0 = number of CPUs)"))

	key = "session"
	cmd.PersistentFlags().Bool(key, false, WrapString("Operate on the session store instead of the durable store"))
}

// GetStoreConfig reads the storage configuration from viper
func GetStoreConfig() *StoreConfig {
	return &StoreConfig{
		DBPath:            viper.GetString("db"),
		BusyTimeoutMillis: viper.GetInt("db-busy-timeout"),
		Synchronous:       viper.GetString("db-synchronous"),
		SessionFile:       viper.GetString("session-file"),
		Shards:            viper.GetInt("session-shards"),
	}
}

// GetScope returns the store selected with --session
func GetScope() model.Scope {
	if viper.GetBool("session") {
		return model.Session
	}
	return model.Durable
}

// --------------------------------------------------------------------------
// Storage lifecycle
// --------------------------------------------------------------------------

// OpenStorage opens the durable SQLite store and creates the session store,
// seeding it from the session file if one is configured and exists.
func OpenStorage(conf *StoreConfig) (*model.Storage, error) {
	durableDB, err := sqlite.Open(conf.DBPath, &sqlite.DBOptions{
		BusyTimeoutMillis: conf.BusyTimeoutMillis,
		Synchronous:       conf.Synchronous,
	})
	if err != nil {
		return nil, err
	}

	durable := lstore.NewLocalStore(func() db.KVDB { return durableDB }, lstore.WithName("durable"))
	session := lstore.NewLocalStore(func() db.KVDB {
		return flat.NewFlatDB(&flat.DBOptions{NumShards: conf.Shards})
	}, lstore.WithName("session"))
	storage := model.NewStorage(durable, session)

	if conf.SessionFile != "" {
		if err := loadSnapshot(session, conf.SessionFile); err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("load session file: %w", err)
		}
	}

	return storage, nil
}

// CloseStorage saves the session store back to the session file, if configured, and closes both stores
func CloseStorage(storage *model.Storage, conf *StoreConfig) error {
	var saveErr error
	if conf.SessionFile != "" {
		saveErr = SaveSnapshot(storage.Session(), conf.SessionFile)
	}
	return errors.Join(saveErr, storage.Close())
}

func loadSnapshot(s store.IStore, path string) error {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	return LoadSnapshot(s, file)
}

// SaveSnapshot writes a snapshot of s to path, replacing the file only once the snapshot is complete
func SaveSnapshot(s store.IStore, path string) error {
	snap, ok := s.(store.Snapshotter)
	if !ok {
		return store.NewError(store.RetCUnsupportedOperation, "store cannot be saved")
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := snap.Save(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadSnapshot replaces the content of s with the snapshot read from r
func LoadSnapshot(s store.IStore, r io.Reader) error {
	snap, ok := s.(store.Snapshotter)
	if !ok {
		return store.NewError(store.RetCUnsupportedOperation, "store cannot be loaded")
	}
	return snap.Load(r)
}
