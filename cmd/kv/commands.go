package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/ValentinKolb/kvmodel/cmd/util"
	"github.com/ValentinKolb/kvmodel/lib/model"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rawEnvelope wraps and unwraps values for --envelope without interpreting them
var rawEnvelope = model.Envelope[json.RawMessage]()

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Long: `Sets the raw value for a key. With --envelope the value is parsed as JSON
and stored the way a model field stores it, e.g. 5 becomes {"val":5}.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			if viper.GetBool("envelope") {
				var err error
				if value, err = rawEnvelope.Encode(model.Some(json.RawMessage(value))); err != nil {
					return fmt.Errorf("value must be valid JSON: %w", err)
				}
			}
			if err := selected().Set(key, value); err != nil {
				return err
			} else {
				fmt.Println("set successfully")
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Long:  `Reads the raw value for a key. With --envelope the stored envelope is unwrapped.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			resp, ok, err := selected().Get(key)
			if err != nil {
				return err
			}
			if ok && viper.GetBool("envelope") {
				v, err := rawEnvelope.Decode(resp)
				if err != nil {
					return err
				}
				if !v.Present {
					resp = "<absent>"
				} else {
					resp = string(v.Value)
				}
			}
			fmt.Printf("key=%s, found=%v, resp=%s\n", key, ok, resp)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := selected().Delete(key); err != nil {
				return err
			} else {
				fmt.Println("delete successfully")
			}
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if found, err := selected().Has(key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%t\n", key, found)
			}
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys [path]",
		Short: "Lists all keys, or the keys below a model path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := selected().Keys()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				keys = slices.DeleteFunc(keys, func(k string) bool {
					return !model.InSubtree(k, args[0])
				})
			}
			slices.Sort(keys)
			for _, k := range keys {
				fmt.Println(k)
			}
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear [path]",
		Short: "Removes every key below a model path from both stores",
		Long: `Removes every key below a model path from both stores, exactly like
clearing a model at that path. With --all and no path the selected store is wiped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if !viper.GetBool("all") {
					return errors.New("either a path or --all is required")
				}
				if err := selected().ClearAll(); err != nil {
					return err
				}
				fmt.Println("cleared store")
				return nil
			}
			if err := model.New(nil, storage, args[0]).Clear(); err != nil {
				return err
			}
			fmt.Printf("cleared %s/\n", args[0])
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints information about the database behind the selected store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := selected().GetDBInfo()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			if viper.GetBool("metrics") {
				fmt.Println()
				metrics.WritePrometheus(os.Stdout, false)
			}
			return nil
		},
	}
	dumpCmd = &cobra.Command{
		Use:   "dump [file]",
		Short: "Writes a snapshot of the selected store to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := util.SaveSnapshot(selected(), args[0]); err != nil {
				return err
			}
			fmt.Printf("dumped to %s\n", args[0])
			return nil
		},
	}
	restoreCmd = &cobra.Command{
		Use:   "restore [file]",
		Short: "Replaces the content of the selected store with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			if err := util.LoadSnapshot(selected(), file); err != nil {
				return err
			}
			fmt.Printf("restored from %s\n", args[0])
			return nil
		},
	}
)

func init() {
	setCmd.Flags().Bool("envelope", false, util.WrapString("Store the value in a JSON envelope, like a model field"))
	getCmd.Flags().Bool("envelope", false, util.WrapString("Unwrap the JSON envelope of the stored value"))
	clearCmd.Flags().Bool("all", false, util.WrapString("Remove every key of the selected store"))
	infoCmd.Flags().Bool("metrics", false, util.WrapString("Also print the store and field counters in Prometheus format"))
}
