package kv

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/kvmodel/cmd/util"
	"github.com/ValentinKolb/kvmodel/lib/logging"
	"github.com/ValentinKolb/kvmodel/lib/model"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logger.GetLogger(logging.CLI)

var (
	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for model fields on the configured stores",
		Long: `Runs benchmarks of typed field access against the selected store.
All keys are written below __perf and removed again after each benchmark.`,
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__perf"
	perfNumThreads = 10
	perfKeySpread  = 100
	perfSkip       = make([]string, 0)

	// perf models, one type per scope
	perfRegistry    = model.NewRegistry()
	perfDurableType = perfRegistry.Define("perf-durable")
	perfSessionType = perfRegistry.Define("perf-session")
	perfFields      = map[model.Scope]perfFieldSet{
		model.Durable: declarePerfFields(perfDurableType, model.Durable),
		model.Session: declarePerfFields(perfSessionType, model.Session),
	}

	// latency per benchmark
	perfTimers = gometrics.NewRegistry()
)

type perfFieldSet struct {
	typ      *model.Type
	uncached *model.FieldConfig[string]
	cached   *model.FieldConfig[string]
}

func declarePerfFields(t *model.Type, scope model.Scope) perfFieldSet {
	return perfFieldSet{
		typ:      t,
		uncached: model.Declare(t, "uncached", model.WithScope[string](scope), model.WithCache[string](false)),
		cached:   model.Declare(t, "cached", model.WithScope[string](scope)),
	}
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different models to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for kvmodel stores")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(storeConfig.String())
	fmt.Printf("Scope: %s\n", util.GetScope())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	fields := perfFields[util.GetScope()]
	results := make(map[string]testing.BenchmarkResult)

	tests := []struct {
		name    string
		prepare bool
		op      func(w *perfWorker, i int) error
	}{
		{"set", false, func(w *perfWorker, i int) error {
			return fields.uncached.In(w.at(i)).Set("test")
		}},
		{"get", true, func(w *perfWorker, i int) error {
			_, err := fields.uncached.In(w.at(i)).Get()
			return err
		}},
		{"get-cached", true, func(w *perfWorker, i int) error {
			_, err := fields.cached.In(w.at(i)).Get()
			return err
		}},
		{"get-default", false, func(w *perfWorker, i int) error {
			_, err := fields.uncached.In(w.at(i)).Get()
			return err
		}},
		{"delete", true, func(w *perfWorker, i int) error {
			return fields.uncached.In(w.at(i)).Delete()
		}},
		{"clear", true, func(w *perfWorker, i int) error {
			m := w.at(i)
			if err := fields.uncached.In(m).Set("test"); err != nil {
				return err
			}
			return m.Clear()
		}},
		{"mixed", true, func(w *perfWorker, i int) error {
			f := fields.uncached.In(w.at(i))
			switch i % 4 {
			case 0:
				return f.Set("test")
			case 1, 2:
				_, err := f.Get()
				return err
			default:
				return f.Delete()
			}
		}},
	}

	for _, tt := range tests {
		result := benchmark(tt.name, fields, tt.prepare, tt.op)
		results[tt.name] = result
		printResult(tt.name, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// perfWorker holds the model instances of one benchmark goroutine,
// since models and their caches must not be shared between goroutines
type perfWorker struct {
	models []*model.Model
}

func newPerfWorker(test string, fields perfFieldSet) *perfWorker {
	w := &perfWorker{models: make([]*model.Model, perfKeySpread)}
	for i := range w.models {
		w.models[i] = model.New(fields.typ, storage, model.SubpathAt(perfKeyPrefix, test, i))
	}
	return w
}

// at returns a model by index (with wraparound)
func (w *perfWorker) at(i int) *model.Model {
	return w.models[i%len(w.models)]
}

// benchmark runs op in parallel, recording the latency of every call in the timer named test
func benchmark(test string, fields perfFieldSet, prepare bool, op func(w *perfWorker, i int) error) testing.BenchmarkResult {
	timer := gometrics.GetOrRegisterTimer(test, perfTimers)

	return testing.Benchmark(func(b *testing.B) {
		if shouldSkip(test) {
			return
		}

		if prepare {
			w := newPerfWorker(test, fields)
			for _, m := range w.models {
				if err := fields.uncached.In(m).Set("test"); err != nil {
					log.Warningf("(%s) - error preparing key: %v", test, err)
				}
			}
		}

		// cleanup
		b.Cleanup(func() {
			if err := model.New(nil, storage, model.Subpath(perfKeyPrefix, test)).Clear(); err != nil {
				log.Warningf("(%s) - error removing keys: %v", test, err)
			}
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			w := newPerfWorker(test, fields)
			counter := 0
			for pb.Next() {
				start := time.Now()
				if err := op(w, counter); err != nil {
					log.Warningf("(%s) - error: %v", test, err)
				}
				timer.UpdateSince(start)
				counter++
			}
		})
	})
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// percentiles returns p50 and p99 latency of a benchmark
func percentiles(test string) (time.Duration, time.Duration) {
	timer := gometrics.GetOrRegisterTimer(test, perfTimers).Snapshot()
	ps := timer.Percentiles([]float64{0.5, 0.99})
	return time.Duration(ps[0]), time.Duration(ps[1])
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	p50, p99 := percentiles(test)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec, p50, p99)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"P50", "P99",
		"Scope", "DB", "SessionFile",
		"Threads", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		p50, p99 := percentiles(test)

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			p50.String(),
			p99.String(),
			util.GetScope().String(),
			storeConfig.DBPath,
			storeConfig.SessionFile,
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
