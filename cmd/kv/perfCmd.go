package kv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/sdb/cmd/util"
	"github.com/ValentinKolb/sdb/lib/db"
	"github.com/google/uuid"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Throughput test for the configured engine",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__perf"
	perfDuration   = 2 * time.Second
	perfValueSize  = 128
	perfNumThreads = 10
	perfKeySpread  = 100
	perfSkip       = make([]string, 0)
)

// perfTests lists the tests in the order they are run
var perfTests = []string{"insert", "update", "select", "exist", "exist-not", "delete", "mixed"}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Tests to skip (comma separated - e.g. insert,mixed)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines to use for every test"))
	key = "duration"
	perfTestCmd.Flags().Duration(key, 2*time.Second, util.WrapString("How long every test should run"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 128, util.WrapString("Size of the values written by the tests (in bytes)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the read tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save the results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfDuration = viper.GetDuration("duration")
	perfValueSize = viper.GetInt("value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfNumThreads < 1 || perfKeySpread < 1 || perfDuration <= 0 {
		return errors.New("threads, keys and duration must be positive")
	}
	if perfValueSize < 0 || perfValueSize > viper.GetInt("max-value") {
		return fmt.Errorf("value-size must be between 0 and %d", viper.GetInt("max-value"))
	}
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	return withEngine(func(engine db.Engine) error {
		fmt.Println("Throughput test for sdb engines")

		// Print configuration
		fmt.Println()
		fmt.Println("Configuration:")
		fmt.Println(util.GetConfig().String())
		fmt.Printf("Threads: %d, Duration: %s, Value size: %d bytes\n", perfNumThreads, perfDuration, perfValueSize)
		fmt.Println()

		fmt.Println("starting tests...")

		registry := gometrics.NewRegistry()
		value := make([]byte, perfValueSize)
		for i := range value {
			value[i] = byte('a' + i%26)
		}

		for _, test := range perfTests {
			if shouldSkip(test) {
				printResult(test, nil)
				continue
			}
			timer := gometrics.GetOrRegisterTimer(test, registry)
			errCount := runTest(engine, test, value, timer)
			printResult(test, timer)
			if errCount > 0 {
				log.Printf("(%s) - %d operations failed\n", test, errCount)
			}
		}

		if engine.CapacityExhausted() {
			fmt.Println("\nwarning: storage capacity was exhausted during the test, results are not meaningful")
		}

		// Write results to csv is specified
		if csvPath := viper.GetString("csv"); csvPath != "" {
			fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
			if err := writeResultsToCSV(csvPath, registry, util.GetConfig()); err != nil {
				return fmt.Errorf("failed to export results to CSV: %v", err)
			}
			fmt.Println("Export complete")
		}
		return nil
	})
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

// runTest runs perfNumThreads workers for perfDuration and records every
// operation in timer. It returns the number of failed operations.
func runTest(engine db.Engine, test string, value []byte, timer gometrics.Timer) int64 {
	getKey, iter := getKeys(test)

	// set keys
	if test != "insert" && test != "exist-not" {
		iter(func(k string) {
			if _, err := engine.Insert(k, value); err != nil && !errors.Is(err, db.ErrKeyExists) {
				log.Printf("(%s) - error inserting key: %v\n", test, err)
			}
		})
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		errCount int64
		inserted []string
		deadline = time.Now().Add(perfDuration)
	)

	for w := 0; w < perfNumThreads; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			var (
				failed int64
				own    []string
			)
			for counter := worker; time.Now().Before(deadline); counter++ {
				key := getKey(counter)
				var err error
				start := time.Now()
				switch test {
				case "insert":
					// fresh keys, so every insert creates a new file
					key = fmt.Sprintf("%s-insert-%s", perfKeyPrefix, uuid.NewString())
					_, err = engine.Insert(key, value)
					if err == nil {
						own = append(own, key)
					}
				case "update":
					_, err = engine.Update(key, value)
				case "select":
					_, err = engine.Select(key, nil)
				case "exist", "exist-not":
					_, _, err = engine.Exist(key)
				case "delete":
					err = engine.Delete(key)
					if errors.Is(err, db.ErrNotFound) {
						// reinsert so the next round has something to delete
						if _, err = engine.Insert(key, value); errors.Is(err, db.ErrKeyExists) {
							err = nil // another worker was faster
						}
					}
				case "mixed":
					switch counter % 4 {
					case 0:
						_, err = engine.Update(key, value)
					case 1:
						_, err = engine.Select(key, nil)
					case 2:
						_, _, err = engine.Exist(key)
					case 3:
						_, err = engine.Select(key, make([]byte, 16))
					}
				}
				timer.UpdateSince(start)
				if err != nil {
					failed++
				}
			}

			mu.Lock()
			errCount += failed
			inserted = append(inserted, own...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()

	// cleanup
	for _, k := range inserted {
		if err := engine.Delete(k); err != nil {
			log.Printf("(%s) - error deleting key: %v\n", test, err)
		}
	}
	iter(func(k string) {
		if err := engine.Delete(k); err != nil && !errors.Is(err, db.ErrNotFound) {
			log.Printf("(%s) - error deleting key: %v\n", test, err)
		}
	})

	return errCount
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a test in a formatted way, a nil timer
// marks a skipped test
func printResult(test string, timer gometrics.Timer) {
	if timer == nil || timer.Count() == 0 {
		fmt.Printf("%-12sskipped\n", test)
		return
	}

	snap := timer.Snapshot()
	ps := snap.Percentiles([]float64{0.5, 0.99})
	fmt.Printf("%-12s%10d ops\t%10.0f ops/sec\tmean %s\tp50 %s\tp99 %s\n",
		test, snap.Count(), snap.RateMean(),
		time.Duration(snap.Mean()), time.Duration(ps[0]), time.Duration(ps[1]))
}

// writeResultsToCSV writes the timers of the registry to a CSV file
func writeResultsToCSV(csvPath string, registry gometrics.Registry, config *util.Config) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Count", "OpsPerSec", "MeanNs", "P50Ns", "P99Ns", "Skipped",
		"Engine", "Dataset", "Threads", "DurationSec", "ValueSize", "KeysCount",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, test := range perfTests {
		var (
			count            int64
			rate, mean       float64
			p50, p99         float64
			skipped          = "true"
			timer, isPresent = registry.Get(test).(gometrics.Timer)
		)
		if isPresent && timer.Count() > 0 {
			snap := timer.Snapshot()
			ps := snap.Percentiles([]float64{0.5, 0.99})
			count, rate, mean, p50, p99 = snap.Count(), snap.RateMean(), snap.Mean(), ps[0], ps[1]
			skipped = "false"
		}

		row := []string{
			test,
			strconv.FormatInt(count, 10),
			fmt.Sprintf("%.0f", rate),
			fmt.Sprintf("%.0f", mean),
			fmt.Sprintf("%.0f", p50),
			fmt.Sprintf("%.0f", p99),
			skipped,
			string(config.Engine),
			config.Dataset,
			strconv.Itoa(perfNumThreads),
			fmt.Sprintf("%.1f", perfDuration.Seconds()),
			strconv.Itoa(perfValueSize),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
