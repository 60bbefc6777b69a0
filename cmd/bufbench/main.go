// Command bufbench drives the buffer pool manager's public surface the way
// an executor would: it allocates pages, writes through them, unpins,
// flushes, and reports hit-rate and occupancy statistics. It exists for
// manual exercise and benchmarking of internal/bufferpool, not as part of
// the subsystem's contract — the spec explicitly has no CLI surface of its
// own.
package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"QuayDB/internal/bufferpool"
	"QuayDB/internal/config"
	"QuayDB/internal/diskio"
	"QuayDB/internal/page"
)

var (
	cfgPath    string
	poolSize   int
	replacerK  int
	bucketSize int
	dbPath     string
	iterations int
	verbose    bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// registerFlags is typed against *pflag.FlagSet directly rather than
// relying on *cobra.Command.Flags()'s return type, matching the pack's own
// cmd/start.go split between command wiring and flag registration.
func registerFlags(fs *pflag.FlagSet) {
	fs.StringVar(&cfgPath, "config", "", "`path` to a YAML config file (flags below override its values where set)")
	fs.IntVar(&poolSize, "pool-size", 0, "number of frames in the pool (0 = use config/default)")
	fs.IntVar(&replacerK, "k", 0, "LRU-K replacer K (0 = use config/default)")
	fs.IntVar(&bucketSize, "bucket-size", 0, "extendible hash directory bucket size (0 = use config/default)")
	fs.StringVar(&dbPath, "db", "", "backing file `path` (empty = use config/default)")
	fs.IntVar(&iterations, "iterations", 10000, "number of fetch/pin/unpin cycles to run")
	fs.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bufbench",
		Short: "Exercise the QuayDB buffer pool manager",
		RunE:  run,
	}

	registerFlags(cmd.Flags())

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if poolSize > 0 {
		cfg.PoolSize = poolSize
	}
	if replacerK > 0 {
		cfg.ReplacerK = replacerK
	}
	if bucketSize > 0 {
		cfg.BucketSize = bucketSize
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	disk, err := diskio.Open(cfg.DBPath, log)
	if err != nil {
		return err
	}
	defer disk.Shutdown()

	bp := bufferpool.New(cfg.PoolSize, disk, bufferpool.Options{
		K:          cfg.ReplacerK,
		BucketSize: cfg.BucketSize,
		Log:        log,
	})
	defer bp.Close()

	ids := make([]page.ID, 0, cfg.PoolSize*2)
	for i := 0; i < cfg.PoolSize*2; i++ {
		g, err := bp.NewPage()
		if errors.Is(err, bufferpool.ErrNoFreeFrame) {
			break
		}
		if err != nil {
			return err
		}
		copy(g.Data(), fmt.Sprintf("page-%d", g.PageID()))
		if _, err := bp.UnpinPage(g.PageID(), true); err != nil {
			return err
		}
		ids = append(ids, g.PageID())
	}

	for i := 0; i < iterations; i++ {
		id := ids[rand.Intn(len(ids))]
		g, err := bp.FetchPage(id)
		if errors.Is(err, bufferpool.ErrNoFreeFrame) {
			continue
		}
		if err != nil {
			return err
		}
		if _, err := bp.UnpinPage(g.PageID(), false); err != nil {
			return err
		}
	}

	if err := bp.FlushAllPages(); err != nil {
		return err
	}

	stats := bp.Stats()
	fmt.Printf("pages=%d pinned=%d dirty=%d capacity=%d hit_rate=%.3f\n",
		stats.TotalPages, stats.PinnedPages, stats.DirtyPages, stats.Capacity, stats.HitRate)
	return nil
}
