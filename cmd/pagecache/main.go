package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jobala/pagecache/buffer"
	"github.com/jobala/pagecache/storage/disk"
)

type options struct {
	dbPath     string
	frames     int
	replacer   string
	k          int
	cachePages int64
	pages      int
	workers    int
	ops        int
}

func main() {
	opts := options{}
	flag.StringVar(&opts.dbPath, "db", "pagecache.db", "path to the database file")
	flag.IntVar(&opts.frames, "frames", buffer.DEFAULT_POOL_SIZE, "number of frames in the buffer pool")
	flag.StringVar(&opts.replacer, "replacer", string(buffer.CLOCK), "eviction policy: clock, lru-k or lru")
	flag.IntVar(&opts.k, "k", 2, "k for the lru-k replacer")
	flag.Int64Var(&opts.cachePages, "cache", 0, "pages kept in the read cache below the pool, 0 disables it")
	flag.IntVar(&opts.pages, "pages", 256, "number of pages to create")
	flag.IntVar(&opts.workers, "workers", 8, "concurrent workers")
	flag.IntVar(&opts.ops, "ops", 10_000, "operations per worker")
	verbose := flag.Bool("v", false, "log every eviction")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(opts, logger); err != nil {
		logger.Error("pagecache failed", "err", err)
		os.Exit(1)
	}
}

func run(opts options, logger *slog.Logger) error {
	fileManager, err := disk.Open(opts.dbPath)
	if err != nil {
		return err
	}

	var manager disk.Manager = fileManager
	if opts.cachePages > 0 {
		cached, err := disk.NewCachedManager(fileManager, opts.cachePages)
		if err != nil {
			return errors.Join(err, fileManager.Close())
		}
		manager = cached
		logger.Info("read cache enabled", "pages", opts.cachePages, "memory", humanize.IBytes(uint64(opts.cachePages)*disk.PAGE_SIZE))
	}

	scheduler := disk.NewScheduler(manager)
	bpm, err := buffer.NewBufferpoolManager(scheduler,
		buffer.WithPoolSize(opts.frames),
		buffer.WithReplacer(buffer.ReplacerKind(opts.replacer)),
		buffer.WithLrukK(opts.k),
		buffer.WithLogger(logger),
	)
	if err != nil {
		return errors.Join(err, scheduler.Close())
	}

	w := newWorkload(bpm, logger)
	if err := w.seed(opts.pages); err != nil {
		return errors.Join(err, bpm.Close())
	}
	logger.Info("seeded pages", "pages", opts.pages, "size", humanize.IBytes(uint64(opts.pages)*disk.PAGE_SIZE))

	start := time.Now()
	err = w.run(opts.workers, opts.ops)
	elapsed := time.Since(start)

	err = errors.Join(err, w.verify(), bpm.Close())
	if err != nil {
		return err
	}

	total := uint64(opts.workers) * uint64(opts.ops)
	fmt.Printf("%s ops in %s (%s ops/s), %s retries\n",
		humanize.Comma(int64(total)),
		elapsed.Round(time.Millisecond),
		humanize.Comma(int64(float64(total)/elapsed.Seconds())),
		humanize.Comma(w.retries.Load()))
	fmt.Println(bpm.Stats())
	return nil
}
