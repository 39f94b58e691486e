// Command laded runs the lease archive discovery workers: it consumes
// discovery jobs from the queue and executes the full workflow against the
// configured cloud provider and database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsjs "github.com/go-micro/plugins/v4/events/natsjs"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/leaseworks/lade/cmd/laded/config"
	"github.com/leaseworks/lade/pkg/archive"
	archivesql "github.com/leaseworks/lade/pkg/archive/sql"
	"github.com/leaseworks/lade/pkg/archive/workflow"
	"github.com/leaseworks/lade/pkg/cloud"
	cloudregistry "github.com/leaseworks/lade/pkg/cloud/registry"
	storagecfg "github.com/leaseworks/lade/pkg/config"
	configregistry "github.com/leaseworks/lade/pkg/config/registry"
	"github.com/leaseworks/lade/pkg/events"
	"github.com/leaseworks/lade/pkg/events/stream"
	"github.com/leaseworks/lade/pkg/jobs"
	"github.com/leaseworks/lade/pkg/logger"

	// Load drivers.
	_ "github.com/leaseworks/lade/pkg/cloud/dropbox"
	_ "github.com/leaseworks/lade/pkg/cloud/memory"
	_ "github.com/leaseworks/lade/pkg/config/json"
	_ "github.com/leaseworks/lade/pkg/config/memory"
)

var (
	versionFlag = flag.Bool("version", false, "show version and exit")
	configFlag  = flag.String("c", "/etc/laded/laded.toml", "set configuration file")

	// Compile time variables initialized with ldflags.
	gitCommit, buildDate, version string
)

type coreConf struct {
	Provider string `mapstructure:"provider"`
}

type runnerConf struct {
	Group            string `mapstructure:"group"`
	Workers          int    `mapstructure:"workers"`
	MaxAttempts      int    `mapstructure:"max_attempts"`
	SoftLimitSeconds int    `mapstructure:"soft_limit_seconds"`
	HardLimitSeconds int    `mapstructure:"hard_limit_seconds"`
}

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("laded %s commit:%s built:%s\n", version, gitCommit, buildDate)
		os.Exit(0)
	}

	config.SetFile(*configFlag)
	if err := config.Read(); err != nil {
		fmt.Fprintf(os.Stderr, "error reading config %s: %v\n", *configFlag, err)
		os.Exit(1)
	}

	log := logger.New(
		logger.WithMode(config.GetString("log.mode")),
		logger.WithLevel(config.GetString("log.level")),
	)

	if err := run(log); err != nil {
		log.Error().Err(err).Msg("laded exited with error")
		os.Exit(1)
	}
}

func run(log *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	core := &coreConf{}
	if err := mapstructure.Decode(config.Get("core"), core); err != nil {
		return errors.Wrap(err, "error decoding core config")
	}
	if core.Provider == "" {
		core.Provider = "dropbox"
	}

	port, err := newCloudPort(ctx)
	if err != nil {
		return err
	}
	configs, err := newConfigStore(ctx)
	if err != nil {
		return err
	}
	stores, err := newArchiveStores(ctx)
	if err != nil {
		return err
	}
	queue, err := newStream(log)
	if err != nil {
		return err
	}

	wf := workflow.New(core.Provider, cloud.Static{Port: port}, configs, stores, stores, workflow.Options{Strict: true})

	rc := &runnerConf{}
	if err := mapstructure.Decode(config.Get("runner"), rc); err != nil {
		return errors.Wrap(err, "error decoding runner config")
	}
	runner := jobs.NewRunner(queue, wf, log, jobs.Options{
		Group:       rc.Group,
		Workers:     rc.Workers,
		MaxAttempts: rc.MaxAttempts,
		SoftLimit:   time.Duration(rc.SoftLimitSeconds) * time.Second,
		HardLimit:   time.Duration(rc.HardLimitSeconds) * time.Second,
	})

	log.Info().Str("provider", core.Provider).Msg("laded started, consuming jobs")
	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	log.Info().Msg("laded stopped")
	return nil
}

func newCloudPort(ctx context.Context) (cloud.Port, error) {
	driver := config.GetString("cloud.driver")
	if driver == "" {
		driver = "dropbox"
	}
	f, ok := cloudregistry.NewFuncs[driver]
	if !ok {
		return nil, errors.Errorf("unknown cloud driver %q", driver)
	}
	return f(ctx, config.Get("cloud.drivers."+driver))
}

func newConfigStore(ctx context.Context) (storagecfg.Store, error) {
	driver := config.GetString("configstore.driver")
	if driver == "" {
		driver = "json"
	}
	f, ok := configregistry.NewFuncs[driver]
	if !ok {
		return nil, errors.Errorf("unknown config store %q", driver)
	}
	return f(ctx, config.Get("configstore.drivers."+driver))
}

type archiveStores interface {
	archive.LeaseStore
	archive.LocationStore
}

func newArchiveStores(ctx context.Context) (archiveStores, error) {
	return archivesql.NewMysql(ctx, config.Get("archive.drivers.sql"))
}

func newStream(log *zerolog.Logger) (events.Stream, error) {
	address := config.GetString("queue.address")
	cluster := config.GetString("queue.cluster_id")
	if cluster == "" {
		cluster = "lade-cluster"
	}
	if address == "" {
		// in-process queue: workers only see jobs enqueued by this process
		ch, _ := stream.Local()
		return ch, nil
	}
	return stream.Nats(log,
		natsjs.Address(address),
		natsjs.ClusterID(cluster),
		natsjs.Name("laded"),
	)
}
