//
// Copyright 2019-2023 Nestybox, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//


package main

import (
	"fmt"
	"log"
	"log/syslog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	lsyslog "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/urfave/cli"

	"github.com/nestybox/hesiodfs/config"
	"github.com/nestybox/hesiodfs/domain"
	"github.com/nestybox/hesiodfs/fuse"
	"github.com/nestybox/hesiodfs/handler"
	"github.com/nestybox/hesiodfs/hesiod"
	"github.com/nestybox/hesiodfs/resolver"
	"github.com/nestybox/hesiodfs/state"
	"github.com/nestybox/hesiodfs/sysio"
)

const (
	usage = `hesiodfs file-system

hesiodfs is a daemon that exposes Hesiod lockers as symbolic links under a
single directory (/mit by default). Links are looked up on first access and
each user gets a private view of them.
`
)

// Globals to be populated at build time during Makefile processing.
var (
	version  string // extracted from VERSION file
	commitId string // latest git commit-id
	builtAt  string // build time
	builtBy  string // build owner
)

//
// hesiodfs exit handler goroutine.
//
func exitHandler(signalChan chan os.Signal, fs domain.FuseServerIface, prof interface{ Stop() }) {

	s := <-signalChan
	logrus.Warnf("Caught OS signal: %s", s)

	if prof != nil {
		prof.Stop()
	}

	// Unmount hesiodfs
	logrus.Infof("Unmounting hesiodfs from mountpoint %v.", fs.MountPoint())
	fs.Unmount()

	// Deferring exit() to allow FUSE to dump unnmount() logs
	time.Sleep(2 * time.Millisecond)

	logrus.Info("Exiting.")
	os.Exit(0)
}

//
// hesiodfs main function
//
func main() {

	app := cli.NewApp()
	app.Name = "hesiodfs"
	app.Usage = usage
	app.Version = version
	app.Flags = appFlags()

	// show-version specialization.
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("hesiodfs\n"+
			"\tversion: \t%s\n"+
			"\tcommit: \t%s\n"+
			"\tbuilt at: \t%s\n"+
			"\tbuilt by: \t%s\n",
			c.App.Version, commitId, builtAt, builtBy)
	}

	// Define 'config' and 'log' settings.
	app.Before = func(ctx *cli.Context) error {

		cfg, err := loadConfig(ctx)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v. Exiting ...", err)
			return err
		}
		ctx.App.Metadata = map[string]interface{}{"config": cfg}

		return setupLogging(cfg)
	}

	// hesiodfs main-loop execution.
	app.Action = func(ctx *cli.Context) error {

		cfg := ctx.App.Metadata["config"].(*config.Config)

		// Enable profiling if requested.
		prof, err := runProfiler(ctx)
		if err != nil {
			logrus.Fatal(err)
		}

		fuseServer, err := newFuseServer(cfg)
		if err != nil {
			logrus.Fatalf("hesiodfs initialization error: %v. Exiting ...", err)
		}

		if err := fuseServer.Create(); err != nil {
			logrus.Fatalf("FuseServer creation error: %v. Exiting ...", err)
		}

		// Launch exit handler (performs proper cleanup of hesiodfs upon
		// receiving termination signals).
		var exitChan = make(chan os.Signal, 1)
		signal.Notify(
			exitChan,
			syscall.SIGHUP,
			syscall.SIGINT,
			syscall.SIGTERM,
			syscall.SIGQUIT)
		go exitHandler(exitChan, fuseServer, prof)

		// Let systemd know we're ready once the mount is being served.
		go func() {
			fuseServer.InitWait()
			if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
				logrus.Warnf("Unable to notify systemd: %v", err)
			}
			logrus.Info("Ready ...")
		}()

		// Initiate hesiodfs' FUSE service. Run() only returns once the
		// file-system is unmounted.
		if err := fuseServer.Run(); err != nil {
			logrus.Panic(err)
		}

		if prof != nil {
			prof.Stop()
		}

		return nil
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Panic(err)
	}
}

func appFlags() []cli.Flag {

	return []cli.Flag{
		cli.StringFlag{
			Name:  "mountpoint",
			Value: config.DefaultMountPoint,
			Usage: "mount-point location",
		},
		cli.StringFlag{
			Name:  "config",
			Usage: "YAML configuration file (command-line flags take precedence)",
		},
		cli.StringFlag{
			Name:  "log",
			Value: config.DefaultLog,
			Usage: "log file path",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: config.DefaultLogLevel,
			Usage: "log categories to include (debug, info, warning, error, fatal)",
		},
		cli.BoolFlag{
			Name:  "syslog",
			Usage: "also send logs to syslog (daemon facility)",
		},
		cli.DurationFlag{
			Name:  "hold-duration",
			Value: 500 * time.Millisecond,
			Usage: "time a removed locker stays hidden from lookups",
		},
		cli.StringFlag{
			Name:  "hesiod-conf",
			Value: config.DefaultHesiodConf,
			Usage: "hesiod configuration file",
		},
		cli.StringFlag{
			Name:  "readme",
			Usage: "file to serve as README.txt (built-in text by default)",
		},
		cli.DurationFlag{
			Name:  "entry-timeout",
			Usage: "kernel dentry-cache timeout",
		},
		cli.DurationFlag{
			Name:  "attr-timeout",
			Usage: "kernel attribute-cache timeout",
		},
		cli.BoolFlag{
			Name:  "allow-nonempty",
			Usage: "allow mounting over a non-empty directory",
		},
		cli.BoolFlag{
			Name:   "cpu-profiling",
			Usage:  "enable cpu-profiling data collection",
			Hidden: true,
		},
		cli.BoolFlag{
			Name:   "memory-profiling",
			Usage:  "enable memory-profiling data collection",
			Hidden: true,
		},
	}
}

//
// loadConfig builds the effective configuration: defaults, then the config
// file (if any), then every flag explicitly present in the command line.
//
func loadConfig(ctx *cli.Context) (*config.Config, error) {

	cfg := config.Default()

	if path := ctx.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFile(sysio.AppFs, path); err != nil {
			return nil, err
		}
	}

	if ctx.IsSet("mountpoint") {
		cfg.MountPoint = ctx.String("mountpoint")
	}
	if ctx.IsSet("log") {
		cfg.Log = ctx.String("log")
	}
	if ctx.IsSet("log-level") {
		cfg.LogLevel = ctx.String("log-level")
	}
	if ctx.IsSet("syslog") {
		cfg.Syslog = ctx.Bool("syslog")
	}
	if ctx.IsSet("hold-duration") {
		cfg.HoldDuration = ctx.Duration("hold-duration").String()
	}
	if ctx.IsSet("hesiod-conf") {
		cfg.HesiodConf = ctx.String("hesiod-conf")
	}
	if ctx.IsSet("readme") {
		cfg.Readme = ctx.String("readme")
	}
	if ctx.IsSet("entry-timeout") {
		cfg.EntryTimeout = ctx.Duration("entry-timeout").String()
	}
	if ctx.IsSet("attr-timeout") {
		cfg.AttrTimeout = ctx.Duration("attr-timeout").String()
	}
	if ctx.IsSet("allow-nonempty") {
		cfg.AllowNonEmpty = ctx.Bool("allow-nonempty")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseLogLevel(logLevel string) (logrus.Level, error) {

	switch logLevel {
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	case "fatal":
		return logrus.FatalLevel, nil
	}

	return logrus.InfoLevel, fmt.Errorf("log-level option '%v' not recognized", logLevel)
}

func setupLogging(cfg *config.Config) error {

	// Create/set the log-file destination.
	if path := cfg.Log; path != "" {
		f, err := os.OpenFile(
			path,
			os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC,
			0666,
		)
		if err != nil {
			logrus.Fatalf(
				"Error opening log file %v: %v. Exiting ...",
				path, err,
			)
			return err
		}

		// Set a proper logging formatter.
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:     true,
			TimestampFormat: "2006-01-02 15:04:05",
			FullTimestamp:   true,
		})
		logrus.SetOutput(f)
		log.SetOutput(f)
	}

	if cfg.Syslog {
		hook, err := lsyslog.NewSyslogHook("", "", syslog.LOG_INFO|syslog.LOG_DAEMON, "hesiodfs")
		if err != nil {
			logrus.Errorf("Unable to connect to syslog: %v", err)
			return err
		}
		logrus.AddHook(hook)
	}

	// Set desired log-level.
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("%v. Exiting ...", err)
		return err
	}
	logrus.SetLevel(level)

	return nil
}

func runProfiler(ctx *cli.Context) (interface{ Stop() }, error) {

	var prof interface{ Stop() }

	cpuProfOn := ctx.Bool("cpu-profiling")
	memProfOn := ctx.Bool("memory-profiling")

	// Cpu and Memory profiling options seem to be mutually exclused in pprof.
	if cpuProfOn && memProfOn {
		return nil, fmt.Errorf("Unsupported parameter combination: cpu and memory profiling")
	}

	if cpuProfOn {
		prof = profile.Start(
			profile.CPUProfile,
			profile.ProfilePath("."),
			profile.NoShutdownHook,
		)
	} else if memProfOn {
		prof = profile.Start(
			profile.MemProfile,
			profile.ProfilePath("."),
			profile.NoShutdownHook,
		)
	}

	return prof, nil
}

func newReadme(cfg *config.Config) (sysio.SyntheticFile, error) {

	if cfg.Readme == "" {
		return sysio.NewStaticFile(sysio.ReadmeFile, []byte(sysio.DefaultReadme)), nil
	}

	return sysio.LoadStaticFile(sysio.AppFs, sysio.ReadmeFile, cfg.Readme)
}

//
// newFuseServer initializes hesiodfs' services and wires them together.
//
func newFuseServer(cfg *config.Config) (domain.FuseServerIface, error) {

	hold, err := cfg.Hold()
	if err != nil {
		return nil, err
	}

	hesiodCfg, err := hesiod.LoadConfig(sysio.AppFs, cfg.HesiodConf)
	if err != nil {
		return nil, err
	}

	var resolverService = resolver.NewResolverService(
		state.NewAttachTable(),
		state.NewNegativeCache(hold),
		hesiod.NewClient(hesiodCfg),
	)

	readme, err := newReadme(cfg)
	if err != nil {
		return nil, err
	}

	syntheticFiles, err := sysio.NewDefaultFileSet(readme, resolverService)
	if err != nil {
		return nil, err
	}

	var handlerService = handler.NewHandlerService(resolverService, syntheticFiles)

	opts := fuse.DefaultOptions()
	opts.AllowNonEmpty = cfg.AllowNonEmpty
	if opts.EntryTimeout, err = cfg.EntryValid(); err != nil {
		return nil, err
	}
	if opts.AttrTimeout, err = cfg.AttrValid(); err != nil {
		return nil, err
	}

	logrus.Infof("Initializing hesiodfs on %v (lhs %v, rhs %v, hold %v)",
		cfg.MountPoint, hesiodCfg.LHS, hesiodCfg.RHS, hold)

	return fuse.NewFuseServer(cfg.MountPoint, handlerService, opts), nil
}
