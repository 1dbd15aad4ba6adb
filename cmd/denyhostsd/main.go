package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dotX12/denyhosts-go/internal/allowlist"
	"github.com/dotX12/denyhosts-go/internal/attemptstore"
	"github.com/dotX12/denyhosts-go/internal/classifier"
	"github.com/dotX12/denyhosts-go/internal/config"
	"github.com/dotX12/denyhosts-go/internal/denyfile"
	"github.com/dotX12/denyhosts-go/internal/domain"
	"github.com/dotX12/denyhosts-go/internal/firewall"
	"github.com/dotX12/denyhosts-go/internal/logfollow"
	"github.com/dotX12/denyhosts-go/internal/logger"
	"github.com/dotX12/denyhosts-go/internal/ops"
	"github.com/dotX12/denyhosts-go/internal/plugin"
	"github.com/dotX12/denyhosts-go/internal/report"
	"github.com/dotX12/denyhosts-go/internal/scheduler"
	"github.com/dotX12/denyhosts-go/internal/store"
	"github.com/dotX12/denyhosts-go/internal/syncclient"
)

var (
	logLevel   string
	configPath string
	logPath    string
	version    = "dev"
)

func main() {
	log := logger.New()
	logger.SetGlobalLogger(log)

	rootCmd := &cobra.Command{
		Use:     "denyhostsd",
		Short:   "Host-based intrusion-prevention daemon",
		Long:    `Monitors authentication logs, accumulates per-host failure counts, and installs deny rules against the host firewall and access-control file.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logLevel != "" {
				log = logger.NewWithLevel(logLevel)
				logger.SetGlobalLogger(log)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		Run:   runDaemon,
	}
	runCmd.Flags().StringVarP(&configPath, "config", "c", "/etc/denyhosts-go/config.yaml", "Path to the YAML configuration file")
	runCmd.Flags().StringVarP(&logPath, "logfile", "f", "/var/log/auth.log", "Authentication log to monitor")

	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) {
	log := logger.Global()
	log.Info().Msg("=== denyhosts-go starting ===")

	if os.Geteuid() != 0 {
		log.Fatal().Msg("this daemon must be run as root to manipulate the firewall and access-control file")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fatalIf(log, ops.Configuration, err, "failed to load configuration")
	}

	if err := os.MkdirAll(cfg.WorkDir, 0o750); err != nil {
		fatalIf(log, ops.IO, err, "failed to create work directory")
	}

	st, err := store.Open(filepath.Join(cfg.WorkDir, "denyhosts.db"))
	if err != nil {
		fatalIf(log, ops.IO, err, "failed to open persistent store")
	}
	defer st.Close()

	thresholds := domain.Thresholds{
		Invalid:    cfg.DenyThresholdInvalid,
		Valid:      cfg.DenyThresholdValid,
		Root:       cfg.DenyThresholdRoot,
		Restricted: cfg.DenyThresholdRestricted,
	}

	attempts, err := attemptstore.New(log.Logger, st, thresholds, cfg.RestrictedUsernames)
	if err != nil {
		fatalIf(log, ops.IO, err, "failed to initialize attempt store")
	}

	allowed, err := allowlist.Load(log.Logger, cfg.AllowedFile, st)
	if err != nil {
		fatalIf(log, ops.IO, err, "failed to load allow-list")
	}

	cl, err := classifier.New(log.Logger, classifier.Options{
		SSHDFormatRegex:         cfg.SSHDFormatRegex,
		FailedEntryRegexes:      cfg.FailedEntryRegexes,
		SuccessfulEntryRegex:    cfg.SuccessfulEntryRegex,
		DetectDovecot:           cfg.DetectDovecotLoginAttempts,
		FailedDovecotEntryRegex: cfg.FailedDovecotEntryRegex,
		UserdefFailedEntryRegex: cfg.UserdefFailedEntryRegex,
	})
	if err != nil {
		fatalIf(log, ops.Configuration, err, "failed to compile classifier regexes")
	}

	writer := denyfile.New(log.Logger, denyfile.Options{
		Path:           cfg.HostsDeny,
		BlockService:   cfg.BlockService,
		BSDStyle:       cfg.BSDStyle,
		WriteTimestamp: cfg.PurgeDeny > 0,
	})

	backend, err := buildFirewallBackend(log.Logger, cfg)
	if err != nil {
		fatalIf(log, ops.Configuration, err, "failed to construct firewall backend")
	}
	if err := backend.Init(); err != nil {
		log.Warn().Err(ops.Tag(ops.Subprocess, err)).Msg("firewall backend initialization failed, will retry on first block")
	}

	follower, err := logfollow.New(log.Logger, st, logPath)
	if err != nil {
		fatalIf(log, ops.IO, err, "failed to open log for following")
	}

	sinks := []report.Sink{report.NewConsoleSink(os.Stdout)}
	if cfg.SyslogReport {
		syslogSink, err := report.NewSyslogSink("denyhostsd")
		if err != nil {
			log.Warn().Err(err).Msg("SYSLOG_REPORT enabled but syslog connection failed, continuing without it")
		} else {
			sinks = append(sinks, syslogSink)
		}
	}
	rep := report.New(log.Logger, sinks...)

	var syncer syncclient.Client
	if cfg.SyncServer != "" {
		syncer = syncclient.NewHTTPSyncClient(cfg.SyncServer, 30*time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGUSR1)
	go func() {
		for s := range sig {
			switch s {
			case syscall.SIGTERM:
				log.Info().Msg("received SIGTERM, finishing current tick then shutting down")
				cancel()
				return
			case syscall.SIGUSR1:
				*log = *logger.Toggle(log)
				logger.SetGlobalLogger(log)
				log.Info().Msg("toggled log level")
			}
		}
	}()

	ingest := func(ctx context.Context) error {
		tick, err := follower.Poll()
		if err != nil {
			return err
		}
		if !tick.Changed {
			return nil
		}

		denied, err := denyfile.ParseDenied(cfg.HostsDeny)
		if err != nil {
			log.Warn().Err(err).Msg("failed to parse deny file")
		}
		deniedSet := make(map[domain.Host]bool, len(denied))
		for _, h := range denied {
			deniedSet[h] = true
			if allowed.Contains(h) {
				first, err := allowed.Warn(h)
				if err == nil && first {
					rep.AddSection(fmt.Sprintf("WARNING: the following hosts appear in %s but should be allowed", cfg.HostsDeny), []string{string(h)})
				}
			}
		}

		now := time.Now()
		for _, line := range tick.Lines {
			result := cl.Classify(line)
			switch result.Kind {
			case domain.Success:
				attempts.Record(result.Host, result.User, true, false, now)
			case domain.Failure:
				if allowed.Contains(result.Host) {
					continue
				}
				attempts.Record(result.Host, result.User, false, result.Invalid, now)
			}
		}

		candidates := attempts.DenyCandidates()
		var newHosts []domain.Host
		for _, h := range candidates {
			if allowed.Contains(h) || deniedSet[h] {
				continue
			}
			newHosts = append(newHosts, h)
		}

		if len(newHosts) > 0 {
			// Deny-file write commits first: a host marked Emitted=true
			// survives a crash even if the firewall reconciliation below
			// never runs, since it will not be re-surfaced by
			// DenyCandidates on the next tick.
			added, ok := writer.Apply(newHosts)
			if !ok {
				rep.AddSection("WARNING: could not write to deny file, hosts printed to stdout", hostsToStrings(added))
			} else {
				rep.AddSection(fmt.Sprintf("Added the following hosts to %s", cfg.HostsDeny), hostsToStrings(added))
			}

			fwHosts := make([]domain.Host, 0, len(newHosts))
			for _, h := range newHosts {
				if !backend.Check(h) {
					fwHosts = append(fwHosts, h)
				}
			}
			if len(fwHosts) > 0 {
				if err := backend.Block(fwHosts); err != nil {
					log.Error().Err(err).Msg("firewall block failed")
				}
			}

			if cfg.SyncServer != "" {
				for _, h := range newHosts {
					_ = st.QueueSyncPending(h, now)
				}
			}

			if cfg.PluginDeny != "" {
				if err := plugin.Execute(log.Logger, cfg.PluginDeny, newHosts); err != nil {
					log.Warn().Err(err).Msg("PLUGIN_DENY hook failed")
				}
			}
		}

		if err := attempts.Flush(); err != nil {
			log.Warn().Err(err).Msg("failed to flush attempt counters")
		}

		return rep.Flush()
	}

	purge := func(ctx context.Context) error {
		if cfg.PurgeDeny <= 0 {
			return nil
		}
		return attempts.Purge(cfg.PurgeDeny)
	}

	sync := func(ctx context.Context) error {
		if syncer == nil {
			return nil
		}
		if cfg.SyncUpload {
			pending, err := st.PendingSyncHosts()
			if err != nil {
				return err
			}
			if len(pending) > 0 {
				if _, err := syncer.SendNewHosts(ctx, pending); err != nil {
					log.Error().Err(err).Msg("sync upload failed, will retry next cycle")
					return nil
				}
				for _, h := range pending {
					_ = st.ClearSyncPending(h)
				}
			}
		}
		if cfg.SyncDownload {
			newHosts, err := syncer.ReceiveNewHosts(ctx)
			if err != nil {
				log.Error().Err(err).Msg("sync download failed")
				return nil
			}
			if len(newHosts) > 0 {
				log.Info().Int("count", len(newHosts)).Msg("received new hosts from sync peer")
				if err := backend.Block(newHosts); err != nil {
					log.Error().Err(err).Msg("firewall block of synced hosts failed")
				}
				writer.Apply(newHosts)
			}
		}
		return nil
	}

	syncInterval := cfg.SyncInterval
	if syncInterval < scheduler.SyncMinInterval {
		syncInterval = scheduler.SyncMinInterval
	}

	sched := scheduler.New(log.Logger, scheduler.Config{
		Tick:       cfg.DaemonSleep,
		PurgeEvery: scheduler.TicksFor(cfg.DaemonPurge, cfg.DaemonSleep),
		SyncEvery:  scheduler.TicksFor(syncInterval, cfg.DaemonSleep),
	}, scheduler.Stages{Ingest: ingest, Purge: purge, Sync: sync})

	log.Info().Str("logfile", logPath).Msg("monitoring log")
	if err := sched.Run(ctx); err != nil {
		fatalIf(log, ops.FatalStartup, err, "scheduler exited with error")
	}
	log.Info().Msg("denyhosts-go daemon is shutting down")
}

// fatalIf tags err with kind and aborts the process, matching
// spec.md §7: every kind but FatalStartup is meant to be absorbed by
// its caller, so reaching here always means kind was FatalStartup or a
// startup-time failure this function promotes to one.
func fatalIf(log *logger.Logger, kind ops.Kind, err error, msg string) {
	tagged := ops.Tag(kind, err)
	if !ops.IsFatal(tagged) {
		tagged = ops.Tag(ops.FatalStartup, tagged)
	}
	log.Fatal().Err(tagged).Msg(msg)
}

func buildFirewallBackend(logger zerolog.Logger, cfg *config.Config) (firewall.Backend, error) {
	switch cfg.FirewallBackend {
	case "ipset":
		return firewall.NewIPSetBackend(logger, cfg.IpsetName, "DENYHOSTS", cfg.BlockPort, cfg.IpsetCommand, cfg.Iptables), nil
	case "iptables":
		return firewall.NewIPTablesBackend(logger, "DENYHOSTS", cfg.BlockPort, cfg.Iptables), nil
	case "pf":
		return firewall.NewPFBackend(logger, cfg.PfctlPath, cfg.PfTable), nil
	case "pf_table_file":
		inner := firewall.NewPFBackend(logger, cfg.PfctlPath, cfg.PfTable)
		return firewall.NewPFTableFileBackend(logger, inner, cfg.PfTableFile), nil
	default:
		return nil, fmt.Errorf("unknown firewall backend %q", cfg.FirewallBackend)
	}
}

func hostsToStrings(hosts []domain.Host) []string {
	out := make([]string, len(hosts))
	for i, h := range hosts {
		out[i] = string(h)
	}
	return out
}
