package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"imu-window/controller"
	"imu-window/models"
	"imu-window/utils"
	"imu-window/views"
)

const appVersion = "1.0"

var (
	flagConfig     string
	flagProfile    string
	flagLogLevel   string
	flagLogFile    string
	flagMaxWindows int
	flagDuration   int
	flagNoRecord   bool
	flagDataDir    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "imu-window",
		Short: "IMU sample window manager",
		Long: `imu-window buffers a continuous IMU stream in a fixed-size ring and hands
the most recent window of samples to downstream consumers once enough
history has accumulated.

Two sensor profiles are built in: "single" reads one accelerometer sample
per cycle, "burst" drains the accelerometer+gyroscope FIFO every cycle.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "YAML or TOML config file (defaults to the built-in profile)")
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", utils.ProfileSingle, "built-in profile when no config file is given: single or burst")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log", "", "optional log file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the sensor and record extracted windows",
		RunE:  runPipeline,
	}
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the sensor with a live terminal monitor",
		RunE:  watchPipeline,
	}
	for _, c := range []*cobra.Command{runCmd, watchCmd} {
		c.Flags().IntVar(&flagMaxWindows, "max-windows", 0, "stop after this many windows (0 = no limit)")
		c.Flags().IntVar(&flagDuration, "duration", 0, "stop after this many seconds (0 = no limit)")
		c.Flags().BoolVar(&flagNoRecord, "no-record", false, "do not write windows to disk")
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Average recording length per label in a dataset directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := views.DatasetStats(flagDataDir)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), views.RenderDatasetStats(stats))
			return nil
		},
	}
	statsCmd.Flags().StringVar(&flagDataDir, "data", "./data", "directory of labelled .csv recordings")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "imu-window %s (%s)\n", appVersion, runtime.Version())
		},
	}

	rootCmd.AddCommand(runCmd, watchCmd, statsCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the config file or built-in profile and applies the
// command-line overrides.
func loadConfig(cmd *cobra.Command) (*utils.Config, error) {
	var (
		cfg *utils.Config
		err error
	)
	if flagConfig != "" {
		// --profile picks the defaults a file without a profile overlays
		cfg, err = utils.LoadConfigProfile(flagConfig, flagProfile)
		if err == nil && cmd.Flags().Changed("profile") && cfg.Profile != flagProfile {
			utils.L().Warn("--profile %s ignored: %s names profile %s", flagProfile, flagConfig, cfg.Profile)
		}
	} else {
		cfg, err = utils.Defaults(flagProfile)
	}
	if err != nil {
		return nil, err
	}

	if flagMaxWindows > 0 {
		cfg.Poll.MaxWindows = flagMaxWindows
	}
	if flagDuration > 0 {
		cfg.Poll.DurationSeconds = flagDuration
	}
	if flagNoRecord {
		cfg.Storage.Enabled = false
	}
	if !filepath.IsAbs(cfg.Storage.BaseDir) {
		abs, _ := filepath.Abs(cfg.Storage.BaseDir)
		cfg.Storage.BaseDir = abs
	}
	return cfg, cfg.Validate()
}

// pipeline is everything one polling session owns.
type pipeline struct {
	cfg      *utils.Config
	sensors  *controller.SensorsController
	windows  *controller.WindowController
	recorder *controller.RecordingController
}

func buildPipeline(cfg *utils.Config, extra ...controller.Consumer) (*pipeline, error) {
	sensors, err := controller.NewSensorsController(cfg)
	if err != nil {
		return nil, err
	}
	buf, adapter, err := sensors.NewAdapter()
	if err != nil {
		return nil, err
	}

	p := &pipeline{cfg: cfg, sensors: sensors}
	consumers := extra
	if cfg.Storage.Enabled {
		p.recorder, err = controller.NewRecordingController(cfg)
		if err != nil {
			return nil, err
		}
		consumers = append(consumers, p.recorder)
	}

	p.windows = controller.NewWindowController(cfg, buf, adapter, consumers...)
	p.windows.SetExhausted(sensors.Exhausted)
	return p, nil
}

// start launches the source, the recorder and the polling loop. The
// returned channel closes when the loop ends.
func (p *pipeline) start(ctx context.Context) <-chan struct{} {
	p.sensors.Start(ctx)
	if p.recorder != nil {
		p.recorder.Start(ctx)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.windows.Run(ctx)
	}()
	return done
}

func (p *pipeline) stop() {
	if p.recorder != nil {
		p.recorder.Stop()
	}
}

func withDuration(ctx context.Context, cfg *utils.Config) (context.Context, context.CancelFunc) {
	if cfg.Poll.DurationSeconds > 0 {
		return context.WithTimeout(ctx, time.Duration(cfg.Poll.DurationSeconds)*time.Second)
	}
	return context.WithCancel(ctx)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	level, err := utils.ParseLevel(flagLogLevel)
	if err != nil {
		return err
	}
	logger := utils.InitLogger(level, flagLogFile)
	defer logger.Close()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	utils.L().Info("═══════════════════════════════════════════════════")
	utils.L().Info("  imu-window  ·  %s profile  ·  %d channels", cfg.Profile, cfg.Sensor.Channels)
	utils.L().Info("  capacity=%d  required=%d  window=%d  PID=%d",
		cfg.Window.Capacity, cfg.Window.RequiredDepth, cfg.Window.Length, os.Getpid())
	utils.L().Info("═══════════════════════════════════════════════════")

	announce := controller.ConsumerFunc(func(w *models.Window) bool {
		utils.L().Info("window %s  cycle=%d  samples=%d  cursor=%d", w.ID[:8], w.Cycle, w.Samples(), w.Cursor)
		return false
	})
	p, err := buildPipeline(cfg, announce)
	if err != nil {
		return err
	}

	ctx, cancel := withDuration(context.Background(), cfg)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := p.start(ctx)
	utils.L().Info("pipeline running — press Ctrl+C to stop")

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

loop:
	for {
		select {
		case sig := <-sigCh:
			utils.L().Info("received signal: %v — shutting down…", sig)
			break loop
		case <-done:
			break loop
		case <-statsTicker.C:
			utils.L().Info("── stats ─────────────────────────")
			p.sensors.LogStats()
			utils.L().Info("  cycles=%d  windows=%d  errors=%d",
				p.windows.Cycles(), p.windows.Windows(), p.windows.Errors())
			utils.L().Info("──────────────────────────────────")
		}
	}
	cancel()
	<-done
	p.stop()

	utils.L().Info("total windows: %d  (cycles=%d, errors=%d)",
		p.windows.Windows(), p.windows.Cycles(), p.windows.Errors())
	if p.recorder != nil {
		fmt.Println("\n✓ imu-window finished. Windows at:", p.recorder.SessionDir())
	}
	return nil
}

func watchPipeline(cmd *cobra.Command, args []string) error {
	level, err := utils.ParseLevel(flagLogLevel)
	if err != nil {
		return err
	}
	logger := utils.InitFileLogger(level, flagLogFile)
	defer logger.Close()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	prog := tea.NewProgram(
		views.NewMonitor(cfg.Profile, cfg.Sensor.Channels, cfg.Window.Length),
		tea.WithAltScreen(),
	)
	p.windows.SetObserver(func(s models.CycleStatus) { prog.Send(views.StatusMsg(s)) })
	p.windows.SetReporter(views.ProgramReporter{Program: prog})

	ctx, cancel := withDuration(context.Background(), cfg)
	defer cancel()

	done := p.start(ctx)
	go func() {
		<-done
		prog.Send(views.DoneMsg{})
	}()

	_, err = prog.Run()
	cancel()
	<-done
	p.stop()
	return err
}
