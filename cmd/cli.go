// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"visualizer/internal/audio"
	"visualizer/internal/config"
	applog "visualizer/internal/log"
	"visualizer/internal/preset"
	"visualizer/internal/transport"
	"visualizer/internal/tui"
	"visualizer/pkg/build"

	"github.com/spf13/cobra"
)

// options holds the flags shared by every command.
type options struct {
	configPath string
	verbose    bool

	deviceID   int
	serialPort string
	preview    bool
	record     bool
	unpaced    bool
	pick       bool
}

// Execute parses os.Args and runs the selected command until ctx is done.
func Execute(ctx context.Context) error {
	return newRootCommand().ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	info := build.Get()
	o := &options{}

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         build.Description,
		Version:       info.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd, o)
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "",
		"Path to config.yaml (default: ./config.yaml when present)")
	rootCmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false,
		"Show verbose output")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Capture audio and drive the LEDs (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd, o)
		},
	}
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().IntVarP(&o.deviceID, "device", "d", config.MinDeviceID,
			"Specify input device ID. Use 'list' command to see available devices.")
		c.Flags().StringVarP(&o.serialPort, "port", "p", "",
			"Serial port of the LED driver (overrides transport.serial_port)")
		c.Flags().BoolVar(&o.preview, "preview", false,
			"Show a live terminal preview of the LEDs")
		c.Flags().BoolVarP(&o.record, "record", "r", false,
			"Record the captured input to recording.output_dir")
	}

	replayCmd := &cobra.Command{
		Use:   "replay <file.wav>",
		Short: "Drive the LEDs from a WAV file instead of a capture device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, o, args[0])
		},
	}
	replayCmd.Flags().StringVarP(&o.serialPort, "port", "p", "",
		"Serial port of the LED driver (overrides transport.serial_port)")
	replayCmd.Flags().BoolVar(&o.preview, "preview", false,
		"Show a live terminal preview of the LEDs")
	replayCmd.Flags().BoolVar(&o.unpaced, "fast", false,
		"Feed the file as fast as possible instead of in real time")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices and serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.OutOrStdout(), o)
		},
	}
	listCmd.Flags().BoolVarP(&o.pick, "interactive", "i", false,
		"Pick a device interactively and print its config")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "Manage stored presets",
	}
	presetsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored presets",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listPresets(cmd.OutOrStdout(), o)
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a stored preset",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return deletePreset(cmd.OutOrStdout(), o, args[0])
			},
		},
	)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), build.Get())
		},
	}

	rootCmd.AddCommand(runCmd, replayCmd, listCmd, presetsCmd, versionCmd)
	return rootCmd
}

// loadConfig reads the configuration and applies the flags the user set.
func loadConfig(cmd *cobra.Command, o *options) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Audio.InputDevice = o.deviceID
	}
	if flags.Changed("port") {
		cfg.Transport.Kind = config.TransportSerial
		cfg.Transport.SerialPort = o.serialPort
	}
	if o.record {
		cfg.Recording.Enabled = true
	}
	if o.verbose {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := applog.Configure(cfg.LogLevel, cfg.Debug); err != nil {
		return nil, err
	}
	return cfg, nil
}

// redirectLogs moves logging off the terminal while the preview owns it.
func redirectLogs(name string) (io.Closer, error) {
	path := filepath.Join(os.TempDir(), name+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	applog.Infof("Preview: Logging to %s", path)
	applog.SetOutput(f)
	return f, nil
}

func runCapture(cmd *cobra.Command, o *options) error {
	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	p, err := newPipeline(cfg, cfg.Audio.SampleRate)
	if err != nil {
		return err
	}

	engine, err := audio.NewEngine(&cfg.Audio, p.extractor)
	if err != nil {
		p.close()
		return err
	}
	abort := func(err error) error {
		p.close()
		return errors.Join(err, engine.Close())
	}

	if err := engine.StartInputStream(); err != nil {
		return abort(err)
	}
	var recording string
	if cfg.Recording.Enabled {
		if recording, err = engine.StartRecordingIn(cfg.Recording.OutputDir); err != nil {
			return abort(err)
		}
	}

	if o.preview {
		logFile, err := redirectLogs(build.Get().Name)
		if err != nil {
			return abort(err)
		}
		defer logFile.Close()
		defer applog.SetOutput(os.Stderr)
	}

	capture := func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}
	runErr := p.run(cmd.Context(), capture, o.preview)
	return errors.Join(runErr, finishCapture(cmd.OutOrStdout(), engine, recording))
}

// finishCapture stops the input stream and finalizes the recording, and only
// then reports where the recording was written.
func finishCapture(w io.Writer, engine io.Closer, recording string) error {
	if err := engine.Close(); err != nil {
		return fmt.Errorf("failed to stop capture: %w", err)
	}
	if recording != "" {
		fmt.Fprintf(w, "Recording saved to: %s\n", recording)
	}
	return nil
}

func runReplay(cmd *cobra.Command, o *options, path string) error {
	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}

	r, err := audio.OpenReplay(path)
	if err != nil {
		return err
	}
	defer r.Close()

	p, err := newPipeline(cfg, r.SampleRate())
	if err != nil {
		return err
	}

	if o.preview {
		logFile, err := redirectLogs(build.Get().Name)
		if err != nil {
			p.close()
			return err
		}
		defer logFile.Close()
		defer applog.SetOutput(os.Stderr)
	}

	replay := func(ctx context.Context) error {
		if err := r.Run(ctx, cfg.Audio.FramesPerBuffer, p.extractor, !o.unpaced); err != nil {
			return err
		}
		return errStopped
	}
	return p.run(cmd.Context(), replay, o.preview)
}

func runList(w io.Writer, o *options) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if o.pick {
		sel, ok, err := tui.PickDevice()
		if err != nil || !ok {
			return err
		}
		fmt.Fprint(w, sel)
		return nil
	}

	if err := audio.ListDevices(w); err != nil {
		return err
	}

	ports, err := transport.SerialPorts()
	if err != nil {
		applog.Warnf("List: Cannot enumerate serial ports: %v", err)
		return nil
	}
	fmt.Fprintf(w, "Serial Ports\n\n")
	if len(ports) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, port := range ports {
		fmt.Fprintf(w, "  %s\n", port)
	}
	return nil
}

func openStore(o *options) (*preset.FileStore, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	return preset.NewFileStore(cfg.Presets.Dir)
}

func listPresets(w io.Writer, o *options) error {
	store, err := openStore(o)
	if err != nil {
		return err
	}
	presets, err := store.List()
	if err != nil {
		return err
	}
	if len(presets) == 0 {
		fmt.Fprintf(w, "No presets in %s\n", store.Dir())
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDISPLAY\tANIMATION\tFPS")
	for _, p := range presets {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", p.Index, p.Title(),
			p.Params.DisplayMode, p.Params.AnimationMode, p.Params.FrameRate)
	}
	return tw.Flush()
}

func deletePreset(w io.Writer, o *options, arg string) error {
	id, err := strconv.ParseUint(arg, 10, 8)
	if err != nil {
		return fmt.Errorf("preset id '%s' must be 0-255: %w", arg, err)
	}
	store, err := openStore(o)
	if err != nil {
		return err
	}
	if err := store.Delete(uint8(id)); err != nil {
		return err
	}
	fmt.Fprintf(w, "Deleted preset %d\n", id)
	return nil
}
