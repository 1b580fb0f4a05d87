/*
Copyright © 2022 Daniils Petrovs <thedanpetrov@gmail.com>

*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/DaniruKun/cloak/config"
	"github.com/DaniruKun/cloak/imgproc"
	"github.com/DaniruKun/cloak/internal/log"
	"github.com/DaniruKun/cloak/session"
	"github.com/DaniruKun/cloak/source"
	"github.com/DaniruKun/cloak/utils"
	"github.com/spf13/cobra"
)

const WindowTitle = "Invisibility Cloak"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "cloak",
	Short:        "Invisibility Cloak",
	Long:         `Replaces a coloured cloth in a live camera feed with the background captured behind it.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logLevel, _ := cmd.Flags().GetString("log-level")
		log.Init(logLevel)

		cfg, opts, err := settingsFromFlags(cmd)
		if err != nil {
			return err
		}
		log.Info("configuration loaded", "ranges", cfg.Ranges.Len(), "origin", cfg.Origin)
		log.Debug("session options", "bgFrames", opts.BackgroundFrames, "bgBuffer", opts.Pipeline.BufferCapacity, "snapshot", opts.SnapshotPath)

		reader, err := openReader(cfg.Camera)
		if err != nil {
			return err
		}
		defer reader.Close()

		headless, _ := cmd.Flags().GetBool("headless")
		var display session.Display = session.Headless{}
		if !headless {
			display = session.NewWindow(WindowTitle)
		}
		defer display.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return session.New(reader, display, opts).Run(ctx)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	addSourceFlags(rootCmd)
	rootCmd.Flags().String("config", "", "path to a JSON or YAML document with HSV ranges")
	rootCmd.Flags().Int("bg-frames", 60, "frames to build the background from")
	rootCmd.Flags().Int("bg-buffer", imgproc.DefaultBufferCapacity, "frames kept in the background window")
	rootCmd.Flags().String("snapshot", utils.DefaultSnapshotName, "file the save key writes the current frame to")
	rootCmd.Flags().Bool("headless", false, "run without a preview window")
	rootCmd.Flags().Int("delay", 1, "milliseconds to wait for a key after each frame")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("camera", "c", 0, "webcam index")
	cmd.Flags().StringP("video", "v", "", "video file to read instead of a webcam")
	cmd.Flags().Int("width", 640, "capture width")
	cmd.Flags().Int("height", 480, "capture height")
	cmd.Flags().Bool("no-mirror", false, "do not flip frames horizontally")
}

func cameraFromFlags(cmd *cobra.Command) config.Camera {
	flags := cmd.Flags()
	camera := config.Default().Camera
	camera.Index, _ = flags.GetInt("camera")
	camera.Video, _ = flags.GetString("video")
	camera.Width, _ = flags.GetInt("width")
	camera.Height, _ = flags.GetInt("height")
	noMirror, _ := flags.GetBool("no-mirror")
	camera.Mirror = !noMirror
	return camera
}

// Builds the validated configuration and session options of the run command
func settingsFromFlags(cmd *cobra.Command) (config.Configuration, session.Options, error) {
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	cfg := config.Load(configPath)
	cfg.Camera = cameraFromFlags(cmd)
	cfg.BackgroundFrames, _ = flags.GetInt("bg-frames")
	cfg.BufferCapacity, _ = flags.GetInt("bg-buffer")
	if err := cfg.Validate(); err != nil {
		return config.Configuration{}, session.Options{}, err
	}

	snapshot, _ := flags.GetString("snapshot")
	snapshotPath, err := utils.SnapshotPath(snapshot)
	if err != nil {
		return config.Configuration{}, session.Options{}, err
	}

	opts := session.DefaultOptions()
	opts.Ranges = cfg.Ranges
	opts.Pipeline.BufferCapacity = cfg.BufferCapacity
	opts.BackgroundFrames = cfg.BackgroundFrames
	opts.SnapshotPath = snapshotPath
	opts.KeyDelay, _ = flags.GetInt("delay")
	if err := opts.Pipeline.Validate(); err != nil {
		return config.Configuration{}, session.Options{}, err
	}

	return cfg, opts, nil
}

// Opens the camera or video file, mirrored unless disabled
func openReader(camera config.Camera) (source.Reader, error) {
	capture, err := source.Open(source.Options{
		Device: camera.Index,
		File:   camera.Video,
		Width:  camera.Width,
		Height: camera.Height,
	})
	if err != nil {
		if camera.Video == "" {
			log.Error("could not open webcam, try --camera 1 or check permissions", "camera", camera.Index)
		}
		return nil, err
	}

	size := capture.Size()
	log.Info("frame source opened", "source", capture.String(), "width", size.X, "height", size.Y)

	if camera.Mirror {
		return source.Mirror(capture), nil
	}
	return capture, nil
}
