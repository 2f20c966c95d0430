package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/lanikai/avconsumer"
	"github.com/lanikai/avconsumer/internal/config"
	"github.com/lanikai/avconsumer/internal/logging"
)

var log = logging.DefaultLogger.WithTag("avconsumerd")

var (
	flagConfig       string
	flagLog          string
	flagTransport    string
	flagFraming      string
	flagSHMName      string
	flagSHMSemaphore string
	flagSHMSize      int
	flagListen       string
	flagNoAudio      bool
	flagDecoder      string
	flagDump         string
	flagSnapshot     string
	flagHelp         bool
	flagVersion      bool
)

func init() {
	flag.StringVarP(&flagConfig, "config", "c", "", "YAML configuration file")
	flag.StringVarP(&flagLog, "log", "", "", "Log level directives")
	flag.StringVarP(&flagTransport, "transport", "t", config.TransportSHM, "Video transport")
	flag.StringVarP(&flagFraming, "framing", "f", "auto", "Producer buffer framing")
	flag.StringVarP(&flagSHMName, "shm-name", "", "/openauto_video_shm", "Video shared memory object")
	flag.StringVarP(&flagSHMSemaphore, "shm-semaphore", "", "", "Video semaphore")
	flag.IntVarP(&flagSHMSize, "shm-size", "", 1920*1080*3, "Bytes of video shared memory to map")
	flag.StringVarP(&flagListen, "listen", "l", ":8700", "WebSocket listen address")
	flag.BoolVarP(&flagNoAudio, "no-audio", "", false, "Do not attach to the audio stream")
	flag.StringVarP(&flagDecoder, "decoder", "d", config.BackendFFmpeg, "Decoder backend")
	flag.StringVarP(&flagDump, "dump", "o", "", "Raw I420 output file")
	flag.StringVarP(&flagSnapshot, "snapshot", "s", "", "PNG snapshot file")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

// applyFlags overrides file settings with flags given on the command line.
func applyFlags(cfg *config.Config) {
	changed := flag.CommandLine.Changed
	if changed("log") {
		cfg.Log = flagLog
	}
	if changed("transport") {
		cfg.Video.Transport = flagTransport
	}
	if changed("framing") {
		cfg.Video.Framing = flagFraming
	}
	if changed("shm-name") {
		cfg.Video.SHM.Name = flagSHMName
		if !changed("shm-semaphore") {
			cfg.Video.SHM.Semaphore = flagSHMName + "_sem"
		}
	}
	if changed("shm-semaphore") {
		cfg.Video.SHM.Semaphore = flagSHMSemaphore
	}
	if changed("shm-size") {
		cfg.Video.SHM.Size = flagSHMSize
	}
	if changed("listen") {
		cfg.Video.WebSocket.Addr = flagListen
	}
	if flagNoAudio {
		cfg.Audio.Enabled = false
	}
	if changed("decoder") {
		cfg.Decoder.Backend = flagDecoder
	}
	if changed("dump") {
		cfg.Render.Dump = flagDump
	}
	if changed("snapshot") {
		cfg.Render.Snapshot = flagSnapshot
	}
}

func loadConfig() (*config.Config, error) {
	if flagConfig == "" {
		return config.Default(), nil
	}
	return config.Load(flagConfig)
}

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}
	if flagVersion {
		version()
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal("%v", err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal("%v", err)
	}
	if cfg.Log != "" {
		if err := logging.Configure(cfg.Log); err != nil {
			log.Fatal("%v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, err := avconsumer.NewConsumer(cfg)
	if err != nil {
		log.Fatal("%v", err)
	}

	log.Info("Consuming %s video (%s framing, %s decoder)",
		cfg.Video.Transport, cfg.Video.Framing, cfg.Decoder.Backend)
	runErr := consumer.Run(ctx)

	st := consumer.Stats()
	log.Info("Decoded %d pictures from %d access units, dropped %d buffers",
		st.Decoder.Pictures, st.Decoder.Units, st.Dropped)

	if err := consumer.Close(); err != nil {
		log.Warn("Close: %v", err)
	}
	if runErr != nil {
		log.Error("%v", runErr)
		os.Exit(1)
	}
}
