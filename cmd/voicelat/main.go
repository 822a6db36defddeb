package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/spf13/cobra"

	"github.com/echolabs-dev/voicelat/internal/worker"
	"github.com/echolabs-dev/voicelat/pkg/agent"
	"github.com/echolabs-dev/voicelat/pkg/ai/stt"
	"github.com/echolabs-dev/voicelat/pkg/ai/tts"
	"github.com/echolabs-dev/voicelat/pkg/audio/wav"
	"github.com/echolabs-dev/voicelat/pkg/config"
	"github.com/echolabs-dev/voicelat/pkg/job"
	"github.com/echolabs-dev/voicelat/pkg/metrics"
	"github.com/echolabs-dev/voicelat/pkg/plugin"
	"github.com/echolabs-dev/voicelat/pkg/plugin/cartesia"
	"github.com/echolabs-dev/voicelat/pkg/plugin/deepgram"
	"github.com/echolabs-dev/voicelat/pkg/plugin/groq"
	"github.com/echolabs-dev/voicelat/pkg/rtc"
	"github.com/echolabs-dev/voicelat/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "voicelat",
	Short: "Voice agent with per-turn latency metrics",
	Long: `voicelat runs a LiveKit voice agent (Deepgram STT, Groq LLM, Cartesia TTS)
that measures per-turn conversation latency and exports the numbers to a
spreadsheet report on shutdown.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersionInfo())
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full voice agent with metrics collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		roomName, _ := cmd.Flags().GetString("room")
		identity, _ := cmd.Flags().GetString("identity")

		logger := setupLogger()

		cfg := config.Load()
		if err := cfg.Validate(config.ModeFull); err != nil {
			return err
		}
		if roomName == "" {
			roomName = cfg.RoomName
		}
		if roomName == "" {
			return fmt.Errorf("--room is required (or set LIVEKIT_ROOM)")
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		logger.Info("starting voice agent",
			slog.String("service", "voicelat"),
			slog.String("version", version.Version),
			slog.String("room", roomName))

		return runAgent(ctx, cfg, roomName, identity, logger)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Connect to a dispatch server and run agents on demand",
	RunE: func(cmd *cobra.Command, args []string) error {
		dispatchURL, _ := cmd.Flags().GetString("dispatch-url")
		dispatchToken, _ := cmd.Flags().GetString("dispatch-token")

		logger := setupLogger()

		cfg := config.Load()
		if err := cfg.Validate(config.ModeFull); err != nil {
			return err
		}
		if dispatchURL == "" {
			return fmt.Errorf("--dispatch-url is required")
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		w := worker.New(worker.Config{
			URL:   dispatchURL,
			Token: dispatchToken,
			Handler: func(jobCtx context.Context, roomName string) error {
				return runAgent(jobCtx, cfg, roomName, "voicelat-agent", logger)
			},
		}, logger)

		return w.Run(ctx)
	},
}

var providersCmd = &cobra.Command{
	Use:   "providers [kind]",
	Short: "List available AI providers",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := ""
		if len(args) > 0 {
			kind = args[0]
		}

		providers := plugin.List(kind)
		if len(providers) == 0 {
			fmt.Println("no providers registered")
			return nil
		}

		fmt.Printf("%-6s %-12s %s\n", "KIND", "NAME", "DESCRIPTION")
		for _, p := range providers {
			fmt.Printf("%-6s %-12s %s\n", p.Kind, p.Name, p.Description)
		}
		return nil
	},
}

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Synthesize text to a WAV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		out, _ := cmd.Flags().GetString("out")

		logger := setupLogger()

		cfg := config.Load()
		if cfg.CartesiaAPIKey == "" {
			return fmt.Errorf("CARTESIA_API_KEY is required")
		}
		if text == "" {
			return fmt.Errorf("--text is required")
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return runSynth(ctx, cfg, text, out, logger)
	},
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Transcription only: join a room (or read a WAV file) and log transcripts",
	RunE: func(cmd *cobra.Command, args []string) error {
		roomName, _ := cmd.Flags().GetString("room")
		identity, _ := cmd.Flags().GetString("identity")
		filePath, _ := cmd.Flags().GetString("file")

		logger := setupLogger()

		cfg := config.Load()
		if filePath != "" {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return transcribeFile(ctx, cfg, filePath, logger)
		}

		if err := cfg.Validate(config.ModeTranscribe); err != nil {
			return err
		}
		if roomName == "" {
			roomName = cfg.RoomName
		}
		if roomName == "" {
			return fmt.Errorf("--room is required (or set LIVEKIT_ROOM)")
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		logger.Info("starting transcriber",
			slog.String("service", "voicelat"),
			slog.String("room", roomName))

		return runTranscriber(ctx, cfg, roomName, identity, logger)
	},
}

func setupLogger() *slog.Logger {
	logFormat := os.Getenv("VOICELAT_LOG_FORMAT")
	logLevel := os.Getenv("VOICELAT_LOG_LEVEL")

	opts := &slog.HandlerOptions{}
	switch logLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	var handler slog.Handler
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// generateToken mints the agent's room join token.
func generateToken(apiKey, apiSecret, room, identity string, validFor time.Duration) (string, error) {
	at := auth.NewAccessToken(apiKey, apiSecret)

	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     room,
	}

	at.AddGrant(grant).
		SetIdentity(identity).
		SetValidFor(validFor)

	return at.ToJWT()
}

func runAgent(ctx context.Context, cfg *config.Config, roomName, identity string, logger *slog.Logger) error {
	jobInstance, err := job.New(ctx, job.Config{RoomName: roomName})
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	tracker := metrics.NewTracker(logger)

	// Cross-process record feed: turn records stream to the writer as
	// each turn completes, so a crash loses at most the current turn.
	queue := metrics.NewRecordQueue(0)
	writer := metrics.NewWriter(queue, "", 0, logger)
	writerDone := make(chan error, 1)
	go func() { writerDone <- writer.Run(ctx) }()

	sttProvider, err := deepgram.New(deepgram.Config{APIKey: cfg.DeepgramAPIKey, Logger: logger})
	if err != nil {
		return fmt.Errorf("deepgram: %w", err)
	}
	llmProvider, err := groq.New(groq.Config{APIKey: cfg.GroqAPIKey})
	if err != nil {
		return fmt.Errorf("groq: %w", err)
	}
	ttsProvider, err := cartesia.New(cartesia.Config{APIKey: cfg.CartesiaAPIKey})
	if err != nil {
		return fmt.Errorf("cartesia: %w", err)
	}

	session, err := agent.NewSession(agent.Config{
		STT:     sttProvider,
		LLM:     llmProvider,
		TTS:     ttsProvider,
		Tracker: tracker,
		Queue:   queue,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	// The report is written on every exit path, clean or signalled.
	jobInstance.Context.OnShutdown(func(reason string) {
		path, err := tracker.Export(cfg.MetricsPath)
		if err != nil {
			logger.Error("metrics export failed", slog.String("error", err.Error()))
			return
		}
		logger.Info("metrics exported",
			slog.String("path", path),
			slog.Int("turns", tracker.TurnCount()),
			slog.String("reason", reason))
	})

	token, err := generateToken(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, roomName, identity, 6*time.Hour)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	roomConfig := job.RoomConfig{URL: cfg.LiveKitURL, Token: token, RoomName: roomName}
	room, err := job.NewRoom(ctx, roomConfig)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	defer room.Disconnect()

	if err := room.Connect(roomConfig); err != nil {
		return fmt.Errorf("connect to room: %w", err)
	}
	logger.Info("connected to room",
		slog.String("room", roomName),
		slog.String("identity", room.LocalIdentity()))

	if err := session.Greet(ctx); err != nil {
		logger.Warn("greeting failed", slog.String("error", err.Error()))
	}

	dispatchEvents(ctx, room, logger, func(identity string, event *job.Event) {
		go func() {
			if err := session.RunParticipant(ctx, identity, event.Audio.Frames()); err != nil {
				logger.Error("participant loop failed",
					slog.String("participant", identity),
					slog.String("error", err.Error()))
			}
		}()
	})

	jobInstance.Shutdown("session ended")
	jobInstance.Wait()

	if err := <-writerDone; err != nil {
		logger.Error("record writer flush failed", slog.String("error", err.Error()))
	}
	return nil
}

func runTranscriber(ctx context.Context, cfg *config.Config, roomName, identity string, logger *slog.Logger) error {
	if cfg.DeepgramAPIKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is required to transcribe")
	}

	sttProvider, err := deepgram.New(deepgram.Config{APIKey: cfg.DeepgramAPIKey, Logger: logger})
	if err != nil {
		return fmt.Errorf("deepgram: %w", err)
	}

	token, err := generateToken(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, roomName, identity, 6*time.Hour)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	roomConfig := job.RoomConfig{URL: cfg.LiveKitURL, Token: token, RoomName: roomName}
	room, err := job.NewRoom(ctx, roomConfig)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	defer room.Disconnect()

	if err := room.Connect(roomConfig); err != nil {
		return fmt.Errorf("connect to room: %w", err)
	}
	logger.Info("connected to room", slog.String("room", roomName))

	dispatchEvents(ctx, room, logger, func(identity string, event *job.Event) {
		go transcribeTrack(ctx, sttProvider, identity, event, logger)
	})
	return nil
}

// dispatchEvents consumes room events until disconnect or cancellation,
// invoking onAudio for each subscribed audio track.
func dispatchEvents(ctx context.Context, room *job.Room, logger *slog.Logger, onAudio func(identity string, event *job.Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-room.Events:
			if !ok {
				return
			}
			identity := ""
			if event.Participant != nil {
				identity = event.Participant.Identity
			}
			logger.Debug("room event",
				slog.String("type", string(event.Type)),
				slog.String("participant", identity))

			switch event.Type {
			case job.EventTrackSubscribed:
				if event.Audio != nil {
					onAudio(identity, event)
				}
			case job.EventDisconnected:
				logger.Info("room disconnected")
				return
			}
		}
	}
}

func transcribeTrack(ctx context.Context, provider *deepgram.STT, identity string, event *job.Event, logger *slog.Logger) {
	stream, err := provider.NewStream(ctx, stt.StreamConfig{
		SampleRate:  48000,
		NumChannels: 1,
	})
	if err != nil {
		logger.Error("open stt stream failed",
			slog.String("participant", identity),
			slog.String("error", err.Error()))
		return
	}
	defer stream.CloseSend()

	go func() {
		for frame := range event.Audio.Frames() {
			if err := stream.Push(frame); err != nil {
				logger.Warn("audio push failed", slog.String("error", err.Error()))
				return
			}
		}
		stream.CloseSend()
	}()

	for ev := range stream.Events() {
		switch ev.Type {
		case stt.SpeechEventInterim:
			logger.Debug("interim transcript",
				slog.String("participant", identity),
				slog.String("text", ev.Text))
		case stt.SpeechEventFinal:
			logger.Info("final transcript",
				slog.String("participant", identity),
				slog.String("text", ev.Text),
				slog.Float64("confidence", ev.Confidence))
		case stt.SpeechEventError:
			logger.Error("transcription failed",
				slog.String("participant", identity),
				slog.String("error", ev.Error.Error()))
			return
		}
	}
}

// transcribeFile streams a WAV file through the recognizer and prints
// the transcript, no room connection needed.
func transcribeFile(ctx context.Context, cfg *config.Config, filePath string, logger *slog.Logger) error {
	if cfg.DeepgramAPIKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is required to transcribe")
	}

	reader, err := wav.NewReader(filePath)
	if err != nil {
		return fmt.Errorf("open audio file: %w", err)
	}
	defer reader.Close()

	frames, err := reader.ReadFrames()
	if err != nil {
		return fmt.Errorf("read audio frames: %w", err)
	}
	header := reader.Header()
	logger.Info("audio file loaded",
		slog.String("file", filePath),
		slog.Int("sample_rate", int(header.SampleRate)),
		slog.Int("channels", int(header.NumChannels)),
		slog.Int("frames", len(frames)))

	sttProvider, err := deepgram.New(deepgram.Config{APIKey: cfg.DeepgramAPIKey, Logger: logger})
	if err != nil {
		return fmt.Errorf("deepgram: %w", err)
	}

	stream, err := sttProvider.NewStream(ctx, stt.StreamConfig{
		SampleRate:  int(header.SampleRate),
		NumChannels: int(header.NumChannels),
	})
	if err != nil {
		return fmt.Errorf("open stt stream: %w", err)
	}

	go func() {
		for _, frame := range frames {
			if err := stream.Push(frame); err != nil {
				logger.Warn("audio push failed", slog.String("error", err.Error()))
				break
			}
		}
		stream.CloseSend()
	}()

	for ev := range stream.Events() {
		switch ev.Type {
		case stt.SpeechEventFinal:
			fmt.Printf("%s\n", ev.Text)
		case stt.SpeechEventError:
			return fmt.Errorf("transcription failed: %w", ev.Error)
		}
	}
	return nil
}

// runSynth speaks text through Cartesia and saves the audio as WAV.
func runSynth(ctx context.Context, cfg *config.Config, text, out string, logger *slog.Logger) error {
	ttsProvider, err := cartesia.New(cartesia.Config{APIKey: cfg.CartesiaAPIKey})
	if err != nil {
		return fmt.Errorf("cartesia: %w", err)
	}

	frames, err := ttsProvider.Synthesize(ctx, tts.SynthesizeRequest{Text: text})
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	writer, err := wav.NewWriter(out, rtc.SampleRate48k, 1)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	count := 0
	for frame := range frames {
		if err := writer.WriteFrame(frame); err != nil {
			writer.Close()
			return fmt.Errorf("write audio: %w", err)
		}
		count++
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize output: %w", err)
	}

	logger.Info("synthesis saved",
		slog.String("path", out),
		slog.Int("frames", count),
		slog.Duration("duration", time.Duration(count)*10*time.Millisecond))
	return nil
}

func init() {
	runCmd.Flags().String("room", "", "Room name to join (or LIVEKIT_ROOM)")
	runCmd.Flags().String("identity", "voicelat-agent", "Participant identity for the agent")

	transcribeCmd.Flags().String("room", "", "Room name to join (or LIVEKIT_ROOM)")
	transcribeCmd.Flags().String("identity", "voicelat-transcriber", "Participant identity")
	transcribeCmd.Flags().String("file", "", "Transcribe a WAV file instead of joining a room")

	workerCmd.Flags().String("dispatch-url", "", "Dispatch server WebSocket URL")
	workerCmd.Flags().String("dispatch-token", "", "Dispatch server auth token")

	synthCmd.Flags().String("text", "", "Text to synthesize")
	synthCmd.Flags().String("out", "output.wav", "Output WAV file path")

	rootCmd.AddCommand(versionCmd, runCmd, transcribeCmd, workerCmd, providersCmd, synthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
