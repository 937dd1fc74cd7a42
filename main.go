package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"ducky/audio"
	"ducky/config"
	"ducky/hotkey"
	"ducky/log"
	"ducky/pipeline"
	"ducky/playback"
	"ducky/provider"
	"ducky/recorder"
	"ducky/shutdown"
	"ducky/store"
)

var version = "dev"

// Requests pushed from the TUI key handler into the main loop.
var deviceSelectChan = make(chan struct{}, 1)
var copyReplyChan = make(chan struct{}, 1)
var projectCycleChan = make(chan struct{}, 1)
var cancelRunChan = make(chan struct{}, 1)

var shutdownOnce sync.Once
var shutdownHook func()

func gracefulShutdown() {
	shutdownOnce.Do(func() {
		if shutdownHook != nil {
			shutdownHook()
		}
		log.Close()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

func run() {
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	formatFlag := flag.String("format", "", "Recording format: wav or flac (overrides config)")
	langFlag := flag.String("lang", "", "Language code for transcription (overrides config)")
	projectFlag := flag.String("project", "", "Activate named project for this session")
	muteFlag := flag.Bool("mute", false, "Disable audio cues and spoken replies")
	statsFlag := flag.String("stats", "", "Print stored conversation stats for a project and exit")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	diagnoseFlag := flag.Bool("diagnose", false, "Print hotkey diagnostics and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	hybridFlag := flag.Bool("hybrid", false, "Enable hybrid tap+hold recording mode")
	longPressFlag := flag.Duration("longpress", 0, "Long-press threshold for PTT vs tap (overrides config)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	flag.Parse()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *versionFlag {
		fmt.Printf("ducky %s\n", version)
		os.Exit(0)
	}

	if *diagnoseFlag {
		report, err := hotkey.Diagnose()
		fmt.Print(report)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	homeDir, err := config.Dir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(filepath.Join(homeDir, "config.yaml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	projects, err := config.LoadProjects(filepath.Join(homeDir, "projects.yaml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *formatFlag != "" {
		switch *formatFlag {
		case "wav", "flac":
			cfg.Format = *formatFlag
		default:
			fmt.Printf("Error: unknown format %q (use wav or flac)\n", *formatFlag)
			os.Exit(1)
		}
	}
	if *langFlag != "" {
		cfg.Language = *langFlag
	}
	if *muteFlag {
		cfg.TTSEnabled = false
	}
	longPress := cfg.LongPress()
	if *longPressFlag > 0 {
		longPress = *longPressFlag
	}

	sessions, err := store.New(filepath.Join(homeDir, "conversations"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *statsFlag != "" {
		stats, err := sessions.ProjectStats(*statsFlag)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Project:     %s\n", stats.ProjectName)
		fmt.Printf("Sessions:    %d\n", stats.TotalSessions)
		fmt.Printf("Messages:    %d\n", stats.TotalMessages)
		fmt.Printf("Audio files: %d\n", stats.TotalAudioFiles)
		if ids, err := sessions.ListSessions(*statsFlag); err == nil && len(ids) > 0 {
			n := len(ids)
			if n > 5 {
				n = 5
			}
			fmt.Println("Recent:")
			for _, id := range ids[:n] {
				sess, err := sessions.LoadSession(*statsFlag, id)
				if err != nil {
					continue
				}
				fmt.Printf("  %s  %d messages\n", id, len(sess.Messages))
			}
		}
		os.Exit(0)
	}

	if *projectFlag != "" {
		if err := projects.SetActive(*projectFlag); err != nil {
			fmt.Printf("Warning: could not activate project %q: %v\n", *projectFlag, err)
		}
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	elevenKey := cfg.ElevenLabsKey()
	geminiKey := cfg.GeminiKey()
	hfKey := cfg.HuggingFaceKey()

	if elevenKey == "" {
		fmt.Println("Error: ELEVENLABS_API_KEY not set (required for transcription)")
		os.Exit(1)
	}
	if geminiKey == "" {
		fmt.Println("Error: GEMINI_API_KEY not set (required for responses)")
		os.Exit(1)
	}

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	var selectedDevice *audio.DeviceInfo
	if *deviceFlag != "" {
		if devices, err := ctx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == *deviceFlag {
					selectedDevice = &devices[i]
					break
				}
			}
		}
	} else if *setupFlag {
		selectedDevice, err = audio.SelectDevice(ctx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	rec, err := recorder.New(ctx, selectedDevice, cfg.Format, filepath.Join(homeDir, "recordings"))
	if err != nil {
		fmt.Printf("Error initializing recorder: %v\n", err)
		os.Exit(1)
	}
	rec.CleanupOldRecordings(cfg.RetentionMaxAge())

	player := playback.New()
	if *muteFlag {
		player.Disable()
	}

	// Sentiment degrades to keyword matching when the hosted model is
	// unreachable or no token is configured.
	var analyzer provider.Analyzer = provider.NewKeywordAnalyzer()
	if hfKey != "" {
		analyzer = &provider.FallbackAnalyzer{
			Primary:  provider.NewHFSentiment(hfKey),
			Fallback: provider.NewKeywordAnalyzer(),
		}
	}

	var speaker provider.Speaker
	if cfg.TTSEnabled {
		tts := provider.NewElevenLabsTTS(elevenKey, player)
		if cfg.VoiceID != "" {
			tts.SetVoice(cfg.VoiceID)
		}
		speaker = tts
	}

	runner := pipeline.NewRunner(pipeline.Config{
		Transcriber:        provider.NewElevenLabsSTT(elevenKey),
		Analyzer:           analyzer,
		Generator:          provider.NewGemini(geminiKey),
		Speaker:            speaker,
		Sessions:           sessions,
		Language:           cfg.Language,
		HistoryWindow:      cfg.HistoryWindow,
		SentimentThreshold: cfg.SentimentThreshold,
		Timeouts: pipeline.Timeouts{
			Transcribe: cfg.TranscribeTimeout(),
			Analyze:    cfg.SentimentTimeout(),
			Generate:   cfg.GenerateTimeout(),
			Speak:      cfg.SpeakTimeout(),
		},
		Project: projects.Active,
		Cleanup: recorder.Release,
	})

	sentimentLabel := "keyword matching"
	if hfKey != "" {
		sentimentLabel = "huggingface + keyword fallback"
	}
	voiceLabel := "disabled"
	if speaker != nil {
		voiceLabel = "elevenlabs"
	}
	fmt.Println("ducky " + version)
	fmt.Println("  transcription: elevenlabs scribe")
	fmt.Println("  sentiment:     " + sentimentLabel)
	fmt.Println("  responses:     gemini")
	fmt.Println("  voice:         " + voiceLabel)

	ctl := newController(rec, runner, player, sessions, projects)
	if err := ctl.openSession(); err != nil {
		fmt.Printf("Error starting session: %v\n", err)
		os.Exit(1)
	}
	shutdownHook = func() {
		ctl.closeSession()
		rec.CleanupOldRecordings(cfg.RetentionMaxAge())
	}

	go ctl.consumeEvents()

	// Start TUI
	if !*tuiFlag {
		tuiReadyOnce.Do(func() { close(tuiReady) })
	} else {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram()
		tuiMu.Unlock()

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
				os.Exit(1)
			}
			gracefulShutdown()
		}()

		<-tuiReady
	}

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		gracefulShutdown()
	}()

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Printf("Error registering hotkey: %v\n", err)
		os.Exit(1)
	}
	defer hk.Unregister()

	rec.SetLevelFunc(func(rms float64) {
		tuiSend(AudioLevelMsg{Level: rms})
	})

	tuiSend(ModeLineMsg{Text: modeLineText(cfg, hfKey != "")})
	tuiSend(DeviceLineMsg{Text: deviceLineText(selectedDevice)})
	tuiSend(ProjectMsg{Name: ctl.projectName()})
	tuiSend(HybridHelpMsg{Enabled: *hybridFlag})

	startCh := hk.Activate()
	stopCh := hk.Deactivate()
	var hy *hotkey.Hybrid
	if *hybridFlag {
		hy = hotkey.NewHybrid(hk, longPress)
		startCh = hy.Start()
		stopCh = hy.StopChan()
	}

	for {
		select {
		case <-startCh:
			ctl.startRecording()

		case <-stopCh:
			if hy != nil {
				log.Info("hotkey_stop_" + string(hy.Mode()))
			}
			ctl.stopAndSubmit()

		case <-cancelRunChan:
			ctl.cancelRun()

		case <-copyReplyChan:
			ctl.copyLastReply()

		case <-projectCycleChan:
			ctl.cycleProject()

		case <-deviceSelectChan:
			handleDeviceSwitch(ctx, rec)
		}
	}
}

func handleDeviceSwitch(ctx audio.Context, rec *recorder.Recorder) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()

	if p != nil {
		p.ReleaseTerminal()
	}
	newDevice, err := audio.SelectDevice(ctx)
	if p != nil {
		p.RestoreTerminal()
	}

	if err != nil {
		log.Warnf("device selection failed: %v", err)
		return
	}
	if newDevice != nil {
		rec.SetDevice(newDevice)
		log.Info("device_switched: " + newDevice.Name)
		tuiSend(DeviceLineMsg{Text: deviceLineText(newDevice)})
	}
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix + " (ctrl+g)"
}

func modeLineText(cfg *config.Config, hfSentiment bool) string {
	sentimentLabel := "keywords"
	if hfSentiment {
		sentimentLabel = "hf+keywords"
	}
	voiceLabel := "muted"
	if cfg.TTSEnabled {
		voiceLabel = "elevenlabs"
	}
	return fmt.Sprintf("[%s (%s) | scribe | gemini | %s | %s]",
		cfg.Format, cfg.Language, sentimentLabel, voiceLabel)
}
