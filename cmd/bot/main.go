package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"
	"voicebrief/internal/archive"
	"voicebrief/internal/bot"
	"voicebrief/internal/config"
	"voicebrief/internal/dedup"
	"voicebrief/internal/groq"
	"voicebrief/internal/pipeline"
	"voicebrief/internal/telegram"
	"voicebrief/pkg/cache"
	"voicebrief/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	debug := flag.Bool("debug", false, "Enable development logging")
	flag.Parse()

	if err := logger.Init(*debug); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting voicebrief bot service")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
		return
	}

	startedAt := time.Now()

	// Dedup ledger: Redis when configured, in-memory otherwise
	var ledger dedup.Ledger
	if cfg.Dedup.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(
			cfg.Dedup.RedisAddr,
			cfg.Dedup.RedisPassword,
			cfg.Dedup.RedisDB,
		)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
			return
		}
		defer redisCache.Close()

		ledger = dedup.NewRedisLedger(redisCache, time.Duration(cfg.Dedup.TTLHours)*time.Hour)
		logger.Info("Using Redis dedup ledger", zap.String("addr", cfg.Dedup.RedisAddr))
	} else {
		ledger = dedup.NewMemoryLedger()
		logger.Info("Using in-memory dedup ledger")
	}

	groqClient := groq.NewClient(
		cfg.Groq.APIKey,
		cfg.Groq.BaseURL,
		cfg.Groq.STTModel,
		cfg.Groq.ChatModel,
		time.Duration(cfg.Groq.TimeoutSeconds)*time.Second,
	)

	tb, err := bot.NewTelebot(cfg.Telegram.Token, time.Duration(cfg.Telegram.PollTimeout)*time.Second)
	if err != nil {
		logger.Fatal("Failed to create Telegram bot", zap.Error(err))
		return
	}

	messenger := telegram.NewMessenger(tb)

	// Optional run archive (Postgres record + S3 audio)
	var archiver pipeline.RunArchiver
	if cfg.Archive.Enabled {
		var store archive.Store
		if cfg.Archive.PostgresDSN != "" {
			pg, err := archive.NewPostgresStore(cfg.Archive.PostgresDSN)
			if err != nil {
				logger.Fatal("Failed to connect to archive database", zap.Error(err))
				return
			}
			defer pg.Close()
			store = pg
		}

		var blobs archive.BlobStore
		if cfg.Archive.S3.Endpoint != "" && cfg.Archive.S3.Bucket != "" {
			s3Store, err := archive.NewS3Store(
				cfg.Archive.S3.Endpoint,
				cfg.Archive.S3.AccessKey,
				cfg.Archive.S3.SecretKey,
				cfg.Archive.S3.Bucket,
				cfg.Archive.S3.Region,
			)
			if err != nil {
				logger.Fatal("Failed to initialize S3 archive", zap.Error(err))
				return
			}
			blobs = s3Store
		}

		if store != nil || blobs != nil {
			archiver = archive.NewArchiver(store, blobs)
			logger.Info("Run archive enabled")
		}
	}

	pipe := pipeline.New(ledger, groqClient, groqClient, messenger, archiver, cfg.TempDir)

	router := bot.NewRouter(pipe, messenger, bot.RouterConfig{
		SourceChat:      cfg.Chats.SourceChatID,
		DestinationChat: cfg.Chats.DestinationChatID,
		Keyword:         cfg.Trigger.Keyword,
		AutoMode:        cfg.Trigger.AutoMode,
		ForwardVoice:    cfg.Trigger.ForwardVoice,
	}, startedAt)

	botInstance := bot.New(tb, router)

	mode := "COMMAND"
	if cfg.Trigger.AutoMode {
		mode = "AUTO"
	}
	logger.Info("Voice transcriber bot configured",
		zap.String("mode", mode),
		zap.Int64("source_chat", cfg.Chats.SourceChatID),
		zap.Int64("destination_chat", cfg.Chats.DestinationChatID),
		zap.String("trigger_keyword", cfg.Trigger.Keyword),
		zap.Bool("forward_voice", cfg.Trigger.ForwardVoice),
		zap.Time("started_at", startedAt))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Listening for voice messages")
		botInstance.Start()
	}()

	sig := <-sigChan
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	botInstance.Stop()

	logger.Info("Bot service shutdown complete")
}
