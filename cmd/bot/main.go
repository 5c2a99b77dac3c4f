package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"libseat/internal/api"
	"libseat/internal/availability"
	"libseat/internal/backend"
	"libseat/internal/bot"
	"libseat/internal/config"
	"libseat/internal/events"
	"libseat/internal/export"
	"libseat/internal/google"
	"libseat/internal/logging"
	"libseat/internal/models"
	"libseat/internal/repository"
	"libseat/internal/service"
	"libseat/internal/session"
	"libseat/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, rooms, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, logger); err != nil {
		return err
	}
	if len(rooms) > 0 {
		logger.Info().Int("rooms", len(rooms)).Msg("Room layout loaded")
	}

	sessions, err := session.NewStore(cfg.Session.Path)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open session store")
		return err
	}
	defer sessions.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, stateService := initStateService(ctx, cfg, logger)

	client := backend.New(
		cfg.Backend.BaseURL,
		time.Duration(cfg.Backend.TimeoutSeconds)*time.Second,
		cfg.Backend.RateLimitRPS,
		cfg.Backend.RateLimitBurst,
	)
	if redisClient != nil && cfg.Backend.CacheTTL > 0 {
		client.UseRedisCache(redisClient, time.Duration(cfg.Backend.CacheTTL)*time.Second)
	}

	eventBus := events.NewEventBus()

	authService := service.NewAuthService(client, sessions, eventBus, logger)
	reservationService := service.NewReservationService(client, authService, sessions, eventBus, cfg.Bot.RoomID, service.ReservationLimits{
		MaxDuration: time.Duration(cfg.Bot.MaxDurationHours) * time.Hour,
		MaxAdvance:  time.Duration(cfg.Bot.MaxAdvanceHours) * time.Hour,
	}, logger)
	rankingService := service.NewRankingService(client, authService, logger)

	estimator := availability.New(client, availability.Layout{
		Floors:         cfg.Bot.Floors,
		TablesPerFloor: cfg.Bot.TablesPerFloor,
		SeatsPerTable:  cfg.Bot.SeatsPerTable,
	}, logger)

	exporter := export.NewExporter(cfg.Exports.Path, logger)
	metrics := bot.NewMetrics()

	// Google Sheets is optional; the leaderboard worker only runs with it.
	var leaderboardWorker *worker.LeaderboardWorker
	if sheetsService := initGoogleSheets(ctx, cfg, logger); sheetsService != nil {
		leaderboardWorker = worker.NewLeaderboardWorker(
			client, sheetsService,
			time.Duration(cfg.Google.SyncIntervalMinutes)*time.Minute,
			worker.RetryPolicy{}, logger,
		)
		go leaderboardWorker.Start(ctx)
	}

	subscribeReservationEvents(eventBus, leaderboardWorker, logger)

	if cfg.Ops.Enabled {
		opsServer := api.NewHTTPServer(cfg.Ops, client, estimator, cfg.Bot.RoomID, logger)
		go func() {
			if err := opsServer.Start(); err != nil {
				logger.Error().Err(err).Msg("Ops server error")
			}
		}()
		defer func() {
			_ = opsServer.Shutdown(context.Background())
		}()
	}

	return startBot(ctx, cfg, sessions, client, redisClient, stateService,
		authService, reservationService, rankingService, estimator, exporter,
		eventBus, metrics, logger)
}

func loadConfigAndLogger() (*config.Config, []config.Room, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	roomsPath := os.Getenv("ROOMS_PATH")
	if roomsPath == "" {
		roomsPath = "configs/rooms.yaml"
	}
	roomsData, err := os.ReadFile(roomsPath)
	if err != nil {
		logger.Error().Err(err).Msgf("Failed to read %s", roomsPath)
		return nil, nil, nil, closer, err
	}

	var roomsConfig struct {
		Rooms []config.Room `yaml:"rooms"`
	}
	if err := yaml.Unmarshal(roomsData, &roomsConfig); err != nil {
		logger.Error().Err(err).Msg("Failed to parse rooms.yaml")
		return nil, nil, nil, closer, err
	}

	if err := config.ValidateRooms(roomsConfig.Rooms); err != nil {
		logger.Error().Err(err).Msg("Rooms validation failed")
		return nil, nil, nil, closer, err
	}

	return cfg, roomsConfig.Rooms, &logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Failed to create export directory")
		return err
	}
	return nil
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.CredentialsFile == "" || cfg.Google.LeaderboardSpreadsheetID == "" {
		logger.Info().Msg("Google Sheets not configured, leaderboard export disabled")
		return nil
	}

	sheetsSvc, err := google.NewSheetsService(cfg.Google.CredentialsFile, cfg.Google.LeaderboardSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Google Sheets service")
		return nil
	}

	if err := sheetsSvc.TestConnection(ctx); err != nil {
		logger.Error().Err(err).Msg("Google Sheets connection test failed")
		return nil
	}

	logger.Info().Msg("Google Sheets service initialized successfully")
	return sheetsSvc
}

func initStateService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.StateService) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	primaryRepo := repository.NewRedisStateRepository(redisClient, time.Duration(models.DefaultRedisTTL)*time.Second)
	fallbackRepo := repository.NewMemoryStateRepository(time.Duration(models.DefaultRedisTTL) * time.Second)
	stateRepo := repository.NewFailoverStateRepository(primaryRepo, fallbackRepo, logger)
	return redisClient, service.NewStateService(stateRepo, logger)
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	sessions *session.Store,
	client *backend.Client,
	redisClient *redis.Client,
	stateService *service.StateService,
	authService *service.AuthService,
	reservationService *service.ReservationService,
	rankingService *service.RankingService,
	estimator *availability.Estimator,
	exporter *export.Exporter,
	eventBus *events.EventBus,
	metrics *bot.Metrics,
	logger *zerolog.Logger,
) error {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	botWrapper := bot.NewBotWrapper(botAPI)

	telegramBot, err := bot.NewBot(
		botWrapper, cfg, stateService, authService, reservationService,
		rankingService, estimator, exporter, eventBus, metrics, logger,
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create bot")
		return err
	}

	notifyWorker := worker.NewNotifyWorker(
		client, sessions, botWrapper, redisClient,
		time.Duration(cfg.Bot.NotifyPollSeconds)*time.Second, logger,
	)
	go notifyWorker.Start(ctx)

	logger.Info().Msg("Bot started...")
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func subscribeReservationEvents(bus *events.EventBus, leaderboard *worker.LeaderboardWorker, logger *zerolog.Logger) {
	if bus == nil {
		return
	}

	logHandler := func(ev *events.Event) error {
		var payload events.ReservationEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		logger.Info().
			Str("event", ev.Type).
			Int64("reservation_id", payload.ReservationID).
			Str("desk_id", payload.DeskID).
			Msg("reservation event")
		return nil
	}

	bus.Subscribe(events.EventReservationCreated, logHandler)
	bus.Subscribe(events.EventReservationCancelled, logHandler)

	// Completion changes scores; refresh the exported leaderboard promptly.
	bus.Subscribe(events.EventReservationCompleted, func(ev *events.Event) error {
		if err := logHandler(ev); err != nil {
			return err
		}
		if leaderboard != nil {
			leaderboard.Trigger()
		}
		return nil
	})
}
