package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/DIMO-Network/gas-price-strategy/internal/api"
	"github.com/DIMO-Network/gas-price-strategy/internal/config"
	"github.com/DIMO-Network/gas-price-strategy/internal/episode"
	"github.com/DIMO-Network/gas-price-strategy/internal/gasprice"
	"github.com/DIMO-Network/gas-price-strategy/internal/gasstation"
	"github.com/DIMO-Network/gas-price-strategy/internal/override"
	"github.com/DIMO-Network/gas-price-strategy/internal/ticker"
	"github.com/DIMO-Network/shared"
	"github.com/IBM/sarama"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "gas-price-strategy").Logger()

	settings, err := shared.LoadConfig[*config.Settings]("settings.yaml")
	if err != nil {
		logger.Fatal().Err(err).Msg("Couldn't load settings.")
	}

	gasSettings, err := settings.GasSettings()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid gas settings.")
	}

	episodeMaxAge, err := settings.EpisodeMaxAge()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid episode settings.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ethClient, err := ethclient.Dial(settings.EthereumRPCURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Ethereum client.")
	}
	defer ethClient.Close()

	// A nil *Feed must not end up inside the Oracle interface.
	var oracle gasprice.Oracle
	if source := settings.OracleSource(); source != nil {
		feed := gasstation.NewFeed(source, gasstation.DefaultRefresh, gasstation.DefaultExpiry, &logger)
		feed.Start(ctx)
		defer feed.Stop()
		oracle = feed
		logger.Info().Str("feed", source.Name()).Msg("Started gas price feed.")
	}

	strategy, err := gasprice.NewDynamic(gasSettings.DynamicConfig(), ethClient, oracle, gasprice.NewOverride(gasSettings.FixedGasPrice), &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid gas price strategy.")
	}

	logger.Info().Str("strategy", strategy.Describe(ctx)).Msg("Loaded settings.")

	var publisher override.Publisher
	if settings.KafkaServers != "" {
		kafkaConfig := sarama.NewConfig()
		kafkaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
		kafkaConfig.Producer.Return.Successes = true

		kafkaClient, err := sarama.NewClient(strings.Split(settings.KafkaServers, ","), kafkaConfig)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create Kafka client.")
		}
		defer kafkaClient.Close()

		publisher, err = override.NewKafkaPublisher(settings.OverrideTopic, kafkaClient)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create Kafka producer.")
		}

		go func() {
			err := override.Consume(ctx, settings.ConsumerGroupName, settings.OverrideTopic, kafkaClient, &logger, strategy.Override())
			if err != nil {
				logger.Err(err).Msg("Override consumer exited.")
			}
		}()
	}

	monApp := fiber.New(fiber.Config{DisableStartupMessage: true})
	monApp.Get("/", func(c *fiber.Ctx) error { return nil })
	monApp.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	go func() {
		if err := monApp.Listen(":" + settings.MonitoringPort); err != nil {
			logger.Fatal().Err(err).Str("port", settings.MonitoringPort).Msg("Failed to start monitoring web server.")
		}
	}()

	episodes := episode.NewMemStore()
	go ticker.New(&logger, episodes, episodeMaxAge).Run(ctx, time.Minute)

	app := api.NewApp(api.NewHandler(strategy, episodes, publisher, &logger), &logger)

	go func() {
		if err := app.Listen(":" + settings.APIPort); err != nil {
			logger.Fatal().Err(err).Str("port", settings.APIPort).Msg("Failed to start API server.")
		}
	}()

	logger.Info().Msg("Started.")

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, os.Interrupt, syscall.SIGTERM)

	sig := <-sigterm
	logger.Info().Str("signal", sig.String()).Msg("Received signal, terminating.")

	cancel()

	if err := app.Shutdown(); err != nil {
		logger.Err(err).Msg("Failed to shut down API server.")
	}
	if err := monApp.Shutdown(); err != nil {
		logger.Err(err).Msg("Failed to shut down monitoring web server.")
	}
}
