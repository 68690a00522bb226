// Package main is the entry point for the SCADA edge agent: it wires the
// broker connection, store-and-forward publisher, device manager,
// automation engine, printer executor, config manager, command listener,
// heartbeat task, and metrics server into one running process. Ported
// from edge-agent/src/main.rs's run().
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ifa-automation/scada-edge-agent/internal/automation"
	"github.com/ifa-automation/scada-edge-agent/internal/broker"
	"github.com/ifa-automation/scada-edge-agent/internal/bus"
	"github.com/ifa-automation/scada-edge-agent/internal/command"
	"github.com/ifa-automation/scada-edge-agent/internal/config"
	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
	"github.com/ifa-automation/scada-edge-agent/internal/device"
	"github.com/ifa-automation/scada-edge-agent/internal/forward"
	"github.com/ifa-automation/scada-edge-agent/internal/heartbeat"
	"github.com/ifa-automation/scada-edge-agent/internal/metrics"
	"github.com/ifa-automation/scada-edge-agent/internal/printer"
	"github.com/ifa-automation/scada-edge-agent/internal/storage/sqlite"
	"github.com/ifa-automation/scada-edge-agent/pkg/logger"
)

var (
	configDir      string
	dataDir        string
	agentIDFlag    string
	mqttHostFlag   string
	mqttPortFlag   uint16
	metricsAddr    string
	logLevel       string
)

var rootCmd = &cobra.Command{
	Use:   "edge-agent",
	Short: "IFA SCADA edge agent",
	Long: `edge-agent polls field devices over their configured drivers, evaluates
per-tag automations, forwards tag updates and reports to the central
server over MQTT (buffering durably when offline), and hot-reloads its
configuration and command stream from the broker.`,
	RunE: runAgent,
}

func init() {
	rootCmd.Flags().StringVar(&configDir, "config-dir", "config", "directory holding default.yaml and last_known.json")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "data", "directory for the agent's SQLite state")
	rootCmd.Flags().StringVar(&agentIDFlag, "agent-id", "", "override the agent_id from configuration")
	rootCmd.Flags().StringVar(&mqttHostFlag, "mqtt-host", "", "override the MQTT broker host from configuration")
	rootCmd.Flags().Uint16Var(&mqttPortFlag, "mqtt-port", 0, "override the MQTT broker port from configuration")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9464", "address the Prometheus metrics endpoint listens on")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	log := logger.NewLogger(logger.Config{Level: logLevel, Format: "json", Output: "stdout"})
	slog.SetDefault(log)

	log.Info("scada edge agent starting", "pid", os.Getpid())

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if agentIDFlag != "" {
		cfg.AgentID = agentIDFlag
	}
	if mqttHostFlag != "" {
		cfg.MQTT.Host = mqttHostFlag
	}
	if mqttPortFlag != 0 {
		cfg.MQTT.Port = mqttPortFlag
	}
	agentID := cfg.AgentID
	log.Info("configuration loaded", "agent_id", agentID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	statusTopic := cfg.MQTT.StatusTopic
	if statusTopic == "" {
		statusTopic = fmt.Sprintf("scada/status/%s", agentID)
	}
	offlinePayload, _ := json.Marshal(map[string]string{"status": "OFFLINE"})

	mqttClient := broker.NewClient(broker.Config{
		Host:        cfg.MQTT.Host,
		Port:        cfg.MQTT.Port,
		ClientID:    fmt.Sprintf("edge-%s", agentID),
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		WillTopic:   statusTopic,
		WillPayload: offlinePayload,
	}, log)

	log.Info("connecting to mqtt broker", "host", cfg.MQTT.Host, "port", cfg.MQTT.Port)
	if err := mqttClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}
	defer mqttClient.Disconnect()
	log.Info("connected to mqtt broker")

	tagRepository, err := sqlite.NewTagRepository(ctx, filepath.Join(dataDir, agentID+"_storage.db"), log)
	if err != nil {
		return fmt.Errorf("failed to open tag repository: %w", err)
	}

	forwardBuffer, err := sqlite.NewBuffer(ctx, filepath.Join(dataDir, agentID+"_buffer.db"), log)
	if err != nil {
		return fmt.Errorf("failed to open store-and-forward buffer: %w", err)
	}

	mx := metrics.New()
	go func() {
		log.Info("metrics endpoint listening", "addr", metricsAddr)
		if err := mx.Serve(ctx, metricsAddr); err != nil {
			log.Error("metrics server exited", "error", err)
		}
	}()

	publisher := forward.NewPublisher(ctx, mqttClient, forwardBuffer, agentID, log)
	publisher.SetMetrics(mx)

	actionExecutor, printerManager := buildActionExecutor(ctx, cfg.EffectivePrinter(), agentID, publisher, log, mx)

	engine := automation.NewEngine(automation.TagsFrom(nil), actionExecutor, log)
	engine.SetMetrics(mx)

	// Import tags from the initial configuration the first time this
	// agent's repository is empty, mirroring main.rs's import-on-first-run.
	if err := importInitialTags(ctx, tagRepository, cfg, log); err != nil {
		log.Error("failed to import initial tags", "error", err)
	}

	storedTags, err := tagRepository.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tags from repository: %w", err)
	}
	engine.ReloadFromTags(storedTags)
	log.Info("loaded tags from storage", "count", len(storedTags))

	composite := bus.NewComposite(log, publisher, engine)

	deviceManager := device.NewManager(composite, log)
	deviceManager.SetMetrics(mx)
	deviceManager.StartDevices(ctx, cfg.ToDomainDevices(), storedTags)

	if printerManager != nil {
		go printerManager.Run(ctx)
	}

	cmdListener := command.NewListener(agentID, actionExecutor, log)
	if err := cmdListener.Start(newCommandSubscriber(mqttClient)); err != nil {
		log.Error("failed to start command listener", "error", err)
	}

	configVersion := "1"
	configManager := config.NewManager(agentID, configDir, tagRepository, engine, deviceManager, log)
	configManager.SetMetrics(mx)
	if err := configManager.Start(newConfigSubscriber(mqttClient)); err != nil {
		log.Error("failed to start config manager", "error", err)
	}

	log.Info("agent initialized, publishing ONLINE status")
	onlinePayload, _ := json.Marshal(map[string]string{"status": "ONLINE", "version": configVersion})
	if err := mqttClient.PublishBytes(ctx, statusTopic, onlinePayload, 1, true); err != nil {
		log.Warn("failed to publish ONLINE status", "error", err)
	}

	heartbeatTask := heartbeat.NewTask(agentID, func() string { return configVersion }, deviceManager, composite, time.Duration(cfg.EffectiveHeartbeatInterval())*time.Second, log)
	heartbeatTask.SetMetrics(mx)
	go heartbeatTask.Run(ctx)

	<-ctx.Done()
	log.Info("shutting down")

	deviceManager.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mqttClient.PublishBytes(shutdownCtx, statusTopic, offlinePayload, 1, true); err != nil {
		log.Warn("failed to publish OFFLINE status", "error", err)
	}

	log.Info("good bye")
	return nil
}

// buildActionExecutor selects the ActionExecutor a device's automations
// fire through: a PrintingActionExecutor backed by a file or network
// printer connection when printing is enabled, falling back to a
// LoggingActionExecutor otherwise. Mirrors main.rs's printer_config
// branch.
func buildActionExecutor(ctx context.Context, printerCfg config.PrinterConfig, agentID string, publisher domain.EventPublisher, log *slog.Logger, mx *metrics.Metrics) (automation.ActionExecutor, *printer.Manager) {
	if !printerCfg.Enabled {
		return automation.NewLoggingActionExecutor(log), nil
	}

	var conn domain.PrinterConnection
	if printerCfg.Type == "File" || printerCfg.Path != "" {
		path := printerCfg.Path
		if path == "" {
			path = "printer_output.txt"
		}
		log.Info("initializing file printer", "path", path)
		conn = printer.NewFilePrinter(path)
	} else {
		log.Info("initializing network printer", "host", printerCfg.Host, "port", printerCfg.Port)
		conn = printer.NewNetworkPrinter(printerCfg.Host, printerCfg.Port)
	}

	manager := printer.NewManager(conn, 32, log)
	manager.SetMetrics(mx)
	executor := automation.NewPrintingActionExecutor(manager, agentID, publisher, log)
	return executor, manager
}

// importInitialTags seeds repository from cfg.Tags the first time the
// agent starts with an empty repository, mirroring main.rs's
// import-on-first-run logic.
func importInitialTags(ctx context.Context, repository domain.TagRepository, cfg *config.AgentConfig, log *slog.Logger) error {
	existing, err := repository.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list existing tags: %w", err)
	}
	if len(existing) != 0 || len(cfg.Tags) == 0 {
		return nil
	}

	log.Info("importing tags from initial configuration", "count", len(cfg.Tags))
	for _, tc := range cfg.Tags {
		tag, err := tc.ToDomainTag()
		if err != nil {
			log.Warn("skipping invalid initial tag", "tag_id", tc.ID, "error", err)
			continue
		}
		if err := repository.Save(ctx, tag); err != nil {
			log.Warn("failed to import initial tag", "tag_id", tc.ID, "error", err)
		}
	}
	log.Info("tag import complete")
	return nil
}

// configSubscriber and commandSubscriber adapt *broker.Client to the
// narrow Subscriber interfaces config.Manager and command.Listener each
// declare locally. config.Message and command.Message are distinct types
// from broker.Message by design (the narrow-interface-seam pattern used
// throughout this module), so each needs its own thin conversion wrapper
// rather than importing internal/broker from config or command directly.
func newConfigSubscriber(client *broker.Client) configSubscriber {
	return configSubscriber{client: client}
}

type configSubscriber struct {
	client *broker.Client
}

func (s configSubscriber) Subscribe(topic string, handler func(config.Message)) error {
	return s.client.Subscribe(topic, func(msg broker.Message) {
		handler(config.Message{Topic: msg.Topic, Payload: msg.Payload})
	})
}

func newCommandSubscriber(client *broker.Client) commandSubscriber {
	return commandSubscriber{client: client}
}

type commandSubscriber struct {
	client *broker.Client
}

func (s commandSubscriber) Subscribe(topic string, handler func(command.Message)) error {
	return s.client.Subscribe(topic, func(msg broker.Message) {
		handler(command.Message{Topic: msg.Topic, Payload: msg.Payload})
	})
}
