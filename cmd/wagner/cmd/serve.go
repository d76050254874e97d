package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	wagner "github.com/supbro-dev/Wagner-agent"
	"github.com/supbro-dev/Wagner-agent/config"
	"github.com/supbro-dev/Wagner-agent/core"
	"github.com/supbro-dev/Wagner-agent/logging"
	"github.com/supbro-dev/Wagner-agent/model"
	"github.com/supbro-dev/Wagner-agent/model/anthropic"
	"github.com/supbro-dev/Wagner-agent/model/openai"
	"github.com/supbro-dev/Wagner-agent/server"
	"github.com/supbro-dev/Wagner-agent/session"
	"github.com/supbro-dev/Wagner-agent/task"
	"github.com/supbro-dev/Wagner-agent/task/redisindex"
	"github.com/supbro-dev/Wagner-agent/task/sqlite"
	"github.com/supbro-dev/Wagner-agent/tool"
	"github.com/supbro-dev/Wagner-agent/tool/remote"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analyst HTTP service",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "listen host (overrides server.host)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader = loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := buildLogger(cfg.Log)

	taskStore, err := sqlite.NewStore(cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("opening task store: %w", err)
	}
	defer taskStore.Close()

	var sessionStore core.SessionStore
	var retrieverFor func(string) task.Retriever
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(cmd.Context()).Err(); err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer client.Close()
		sessionStore = session.NewRedisStore(client)
		retrieverFor = func(businessKey string) task.Retriever {
			return redisindex.New(client, businessKey)
		}
	} else {
		sessionStore = session.NewInMemoryStore()
	}

	chatModel, err := buildModel(cfg.Model)
	if err != nil {
		return err
	}

	resolver, err := buildResolver(cmd.Context(), cfg.AgentConfigs(), logger)
	if err != nil {
		return err
	}

	manager, err := wagner.NewManager(wagner.Options{
		Model:        chatModel,
		TaskStore:    taskStore,
		Resolver:     resolver,
		SessionStore: sessionStore,
		RetrieverFor: retrieverFor,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:            cfg.Server.Addr(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, manager, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	}
}

func buildLogger(cfg config.LogConfig) logging.Logger {
	level := logging.ParseLevel(cfg.Level)
	if cfg.Format == "text" {
		return logging.NewTextLogger(level, os.Stderr)
	}
	return logging.NewJSONLogger(level, os.Stderr)
}

func buildModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		var clientOpts []openaiopt.RequestOption
		if cfg.APIKey != "" {
			clientOpts = append(clientOpts, openaiopt.WithAPIKey(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			clientOpts = append(clientOpts, openaiopt.WithBaseURL(cfg.BaseURL))
		}
		client := openaisdk.NewClient(clientOpts...)
		return openai.NewModelFromClient(&client, func(o *openai.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.APIKey != "" {
				o.APIKey = cfg.APIKey
			}
			if cfg.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Name)
			}
		}), nil
	case "mock":
		return model.NewMockModel("mock", "mock"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

func buildResolver(ctx context.Context, agents []config.AgentConfig, logger logging.Logger) (wagner.AgentResolver, error) {
	discovery := remote.NewClient(remote.WithLogger(logger))
	defs := make([]*wagner.AgentDefinition, 0, len(agents))
	for _, a := range agents {
		tools := make([]tool.Tool, 0, len(a.Tools))
		for _, def := range a.Tools {
			t, err := tool.NewHTTPTool(def, tool.WithHTTPLogger(logger))
			if err != nil {
				return nil, fmt.Errorf("agent %q: %w", a.BusinessKey, err)
			}
			tools = append(tools, t)
		}
		for _, svc := range a.ToolServices {
			discovered, err := discovery.Discover(ctx, svc)
			if err != nil {
				return nil, fmt.Errorf("agent %q: %w", a.BusinessKey, err)
			}
			tools = append(tools, discovered...)
		}
		defs = append(defs, &wagner.AgentDefinition{
			BusinessKey:  a.BusinessKey,
			SystemPrompt: a.SystemPrompt,
			Tools:        tools,
		})
	}
	return wagner.NewStaticResolver(defs...), nil
}
