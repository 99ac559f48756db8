package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aico-ai/aico/ai"
	"github.com/aico-ai/aico/ai/analyzer"
	"github.com/aico-ai/aico/ai/cache"
	"github.com/aico-ai/aico/ai/clients"
	aicontext "github.com/aico-ai/aico/ai/context"
	"github.com/aico-ai/aico/ai/metrics"
	"github.com/aico-ai/aico/ai/thread"
	"github.com/aico-ai/aico/internal/profile"
	"github.com/aico-ai/aico/internal/version"
	"github.com/aico-ai/aico/server"
	apiv1 "github.com/aico-ai/aico/server/router/api/v1"
	"github.com/aico-ai/aico/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "aico",
	Short: `Conversation thread resolver service: decides whether each incoming message continues, branches, reactivates, or starts a conversation thread.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

		// Only load .env for direct binary execution; systemd units carry
		// their environment in the unit file.
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:        viper.GetString("mode"),
			Addr:        viper.GetString("addr"),
			Port:        viper.GetInt("port"),
			Data:        viper.GetString("data"),
			Driver:      viper.GetString("driver"),
			DSN:         viper.GetString("dsn"),
			InstanceURL: viper.GetString("instance-url"),
			Version:     version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			panic(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		working, err := db.NewWorkingDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to open working store", "driver", instanceProfile.Driver, "error", err)
			return
		}
		defer working.Close()
		if err := working.Migrate(ctx); err != nil {
			slog.Error("failed to migrate working store", "error", err)
			return
		}

		semantic, err := db.NewSemanticMemory(instanceProfile)
		if err != nil {
			slog.Error("failed to open semantic memory", "error", err)
			return
		}
		if semantic != nil {
			defer semantic.Close()
		}

		aiConfig := ai.NewConfigFromProfile(instanceProfile)
		if err := aiConfig.Resolver.Validate(); err != nil {
			slog.Error("invalid resolver configuration", "error", err)
			return
		}

		apiService := buildAPIService(instanceProfile, aiConfig, working, semantic)

		s, err := server.NewServer(ctx, instanceProfile, apiService)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			return
		}

		c := make(chan os.Signal, 1)
		// SIGTERM is the graceful shutdown signal for most process
		// managers (systemd, Kubernetes).
		signal.Notify(c, terminationSignals...)

		if err := s.Start(ctx); err != nil {
			slog.Error("failed to start server", "error", err)
			return
		}

		printGreetings(instanceProfile)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		<-ctx.Done()
	},
}

// buildAPIService wires the resolver stack: adapters, caches, analyzer,
// context builder, scorer/decision engine, and metrics.
func buildAPIService(instanceProfile *profile.Profile, aiConfig *ai.Config, working db.WorkingDriver, semantic db.SemanticDriver) *apiv1.APIV1Service {
	resolverConfig := aiConfig.Resolver
	status := clients.NewStatusBoard()
	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())

	embedder := clients.NewEmbedder(aiConfig, status)
	transport := clients.NewModelServiceClient(aiConfig.ModelService.BaseURL, resolverConfig.AdapterDeadline)
	intents := clients.NewServiceIntentClassifier(transport, status)
	entities := clients.NewServiceNER(transport, status)

	var embedCache *cache.LoadingCache[[]float32]
	if resolverConfig.EnableCaching {
		embedCache = cache.NewLoading(cache.NewLRU[string, []float32](
			resolverConfig.EmbeddingCacheSize, resolverConfig.EmbeddingCacheTTL))
	}

	reader := clients.NewWorkingStoreAdapter(working, resolverConfig.AdapterDeadline, status)
	contexts := aicontext.New(resolverConfig, reader, embedder, intents, entities, embedCache)
	messageAnalyzer := analyzer.New(resolverConfig, embedder, intents, entities, embedCache)
	resolver := thread.NewResolver(resolverConfig, messageAnalyzer, contexts, status, exporter)

	apiService := &apiv1.APIV1Service{
		Profile:    instanceProfile,
		Resolver:   resolver,
		Contexts:   contexts,
		Exporter:   exporter,
		Status:     status,
		EmbedCache: embedCache,
		Working:    working,
		Embedder:   embedder,
		Sentiment:  clients.NewServiceSentiment(transport, status),
	}
	if semantic != nil {
		apiService.Semantic = clients.NewSemanticMemoryAdapter(semantic, resolverConfig.AdapterDeadline, status)
	}
	return apiService
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28081)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "working-store driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "working-store source name (aka. DSN)")
	rootCmd.PersistentFlags().String("instance-url", "", "the url of this instance")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn", "instance-url"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("aico")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(instanceProfile *profile.Profile) {
	fmt.Printf("AICO thread resolver %s started successfully!\n", instanceProfile.Version)

	if instanceProfile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if instanceProfile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Working store: %s\n", instanceProfile.DSN)
		}
	}

	fmt.Printf("Data directory: %s\n", instanceProfile.Data)
	fmt.Printf("Working-store driver: %s\n", instanceProfile.Driver)
	fmt.Printf("Mode: %s\n", instanceProfile.Mode)

	if len(instanceProfile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", instanceProfile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", instanceProfile.Addr, instanceProfile.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
