// Package cli provides the command-line interface for amphora.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fwirtz/amphora/internal/config"
	"github.com/fwirtz/amphora/internal/db"
	"github.com/fwirtz/amphora/internal/embedding"
	"github.com/fwirtz/amphora/internal/llm"
	"github.com/fwirtz/amphora/internal/metrics"
	"github.com/fwirtz/amphora/internal/models"
	"github.com/fwirtz/amphora/internal/parser"
	"github.com/fwirtz/amphora/internal/pipeline"
	"github.com/fwirtz/amphora/internal/pool"
	"github.com/fwirtz/amphora/internal/service"
	"github.com/fwirtz/amphora/internal/store"
	"github.com/fwirtz/amphora/internal/tasks"
	"github.com/fwirtz/amphora/internal/titlecache"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configFile string

	// Wired in PersistentPreRunE
	cfg       config.Config
	logger    *slog.Logger
	logClose  func() error
	dbClient  *db.Client
	docStore  pipeline.DocumentStore
	library   *service.DirLibrary
	pipePool  *pool.Pool[*pipeline.Pipeline]
	titles    *titlecache.TitleCache
	docSets   *titlecache.DocSetCache
	manager   *tasks.Manager
	querySvc  *service.QueryService
	sweeps    *service.Maintenance
	stats     *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "amphora",
	Short: "Document library with RAG-backed question answering",
	Long: `Amphora manages a library of Markdown documents, embeds them into
vector collections and answers questions against those collections,
optionally scoped to a single document title with fuzzy matching.

Ingest, embed and clean runs are queued as background tasks processed
one at a time; interrupted runs are reported on the next start.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Version and help need no wiring.
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "templates" {
			return nil
		}
		return setup(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

// setup wires the full application: config, logging, storage backend,
// embedding, pipelines, task worker and maintenance sweeps.
func setup(ctx context.Context) error {
	cfg = config.Load()
	if configFile != "" {
		if err := config.LoadFile(&cfg, configFile); err != nil {
			return err
		}
	}
	if verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	logger, logClose = config.SetupLogger(cfg.LogFile, cfg.LogLevel)

	var err error
	switch cfg.StoreBackend {
	case "memory":
		// Useful for smoke tests; nothing persists between runs.
		docStore = store.NewMemory()
	default:
		dbClient, err = db.NewClient(ctx, db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
		docStore = db.NewDocumentStore(dbClient)
	}

	library, err = service.NewDirLibrary(cfg.LibraryDir, logger)
	if err != nil {
		return err
	}

	embedder, err := embedding.New(embedding.Config{
		Provider:     embedding.ProviderType(cfg.EmbedProvider),
		Model:        cfg.EmbedModel,
		OllamaHost:   cfg.OllamaHost,
		VoyageAPIKey: cfg.VoyageAPIKey,
	})
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}

	pipePool = pool.New[*pipeline.Pipeline](pool.Options{MaxIdleAge: cfg.PoolMaxIdleAge})
	titles = titlecache.New(titlecache.Options{Logger: logger})
	docSets = titlecache.NewDocSetCache(0, nil)
	stats = metrics.NewCollector()

	embedFactory := func(collection string) (*pipeline.Pipeline, error) {
		return pipeline.New(pipeline.Options{
			Collection: collection,
			Store:      docStore,
			Embedder:   embedder,
			TopK:       cfg.TopK,
			Titles:     titles,
			DocSets:    docSets,
			Metrics:    stats,
			Logger:     logger,
		})
	}
	assistFactory := func(collection string) (*pipeline.Pipeline, error) {
		model, err := llm.NewModel(cfg)
		if err != nil {
			return nil, fmt.Errorf("init model: %w", err)
		}
		return pipeline.New(pipeline.Options{
			Collection: collection,
			Store:      docStore,
			Embedder:   embedder,
			Generator:  model,
			TopK:       cfg.TopK,
			Template:   cfg.PromptTemplate,
			Titles:     titles,
			DocSets:    docSets,
			Metrics:    stats,
			Logger:     logger,
		})
	}
	querySvc = service.NewQueryService(pipePool, assistFactory, logger)

	taskStore, err := taskPersistence()
	if err != nil {
		return err
	}
	manager = tasks.NewManager(taskStore, tasks.Options{Logger: logger})
	manager.Register(models.TaskFileIngest, service.NewIngestService(library, nil, parser.RuleCleaner{}, logger).Handle)
	manager.Register(models.TaskBatchEmbed, service.NewEmbedService(library, pipePool, embedFactory, docStore, logger).Handle)
	manager.Register(models.TaskBatchClean, service.NewCleanService(library, parser.RuleCleaner{}, logger).Handle)
	if err := manager.Start(ctx); err != nil {
		return err
	}

	sweeps, err = service.NewMaintenance(cfg.MaintenanceSpec, pipePool, titles, logger)
	if err != nil {
		return err
	}
	sweeps.Start()

	return nil
}

// taskPersistence picks the task store matching the document backend, so a
// database-backed run keeps its queue in the database too.
func taskPersistence() (tasks.Store, error) {
	if dbClient != nil {
		return db.NewTaskStore(dbClient), nil
	}
	return tasks.NewFileStore(cfg.TasksFile)
}

func teardown() {
	if sweeps != nil {
		sweeps.Stop()
	}
	if manager != nil {
		manager.Close()
	}
	for _, op := range stats.Snapshot().Operations {
		logger.Debug("operation stats",
			"op", op.Op,
			"count", op.Count,
			"items", op.Items,
			"avg_ms", op.AvgTimeMs)
	}
	if dbClient != nil {
		if err := dbClient.Close(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}
	if logClose != nil {
		_ = logClose()
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file overlaying the environment")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(templatesCmd)
}
