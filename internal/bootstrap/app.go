// Package bootstrap wires configuration into the full dependency graph
// shared by the API server and the queue worker.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-hub/internal/extract"
	"resume-hub/internal/extraction"
	"resume-hub/internal/generation"
	"resume-hub/internal/llm"
	openaiclient "resume-hub/internal/llm/openai"
	"resume-hub/internal/notify"
	"resume-hub/internal/queue"
	"resume-hub/internal/resumes"
	"resume-hub/internal/shared/config"
	"resume-hub/internal/shared/server"
	"resume-hub/internal/shared/storage/db"
	"resume-hub/internal/shared/storage/object"
	localstore "resume-hub/internal/shared/storage/object/local"
	s3store "resume-hub/internal/shared/storage/object/s3"
	"resume-hub/internal/usage"
	"resume-hub/resume/render"
)

// App holds the shared dependency graph.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Hub    *notify.Hub
	Queue  queue.Client

	Repo    resumes.Repo
	Meter   *usage.Meter
	Service *resumes.Service
	Engine  *generation.Engine
}

// Build prepares shared dependencies for both entrypoints. The returned
// engine is not started; the API server starts it when it is the generator,
// the worker drives it synchronously.
func Build(cfg config.Config) (*App, error) {
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	repo, err := buildRepo(ctx, sqlDB)
	if err != nil {
		return nil, err
	}

	meter := buildMeter(sqlDB)

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	hub := notify.NewHub()

	svc := &resumes.Service{
		Repo:  repo,
		Blobs: store,
		Extractor: &extraction.Adapter{
			LLM:   llmClient,
			Meter: meter,
		},
		Notify: hub,
	}

	engine := &generation.Engine{
		Repo:     repo,
		Blobs:    store,
		Docs:     svc,
		Renderer: render.PDFRenderer{},
		Notify:   hub,
		Workers:  cfg.RenderWorkers,
		Timeout:  cfg.RenderTimeout,
	}

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Store:   store,
		Hub:     hub,
		Repo:    repo,
		Meter:   meter,
		Service: svc,
		Engine:  engine,
	}

	// With a queue configured, renders run in the worker process; otherwise
	// the in-process engine handles them.
	if cfg.SQSQueueURL != "" {
		sqsClient, err := queue.NewSQSClient(ctx, cfg.SQSQueueURL, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		app.Queue = sqsClient
		svc.Generator = &queue.Generator{Client: sqsClient}
	} else {
		svc.Generator = engine
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config: cfg,
		ResumesHandler: &resumes.Handler{
			Service:        svc,
			Files:          extract.FileExtractor{},
			MaxUploadBytes: cfg.MaxUploadBytes,
		},
		UsageHandler: &usage.Handler{Meter: meter},
		Events:       &notify.WSHandler{Hub: hub},
	})

	return app, nil
}

// Close releases held resources.
func (a *App) Close() {
	a.Hub.Shutdown()
	if a.DB != nil {
		a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildRepo(ctx context.Context, sqlDB *sql.DB) (resumes.Repo, error) {
	if sqlDB == nil {
		return resumes.NewMemoryRepo(), nil
	}
	return resumes.NewPGRepo(ctx, sqlDB)
}

func buildMeter(sqlDB *sql.DB) *usage.Meter {
	if sqlDB == nil {
		return usage.NewMeter()
	}
	return usage.NewPostgresMeter(usage.NewPGStore(sqlDB))
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: OPENAI_API_KEY empty; extraction calls will fail until configured")
			return llm.PlaceholderClient{}, nil
		}
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return openaiclient.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
