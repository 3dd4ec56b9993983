package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"lead_server/adapter/out/mongodb"
	"lead_server/adapter/out/persistence"
	"lead_server/config"
	"lead_server/core/agent/llm"
	"lead_server/core/agent/rag"
	"lead_server/core/port/out"
	"lead_server/core/service/classification"
	"lead_server/core/service/historical"
	"lead_server/core/service/intake"
	"lead_server/infra/database"
	"lead_server/pkg/cache"
	"lead_server/pkg/logger"
	"lead_server/pkg/metrics"
)

type Dependencies struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB
	Redis   *redis.Client
	MongoDB *mongo.Client

	// Repositories
	LeadRepo         out.LeadRepository
	MessageRepo      out.MessageRepository
	ConversationRepo out.ConversationRepository
	BodyArchive      out.BodyArchive

	// Embedding
	LLMClient *llm.Client
	Embedder  *rag.Embedder

	// Knowledge base
	ChunkIndex rag.ChunkIndex
	Chunker    *rag.Chunker
	Indexer    *rag.IndexerService
	Retriever  *rag.Retriever

	// Historical examples
	ExampleStore        rag.ExampleStore
	HistoricalRetriever *rag.HistoricalRetriever
	CaptureService      *historical.CaptureService

	// Classification and intake
	Classifier    *classification.Classifier
	IntakeService *intake.Service

	// Metrics
	Latency *metrics.LatencyRegistry
}

// errEmbeddingDisabled marks provider calls made without credentials.
var errEmbeddingDisabled = errors.New("embedding provider not configured")

// disabledEmbeddingClient stands in when no provider credentials exist. Every
// call fails, which the retrieval layers translate into empty results.
type disabledEmbeddingClient struct{}

func (disabledEmbeddingClient) Embedding(context.Context, string) ([]float32, error) {
	return nil, errEmbeddingDisabled
}

func (disabledEmbeddingClient) EmbeddingBatch(context.Context, []string) ([][]float32, error) {
	return nil, errEmbeddingDisabled
}

func (disabledEmbeddingClient) Dimension() int { return llm.DefaultEmbeddingDim }

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{
		Config:  cfg,
		Latency: metrics.NewLatencyRegistry(0),
	}
	var cleanups []func()

	// Database (pgxpool for the vector stores)
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		deps.DB = db
		cleanups = append(cleanups, func() { db.Close() })

		// sqlx connection for the relational adapters
		sqlDB, err := database.NewSQLX(cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Error("sqlx connection failed")
		} else {
			deps.SQLDB = sqlDB
			cleanups = append(cleanups, func() { sqlDB.Close() })
			logger.Info("sqlx database connection successful")
		}
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	}

	// Redis
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Redis connection failed, embedding cache disabled")
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })
		}
	}

	// MongoDB (message body archive)
	if cfg.MongoDBURL != "" {
		mongoClient, err := mongodb.NewClient(cfg.MongoDBURL)
		if err != nil {
			logger.WithError(err).Warn("MongoDB connection failed, body archiving disabled")
		} else {
			deps.MongoDB = mongoClient
			cleanups = append(cleanups, func() {
				mongoClient.Disconnect(context.Background())
			})

			bodyAdapter := mongodb.NewBodyAdapter(mongoClient.Database(cfg.MongoDBName))
			if err := bodyAdapter.EnsureIndexes(context.Background()); err != nil {
				logger.WithError(err).Warn("failed to ensure MongoDB indexes")
			}
			deps.BodyArchive = bodyAdapter
		}
	}

	// Embedding provider. Missing credentials degrade retrieval to empty
	// results instead of failing startup.
	var embeddingClient rag.EmbeddingClient
	if cfg.HasEmbeddingCredentials() {
		deps.LLMClient = llm.NewClient(llm.ClientConfig{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.EmbeddingModel,
			Dimension: cfg.EmbeddingDim,
		})
		embeddingClient = deps.LLMClient
	} else {
		logger.Warn("OPENAI_API_KEY not set, embedding calls will fail fast")
		embeddingClient = disabledEmbeddingClient{}
	}

	var embeddingCache *cache.EmbeddingCache
	if deps.Redis != nil {
		embeddingCache = cache.NewEmbeddingCache(deps.Redis)
	}
	deps.Embedder = rag.NewEmbedder(embeddingClient, embeddingCache, cfg.EmbedBatchSize, cfg.EmbedBatchDelay)

	// Knowledge base: Postgres pgvector when available, in-memory otherwise.
	if deps.DB != nil {
		deps.ChunkIndex = rag.NewVectorStore(deps.DB)
	} else {
		deps.ChunkIndex = rag.NewMemoryIndex()
	}
	deps.Chunker = rag.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	deps.Indexer = rag.NewIndexerService(deps.Chunker, deps.Embedder, deps.ChunkIndex)
	deps.Retriever = rag.NewRetriever(deps.Embedder, deps.ChunkIndex, 0)

	// Historical examples
	if deps.DB != nil {
		deps.ExampleStore = rag.NewHistoricalStore(deps.DB)
	} else {
		deps.ExampleStore = rag.NewMemoryExampleStore()
	}
	deps.HistoricalRetriever = rag.NewHistoricalRetriever(
		deps.Embedder,
		deps.ExampleStore,
		cfg.HistoricalTopK,
		cfg.HistoricalMinSimilarity,
	)
	deps.CaptureService = historical.NewCaptureService(deps.Embedder, deps.ExampleStore)

	// Classification and intake need the relational adapters.
	if deps.SQLDB != nil {
		deps.LeadRepo = persistence.NewLeadAdapter(deps.SQLDB)
		deps.MessageRepo = persistence.NewMessageAdapter(deps.SQLDB)
		deps.ConversationRepo = persistence.NewConversationAdapter(deps.SQLDB)

		classifierCfg := classification.Config{
			SimilarityThreshold: cfg.DuplicateThreshold,
			DuplicateLookback:   time.Duration(cfg.DuplicateLookbackDays) * 24 * time.Hour,
			FollowUpLookback:    time.Duration(cfg.FollowUpLookbackDays) * 24 * time.Hour,
			DuplicateCandidates: cfg.CandidateLimit,
		}
		deps.Classifier = classification.NewClassifier(deps.Embedder, deps.LeadRepo, deps.MessageRepo, classifierCfg)
		deps.IntakeService = intake.NewService(
			deps.Classifier,
			deps.LeadRepo,
			deps.MessageRepo,
			deps.ConversationRepo,
			deps.BodyArchive,
		)
		logger.Info("intake pipeline initialized")
	} else {
		logger.Warn("no relational database, intake endpoints disabled")
	}

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	return deps, cleanup, nil
}

func (d *Dependencies) HealthCheck(ctx context.Context) error {
	if d.DB != nil {
		if err := d.DB.Ping(ctx); err != nil {
			return err
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	return nil
}
