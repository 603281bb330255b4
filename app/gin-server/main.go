package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yoockh/intervue/config"
	"github.com/yoockh/intervue/internal/api/handlers"
	"github.com/yoockh/intervue/internal/api/middleware"
	"github.com/yoockh/intervue/internal/api/routes"
	"github.com/yoockh/intervue/internal/cache"
	"github.com/yoockh/intervue/internal/logger"
	"github.com/yoockh/intervue/internal/providers/llm"
	"github.com/yoockh/intervue/internal/providers/stt"
	"github.com/yoockh/intervue/internal/providers/voice"
	"github.com/yoockh/intervue/internal/realtime"
	mongorepo "github.com/yoockh/intervue/internal/repositories/mongo"
	pgrepo "github.com/yoockh/intervue/internal/repositories/postgres"
	"github.com/yoockh/intervue/internal/services"
	"github.com/yoockh/intervue/internal/storage"
	"github.com/yoockh/intervue/internal/workers"
)

func main() {
	_ = godotenv.Load()

	l := logger.New()

	// Init MongoDB
	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	fmt.Println("MongoDB connected")

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	fmt.Println("PostgreSQL connected")

	// Init Redis
	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	fmt.Println("Redis connected")

	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("Mongo index error: %v", err)
	}

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "intervue"
	}
	mongoDB := config.MongoClient.Database(dbName)

	ctx := context.Background()

	// Providers
	gemini, err := llm.NewVertexGemini(ctx,
		os.Getenv("GCP_PROJECT_ID"),
		os.Getenv("VERTEX_LOCATION"),
		os.Getenv("GEMINI_MODEL"),
	)
	if err != nil {
		log.Fatalf("Vertex init error: %v", err)
	}
	defer gemini.Close()

	speech, err := stt.NewGoogleSpeech(ctx)
	if err != nil {
		log.Fatalf("Speech init error: %v", err)
	}
	defer speech.Close()

	archive, err := storage.NewGCSArchive(ctx, os.Getenv("GCS_BUCKET"))
	if err != nil {
		log.Fatalf("GCS init error: %v", err)
	}
	defer archive.Close()

	elevenlabs := voice.NewElevenLabs(
		os.Getenv("ELEVENLABS_API_KEY"),
		os.Getenv("ELEVENLABS_AGENT_ID"),
		os.Getenv("ELEVENLABS_BASE_URL"),
	)

	// Repositories
	interviewRepo := mongorepo.NewInterviewRepo(mongoDB)
	feedbackRepo := mongorepo.NewFeedbackRepo(mongoDB)
	bufferRepo := mongorepo.NewBufferRepo(mongoDB)
	turnRepo := pgrepo.NewTurnRepo(config.PostgresDB)
	profileRepo := pgrepo.NewProfileRepo(config.PostgresDB)
	userRepo := pgrepo.NewUserRepo(config.PostgresDB)

	// Services
	redisCache := cache.NewRedisCache(config.RedisClient)
	interviewSvc := services.NewInterviewService(interviewRepo, redisCache)
	feedbackSvc := services.NewFeedbackService(interviewRepo, feedbackRepo, gemini, config.RedisClient, redisCache, l)
	bufferSvc := services.NewBufferService(bufferRepo, 0)
	profileSvc := services.NewProfileService(profileRepo)
	userSvc := services.NewUserService(userRepo)

	transport := realtime.NewWSTransport(l)
	liveSvc := services.NewLiveService(
		interviewSvc, profileRepo, elevenlabs, transport,
		turnRepo, bufferSvc, feedbackSvc, config.RedisClient, l,
	)

	// Workers
	archivePool := &workers.ArchiveWorkerPool{
		Redis:    config.RedisClient,
		Buffers:  bufferSvc,
		Uploader: archive,
		STT:      speech,
		Logger:   l,
	}
	if err := archivePool.Start(ctx); err != nil {
		log.Fatalf("Archive worker error: %v", err)
	}

	feedbackPool := &workers.FeedbackWorkerPool{
		Redis:    config.RedisClient,
		Feedback: feedbackSvc,
		Logger:   l,
	}
	if err := feedbackPool.Start(ctx); err != nil {
		log.Fatalf("Feedback worker error: %v", err)
	}

	// HTTP server
	r := gin.New()
	r.Use(middleware.RequestLogger(l), gin.Recovery())

	routes.RegisterRoutes(r, routes.Deps{
		Interview: handlers.NewInterviewHandler(interviewSvc, feedbackSvc),
		Feedback:  handlers.NewFeedbackHandler(feedbackSvc),
		Profile:   handlers.NewProfileHandler(profileSvc),
		User:      handlers.NewUserHandler(userSvc),
		Events:    handlers.NewEventsHandler(bufferSvc, archive),
		Turns:     handlers.NewTurnHandler(turnRepo),
		Live:      handlers.NewLiveHandler(liveSvc, config.RedisClient, l),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
