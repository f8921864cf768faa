package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"team-collab/backend/handlers"
	"team-collab/backend/logging"
	"team-collab/backend/middleware"
	"team-collab/backend/services"
	"team-collab/backend/sockets"
)

func main() {
	logging.InitLogger()
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting collaboration backend...")

	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_ERROR, Description: No .env file loaded: %v", err)
	}

	if os.Getenv("JWT_SECRET") == "" {
		logging.Logger.Fatal("Event ID: CONFIG_MISSING, Description: JWT_SECRET must be set")
	}

	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017")
	mongoDBName := getEnv("MONGO_DB_NAME", "team_collab")
	serverPort := getEnv("SERVER_PORT", "5000")
	uploadDir := getEnv("UPLOAD_DIR", "uploads")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	db := client.Database(mongoDBName)
	usersCollection := db.Collection("users")
	projectsCollection := db.Collection("projects")
	tasksCollection := db.Collection("tasks")
	messagesCollection := db.Collection("messages")

	chatBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ChatPersistenceCB",
		MaxRequests: 1,
		Timeout:     2 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	userService := services.NewUserService(usersCollection)
	projectService := services.NewProjectService(projectsCollection, usersCollection)
	taskService := services.NewTaskService(client, tasksCollection)
	messageService := services.NewMessageService(messagesCollection, usersCollection, chatBreaker)

	hub := sockets.NewHub(messageService)

	authHandler := handlers.NewAuthHandler(userService)
	projectHandler := handlers.NewProjectHandler(projectService, taskService, messageService)
	taskHandler := handlers.NewTaskHandler(taskService, projectService)
	messageHandler := handlers.NewMessageHandler(messageService)
	uploadHandler := handlers.NewUploadHandler(userService, taskService, projectService, uploadDir)

	auth := middleware.JWTAuth(userService)
	projectByID := middleware.ProjectMember(projectService, "id")
	projectByVar := middleware.ProjectMember(projectService, "projectId")

	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	}).Methods(http.MethodGet)

	// Auth
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)
	r.Handle("/api/auth/me", auth(http.HandlerFunc(authHandler.Me))).Methods(http.MethodGet)
	r.Handle("/api/auth/profile", auth(http.HandlerFunc(authHandler.UpdateProfile))).Methods(http.MethodPut)

	// Projects
	r.Handle("/api/projects", auth(http.HandlerFunc(projectHandler.Create))).Methods(http.MethodPost)
	r.Handle("/api/projects", auth(http.HandlerFunc(projectHandler.List))).Methods(http.MethodGet)
	r.Handle("/api/projects/join", auth(http.HandlerFunc(projectHandler.Join))).Methods(http.MethodPost)
	r.Handle("/api/projects/{id}", auth(projectByID(http.HandlerFunc(projectHandler.Get)))).Methods(http.MethodGet)
	r.Handle("/api/projects/{id}", auth(projectByID(http.HandlerFunc(projectHandler.Update)))).Methods(http.MethodPut)
	r.Handle("/api/projects/{id}", auth(projectByID(http.HandlerFunc(projectHandler.Delete)))).Methods(http.MethodDelete)
	r.Handle("/api/projects/{id}/invite", auth(projectByID(http.HandlerFunc(projectHandler.Invite)))).Methods(http.MethodPost)
	r.Handle("/api/projects/{id}/leave", auth(projectByID(http.HandlerFunc(projectHandler.Leave)))).Methods(http.MethodPost)
	r.Handle("/api/projects/{id}/members/{userId}/role", auth(projectByID(http.HandlerFunc(projectHandler.UpdateMemberRole)))).Methods(http.MethodPut)
	r.Handle("/api/projects/{id}/members/{userId}", auth(projectByID(http.HandlerFunc(projectHandler.RemoveMember)))).Methods(http.MethodDelete)

	// Tasks
	r.Handle("/api/tasks", auth(http.HandlerFunc(taskHandler.Create))).Methods(http.MethodPost)
	r.Handle("/api/tasks/reorder", auth(http.HandlerFunc(taskHandler.Reorder))).Methods(http.MethodPut)
	r.Handle("/api/tasks/project/{projectId}", auth(projectByVar(http.HandlerFunc(taskHandler.ListByProject)))).Methods(http.MethodGet)
	r.Handle("/api/tasks/project/{projectId}/stats", auth(projectByVar(http.HandlerFunc(taskHandler.ProjectStats)))).Methods(http.MethodGet)
	r.Handle("/api/tasks/{id}", auth(http.HandlerFunc(taskHandler.Get))).Methods(http.MethodGet)
	r.Handle("/api/tasks/{id}", auth(http.HandlerFunc(taskHandler.Update))).Methods(http.MethodPut)
	r.Handle("/api/tasks/{id}", auth(http.HandlerFunc(taskHandler.Delete))).Methods(http.MethodDelete)
	r.Handle("/api/tasks/{id}/comments", auth(http.HandlerFunc(taskHandler.AddComment))).Methods(http.MethodPost)
	r.Handle("/api/tasks/{id}/attachments", auth(http.HandlerFunc(uploadHandler.UploadTaskAttachment))).Methods(http.MethodPost)

	// Messages
	r.Handle("/api/messages/project/{projectId}", auth(projectByVar(http.HandlerFunc(messageHandler.History)))).Methods(http.MethodGet)
	r.Handle("/api/messages/project/{projectId}", auth(projectByVar(http.HandlerFunc(messageHandler.Send)))).Methods(http.MethodPost)
	r.Handle("/api/messages/project/{projectId}/unread", auth(projectByVar(http.HandlerFunc(messageHandler.UnreadCount)))).Methods(http.MethodGet)
	r.Handle("/api/messages/{id}", auth(http.HandlerFunc(messageHandler.Edit))).Methods(http.MethodPut)
	r.Handle("/api/messages/{id}", auth(http.HandlerFunc(messageHandler.Delete))).Methods(http.MethodDelete)
	r.Handle("/api/messages/{id}/reactions", auth(http.HandlerFunc(messageHandler.AddReaction))).Methods(http.MethodPost)
	r.Handle("/api/messages/{id}/reactions", auth(http.HandlerFunc(messageHandler.RemoveReaction))).Methods(http.MethodDelete)
	r.Handle("/api/messages/{id}/read", auth(http.HandlerFunc(messageHandler.MarkRead))).Methods(http.MethodPost)

	// Uploads
	r.Handle("/api/uploads/avatar", auth(http.HandlerFunc(uploadHandler.UploadAvatar))).Methods(http.MethodPost)
	r.Handle("/api/uploads/chat", auth(http.HandlerFunc(uploadHandler.UploadChatFile))).Methods(http.MethodPost)
	r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir))))

	// Realtime; the socket authenticates itself in-band after connecting.
	r.HandleFunc("/ws", hub.ServeWS)

	corsRouter := middleware.EnableCORS(r)

	srv := &http.Server{
		Addr:         ":" + serverPort,
		Handler:      corsRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logging.Logger.Infof("Event ID: SERVER_START, Description: Server running on port %s", serverPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.Logger.Fatalf("Event ID: SERVER_FAILED, Description: Server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
