package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tosino95/natours/internal/bookings"
	"github.com/Tosino95/natours/internal/config"
	"github.com/Tosino95/natours/internal/db"
	"github.com/Tosino95/natours/internal/mail"
	"github.com/Tosino95/natours/internal/middleware"
	"github.com/Tosino95/natours/internal/payments"
	"github.com/Tosino95/natours/internal/reviews"
	"github.com/Tosino95/natours/internal/storage"
	"github.com/Tosino95/natours/internal/token"
	"github.com/Tosino95/natours/internal/tours"
	"github.com/Tosino95/natours/internal/users"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("Server is up!\n"))
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config: ", err)
	}

	gormDB, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			log.Println("Failed to close database: ", err)
		}
	}()

	if err := users.Setup(gormDB); err != nil {
		log.Fatal("Failed to migrate users: ", err)
	}
	if err := tours.Setup(gormDB); err != nil {
		log.Fatal("Failed to migrate tours: ", err)
	}
	if err := bookings.Setup(gormDB); err != nil {
		log.Fatal("Failed to migrate bookings: ", err)
	}

	tokens := token.NewService(cfg.JWTSecret, cfg.JWTExpiresIn)

	var mailer mail.Sender = mail.LogSender{}
	if cfg.EmailHost != "" {
		smtpSender, err := mail.NewSMTPSender(cfg.EmailHost, cfg.EmailPort, cfg.EmailUsername, cfg.EmailPassword, cfg.EmailFrom)
		if err != nil {
			log.Fatal("Failed to build mail sender: ", err)
		}
		mailer = smtpSender
	}

	photos := storage.NewPhotoStore(cfg.PhotoDir)

	guard := middleware.Guard{
		Tokens: tokens,
		Users:  users.Resolver{DB: gormDB},
		Stale:  token.StaleRelativeTo,
	}

	userHandler := &users.Handler{DB: gormDB, Tokens: tokens, Mailer: mailer, Photos: photos, Cfg: cfg}
	tourHandler := &tours.Handler{DB: gormDB, Photos: photos}
	bookingHandler := &bookings.Handler{DB: gormDB, Provider: payments.DevProvider{}}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/", rootHandler)
	r.Handle("/img/*", http.StripPrefix("/img/", http.FileServer(http.Dir(cfg.PhotoDir))))

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateLimitBurst))

		api.Mount("/users", userHandler.SetupRoutes(guard))
		api.Mount("/tours", tourHandler.SetupRoutes(guard))
		api.Mount("/reviews", reviews.SetupRoutes(gormDB, guard))
		api.Mount("/bookings", bookingHandler.SetupRoutes(guard))
	})

	server := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server listening on port :%s...", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("Shutdown error: ", err)
	}
}
