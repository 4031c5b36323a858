package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elib/config"
	"elib/handlers"
	"elib/httperr"
	"elib/middleware"
	"elib/service"
	"elib/store"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal("mongodb:", err)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			log.Println("mongodb disconnect:", err)
		}
	}()

	var assets *service.S3Service
	if cfg.S3Bucket != "" {
		assets, err = service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			log.Fatal("s3:", err)
		}
	} else {
		log.Println("warning: AWS_S3_BUCKET not set; uploads will fail")
	}

	usersHandler := &handlers.UsersHandler{
		Store:     db,
		JWTSecret: cfg.JWTSecret,
	}
	booksHandler := &handlers.BooksHandler{
		Catalog:   db,
		Assets:    assets,
		UploadDir: cfg.UploadDir,
		MaxBytes:  cfg.MaxUploadMB * 1024 * 1024,
	}

	dev := cfg.Development()
	h := func(fn httperr.HandlerFunc) http.HandlerFunc {
		return httperr.Handler(fn, dev)
	}

	r := chi.NewRouter()
	r.Use(middleware.AllowAll())
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"welcome to elib."}`))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/users/register", h(usersHandler.Register))
		r.Post("/users/login", h(usersHandler.Login))

		r.Get("/books", h(booksHandler.List))
		r.Get("/books/{bookId}", h(booksHandler.Get))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.JWTSecret, dev))
			r.Post("/books/register", h(booksHandler.Create))
			r.Patch("/books/{bookId}", h(booksHandler.Update))
			r.Delete("/books/{bookId}", h(booksHandler.Delete))
			r.Get("/books/{bookId}/download", h(booksHandler.Download))
		})
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Println("server listening on :" + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("shutdown:", err)
	}
}
