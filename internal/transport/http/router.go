package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/fintrack/fintrack-api/internal/application/email"
	"github.com/fintrack/fintrack-api/internal/application/event"
	fileapp "github.com/fintrack/fintrack-api/internal/application/file"
	"github.com/fintrack/fintrack-api/internal/application/message"
	"github.com/fintrack/fintrack-api/internal/application/transaction"
	"github.com/fintrack/fintrack-api/internal/application/user"
	"github.com/fintrack/fintrack-api/internal/application/verification"
	"github.com/fintrack/fintrack-api/internal/config"
	"github.com/fintrack/fintrack-api/internal/infrastructure/dynamo"
	"github.com/fintrack/fintrack-api/internal/infrastructure/gemini"
	jwtinfra "github.com/fintrack/fintrack-api/internal/infrastructure/jwt"
	s3infra "github.com/fintrack/fintrack-api/internal/infrastructure/s3"
	"github.com/fintrack/fintrack-api/internal/infrastructure/sns"
	"github.com/fintrack/fintrack-api/internal/infrastructure/waba"
	"github.com/fintrack/fintrack-api/internal/transport/http/handler"
	appmiddleware "github.com/fintrack/fintrack-api/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo        *dynamo.UserRepo
	SyncCodeRepo    *dynamo.SyncCodeRepo
	DirectoryRepo   *dynamo.DirectoryRepo
	TransactionRepo *dynamo.TransactionRepo
	EventRepo       *dynamo.EventRepo
	FileRepo        *dynamo.FileRepo
	S3Store         *s3infra.Store
	WabaSender      waba.Sender       // nil when no gateway is configured
	SMSSender       sns.SMSSender     // nil when SMS delivery is disabled
	Extractor       *gemini.Extractor // nil when no API key is configured
	JWTProvider     *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to public webhook endpoints.
	webhookRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	verificationSvc := verification.NewService(verification.ServiceDeps{
		CodeRepo:      deps.SyncCodeRepo,
		UserRepo:      deps.UserRepo,
		DirectoryRepo: deps.DirectoryRepo,
		WabaSender:    deps.WabaSender,
		SMSSender:     smsOrNil(deps, cfg),
		CodeTTL:       cfg.SyncCodeTTL,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:        deps.UserRepo,
		CodeRepo:        deps.SyncCodeRepo,
		DirectoryRepo:   deps.DirectoryRepo,
		TransactionRepo: deps.TransactionRepo,
		EventRepo:       deps.EventRepo,
		WabaSender:      deps.WabaSender,
	})
	txSvc := transaction.NewService(deps.TransactionRepo)
	eventSvc := event.NewService(deps.EventRepo)
	fileSvc := fileapp.NewService(deps.S3Store, deps.FileRepo)
	msgDeps := message.ServiceDeps{
		Verifier:      verificationSvc,
		DirectoryRepo: deps.DirectoryRepo,
		UserRepo:      deps.UserRepo,
		TxService:     txSvc,
		EventService:  eventSvc,
		WabaSender:    deps.WabaSender,
	}
	if deps.Extractor != nil {
		msgDeps.Extractor = deps.Extractor
	}
	messageSvc := message.NewService(msgDeps)
	emailSvc := email.NewService(email.ServiceDeps{
		Archive:       deps.S3Store,
		DirectoryRepo: deps.DirectoryRepo,
		UserRepo:      deps.UserRepo,
		EventService:  eventSvc,
		WabaSender:    deps.WabaSender,
	})

	healthH := handler.NewHealthHandler()
	userH := handler.NewUserHandler(userSvc, verificationSvc)
	verificationH := handler.NewVerificationHandler(verificationSvc)
	txH := handler.NewTransactionHandler(txSvc)
	eventH := handler.NewEventHandler(eventSvc)
	fileH := handler.NewFileHandler(fileSvc)
	webhookH := handler.NewWebhookHandler(messageSvc, emailSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(webhookRL.Limit).Post("/webhooks/whatsapp", webhookH.InboundMessage)
		r.With(webhookRL.Limit).Post("/webhooks/email", webhookH.InboundEmail)
		r.With(webhookRL.Limit).Post("/sync-code/validate", verificationH.Validate)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/users/me", userH.Get)
			r.Put("/users/me/name", userH.UpdateName)
			r.Put("/users/me/language", userH.UpdateLanguage)
			r.Put("/users/me/phone", userH.UpdatePhone)
			r.Put("/users/me/emails/allowed", userH.UpdateAllowedEmails)
			r.Put("/users/me/emails/confirmed", userH.UpdateConfirmedEmails)
			r.Delete("/users/me", userH.Delete)

			r.Post("/sync-code", verificationH.CreateSyncCode)
			r.Delete("/sync-code", verificationH.RevokeSyncCode)

			r.Post("/transactions", txH.Append)
			r.Get("/transactions", txH.List)
			r.Delete("/transactions", txH.Clear)

			r.Post("/events", eventH.Append)
			r.Get("/events", eventH.List)
			r.Delete("/events", eventH.Clear)

			r.Post("/files/s3/base64", fileH.UploadBase64)
			r.Get("/files/s3/{id}", fileH.Download)
			r.Get("/files/s3/{id}/url", fileH.PresignedURL)
			r.Delete("/files/s3/{id}", fileH.Delete)
		})
	})

	return r
}

func smsOrNil(deps *Deps, cfg *config.Config) sns.SMSSender {
	if !cfg.SMSEnabled || deps.SMSSender == nil {
		return nil
	}
	return deps.SMSSender
}
