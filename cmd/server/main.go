package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/auth"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/backend"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/catalog"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/checkout"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/config"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/contact"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/customers"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/dashboard"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/handlers"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/listing"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/mail"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/media"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/notify"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/orders"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/settings"
)

func main() {
	// Configure slog as early as possible
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Open the document store in the background. Everything below talks to
	// it through the readiness future, so the server can start accepting
	// requests while the backend connects.
	ready := docstore.NewReady()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s, err := backend.Open(ctx, cfg)
		if err != nil {
			slog.Error("Failed to open document store", "backend", cfg.DocStore, "error", err)
			ready.Resolve(nil, err)
			return
		}
		slog.Info("Document store ready", "backend", cfg.DocStore)
		ready.Resolve(s, nil)
	}()
	db := docstore.NewDeferred(ready)
	repos := repository.New(db)

	// 3. Services
	mailer, err := mail.New(mail.LogSender{}, cfg.StoreName)
	if err != nil {
		slog.Error("Failed to load mail templates", "error", err)
		os.Exit(1)
	}
	authz, err := auth.NewAuthorizer()
	if err != nil {
		slog.Error("Failed to load access policy", "error", err)
		os.Exit(1)
	}
	var uploader media.Uploader = &media.Local{Dir: cfg.UploadDir, URLPrefix: "/static/uploads"}
	if cfg.UseCloudinary() {
		uploader = media.NewCloudinary(cfg.Cloudinary.CloudName, cfg.Cloudinary.UploadPreset, cfg.Cloudinary.Folder)
	}

	authSvc := auth.NewService(repos, cfg.ResetTokenKey, cfg.PublicBaseURL, mailer)
	customerSvc := customers.NewService(repos)
	catalogSvc := catalog.NewService(repos, uploader)
	checkoutSvc := checkout.NewService(repos, mailer)
	contactSvc := contact.NewService(repos)
	settingsSvc := settings.NewService(repos)
	dashboardSvc := dashboard.NewService(repos)

	// 4. Lists and live notifications
	lists := handlers.NewAdminLists(repos, customerSvc, handlers.PageSizes{
		Orders:    cfg.PageSizes.Orders,
		Products:  cfg.PageSizes.Products,
		Customers: cfg.PageSizes.Customers,
		Messages:  cfg.PageSizes.Messages,
	}, cfg.ListTTL)
	defer lists.Close()
	shopLists := listing.NewRegistry(func() *listing.Controller[models.Product] {
		return listing.NewController(catalog.ShopConfig(cfg.PageSizes.Shop, repos.Products.Published))
	}, cfg.ListTTL)
	defer shopLists.Close()

	inbox := notify.NewInbox()
	toasts := handlers.NewToasts()
	tail := notify.NewTailListener(db, inbox, toasts, lists.RefreshCustomers)
	tail.OnNewOrder(lists.OnNewOrder)
	tailCtx, stopTail := context.WithCancel(context.Background())
	defer stopTail()
	go func() {
		if err := tail.Run(tailCtx); err != nil && tailCtx.Err() == nil {
			slog.Error("Order feed stopped", "error", err)
		}
	}()

	// 5. Session Setup
	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	// 6. Handlers
	notifier := handlers.SessionNotifier{Fallback: notify.LogNotifier{}}
	formLimiter := handlers.NewRateLimiter(10 * time.Second)
	defer formLimiter.Stop()
	loginLimiter := handlers.NewRateLimiter(2 * time.Second)
	defer loginLimiter.Stop()

	mux := http.NewServeMux()
	fileServer := http.FileServer(http.Dir("./static"))
	mux.Handle("/static/", http.StripPrefix("/static", fileServer))

	(&handlers.ShopHandler{
		SessionStore: sessionStore,
		Catalog:      catalogSvc,
		Checkout:     checkoutSvc,
		Contact:      contactSvc,
		Settings:     settingsSvc,
		Shop:         shopLists,
		Notifier:     notifier,
		FormLimiter:  formLimiter,
	}).Register(mux)
	(&handlers.AccountHandler{
		SessionStore: sessionStore,
		Auth:         authSvc,
		Checkout:     checkoutSvc,
		Notifier:     notifier,
		LoginLimiter: loginLimiter,
	}).Register(mux)
	(&handlers.AdminHandler{
		SessionStore: sessionStore,
		Auth:         authSvc,
		Guard:        auth.NewGuard(ready, repos.Users),
		Authz:        authz,
		Dashboard:    dashboardSvc,
		Orders:       orders.NewService(repos, mailer),
		Catalog:      catalogSvc,
		Customers:    customerSvc,
		Contact:      contactSvc,
		Settings:     settingsSvc,
		Inbox:        inbox,
		Toasts:       toasts,
		Notifier:     notifier,
		Lists:        lists,
		LoginLimiter: loginLimiter,
	}).Register(mux)

	// 7. Middleware Setup
	CSRF := csrf.Protect(
		cfg.CSRFKey,
		csrf.Secure(cfg.CookieSecure),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(handlers.CSRFFailure)),
		csrf.TrustedOrigins([]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}),
	)

	// Chain: Logger -> Security Headers -> CSRF -> Mux
	handler := handlers.LoggingMiddleware(
		handlers.SecurityHeadersMiddleware(
			CSRF(mux),
		),
	)

	// 8. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "port", cfg.Port, "backend", cfg.DocStore)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	stopTail()
	if err := db.Close(); err != nil {
		slog.Error("Failed to close document store", "error", err)
	}
	slog.Info("Server exited gracefully.")
}
