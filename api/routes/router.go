package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sokonihq/sokoni-backend/api/controllers"
	ordercontrollers "github.com/sokonihq/sokoni-backend/api/controllers/orders"
	webhookcontrollers "github.com/sokonihq/sokoni-backend/api/controllers/webhooks"
	"github.com/sokonihq/sokoni-backend/api/middleware"
	"github.com/sokonihq/sokoni-backend/internal/orders"
	"github.com/sokonihq/sokoni-backend/internal/payments"
	"github.com/sokonihq/sokoni-backend/internal/wallets"
	paystackwebhook "github.com/sokonihq/sokoni-backend/internal/webhooks/paystack"
	"github.com/sokonihq/sokoni-backend/pkg/config"
	"github.com/sokonihq/sokoni-backend/pkg/db"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
	"github.com/sokonihq/sokoni-backend/pkg/paystack"
	"github.com/sokonihq/sokoni-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	paystackClient *paystack.Client,
	ordersSvc orders.Service,
	paymentsSvc payments.Service,
	walletsSvc wallets.Service,
	webhookSvc *paystackwebhook.Service,
	webhookGuard *paystackwebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	// Gateway webhooks authenticate by signature, not bearer token.
	r.Post("/webhooks/paystack", webhookcontrollers.PaystackWebhook(webhookSvc, paystackClient, webhookGuard, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(ordersSvc, logg))
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.Get("/counts", ordercontrollers.Counts(ordersSvc, logg))
			r.Get("/{orderID}", ordercontrollers.Detail(ordersSvc, logg))
			r.Patch("/{orderID}", ordercontrollers.Update(ordersSvc, logg))
			r.Get("/{orderID}/snapshot", ordercontrollers.Snapshot(ordersSvc, logg))
			r.Post("/{orderID}/checkout", controllers.Checkout(paymentsSvc, logg))
			r.Post("/{orderID}/paid", ordercontrollers.MarkPaidReturn(ordersSvc, logg))
			r.Post("/{orderID}/ship", ordercontrollers.Ship(ordersSvc, logg))
			r.Post("/{orderID}/confirm-delivery", ordercontrollers.ConfirmDelivery(ordersSvc, logg))
		})

		r.Get("/wallet", controllers.WalletStatement(walletsSvc, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Get("/ping", controllers.AdminPing())
			r.Post("/orders/{orderID}/cancel", controllers.AdminCancelOrder(ordersSvc, logg))
		})
	})

	return r
}
