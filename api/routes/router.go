package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/delacruzdev/designvault-backend/api/controllers"
	webhookcontrollers "github.com/delacruzdev/designvault-backend/api/controllers/webhooks"
	"github.com/delacruzdev/designvault-backend/api/middleware"
	"github.com/delacruzdev/designvault-backend/internal/catalog"
	"github.com/delacruzdev/designvault-backend/internal/downloads"
	"github.com/delacruzdev/designvault-backend/internal/payments"
	"github.com/delacruzdev/designvault-backend/internal/pricingplans"
	"github.com/delacruzdev/designvault-backend/internal/purchases"
	"github.com/delacruzdev/designvault-backend/internal/reviews"
	"github.com/delacruzdev/designvault-backend/internal/users"
	stripewebhook "github.com/delacruzdev/designvault-backend/internal/webhooks/stripe"
	"github.com/delacruzdev/designvault-backend/pkg/config"
	"github.com/delacruzdev/designvault-backend/pkg/db"
	"github.com/delacruzdev/designvault-backend/pkg/logger"
	"github.com/delacruzdev/designvault-backend/pkg/metrics"
	"github.com/delacruzdev/designvault-backend/pkg/redis"
	"github.com/delacruzdev/designvault-backend/pkg/storage/gcs"
	"github.com/delacruzdev/designvault-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gcsClient gcs.Pinger,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	userService users.Service,
	catalogService catalog.Service,
	planService pricingplans.Service,
	purchaseService purchases.Service,
	paymentService payments.Service,
	downloadService downloads.Service,
	reviewService reviews.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient, gcsClient))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(userService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(userService, logg))
		r.With(middleware.Auth(cfg.JWT, logg)).Get("/profile", controllers.AuthProfile(userService, logg))
	})

	// Public catalog reads. Unauthenticated callers only see active items.
	r.Route("/api/v1/designs", func(r chi.Router) {
		r.Get("/", controllers.ListDesigns(catalogService, logg))
		r.Get("/{designId}", controllers.GetDesign(catalogService, logg))
		r.Get("/{designId}/reviews", controllers.ListDesignReviews(reviewService, logg))
	})
	r.Route("/api/v1/courses", func(r chi.Router) {
		r.Get("/", controllers.ListCourses(catalogService, logg))
		r.Get("/{courseId}", controllers.GetCourse(catalogService, logg))
		r.Get("/{courseId}/reviews", controllers.ListCourseReviews(reviewService, logg))
	})
	r.Route("/api/v1/pricing-plans", func(r chi.Router) {
		r.Get("/", controllers.ListPlans(planService, logg))
		r.Get("/{planId}", controllers.GetPlan(planService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/purchases", func(r chi.Router) {
			r.Post("/", controllers.CreatePurchase(purchaseService, logg))
			r.Get("/", controllers.ListMyPurchases(purchaseService, logg))
			r.Get("/my-purchases", controllers.ListMyPurchases(purchaseService, logg))
			r.Get("/subscription-eligibility", controllers.GetSubscriptionEligibility(purchaseService, logg))
			r.Get("/{purchaseId}", controllers.GetPurchase(purchaseService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/create", controllers.CreatePaymentIntent(paymentService, logg))
			r.Post("/create-intent", controllers.CreatePaymentIntent(paymentService, logg))
			r.Post("/confirm", controllers.ConfirmPayment(paymentService, logg))
			r.Get("/", controllers.ListMyPayments(paymentService, logg))
			r.With(middleware.RequireRole("admin", logg)).Get("/admin/statistics", controllers.AdminPaymentStatistics(paymentService, logg))
			r.Get("/status/{paymentIntentId}", controllers.GetPaymentStatus(paymentService, logg))
			r.Get("/{paymentId}", controllers.GetPayment(paymentService, logg))
		})

		r.Route("/downloads", func(r chi.Router) {
			r.Post("/design/{designId}", controllers.DownloadDesign(downloadService, logg))
			r.Get("/history", controllers.DownloadHistory(downloadService, logg))
			r.Get("/subscription-status", controllers.GetSubscriptionStatus(downloadService, logg))
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", controllers.CreateReview(reviewService, logg))
			r.Put("/{reviewId}", controllers.UpdateReview(reviewService, logg))
			r.Delete("/{reviewId}", controllers.DeleteReview(reviewService, logg))
			r.Post("/{reviewId}/helpful", controllers.MarkReviewHelpful(reviewService, logg))
			r.Put("/{reviewId}/helpful", controllers.MarkReviewHelpful(reviewService, logg))
		})
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/designs", func(r chi.Router) {
			r.Get("/", controllers.ListDesigns(catalogService, logg))
			r.Post("/", controllers.AdminCreateDesign(catalogService, logg))
			r.Get("/{designId}", controllers.GetDesign(catalogService, logg))
			r.Put("/{designId}", controllers.AdminUpdateDesign(catalogService, logg))
			r.Delete("/{designId}", controllers.AdminDeleteDesign(catalogService, logg))
		})

		r.Route("/courses", func(r chi.Router) {
			r.Get("/", controllers.ListCourses(catalogService, logg))
			r.Post("/", controllers.AdminCreateCourse(catalogService, logg))
			r.Get("/{courseId}", controllers.GetCourse(catalogService, logg))
			r.Put("/{courseId}", controllers.AdminUpdateCourse(catalogService, logg))
			r.Delete("/{courseId}", controllers.AdminDeleteCourse(catalogService, logg))
		})

		r.Route("/pricing-plans", func(r chi.Router) {
			r.Get("/", controllers.ListPlans(planService, logg))
			r.Post("/", controllers.AdminCreatePlan(planService, logg))
			r.Get("/analytics/overview", controllers.AdminPlanOverview(planService, logg))
			r.Get("/{planId}", controllers.GetPlan(planService, logg))
			r.Put("/{planId}", controllers.AdminUpdatePlan(planService, logg))
			r.Post("/{planId}/deactivate", controllers.AdminDeactivatePlan(planService, logg))
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", controllers.AdminListPurchases(purchaseService, logg))
			r.Get("/analytics", controllers.AdminPurchaseAnalytics(purchaseService, logg))
			r.Post("/expire-due", controllers.AdminExpireDueSubscriptions(purchaseService, logg))
			r.Get("/{purchaseId}", controllers.GetPurchase(purchaseService, logg))
			r.Post("/{purchaseId}/complete", controllers.AdminCompletePurchase(purchaseService, logg))
			r.Post("/{purchaseId}/cancel", controllers.AdminCancelPurchase(purchaseService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.AdminListPayments(paymentService, logg))
			r.Post("/refund", controllers.AdminRefundPayment(paymentService, logg))
			r.Get("/statistics", controllers.AdminPaymentStatistics(paymentService, logg))
			r.Get("/{paymentId}", controllers.GetPayment(paymentService, logg))
		})

		r.Get("/downloads/analytics", controllers.AdminDownloadAnalytics(downloadService, logg))
		r.Get("/reviews/analytics/overview", controllers.AdminReviewOverview(reviewService, logg))
	})

	return r
}
