package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/internal/service"
	"github.com/dquiroga/ManufactureGo/pkg/health"
	"github.com/dquiroga/ManufactureGo/pkg/middleware"
)

// Services bundles the service layer dependencies of the router.
type Services struct {
	Users     *service.UserService
	Workforce *service.WorkforceService
	Catalog   *service.CatalogService
	Orders    *service.OrderService
	Workflow  *service.WorkflowService
	Tracking  *service.TrackingService
}

// NewRouter creates a chi router with all manufacturing service routes registered.
func NewRouter(
	svcs Services,
	healthHandler *health.Handler,
	tokenValidator middleware.TokenValidator,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("manufacturing"))
	r.Use(middleware.Tracing("manufacturing"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(svcs.Users, logger)
	workforceHandler := NewWorkforceHandler(svcs.Workforce, logger)
	catalogHandler := NewCatalogHandler(svcs.Catalog, logger)
	orderHandler := NewOrderHandler(svcs.Orders, logger)
	workflowHandler := NewWorkflowHandler(svcs.Workflow, logger)
	trackingHandler := NewTrackingHandler(svcs.Tracking, logger)

	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	// Login and refresh are the only public API surface. Accounts are
	// provisioned by an admin; the first admin comes from the bootstrap
	// config.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.Get("/me", authHandler.Me)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/register", authHandler.Register)
			})
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		// Companies: reads for everyone, writes for admins.
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", workforceHandler.ListCompanies)
			r.Get("/{id}", workforceHandler.GetCompany)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/", workforceHandler.CreateCompany)
				r.Put("/{id}", workforceHandler.UpdateCompany)
				r.Delete("/{id}", workforceHandler.DeleteCompany)
			})
		})

		r.Route("/workers", func(r chi.Router) {
			r.Get("/", workforceHandler.ListWorkers)
			r.Get("/{id}", workforceHandler.GetWorker)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/", workforceHandler.CreateWorker)
				r.Put("/{id}", workforceHandler.UpdateWorker)
				r.Delete("/{id}", workforceHandler.DeleteWorker)
			})
		})

		r.Route("/product-lines", func(r chi.Router) {
			r.Get("/", catalogHandler.ListProductLines)
			r.Get("/{id}", catalogHandler.GetProductLine)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/", catalogHandler.CreateProductLine)
				r.Put("/{id}", catalogHandler.UpdateProductLine)
				r.Delete("/{id}", catalogHandler.DeleteProductLine)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", catalogHandler.ListProducts)
			r.Get("/{id}", catalogHandler.GetProduct)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/", catalogHandler.CreateProduct)
				r.Put("/{id}", catalogHandler.UpdateProduct)
				r.Delete("/{id}", catalogHandler.DeleteProduct)
			})
		})

		// The cart is per-user; ownership comes from the token.
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", orderHandler.GetCart)
			r.Post("/items", orderHandler.AddItem)
			r.Put("/items/{itemID}", orderHandler.UpdateItem)
			r.Delete("/items/{itemID}", orderHandler.RemoveItem)
			r.Post("/checkout", orderHandler.Checkout)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.ListOrders)
			r.Get("/{id}", orderHandler.GetOrder)
		})

		r.Route("/workflow", func(r chi.Router) {
			r.Get("/", workflowHandler.GetTree)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/stages", workflowHandler.CreateStage)
				r.Put("/stages/{id}", workflowHandler.UpdateStage)
				r.Delete("/stages/{id}", workflowHandler.DeleteStage)
				r.Post("/processes", workflowHandler.CreateProcess)
				r.Put("/processes/{id}", workflowHandler.UpdateProcess)
				r.Delete("/processes/{id}", workflowHandler.DeleteProcess)
				r.Post("/subprocesses", workflowHandler.CreateSubprocess)
				r.Put("/subprocesses/{id}", workflowHandler.UpdateSubprocess)
				r.Delete("/subprocesses/{id}", workflowHandler.DeleteSubprocess)
			})
		})

		r.Route("/tracking", func(r chi.Router) {
			r.Post("/", trackingHandler.CreateTracking)
			r.Get("/", trackingHandler.ListTrackings)
			r.Get("/{id}", trackingHandler.GetTracking)
			r.Post("/{id}/workers", trackingHandler.AssignWorkers)
			r.Post("/{id}/timer", trackingHandler.Timer)
			r.Get("/{id}/activity", trackingHandler.ListActivity)
			r.Get("/{id}/attendance", trackingHandler.ListAttendance)
		})
	})

	return r
}
