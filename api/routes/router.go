package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/benjamins-shop/storefront-backend/api/controllers"
	"github.com/benjamins-shop/storefront-backend/api/middleware"
	"github.com/benjamins-shop/storefront-backend/internal/auth"
	"github.com/benjamins-shop/storefront-backend/internal/cart"
	"github.com/benjamins-shop/storefront-backend/internal/media"
	"github.com/benjamins-shop/storefront-backend/internal/orders"
	"github.com/benjamins-shop/storefront-backend/internal/products"
	"github.com/benjamins-shop/storefront-backend/internal/sessions"
	"github.com/benjamins-shop/storefront-backend/pkg/config"
	"github.com/benjamins-shop/storefront-backend/pkg/logger"
)

// Deps bundles everything the HTTP surface needs. main wires it once.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DBPinger controllers.Pinger
	Cache    controllers.Pinger

	Sessions sessions.Service
	Products products.Service
	Cart     cart.Service
	Orders   orders.Service
	Auth     auth.Service
	Media    media.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DBPinger, deps.Cache, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public catalog and order lookup. No session required.
		r.Get("/products", controllers.ListProducts(deps.Products, logg))
		r.Get("/products/{productID}", controllers.GetProduct(deps.Products, logg))
		r.Get("/orders/{orderNumber}", controllers.GetOrder(deps.Orders, logg))
		r.Get("/orders/guest/{sessionToken}", controllers.ListGuestOrders(deps.Orders, logg))

		// Guest surface. The session resolver creates a session when the
		// request carries none, so these never 401.
		r.Group(func(r chi.Router) {
			r.Use(middleware.GuestSession(deps.Sessions, logg))

			r.Get("/guest/session", controllers.GuestSessionInfo(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(deps.Cart, logg))
				r.Post("/", controllers.AddCartItem(deps.Cart, logg))
				r.Delete("/", controllers.ClearCart(deps.Cart, logg))
				r.Put("/{productID}", controllers.UpdateCartItem(deps.Cart, logg))
				r.Delete("/{productID}", controllers.RemoveCartItem(deps.Cart, logg))
			})

			r.Post("/orders", controllers.PlaceOrder(deps.Orders, logg))
		})

		// Back office.
		r.Route("/admin", func(r chi.Router) {
			r.Route("/auth", func(r chi.Router) {
				if !cfg.App.IsProd() {
					r.Post("/register", controllers.AdminRegister(deps.Auth, logg))
				}
				r.Post("/login", controllers.AdminLogin(deps.Auth, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminAuth(cfg.JWT, logg))

				r.Route("/products", func(r chi.Router) {
					r.Get("/", controllers.ListAllProducts(deps.Products, logg))
					r.Post("/", controllers.CreateProduct(deps.Products, logg))
					r.Put("/{productID}", controllers.UpdateProduct(deps.Products, logg))
					r.Patch("/{productID}", controllers.UpdateProduct(deps.Products, logg))
					r.Delete("/{productID}", controllers.DeleteProduct(deps.Products, logg))

					r.Post("/{productID}/images", controllers.UploadProductImage(deps.Media, logg))
					r.Post("/{productID}/images/batch", controllers.UploadProductImages(deps.Media, logg))
					r.Delete("/{productID}/images/{imageID}", controllers.DeleteProductImage(deps.Media, logg))
				})

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", controllers.ListOrders(deps.Orders, logg))
					r.Patch("/{orderID}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
					r.Delete("/{orderID}", controllers.DeleteOrder(deps.Orders, logg))
				})
			})
		})
	})

	return r
}
