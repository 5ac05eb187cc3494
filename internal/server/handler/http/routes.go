package http

import (
	"net/http"

	"github.com/atinyakov/storefront/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter constructs and returns an HTTP handler that serves the
// storefront proxy API under /api.
//
// Routes:
//
//	POST   /api/auth/login          → authHandler.Login
//	POST   /api/auth/register       → authHandler.Register
//	POST   /api/auth/resend-otp     → authHandler.ResendOTP
//	POST   /api/auth/verify-otp     → authHandler.VerifyOTP
//	POST   /api/auth/logout         → authHandler.Logout
//	GET    /api/products            → catalogHandler.Products
//	GET    /api/vendor-products     → catalogHandler.VendorProducts (CORS)
//	GET    /api/address             → addressHandler.List
//	POST   /api/address             → addressHandler.Create
//	GET    /api/address/{id}        → addressHandler.Get
//	PUT    /api/address/{id}        → addressHandler.Update
//	DELETE /api/address/{id}        → addressHandler.Delete
//	GET    /api/wishlist            → wishlistHandler.List (session required)
//	POST   /api/wishlist            → wishlistHandler.Add (session required)
//	DELETE /api/wishlist?productId= → wishlistHandler.Remove (session required)
//
// Middleware chain (applied in order):
//  1. RequestID
//  2. WithRequestLogging(logger)
//  3. SecurityHeaders
//  4. AllowContentType("application/json"), which rejects non-JSON bodies
//  5. Session, which reads the session cookie into the context
func NewRouter(
	authHandler *AuthHandler,
	catalogHandler *CatalogHandler,
	addressHandler *AddressHandler,
	wishlistHandler *WishlistHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.Session)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
			r.Post("/resend-otp", authHandler.ResendOTP)
			r.Post("/verify-otp", authHandler.VerifyOTP)
			r.Post("/logout", authHandler.Logout)
		})

		// Catalog responses may be cached by shared caches.
		r.Group(func(r chi.Router) {
			r.Use(middleware.CatalogCacheControl)
			r.Get("/products", catalogHandler.Products)

			r.Group(func(r chi.Router) {
				r.Use(cors.Handler(cors.Options{
					AllowedOrigins: []string{"*"},
					AllowedMethods: []string{http.MethodGet, http.MethodOptions},
					AllowedHeaders: []string{"Content-Type"},
				}))
				r.Get("/vendor-products", catalogHandler.VendorProducts)
				r.Options("/vendor-products", catalogHandler.VendorProductsOptions)
			})
		})

		r.Route("/address", func(r chi.Router) {
			r.Get("/", addressHandler.List)
			r.Post("/", addressHandler.Create)
			r.Get("/{id}", addressHandler.Get)
			r.Put("/{id}", addressHandler.Update)
			r.Delete("/{id}", addressHandler.Delete)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession)
			r.Get("/wishlist", wishlistHandler.List)
			r.Post("/wishlist", wishlistHandler.Add)
			r.Delete("/wishlist", wishlistHandler.Remove)
		})
	})

	return r
}
