package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// Router собирает маршруты витрины оформления.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Delete("/sessions/current", s.handleCloseSession)

		r.Get("/catalog", s.handleCatalog)

		r.Get("/cart", s.handleGetCart)
		r.Post("/cart/items", s.handleUpdateCart)
		r.Post("/cart/coupon", s.handleCoupon)
		r.Get("/quote", s.handleQuote)

		r.Get("/address/lookup", s.handleLookupCEP)

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", s.handleState)
			r.Post("/begin", s.handleBegin)
			r.Post("/customer", s.handleCustomer)
			r.Get("/customer", s.handleGetCustomer)
			r.Post("/address", s.handleAddress)
			r.Get("/address", s.handleGetAddress)
			r.Post("/payment", s.handlePayment)
			r.Get("/payment", s.handleGetPayment)
			r.Post("/payment/paid", s.handleMarkPaid)
			r.Post("/payment/pix/regenerate", s.handleRegeneratePix)
			r.Post("/payment/copy", s.handleCopy)
			r.Post("/back", s.handleBack)
		})

		r.Get("/order", s.handleOrder)
		r.Get("/timeline", s.handleTimeline)
	})

	return r
}

// requestLogger пишет строку доступа на каждый запрос.
func requestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			}).Info("http request")
		})
	}
}
