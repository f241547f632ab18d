package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lychee-technology/classifieds"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the classifieds managers over HTTP.
type Server struct {
	listings   classifieds.ListingManager
	categories classifieds.CategoryManager
	comments   classifieds.CommentManager
	users      classifieds.UserManager
	blobs      classifieds.BlobStore
	actors     classifieds.ActorResolver

	// imageRoot and imagePrefix are set when the process serves stored
	// images itself.
	imageRoot   string
	imagePrefix string

	maxUploadBytes int64
	gatherer       prometheus.Gatherer
}

type ctxKey int

const actorKey ctxKey = iota

func actorFrom(ctx context.Context) (classifieds.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(classifieds.Actor)
	return actor, ok
}

func requestIDFrom(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

// Routes builds the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_ = writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.imageRoot != "" {
		prefix := strings.TrimSuffix(s.imagePrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(s.imageRoot))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", handler(s.listCategories))
			r.With(requireActor).Post("/", handler(s.createCategory))
			r.Route("/{categoryID}", func(r chi.Router) {
				r.Get("/", handler(s.getCategory))
				r.Get("/schema", handler(s.getCategorySchema))
				r.With(requireActor).Put("/", handler(s.updateCategory))
				r.With(requireActor).Delete("/", handler(s.deleteCategory))
				r.With(requireActor).Put("/attributes", handler(s.replaceAttributes))
			})
		})

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", handler(s.queryListings))
			r.With(requireActor).Post("/", handler(s.createListing))
			r.Route("/{listingID}", func(r chi.Router) {
				r.Get("/", handler(s.getListing))
				r.With(requireActor).Patch("/", handler(s.updateListing))
				r.With(requireActor).Delete("/", handler(s.deleteListing))
				r.Get("/comments", handler(s.listComments))
				r.With(requireActor).Post("/comments", handler(s.createComment))
			})
		})

		r.Route("/comments/{commentID}", func(r chi.Router) {
			r.Use(requireActor)
			r.Patch("/", handler(s.updateComment))
			r.Delete("/", handler(s.deleteComment))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireActor)
			r.Get("/", handler(s.listUsers))
			r.Get("/me", handler(s.getProfile))
			r.Patch("/me", handler(s.updateProfile))
			r.Delete("/{userID}", handler(s.deleteUser))
		})

		r.With(requireActor).Post("/images", handler(s.uploadImage))
	})
	return r
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			writeError(r.Context(), w, err)
		}
	}
}

// authenticate resolves an optional bearer token. Requests with an invalid
// token are rejected; requests without one continue anonymously.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(r.Context(), w, classifieds.NewUnauthorizedError("authorization header must carry a bearer token"))
			return
		}
		actor, err := s.actors.Resolve(r.Context(), strings.TrimSpace(token))
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

func requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorFrom(r.Context()); !ok {
			writeError(r.Context(), w, classifieds.NewUnauthorizedError("authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.S().Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"requestID", middleware.GetReqID(r.Context()),
		)
	})
}
