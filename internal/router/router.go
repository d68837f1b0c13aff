package router

import (
	"database/sql"
	"net/http"

	mem "pet-health-records/internal/adapters/storage/memory"
	pg "pet-health-records/internal/adapters/storage/postgres"
	"pet-health-records/internal/domain/records"
	"pet-health-records/internal/middleware"
	"pet-health-records/internal/ports/auth"
	"pet-health-records/internal/ports/pets"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Options struct {
	Log zerolog.Logger

	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev: X-Debug-User-ID)

	// PetResolver es obligatorio: sin él ninguna mutación puede autorizar.
	PetResolver pets.Resolver

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(opts.Log))
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var repo records.Repository
	if opts.DB != nil {
		repo = pg.NewRecordsRepo(opts.DB)
	} else {
		repo = mem.NewRecordsRepo()
	}

	svc := records.NewService(repo, opts.PetResolver)
	records.RegisterRoutes(r, svc, opts.Log)

	return r
}
