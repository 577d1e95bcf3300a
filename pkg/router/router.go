package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/daopoll/pollnode/internal/auth"
	"github.com/daopoll/pollnode/internal/polls"
	"github.com/daopoll/pollnode/pkg/contracts/pollregistry"
	"github.com/daopoll/pollnode/pkg/repository"
	"github.com/daopoll/pollnode/pkg/submitter"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Router struct {
	apiKey string
	repo   *repository.Repository
	sub    *submitter.Submitter
	reg    *pollregistry.PollRegistry
	loc    *time.Location
}

func NewServer(apiKey string, repo *repository.Repository, sub *submitter.Submitter, reg *pollregistry.PollRegistry, loc *time.Location) *Router {
	return &Router{
		apiKey,
		repo,
		sub,
		reg,
		loc,
	}
}

// implement the Server interface
func (r *Router) Start(port int) error {
	cr := chi.NewRouter()

	a := auth.New(r.apiKey)

	// configure middleware
	cr.Use(middleware.RequestID)
	cr.Use(middleware.Logger)

	// configure custom middleware
	cr.Use(OptionsMiddleware)
	cr.Use(HealthMiddleware)
	cr.Use(RequestSizeLimitMiddleware(1 << 20)) // Limit request bodies to 1MB
	cr.Use(a.AuthMiddleware)
	cr.Use(middleware.Compress(9))

	// instantiate handlers
	p := polls.NewService(r.repo, r.sub, r.reg, r.loc)

	// configure routes
	cr.Route("/polls", func(cr chi.Router) {
		cr.Get("/", p.GetAll)
		cr.Get("/active", p.GetActive)
		cr.Get("/creator/{acc_addr}", p.GetByCreator)

		cr.Post("/", p.Create)
		cr.Post("/refresh", p.Refresh)

		cr.Route("/{poll_id}", func(cr chi.Router) {
			cr.Get("/", p.Get)

			cr.Post("/responses", p.Respond)
			cr.Post("/fund", p.Fund)
			cr.Post("/target-fund", p.UpdateTargetFund)
			cr.Post("/transitions", p.Transition)
			cr.Post("/claims", p.Claim)
		})
	})

	cr.Get("/leaderboard", p.GetLeaderboard)

	cr.Get("/operations/{op_id}", p.GetOperation)

	// start the server
	return http.ListenAndServe(fmt.Sprintf(":%v", port), cr)
}
