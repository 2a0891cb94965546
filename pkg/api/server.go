package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/neveleren/thewire/internal/wireconfig"
	"github.com/neveleren/thewire/pkg/botcontext"
	"github.com/neveleren/thewire/pkg/bots"
	"github.com/neveleren/thewire/pkg/orchestrator"
	"github.com/neveleren/thewire/pkg/scheduler"
	"github.com/neveleren/thewire/pkg/store"
	"github.com/neveleren/thewire/pkg/summarizer"
)

const maxBodySize = 1 << 20

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	cfg       *wireconfig.Config
	users     *store.UserStore
	posts     *store.PostStore
	chat      *store.ChatStore
	botStore  *store.BotStore
	roster    *bots.Roster
	orch      *orchestrator.Orchestrator
	assembler *botcontext.Assembler
	sched     *scheduler.Scheduler
	summ      *summarizer.Summarizer
	logger    *logrus.Logger
}

type Deps struct {
	Config    *wireconfig.Config
	Users     *store.UserStore
	Posts     *store.PostStore
	Chat      *store.ChatStore
	BotStore  *store.BotStore
	Roster    *bots.Roster
	Orch      *orchestrator.Orchestrator
	Assembler *botcontext.Assembler
	Scheduler *scheduler.Scheduler
	Summ      *summarizer.Summarizer
	Logger    *logrus.Logger
}

func NewServer(deps Deps) *Server {
	return &Server{
		cfg:       deps.Config,
		users:     deps.Users,
		posts:     deps.Posts,
		chat:      deps.Chat,
		botStore:  deps.BotStore,
		roster:    deps.Roster,
		orch:      deps.Orch,
		assembler: deps.Assembler,
		sched:     deps.Scheduler,
		summ:      deps.Summ,
		logger:    deps.Logger,
	}
}

// Routes builds the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/posts", func(r chi.Router) {
			r.Get("/", s.handleListPosts)
			r.Post("/", s.handleCreatePost)
			r.Get("/{id}", s.handleGetPost)
			r.Patch("/{id}", s.handleUpdatePost)
			r.Delete("/{id}", s.handleDeletePost)
		})
		r.Post("/post", s.handleServicePost)
		r.Post("/likes", s.handleToggleLike)

		r.Route("/chat/messages", func(r chi.Router) {
			r.Get("/", s.handleListMessages)
			r.Post("/", s.handleCreateMessage)
		})

		r.Route("/bots", func(r chi.Router) {
			r.Get("/context", s.handleGetBotContext)
			r.Post("/context", s.handleUpdateBotContext)
			r.Get("/daily-events", s.handleGetDailyEvents)
			r.Post("/daily-events", s.handleGenerateDailyEvents)
			r.Get("/daily-routine", s.handleGetRoutineState)
			r.Post("/daily-routine", s.handleRunDailyRoutine)
			r.Get("/summarize", s.handleSummarizeStatus)
			r.Post("/summarize", s.handleRunSummarize)
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("Request handled")
	})
}
