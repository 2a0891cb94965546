package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/neveleren/thewire/pkg/db/models"
)

func (s *Server) handleGetBotContext(w http.ResponseWriter, r *http.Request) {
	bot := r.URL.Query().Get("bot")
	if bot == "" {
		httpError(w, http.StatusBadRequest, "bot query parameter is required")
		return
	}
	if !s.roster.IsBot(bot) {
		httpError(w, http.StatusNotFound, "unknown bot")
		return
	}

	snap, err := s.assembler.Assemble(r.Context(), bot)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to assemble context")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"context": snap,
	})
}

type statePatch struct {
	Mood          *string `json:"mood"`
	MoodIntensity *int    `json:"mood_intensity"`
	Energy        *int    `json:"energy"`
	CurrentFocus  *string `json:"current_focus"`
	// ClearFocus distinguishes "drop the focus" from "leave it alone",
	// which a nil pointer alone cannot express.
	ClearFocus bool `json:"clear_focus"`
}

type memoryInsert struct {
	Type             string   `json:"type"`
	Content          string   `json:"content"`
	RelatedUser      *string  `json:"related_user"`
	RelatedPostID    *string  `json:"related_post_id"`
	Importance       int      `json:"importance"`
	EmotionalValence int      `json:"emotional_valence"`
	Topics           []string `json:"topics"`
}

type updateContextRequest struct {
	Bot              string        `json:"bot"`
	State            *statePatch   `json:"state"`
	Memory           *memoryInsert `json:"memory"`
	MentionedEventID string        `json:"mentioned_event_id"`
	MarkPosted       bool          `json:"mark_posted"`
}

// handleUpdateBotContext is the responder's write-back callback: partial
// state patch, memory insert, event-mentioned flag, and post marker, any
// combination per call.
func (s *Server) handleUpdateBotContext(w http.ResponseWriter, r *http.Request) {
	var req updateContextRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Bot == "" {
		httpError(w, http.StatusBadRequest, "bot is required")
		return
	}
	if !s.roster.IsBot(req.Bot) {
		httpError(w, http.StatusNotFound, "unknown bot")
		return
	}

	ctx := r.Context()
	now := time.Now()

	if req.State != nil {
		updates := map[string]interface{}{}
		if req.State.Mood != nil {
			updates["mood"] = *req.State.Mood
			updates["mood_updated_at"] = now
		}
		if req.State.MoodIntensity != nil {
			updates["mood_intensity"] = *req.State.MoodIntensity
		}
		if req.State.Energy != nil {
			updates["energy"] = *req.State.Energy
		}
		if req.State.ClearFocus {
			updates["current_focus"] = nil
			updates["focus_started_at"] = nil
		} else if req.State.CurrentFocus != nil {
			updates["current_focus"] = *req.State.CurrentFocus
			updates["focus_started_at"] = now
		}
		if len(updates) > 0 {
			if err := s.botStore.PatchState(ctx, req.Bot, updates); err != nil {
				httpError(w, http.StatusInternalServerError, "failed to update state")
				return
			}
		}
	}

	if req.Memory != nil {
		if strings.TrimSpace(req.Memory.Content) == "" {
			httpError(w, http.StatusBadRequest, "memory content is required")
			return
		}
		memory := &models.BotMemory{
			BotUsername:      req.Bot,
			MemoryType:       models.MemoryType(req.Memory.Type),
			Content:          req.Memory.Content,
			RelatedUser:      req.Memory.RelatedUser,
			RelatedPostID:    req.Memory.RelatedPostID,
			Importance:       req.Memory.Importance,
			EmotionalValence: req.Memory.EmotionalValence,
			Topics:           pq.StringArray(req.Memory.Topics),
		}
		if err := s.botStore.AddMemory(ctx, memory); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save memory")
			return
		}
	}

	if req.MentionedEventID != "" {
		if err := s.botStore.MarkEventMentioned(ctx, req.MentionedEventID); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to mark event")
			return
		}
	}

	if req.MarkPosted {
		if err := s.botStore.MarkPosted(ctx, req.Bot); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to mark post")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleGetDailyEvents(w http.ResponseWriter, r *http.Request) {
	bot := r.URL.Query().Get("bot")
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	events, err := s.botStore.EventsForDate(r.Context(), bot, date)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"date":    date,
		"events":  events,
	})
}

type forceRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleGenerateDailyEvents(w http.ResponseWriter, r *http.Request) {
	var req forceRequest
	decodeOptionalBody(r, &req)

	generated, skipped, err := s.sched.GenerateDailyEvents(r.Context(), req.Force)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to generate events")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"generated": generated,
		"skipped":   skipped,
	})
}

type routineRequest struct {
	Secret string `json:"secret"`
	Force  bool   `json:"force"`
}

func (s *Server) handleRunDailyRoutine(w http.ResponseWriter, r *http.Request) {
	var req routineRequest
	decodeOptionalBody(r, &req)

	if s.cfg.IsProduction() {
		secret := req.Secret
		if secret == "" {
			secret = r.Header.Get("X-Routine-Secret")
		}
		if subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.RoutineSecret)) != 1 {
			httpError(w, http.StatusForbidden, "invalid routine secret")
			return
		}
	}

	result := s.sched.RunDailyRoutine(r.Context(), req.Force)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}

// handleGetRoutineState is a debugging view of the simulated inner life:
// current states, recent memories, and today's events.
func (s *Server) handleGetRoutineState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	states := map[string]interface{}{}
	for _, bot := range s.roster.Bots() {
		state, err := s.botStore.State(ctx, bot.Username)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to read states")
			return
		}
		states[bot.Username] = state
	}

	memories, err := s.botStore.RecentMemories(ctx, 20)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to read memories")
		return
	}

	today := time.Now().Format("2006-01-02")
	events, err := s.botStore.EventsForDate(ctx, "", today)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to read events")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"states":          states,
		"recent_memories": memories,
		"todays_events":   events,
	})
}

func (s *Server) handleSummarizeStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.summ.Status(r.Context())
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to read summarizer status")
		return
	}
	status["success"] = true
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleRunSummarize(w http.ResponseWriter, r *http.Request) {
	var req forceRequest
	decodeOptionalBody(r, &req)

	result, err := s.summ.Run(r.Context(), req.Force)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "summarization failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}
