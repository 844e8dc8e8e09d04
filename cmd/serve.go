package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/caller"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/scheduler"
)

var (
	servePort     int
	serveSimulate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server and background workers",
	Long:  "Serves the HTTP API, runs discovery and send jobs on a worker pool, and polls queued leads for outbound calls.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, serveSimulate)
		if err != nil {
			return err
		}
		defer env.Close()

		pool := scheduler.NewPool(cfg.Scheduler.Workers, cfg.Scheduler.QueueSize)
		defer pool.Close()

		// Call polling and stuck-call recovery run on fixed schedules.
		c := cron.New()
		if _, err := c.AddFunc(fmt.Sprintf("@every %s", cfg.Caller.PollInterval), func() {
			if err := env.Caller.PollOnce(ctx); err != nil {
				zap.L().Error("call poll failed", zap.Error(err))
			}
		}); err != nil {
			return eris.Wrap(err, "schedule call poll")
		}
		if _, err := c.AddFunc(fmt.Sprintf("@every %s", cfg.Caller.StuckTimeout/2), func() {
			if n, err := env.Caller.RecoverStuck(ctx); err != nil {
				zap.L().Error("stuck call sweep failed", zap.Error(err))
			} else if n > 0 {
				zap.L().Info("stuck calls recovered", zap.Int("count", n))
			}
		}); err != nil {
			return eris.Wrap(err, "schedule stuck call sweep")
		}
		c.Start()
		defer c.Stop()

		r := newRouter(env, pool)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func newRouter(env *appEnv, pool *scheduler.Pool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/campaigns/{id}/discover", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		if _, err := env.Store.GetCampaign(req.Context(), id); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "campaign not found"})
			return
		}

		err := pool.Enqueue(scheduler.Job{
			Key:  "discover:" + id,
			Name: "discover",
			Run: func(ctx context.Context) error {
				_, err := env.Discovery.Discover(ctx, id)
				return err
			},
		})
		if err != nil {
			writeEnqueueError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "campaign_id": id})
	})

	r.Post("/campaigns/{id}/send", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")

		var body struct {
			Channel string `json:"channel"`
			Limit   int    `json:"limit"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		channel := model.Channel(body.Channel)
		if !model.IsSupportedChannel(channel) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported channel"})
			return
		}
		if _, err := env.Store.GetCampaign(req.Context(), id); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "campaign not found"})
			return
		}

		limit := body.Limit
		if limit <= 0 {
			limit = cfg.Dispatch.BatchLimit
		}

		err := pool.Enqueue(scheduler.Job{
			Key:  "send:" + id + ":" + body.Channel,
			Name: "send",
			Run: func(ctx context.Context) error {
				if channel == model.ChannelCall {
					_, err := env.Caller.QueueCalls(ctx, id, limit)
					return err
				}
				_, err := env.Dispatcher.SendBatch(ctx, id, channel, limit)
				return err
			},
		})
		if err != nil {
			writeEnqueueError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":      "accepted",
			"campaign_id": id,
			"channel":     body.Channel,
		})
	})

	r.Get("/campaigns/{id}/stats", func(w http.ResponseWriter, req *http.Request) {
		campaign, err := env.Store.GetCampaign(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "campaign not found"})
			return
		}
		stats, err := env.Analytics.CampaignStats(req.Context(), campaign)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats aggregation failed"})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	r.Post("/webhook/call", func(w http.ResponseWriter, req *http.Request) {
		var payload callWebhook
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		// Providers post several event types to the same URL; only the final
		// report mutates state.
		if payload.Message.Type != "end-of-call-report" {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}

		event := caller.CallEvent{
			CallID:       payload.Message.Call.ID,
			Outcome:      payload.outcome(),
			Transcript:   payload.Message.Transcript,
			RecordingURL: payload.Message.RecordingURL,
			Metadata:     payload.Message.Call.Metadata,
		}
		if err := env.Caller.HandleCallEnd(req.Context(), event); err != nil {
			zap.L().Error("call webhook failed", zap.Error(err))
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "event not applied"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
	})

	r.Post("/webhook/message-status", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			MessageID string `json:"message_id"`
			Status    string `json:"status"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		status := model.MessageStatus(body.Status)
		if status != model.MessageStatusRead && status != model.MessageStatusReplied {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be read or replied"})
			return
		}
		if err := env.Store.UpdateMessageStatus(req.Context(), body.MessageID, status); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "message not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	})

	return r
}

// callWebhook is the voice provider's event envelope.
type callWebhook struct {
	Message struct {
		Type string `json:"type"`
		Call struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"call"`
		Transcript   string `json:"transcript"`
		RecordingURL string `json:"recordingUrl"`
		Analysis     struct {
			StructuredData struct {
				Outcome string `json:"outcome"`
			} `json:"structuredData"`
			SuccessEvaluation string `json:"successEvaluation"`
		} `json:"analysis"`
	} `json:"message"`
}

func (p *callWebhook) outcome() string {
	if p.Message.Analysis.StructuredData.Outcome != "" {
		return p.Message.Analysis.StructuredData.Outcome
	}
	return p.Message.Analysis.SuccessEvaluation
}

func writeEnqueueError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, scheduler.ErrJobActive):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "job already running"})
	case eris.Is(err, scheduler.ErrQueueFull):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "queue full"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "enqueue failed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveSimulate, "simulate", false, "render and record messages without sending")
	rootCmd.AddCommand(serveCmd)
}
