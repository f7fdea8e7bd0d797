package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jordanhubbard/mtcore/internal/channel"
	"github.com/jordanhubbard/mtcore/internal/core"
)

// ChannelStreamHandler opens client_id's Server-Sent-Events stream: the
// Core -> Client half of C8's persistent channel. No websocket library
// exists anywhere in the retrieved pack, so the channel is implemented as
// one POST-per-control-frame (translate/cancel) paired with this SSE
// stream for chunk/result/error frames, grounded on the teacher's
// text/event-stream + http.Flusher write-loop shape.
func ChannelStreamHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			jsonError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}
		clientID := chi.URLParam(r, "client_id")

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		sub := d.Channel.Attach(clientID, 64)
		defer d.Channel.Detach(clientID)

		_, _ = fmt.Fprintf(w, "event: connected\ndata: {\"client_id\":%q}\n\n", clientID)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case f, ok := <-sub.C:
				if !ok {
					return
				}
				data, err := json.Marshal(f)
				if err != nil {
					continue
				}
				_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.Kind, data)
				flusher.Flush()
			}
		}
	}
}

// channelTranslateRequest is one control frame's body: Client -> Core
// translate, per spec.md §4.8.
type channelTranslateRequest struct {
	RequestID    string `json:"request_id"`
	Text         string `json:"text"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	Model        string `json:"model"`
	Stream       bool   `json:"stream"`
	ProviderHint string `json:"provider_hint,omitempty"`
	DeadlineMs   int64  `json:"deadline_ms,omitempty"`
}

// ChannelTranslateHandler implements the "translate" control frame: it
// allocates the InFlightRequest and returns immediately (202 Accepted);
// chunk/result/error frames arrive asynchronously over the SSE stream
// opened by ChannelStreamHandler, per spec.md §4.8.
func ChannelTranslateHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "client_id")

		var in channelTranslateRequest
		if err := decodeJSON(r, &in); err != nil {
			jsonError(w, http.StatusBadRequest, "bad json")
			return
		}
		if in.RequestID == "" || in.Text == "" || in.Target == "" {
			jsonError(w, http.StatusBadRequest, "request_id, text and target are required")
			return
		}

		req := core.TranslationRequest{
			Text: in.Text, Source: in.Source, Target: in.Target,
			Model: in.Model, Stream: in.Stream, ProviderHint: in.ProviderHint,
		}
		if in.DeadlineMs > 0 {
			req.Deadline = time.UnixMilli(in.DeadlineMs)
		}

		// The request outlives this handler, so it must not inherit the
		// HTTP request's cancellation; cancel frames and Detach end it.
		d.Channel.Translate(context.WithoutCancel(r.Context()), clientID, in.RequestID, req, channel.Handler(d.Dispatch))

		writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
	}
}

type channelCancelRequest struct {
	RequestID string `json:"request_id"`
}

// ChannelCancelHandler implements the "cancel" control frame. Calling
// Cancel for an already-finished or already-cancelled request is a no-op,
// per spec.md §8's idempotence property.
func ChannelCancelHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "client_id")
		var in channelCancelRequest
		if err := decodeJSON(r, &in); err != nil {
			jsonError(w, http.StatusBadRequest, "bad json")
			return
		}
		d.Channel.Cancel(clientID, in.RequestID)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
