package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"showroom/internal/catalog"
	"showroom/internal/playback"
	"showroom/internal/session"
)

type sessionCtxKey struct{}

type itemsRequest struct {
	ReelID string                `json:"reelId,omitempty"`
	Items  *[]playback.MediaItem `json:"items,omitempty"`
}

type createSessionRequest struct {
	itemsRequest
	AutoAdvance *bool `json:"autoAdvance,omitempty"`
	Autoplay    *bool `json:"autoplay,omitempty"`
	Muted       *bool `json:"muted,omitempty"`
	Controls    *bool `json:"controls,omitempty"`
}

type createSessionResponse struct {
	Session   session.Info `json:"session"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type slideRequest struct {
	Index *int `json:"index"`
}

// resolveItems returns the items of the referenced reel, or the inline list
// after the same validation a saved reel gets.
func (s *Server) resolveItems(ctx context.Context, req itemsRequest) ([]playback.MediaItem, error) {
	switch {
	case req.ReelID != "" && req.Items != nil:
		return nil, fmt.Errorf("%w: reelId and items are mutually exclusive", catalog.ErrInvalid)
	case req.ReelID != "":
		reel, err := s.deps.Catalog.Reel(ctx, req.ReelID)
		if err != nil {
			return nil, err
		}
		return reel.Items, nil
	case req.Items != nil:
		reel, err := catalog.Normalize(catalog.Reel{ID: "inline", Items: *req.Items})
		if err != nil {
			return nil, err
		}
		return reel.Items, nil
	default:
		return nil, fmt.Errorf("%w: reelId or items is required", catalog.ErrInvalid)
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid body")
		return
	}
	items, err := s.resolveItems(r.Context(), req.itemsRequest)
	if err != nil {
		respondError(w, err)
		return
	}
	params := session.Params{
		ReelID:      req.ReelID,
		Items:       items,
		AutoAdvance: s.deps.AutoAdvance,
		Autoplay:    s.deps.Autoplay,
		Muted:       s.deps.Muted,
		Controls:    s.deps.Controls,
	}
	if req.AutoAdvance != nil {
		params.AutoAdvance = *req.AutoAdvance
	}
	if req.Autoplay != nil {
		params.Autoplay = *req.Autoplay
	}
	if req.Muted != nil {
		params.Muted = *req.Muted
	}
	if req.Controls != nil {
		params.Controls = *req.Controls
	}
	sess := s.deps.Sessions.Create(params)
	token, exp, err := s.deps.Auth.IssueSessionToken(sess.ID)
	if err != nil {
		_ = s.deps.Sessions.Delete(sess.ID)
		errorJSON(w, http.StatusInternalServerError, "issue token")
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{Session: sess.Info(), Token: token, ExpiresAt: exp})
}

func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionCtxKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionCtxKey{}).(*session.Session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Info())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Delete(sessionFrom(r).ID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSlide(w http.ResponseWriter, r *http.Request) {
	var req slideRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Index == nil {
		errorJSON(w, http.StatusBadRequest, "index is required")
		return
	}
	sess := sessionFrom(r)
	if err := sess.SlideChanged(*req.Index); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var in session.Inbound
	if err := decodeJSON(w, r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid body")
		return
	}
	sess := sessionFrom(r)
	if err := sess.Signal(in); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleReplaceItems(w http.ResponseWriter, r *http.Request) {
	var req itemsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid body")
		return
	}
	items, err := s.resolveItems(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	sess := sessionFrom(r)
	if err := sess.Replace(items); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("session", sess.ID).Msg("websocket upgrade failed")
		return
	}
	client := session.NewClient(conn, s.log.With().Str("session", sess.ID).Logger())
	if err := sess.Attach(client); err != nil {
		conn.Close()
		return
	}
	go client.WritePump()
	client.ReadPump(r.Context(), sess.HandleInbound)
	sess.Detach(client)
}
