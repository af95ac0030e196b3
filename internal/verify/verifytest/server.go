// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package verifytest provides a scriptable stand-in for the remote
// verification service, for tests of the client and the flow.
//
// Unscripted requests behave like the real service: the PIN endpoint
// compares against an expected PIN, the face endpoint accepts any decodable
// image data URL, and the voice endpoint accepts.
package verifytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jeranaias/trifactor-tui/internal/capture"
	"github.com/jeranaias/trifactor-tui/internal/verify"
)

// DefaultPIN is the PIN accepted when no other is configured.
const DefaultPIN = "1234"

// Response is one scripted answer.
type Response struct {
	Status  int
	Success bool
	Message string
	// Body, when set, is written verbatim instead of the JSON envelope.
	Body string
}

// Request is what the fake received.
type Request struct {
	Stage  verify.Stage
	Header http.Header
	Body   []byte
}

// Server is a fake verification service.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	pin      string
	scripts  map[verify.Stage][]Response
	requests map[verify.Stage][]Request
	hold     chan struct{}
	entered  chan verify.Stage
}

// New starts a fake service. Call Close when done.
func New() *Server {
	s := &Server{
		pin:      DefaultPIN,
		scripts:  make(map[verify.Stage][]Response),
		requests: make(map[verify.Stage][]Request),
		entered:  make(chan verify.Stage, 64),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "verification service running")
	})
	r.Post(verify.DefaultPINPath, s.handle(verify.StagePIN))
	r.Post(verify.DefaultFacePath, s.handle(verify.StageFace))
	r.Post(verify.DefaultVoicePath, s.handle(verify.StageVoice))

	s.srv = httptest.NewServer(r)
	return s
}

// URL is the base URL of the fake.
func (s *Server) URL() string { return s.srv.URL }

// Close shuts the fake down, releasing any held requests first.
func (s *Server) Close() {
	s.Release()
	s.srv.Close()
}

// SetPIN changes the PIN accepted by the unscripted PIN endpoint.
func (s *Server) SetPIN(pin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pin = pin
}

// Script queues answers for stage, consumed one per request. When the
// queue runs dry the default behavior resumes.
func (s *Server) Script(stage verify.Stage, responses ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[stage] = append(s.scripts[stage], responses...)
}

// Hold makes every subsequent request block until Release is called.
func (s *Server) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hold == nil {
		s.hold = make(chan struct{})
	}
}

// Release unblocks held requests.
func (s *Server) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hold != nil {
		close(s.hold)
		s.hold = nil
	}
}

// Entered delivers the stage of every request as it arrives, before any
// hold takes effect.
func (s *Server) Entered() <-chan verify.Stage { return s.entered }

// Calls returns how many requests reached stage's endpoint.
func (s *Server) Calls(stage verify.Stage) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests[stage])
}

// Requests returns a copy of the requests received for stage.
func (s *Server) Requests(stage verify.Stage) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests[stage]))
	copy(out, s.requests[stage])
	return out
}

func (s *Server) handle(stage verify.Stage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		s.mu.Lock()
		s.requests[stage] = append(s.requests[stage], Request{Stage: stage, Header: r.Header.Clone(), Body: body})
		hold := s.hold
		var scripted *Response
		if q := s.scripts[stage]; len(q) > 0 {
			scripted = &q[0]
			s.scripts[stage] = q[1:]
		}
		pin := s.pin
		s.mu.Unlock()

		select {
		case s.entered <- stage:
		default:
		}
		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}

		if scripted != nil {
			write(w, *scripted)
			return
		}
		write(w, defaultAnswer(stage, r, body, pin))
	}
}

func defaultAnswer(stage verify.Stage, r *http.Request, body []byte, pin string) Response {
	if stage != verify.StageVoice && !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return Response{Status: http.StatusUnsupportedMediaType, Message: "Invalid content type"}
	}

	switch stage {
	case verify.StagePIN:
		var req struct {
			PIN *string `json:"pin"`
		}
		if err := json.Unmarshal(body, &req); err != nil || req.PIN == nil {
			return Response{Status: http.StatusBadRequest, Message: "PIN is required"}
		}
		entered := strings.TrimSpace(*req.PIN)
		if entered == "" {
			return Response{Status: http.StatusBadRequest, Message: "PIN cannot be empty"}
		}
		if entered != pin {
			return Response{Status: http.StatusUnauthorized, Message: "Incorrect PIN"}
		}
		return Response{Status: http.StatusOK, Success: true, Message: "PIN verified"}

	case verify.StageFace:
		var req struct {
			Image string `json:"image"`
		}
		if err := json.Unmarshal(body, &req); err != nil || req.Image == "" {
			return Response{Status: http.StatusBadRequest, Message: "Image data is required"}
		}
		if _, _, err := capture.DecodeDataURL(req.Image); err != nil {
			return Response{Status: http.StatusBadRequest, Message: "Invalid image format"}
		}
		return Response{Status: http.StatusOK, Success: true, Message: "Face verified"}

	default:
		return Response{Status: http.StatusOK, Success: true, Message: "Voice verified"}
	}
}

func write(w http.ResponseWriter, resp Response) {
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	if resp.Body != "" {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, resp.Body)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": resp.Success,
		"message": resp.Message,
	})
}
