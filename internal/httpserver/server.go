// Package httpserver exposes the bot-detection wire contract over chi.
package httpserver

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/scrapeguard/server/internal/challenge"
	"github.com/scrapeguard/server/internal/detectlog"
	"github.com/scrapeguard/server/internal/metrics"
	"github.com/scrapeguard/server/internal/policy"
	"github.com/scrapeguard/server/internal/score"
	"github.com/scrapeguard/server/internal/token"
)

// Server wires the detection components to HTTP handlers.
type Server struct {
	challenges *challenge.Store
	policy     *policy.Policy
	tokens     *token.Registry
	detections *detectlog.Log
	logger     logrus.FieldLogger
}

// New creates a server over the given components.
func New(challenges *challenge.Store, pol *policy.Policy, tokens *token.Registry, detections *detectlog.Log, logger logrus.FieldLogger) *Server {
	return &Server{
		challenges: challenges,
		policy:     pol,
		tokens:     tokens,
		detections: detections,
		logger:     logger,
	}
}

// Register mounts all routes on the router. Middleware is expected to be
// applied by the caller before registration.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Post("/bot-detection/challenge", s.handleChallenge)
	r.Post("/bot-detection/check", s.handleCheck)
	r.Post("/bot-detection/token/verify", s.handleTokenVerify)

	r.Get("/admin/detections", s.handleDetections)

	r.With(s.RequireToken).Get("/protected", s.handleProtected)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type challengeRequest struct {
	Fingerprint string `json:"fingerprint"`
}

type challengeResponse struct {
	Challenge string `json:"challenge"`
	ID        string `json:"id"`
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ch, err := s.challenges.Issue(r.Context(), req.Fingerprint)
	if err != nil {
		s.logger.WithError(err).Error("issue challenge")
		writeError(w, http.StatusInternalServerError, "challenge issuance failed")
		return
	}
	metrics.ChallengesIssuedTotal.Inc()

	writeJSON(w, http.StatusOK, challengeResponse{
		Challenge: ch.Statement(),
		ID:        ch.ID,
	})
}

type checkRequest struct {
	ID        string        `json:"id"`
	Challenge string        `json:"challenge"`
	Solution  string        `json:"solution"`
	Info      score.Signals `json:"info"`
}

type checkResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// An unknown or expired challenge scores the same as a wrong answer;
	// from the requester's side the two are indistinguishable.
	outcome := score.ChallengeOutcome{}
	if ch, err := s.challenges.Consume(r.Context(), req.ID); err == nil {
		outcome.Found = true
		outcome.Passed = ch.CheckSolution(req.Solution)
	} else if !errors.Is(err, challenge.ErrNotFound) {
		s.logger.WithError(err).Warn("challenge lookup failed, scoring as failed challenge")
	}

	result, err := s.policy.Evaluate(r.Context(), requestMeta(r), req.Info, outcome)
	if err != nil {
		s.logger.WithError(err).Error("evaluate detection request")
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	writeJSON(w, http.StatusOK, checkResponse{
		Token:     result.Token,
		ExpiresIn: result.ExpiresIn,
	})
}

type tokenVerifyRequest struct {
	Token string `json:"token"`
}

type tokenVerifyResponse struct {
	Valid bool `json:"valid"`
}

func (s *Server) handleTokenVerify(w http.ResponseWriter, r *http.Request) {
	var req tokenVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	valid := s.tokens.Validate(r.Context(), req.Token)
	metrics.TokenValidationsTotal.WithLabelValues(boolLabel(valid)).Inc()

	writeJSON(w, http.StatusOK, tokenVerifyResponse{Valid: valid})
}

func (s *Server) handleDetections(w http.ResponseWriter, r *http.Request) {
	var recs []*detectlog.Record
	if origin := r.URL.Query().Get("origin"); origin != "" {
		recs = s.detections.ByOrigin(origin)
	} else {
		recs = s.detections.All()
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleProtected(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "protected content"})
}

// requestMeta extracts the server-observed side of a detection request.
// Header keys are lowercased for the scoring engine.
func requestMeta(r *http.Request) score.RequestMeta {
	headers := make(map[string]string, len(r.Header))
	for key, values := range r.Header {
		if len(values) > 0 {
			headers[strings.ToLower(key)] = values[0]
		}
	}
	return score.RequestMeta{
		Origin:    clientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
		Headers:   headers,
	}
}

func clientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		ip = realIP
	} else if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		// Take the first IP in the chain
		parts := strings.Split(forwardedFor, ",")
		ip = strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return ip
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
