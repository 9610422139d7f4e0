package poll

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ballotproof/ballotproof-go/pkg/commitment"
)

// RegisterRequest is the body of POST /register
type RegisterRequest struct {
	SecretIdentity string `json:"secretIdentity"`
}

// RegisterResponse is the response to POST /register
type RegisterResponse struct {
	Nullifier string `json:"nullifier"`
}

// VoteRequest is the body of POST /vote and POST /reveal
type VoteRequest struct {
	SecretIdentity string `json:"secretIdentity"`
	Choice         string `json:"choice"`
	Salt           string `json:"salt,omitempty"`
}

// RevealResponse is the response to POST /reveal
type RevealResponse struct {
	Nullifier  string `json:"nullifier"`
	Commitment string `json:"commitment"`
	Choice     string `json:"choice"`
}

// RootResponse is the response to GET /root
type RootResponse struct {
	Root      string `json:"root"`
	LeafCount int    `json:"leafCount"`
}

// VerifyResponse is the response to POST /verify
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// TallyResponse is the response to GET /tally
type TallyResponse struct {
	Counts map[string]int `json:"counts"`
}

// handleRegister handles voter registration
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow() {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}
	if req.SecretIdentity == "" {
		http.Error(w, "secretIdentity is required", http.StatusBadRequest)
		return
	}

	nullifier, err := s.poll.Register(req.SecretIdentity)
	if err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			http.Error(w, "Identity already registered", http.StatusConflict)
			return
		}
		s.poll.logger.Sugar().Errorw("Registration failed", "poll_id", s.poll.ID, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, RegisterResponse{Nullifier: nullifier})
}

// handleVote handles commitment casting and updating
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow() {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}
	if req.SecretIdentity == "" {
		http.Error(w, "secretIdentity is required", http.StatusBadRequest)
		return
	}
	if req.Choice == "" {
		http.Error(w, "choice is required", http.StatusBadRequest)
		return
	}

	result, err := s.poll.Cast(req.SecretIdentity, req.Choice, req.Salt)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotRegistered):
			http.Error(w, "Identity not registered", http.StatusForbidden)
		case errors.Is(err, ErrInvalidChoice):
			http.Error(w, "Choice not in poll choice set", http.StatusBadRequest)
		default:
			s.poll.logger.Sugar().Errorw("Vote failed", "poll_id", s.poll.ID, "error", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, result)
}

// handleReveal handles choice finalization
func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow() {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}
	if req.SecretIdentity == "" || req.Choice == "" || req.Salt == "" {
		http.Error(w, "secretIdentity, choice and salt are required", http.StatusBadRequest)
		return
	}

	rev, err := s.poll.Reveal(req.SecretIdentity, req.Choice, req.Salt)
	if err != nil {
		if errors.Is(err, ErrRevealMismatch) {
			http.Error(w, "Reveal does not open a current commitment", http.StatusUnprocessableEntity)
			return
		}
		s.poll.logger.Sugar().Errorw("Reveal failed", "poll_id", s.poll.ID, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, RevealResponse{
		Nullifier:  rev.Nullifier,
		Commitment: rev.Commitment,
		Choice:     rev.Choice,
	})
}

// handleRoot returns the current root and leaf count
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	root, _ := s.poll.Root()
	writeJSON(w, RootResponse{
		Root:      root,
		LeafCount: s.poll.LeafCount(),
	})
}

// handleProof returns an inclusion proof for a live commitment
func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	value := r.URL.Query().Get("commitment")
	if value == "" {
		http.Error(w, "commitment query parameter is required", http.StatusBadRequest)
		return
	}

	proof, ok := s.poll.ProveInclusion(value)
	if !ok {
		http.Error(w, "Commitment is not a current leaf", http.StatusNotFound)
		return
	}

	writeJSON(w, proof)
}

// handleVerify runs a stateless proof check
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var proof commitment.Proof
	if err := json.NewDecoder(r.Body).Decode(&proof); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse proof: %v", err), http.StatusBadRequest)
		return
	}

	// A structurally malformed proof panics in VerifyProof; surface
	// that to the remote caller as a 400 rather than killing the
	// server.
	valid, err := verifySafely(&proof)
	if err != nil {
		http.Error(w, fmt.Sprintf("Malformed proof: %v", err), http.StatusBadRequest)
		return
	}

	writeJSON(w, VerifyResponse{Valid: valid})
}

// handleTally returns finalized choice counts
func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	counts, err := s.poll.Tally()
	if err != nil {
		s.poll.logger.Sugar().Errorw("Tally failed", "poll_id", s.poll.ID, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, TallyResponse{Counts: counts})
}

// verifySafely converts a VerifyProof panic into an error for the
// HTTP boundary.
func verifySafely(proof *commitment.Proof) (valid bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return commitment.VerifyProof(proof), nil
}

// writeJSON encodes a JSON response body
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
