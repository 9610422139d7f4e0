package poll

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

/*
Server handles HTTP requests for one poll.

Voting Flow:
  POST /register: { secretIdentity }
    - Derives and stores the voter's nullifier
    - Rejected if the identity already registered

  POST /vote: { secretIdentity, choice, salt? }
    - Computes the commitment and inserts it as a tree leaf
    - A repeat vote by the same identity replaces the earlier
      commitment (vote update); the response carries the new root
    - Salt is generated from the wall clock when omitted; the salt in
      use is returned and must be kept for reveal

  GET /root:
    - Returns the current root and leaf count
    - Root is empty when no commitments are live

  GET /proof?commitment=<hex>:
    - Returns the inclusion proof for a live commitment
    - 404 when the commitment is not a current leaf

  POST /verify: proof structure
    - Stateless check; needs no tree state
    - 400 for structurally malformed proofs, { valid: false } for
      cryptographically invalid ones

Finalization Flow:
  POST /reveal: { secretIdentity, choice, salt }
    - Opens the commitment; rejected unless the recomputed value is a
      live leaf
  GET /tally:
    - Returns finalized choice counts

Rate Limiting:
  Mutating endpoints (/register, /vote, /reveal) share a token bucket;
  excess requests get 429. Reads are not limited.
*/

// Server handles HTTP requests for the poll
type Server struct {
	poll       *Poll
	httpServer *http.Server
	limiter    *rate.Limiter
}

// NewServer creates a new server instance
func NewServer(poll *Poll, port int) *Server {
	s := &Server{
		poll: poll,
		// Mutations rebuild the whole tree, so keep the write rate modest
		limiter: rate.NewLimiter(rate.Limit(20), 50),
	}

	mux := http.NewServeMux()

	// Voting endpoints
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/vote", s.handleVote)
	mux.HandleFunc("/reveal", s.handleReveal)

	// Tree read endpoints
	mux.HandleFunc("/root", s.handleRoot)
	mux.HandleFunc("/proof", s.handleProof)
	mux.HandleFunc("/verify", s.handleVerify)

	// Tally endpoint
	mux.HandleFunc("/tally", s.handleTally)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go func() {
		s.poll.logger.Sugar().Infow("Starting HTTP server", "poll_id", s.poll.ID, "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.poll.logger.Sugar().Errorw("HTTP server error", "poll_id", s.poll.ID, "error", err)
		}
	}()
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	return s.httpServer.Close()
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}
