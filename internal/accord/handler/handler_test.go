package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"bondly/internal/accord"
	"bondly/internal/assets"
	"bondly/internal/penalty"
	"bondly/internal/platform/locks"
	"bondly/internal/platform/metrics"
	"bondly/internal/platform/middleware"
	"bondly/internal/treasury"
	auditpub "bondly/pkg/platform/audit/publisher"
	auditmem "bondly/pkg/platform/audit/store/memory"
)

type actorTokens struct{}

func (actorTokens) ValidateToken(token string) (*middleware.ActorClaims, error) {
	const prefix = "token-"
	if len(token) <= len(prefix) || token[:len(prefix)] != prefix {
		return nil, errors.New("unknown token")
	}
	return &middleware.ActorClaims{ActorID: token[len(prefix):]}, nil
}

type AccordHandlerSuite struct {
	suite.Suite
	router chi.Router
	ledger *assets.InMemoryLedger
}

func TestAccordHandlerSuite(t *testing.T) {
	suite.Run(t, new(AccordHandlerSuite))
}

func (s *AccordHandlerSuite) SetupTest() {
	s.ledger = assets.NewInMemoryLedger()
	engine, err := penalty.NewEngine(penalty.DefaultSchedule())
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(prometheus.NewRegistry())
	service := accord.NewService(
		accord.NewInMemoryStore(),
		engine,
		treasury.New(),
		s.ledger,
		auditpub.New(auditmem.New()),
		m,
		logger,
		locks.NewKeyed(),
		accord.Defaults{Deposit: 100, FeeRateBps: 4000},
	)

	s.router = chi.NewRouter()
	New(service, logger, m, actorTokens{}).Register(s.router)
}

func (s *AccordHandlerSuite) do(actor, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if actor != "" {
		req.Header.Set("Authorization", "Bearer token-"+actor)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *AccordHandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *AccordHandlerSuite) propose(deposit int64) string {
	w := s.do("bob", http.MethodPost, "/properties/flat-9/accords", map[string]int64{"deposit": deposit})
	s.Require().Equal(http.StatusCreated, w.Code)
	return s.decode(w)["id"].(string)
}

func (s *AccordHandlerSuite) TestRequiresAuth() {
	w := s.do("", http.MethodPost, "/properties/flat-9/accords", map[string]int64{"deposit": 10})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AccordHandlerSuite) TestLifecycle() {
	s.Require().NoError(s.ledger.Deposit(s.T().Context(), "flat-9", assets.Native, 1000))
	id := s.propose(1000)

	w := s.do("alice", http.MethodPost, "/properties/flat-9/accords/"+id+"/approve", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("approved", s.decode(w)["status"])

	w = s.do("alice", http.MethodPost, "/properties/flat-9/accords/"+id+"/confirm", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	resp := s.decode(w)
	s.Equal("confirmed", resp["status"])
	s.Equal(float64(400), resp["fee_collected"])
	s.Equal(float64(600), resp["proposer_refund"])

	w = s.do("alice", http.MethodPost, "/properties/flat-9/accords/"+id+"/approve", nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("accord_already_terminal", s.decode(w)["error"])
}

func (s *AccordHandlerSuite) TestBreach() {
	s.Require().NoError(s.ledger.Deposit(s.T().Context(), "flat-9", assets.Native, 10000))
	id := s.propose(1000)

	w := s.do("alice", http.MethodPost, "/properties/flat-9/accords/"+id+"/breach",
		map[string]string{"severity": "hard"})
	s.Require().Equal(http.StatusOK, w.Code)
	resp := s.decode(w)
	s.Equal("breached", resp["status"])
	s.Equal(float64(300), resp["penalty_collected"])
	s.Equal(float64(280), resp["fee_collected"])
	s.Equal(float64(420), resp["proposer_refund"])

	balance := s.do("alice", http.MethodGet, "/treasury/balance", nil)
	s.Require().Equal(http.StatusOK, balance.Code)
	s.Equal(float64(300), s.decode(balance)["balance"])
}

func (s *AccordHandlerSuite) TestBreachRejectsUnknownSeverity() {
	id := s.propose(1000)
	w := s.do("alice", http.MethodPost, "/properties/flat-9/accords/"+id+"/breach",
		map[string]string{"severity": "catastrophic"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("invalid_severity_class", s.decode(w)["error"])
}

func (s *AccordHandlerSuite) TestUnknownAccord() {
	w := s.do("alice", http.MethodPost, "/properties/flat-9/accords/"+uuid.NewString()+"/approve", nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do("alice", http.MethodPost, "/properties/flat-9/accords/not-a-uuid/approve", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *AccordHandlerSuite) TestCounters() {
	first := s.propose(1000)
	s.propose(1000)
	_, err := uuid.Parse(first)
	s.Require().NoError(err)

	w := s.do("alice", http.MethodPost, "/properties/flat-9/accords/"+first+"/approve", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	total := s.do("alice", http.MethodGet, "/properties/flat-9/accords/total", nil)
	s.Require().Equal(http.StatusOK, total.Code)
	s.Equal(float64(2), s.decode(total)["total"])

	details := s.do("alice", http.MethodGet, "/properties/flat-9/accords/details", nil)
	s.Require().Equal(http.StatusOK, details.Code)
	resp := s.decode(details)
	s.Equal(float64(2), resp["proposed"])
	s.Equal(float64(1), resp["approved"])
	s.Equal(float64(0), resp["confirmed"])

	w = s.do("bob", http.MethodPost, "/properties/flat-10/accords", map[string]int64{"deposit": 500})
	s.Require().Equal(http.StatusCreated, w.Code)

	global := s.do("alice", http.MethodGet, "/accords/total", nil)
	s.Require().Equal(http.StatusOK, global.Code)
	s.Equal(float64(3), s.decode(global)["total"])
}

func (s *AccordHandlerSuite) TestPenaltyRate() {
	w := s.do("alice", http.MethodGet, "/penalty/rate?severity=hard&tier=2", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(float64(6000), s.decode(w)["rate_bps"])

	w = s.do("alice", http.MethodGet, "/penalty/rate?severity=hard&tier=99", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(float64(10000), s.decode(w)["rate_bps"], "tiers clamp to the last row")

	w = s.do("alice", http.MethodGet, "/penalty/rate?severity=bogus&tier=1", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do("alice", http.MethodGet, "/penalty/rate?severity=hard&tier=abc", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}
