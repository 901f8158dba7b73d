package webserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradesafe/tradeverify/src/matcher"
	"github.com/tradesafe/tradeverify/src/types"
	"github.com/tradesafe/tradeverify/src/verification"
)

type stubRunner struct {
	rec  *types.Verification
	err  error
	last verification.Request
}

func (s *stubRunner) Run(ctx context.Context, req verification.Request) (*types.Verification, error) {
	s.last = req
	return s.rec, s.err
}

type stubStore struct {
	recs map[string]*types.Verification
}

func (s *stubStore) Upsert(ctx context.Context, rec *types.Verification) error {
	s.recs[rec.ID] = rec
	return nil
}

func (s *stubStore) Get(ctx context.Context, id string) (*types.Verification, error) {
	rec, ok := s.recs[id]
	if !ok {
		return nil, verification.ErrNotFound
	}
	return rec, nil
}

func completedRecord() *types.Verification {
	score := 0.3
	conf := types.ConfidenceMedium
	return &types.Verification{
		ID:         "11111111-1111-1111-1111-111111111111",
		Client:     "Shell plc",
		State:      types.StateCompleted,
		Sources:    `["website"]`,
		Flags:      `[]`,
		RiskScore:  &score,
		Confidence: &conf,
	}
}

func testRouter(runner Runner, store verification.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(runner, store, nil)
}

func TestCreateVerification(t *testing.T) {
	runner := &stubRunner{rec: completedRecord()}
	router := testRouter(runner, &stubStore{recs: map[string]*types.Verification{}})

	body := `{"client":"Shell plc","country":"GB","role":"Export","productName":"Crude oil"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verifications", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Shell plc", runner.last.Client)
	assert.Equal(t, "Crude oil", runner.last.ProductName)
	assert.Contains(t, w.Body.String(), `"state":"Completed"`)
	assert.Contains(t, w.Body.String(), `"sourcesUsed":["website"]`)
}

func TestCreateVerificationBindingRejects(t *testing.T) {
	runner := &stubRunner{rec: completedRecord()}
	router := testRouter(runner, &stubStore{recs: map[string]*types.Verification{}})

	cases := []string{
		`{}`,
		`{"client":"x","country":"GB","role":"Export"}`,
		`{"client":"Shell plc","country":"GBR","role":"Export"}`,
		`{"client":"Shell plc","country":"GB","role":"Broker"}`,
		`{"client":"Shell plc","country":"GB","role":"Export","websiteUrl":"not a url"}`,
	}
	for _, body := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/verifications", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, runner.last.Client, "rejected requests never reach the service")
}

func TestCreateVerificationInvalidInputFromService(t *testing.T) {
	runner := &stubRunner{err: fmt.Errorf("%w: entity name too short", matcher.ErrInvalidInput)}
	router := testRouter(runner, &stubStore{recs: map[string]*types.Verification{}})

	body := `{"client":"??","country":"GB","role":"Export"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verifications", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetVerification(t *testing.T) {
	rec := completedRecord()
	store := &stubStore{recs: map[string]*types.Verification{rec.ID: rec}}
	router := testRouter(&stubRunner{}, store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/verifications/"+rec.ID, nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), rec.ID)
}

func TestGetVerificationNotFound(t *testing.T) {
	router := testRouter(&stubRunner{}, &stubStore{recs: map[string]*types.Verification{}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/verifications/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	router := testRouter(&stubRunner{}, &stubStore{recs: map[string]*types.Verification{}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
