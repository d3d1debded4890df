package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/quebracell/backend/internal/identity"
	"github.com/quebracell/backend/internal/lifecycle"
	"github.com/quebracell/backend/internal/listing"
	mock_server "github.com/quebracell/backend/internal/server/mocks"
)

var (
	ownerSession = identity.Session{UserID: "user-1", Email: "owner@example.com", Role: listing.RoleUser}
	adminSession = identity.Session{UserID: "admin-1", Email: "admin@example.com", Role: listing.RoleOperator}
)

func withSession(req *http.Request, sess identity.Session) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), sessionKey, sess))
}

func TestHandleSubmitListing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock_server.NewMockLifecycle(ctrl)
	server := New(mockService, nil, nil, "", nil)

	tests := []struct {
		name           string
		requestBody    map[string]interface{}
		setupMocks     func()
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "successful submission",
			requestBody: map[string]interface{}{
				"model":           "Galaxy S21",
				"defect":          "cracked screen",
				"neighborhood":    "Centro",
				"water_damage":    false,
				"signs_of_life":   true,
				"photo_front_url": "/photos/devices/user-1/1_front.jpg",
				"photo_back_url":  "/photos/devices/user-1/1_back.jpg",
			},
			setupMocks: func() {
				mockService.EXPECT().
					Submit(gomock.Any(), ownerSession, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ identity.Session, req lifecycle.SubmitRequest) (string, error) {
						assert.Equal(t, "Galaxy S21", req.Model)
						assert.Equal(t, "cracked screen", req.Defect)
						assert.True(t, req.SignsOfLife)
						assert.False(t, req.WaterDamage)
						return "listing-1", nil
					})
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `{"message":"Listing submitted successfully","id":"listing-1"}`,
		},
		{
			name: "missing condition answers",
			requestBody: map[string]interface{}{
				"model":           "Galaxy S21",
				"defect":          "cracked screen",
				"neighborhood":    "Centro",
				"photo_front_url": "/photos/a.jpg",
				"photo_back_url":  "/photos/b.jpg",
			},
			setupMocks:     func() {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Error: water_damage and signs_of_life are required"}`,
		},
		{
			name: "validation error from the core",
			requestBody: map[string]interface{}{
				"model":         "",
				"defect":        "cracked screen",
				"neighborhood":  "Centro",
				"water_damage":  false,
				"signs_of_life": true,
			},
			setupMocks: func() {
				mockService.EXPECT().
					Submit(gomock.Any(), ownerSession, gomock.Any()).
					Return("", &listing.ValidationError{Field: "model"})
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Error: missing required field \"model\""}`,
		},
		{
			name: "store unavailable",
			requestBody: map[string]interface{}{
				"model":           "Galaxy S21",
				"defect":          "cracked screen",
				"neighborhood":    "Centro",
				"water_damage":    true,
				"signs_of_life":   false,
				"photo_front_url": "/photos/a.jpg",
				"photo_back_url":  "/photos/b.jpg",
			},
			setupMocks: func() {
				mockService.EXPECT().
					Submit(gomock.Any(), ownerSession, gomock.Any()).
					Return("", listing.ErrStoreUnavailable)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"error":"Error: store unavailable, retry the action"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMocks()

			body, err := json.Marshal(tc.requestBody)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodPost, "/listings", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req = withSession(req, ownerSession)

			rr := httptest.NewRecorder()

			server.handleSubmitListing(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func TestHandleQuote(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock_server.NewMockLifecycle(ctrl)
	server := New(mockService, nil, nil, "", nil)

	tests := []struct {
		name           string
		sess           identity.Session
		requestBody    map[string]interface{}
		setupMocks     func()
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "successful quote",
			sess: adminSession,
			requestBody: map[string]interface{}{
				"quoted_value":     "R$ 350,00",
				"payment_deadline": "2026-09-15",
			},
			setupMocks: func() {
				mockService.EXPECT().
					Quote(gomock.Any(), adminSession, "listing-1", "R$ 350,00", "2026-09-15").
					Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"message":"Proposal sent successfully"}`,
		},
		{
			name: "user is not the operator",
			sess: ownerSession,
			requestBody: map[string]interface{}{
				"quoted_value":     "R$ 350,00",
				"payment_deadline": "2026-09-15",
			},
			setupMocks: func() {
				mockService.EXPECT().
					Quote(gomock.Any(), ownerSession, "listing-1", "R$ 350,00", "2026-09-15").
					Return(&listing.InvalidTransitionError{
						From: listing.StatusAwaitingProposal, Action: listing.ActionQuote, Role: listing.RoleUser,
					})
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "listing not found",
			sess: adminSession,
			requestBody: map[string]interface{}{
				"quoted_value":     "R$ 350,00",
				"payment_deadline": "2026-09-15",
			},
			setupMocks: func() {
				mockService.EXPECT().
					Quote(gomock.Any(), adminSession, "listing-1", "R$ 350,00", "2026-09-15").
					Return(listing.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":"Error: listing not found"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMocks()

			body, err := json.Marshal(tc.requestBody)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodPost, "/listings/listing-1/quote", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req = mux.SetURLVars(req, map[string]string{"id": "listing-1"})
			req = withSession(req, tc.sess)

			rr := httptest.NewRecorder()

			server.handleQuote(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, rr.Body.String())
			}
		})
	}
}

func TestHandleRespond(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock_server.NewMockLifecycle(ctrl)
	server := New(mockService, nil, nil, "", nil)

	tests := []struct {
		name           string
		requestBody    map[string]interface{}
		setupMocks     func()
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "accept",
			requestBody: map[string]interface{}{
				"decision": "accept",
			},
			setupMocks: func() {
				mockService.EXPECT().
					Respond(gomock.Any(), ownerSession, "listing-1", lifecycle.DecisionAccept, "").
					Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"message":"Response recorded"}`,
		},
		{
			name: "reject with counter offer",
			requestBody: map[string]interface{}{
				"decision":      "reject",
				"counter_offer": "quero 400",
			},
			setupMocks: func() {
				mockService.EXPECT().
					Respond(gomock.Any(), ownerSession, "listing-1", lifecycle.DecisionReject, "quero 400").
					Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"message":"Response recorded"}`,
		},
		{
			name: "reject without counter offer prompts for input",
			requestBody: map[string]interface{}{
				"decision": "reject",
			},
			setupMocks: func() {
				mockService.EXPECT().
					Respond(gomock.Any(), ownerSession, "listing-1", lifecycle.DecisionReject, "").
					Return(listing.ErrNeedsMoreInput)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"needs_more_input":true,"prompt":"a counter offer text is required to reject a proposal"}`,
		},
		{
			name: "respond without a pending proposal",
			requestBody: map[string]interface{}{
				"decision": "accept",
			},
			setupMocks: func() {
				mockService.EXPECT().
					Respond(gomock.Any(), ownerSession, "listing-1", lifecycle.DecisionAccept, "").
					Return(&listing.InvalidTransitionError{
						From: listing.StatusAwaitingProposal, Action: listing.ActionAccept, Role: listing.RoleUser,
					})
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMocks()

			body, err := json.Marshal(tc.requestBody)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodPost, "/listings/listing-1/response", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req = mux.SetURLVars(req, map[string]string{"id": "listing-1"})
			req = withSession(req, ownerSession)

			rr := httptest.NewRecorder()

			server.handleRespond(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, rr.Body.String())
			}
		})
	}
}

func TestHandleMarkPaid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock_server.NewMockLifecycle(ctrl)
	server := New(mockService, nil, nil, "", nil)

	tests := []struct {
		name           string
		setupMocks     func()
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "payment confirmed",
			setupMocks: func() {
				mockService.EXPECT().
					MarkPaid(gomock.Any(), adminSession, "listing-1").
					Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"message":"Payment confirmed"}`,
		},
		{
			name: "not yet accepted",
			setupMocks: func() {
				mockService.EXPECT().
					MarkPaid(gomock.Any(), adminSession, "listing-1").
					Return(&listing.InvalidTransitionError{
						From: listing.StatusProposalSent, Action: listing.ActionMarkPaid, Role: listing.RoleOperator,
					})
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMocks()

			req := httptest.NewRequest(http.MethodPost, "/listings/listing-1/paid", nil)
			req = mux.SetURLVars(req, map[string]string{"id": "listing-1"})
			req = withSession(req, adminSession)

			rr := httptest.NewRecorder()

			server.handleMarkPaid(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, rr.Body.String())
			}
		})
	}
}

func TestHandleGetListing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock_server.NewMockLifecycle(ctrl)
	server := New(mockService, nil, nil, "", nil)

	t.Run("listing found", func(t *testing.T) {
		mockService.EXPECT().
			Get(gomock.Any(), ownerSession, "listing-1").
			Return(&listing.Listing{
				ID:      "listing-1",
				OwnerID: "user-1",
				Model:   "Galaxy S21",
				Status:  listing.StatusProposalSent,
			}, nil)

		req := httptest.NewRequest(http.MethodGet, "/listings/listing-1", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "listing-1"})
		req = withSession(req, ownerSession)

		rr := httptest.NewRecorder()
		server.handleGetListing(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"id":"listing-1"`)
		assert.Contains(t, rr.Body.String(), `"status":"proposal_sent"`)
	})

	t.Run("listing not found", func(t *testing.T) {
		mockService.EXPECT().
			Get(gomock.Any(), ownerSession, "nonexistent").
			Return(nil, listing.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/listings/nonexistent", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "nonexistent"})
		req = withSession(req, ownerSession)

		rr := httptest.NewRecorder()
		server.handleGetListing(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.JSONEq(t, `{"error":"Error: listing not found"}`, rr.Body.String())
	})
}

func TestHandleDeleteListing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock_server.NewMockLifecycle(ctrl)
	server := New(mockService, nil, nil, "", nil)

	t.Run("deleted", func(t *testing.T) {
		mockService.EXPECT().
			Delete(gomock.Any(), adminSession, "listing-1").
			Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/listings/listing-1", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "listing-1"})
		req = withSession(req, adminSession)

		rr := httptest.NewRecorder()
		server.handleDeleteListing(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"message":"Listing deleted"}`, rr.Body.String())
	})

	t.Run("delete requires the operator", func(t *testing.T) {
		mockService.EXPECT().
			Delete(gomock.Any(), ownerSession, "listing-1").
			Return(&listing.InvalidTransitionError{
				From: listing.StatusPaid, Action: listing.ActionDelete, Role: listing.RoleUser,
			})

		req := httptest.NewRequest(http.MethodDelete, "/listings/listing-1", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "listing-1"})
		req = withSession(req, ownerSession)

		rr := httptest.NewRecorder()
		server.handleDeleteListing(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestHandleOwnerListings(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock_server.NewMockLifecycle(ctrl)
	server := New(mockService, nil, nil, "", nil)

	t.Run("owner sees own listings", func(t *testing.T) {
		mockService.EXPECT().
			ListFor(gomock.Any(), ownerSession, "user-1").
			Return([]listing.Listing{
				{ID: "listing-2", OwnerID: "user-1", CreatedAt: time.Now()},
				{ID: "listing-1", OwnerID: "user-1", CreatedAt: time.Now().Add(-time.Hour)},
			}, nil)

		req := httptest.NewRequest(http.MethodGet, "/users/user-1/listings", nil)
		req = mux.SetURLVars(req, map[string]string{"userID": "user-1"})
		req = withSession(req, ownerSession)

		rr := httptest.NewRecorder()
		server.handleOwnerListings(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"id":"listing-2"`)
	})

	t.Run("operator sees the path user's listings, not their own", func(t *testing.T) {
		mockService.EXPECT().
			ListFor(gomock.Any(), adminSession, "user-1").
			Return([]listing.Listing{
				{ID: "listing-1", OwnerID: "user-1", CreatedAt: time.Now()},
			}, nil)

		req := httptest.NewRequest(http.MethodGet, "/users/user-1/listings", nil)
		req = mux.SetURLVars(req, map[string]string{"userID": "user-1"})
		req = withSession(req, adminSession)

		rr := httptest.NewRecorder()
		server.handleOwnerListings(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"owner_id":"user-1"`)
		assert.NotContains(t, rr.Body.String(), adminSession.UserID)
	})

	t.Run("cannot read another user's listings", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/user-2/listings", nil)
		req = mux.SetURLVars(req, map[string]string{"userID": "user-2"})
		req = withSession(req, ownerSession)

		rr := httptest.NewRecorder()
		server.handleOwnerListings(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.JSONEq(t, `{"error":"Error: not your listings"}`, rr.Body.String())
	})
}

func TestHandlePortfolio(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock_server.NewMockLifecycle(ctrl)
	server := New(mockService, nil, nil, "", nil)

	t.Run("aggregates accepted and paid quotes", func(t *testing.T) {
		mockService.EXPECT().
			ListFor(gomock.Any(), ownerSession, "user-1").
			Return([]listing.Listing{
				{ID: "a", Status: listing.StatusProposalAccepted, QuotedValue: "R$ 1.234,56"},
				{ID: "b", Status: listing.StatusPaid, QuotedValue: "10,00"},
				{ID: "c", Status: listing.StatusProposalSent, QuotedValue: "999"},
			}, nil)

		req := httptest.NewRequest(http.MethodGet, "/users/user-1/portfolio", nil)
		req = mux.SetURLVars(req, map[string]string{"userID": "user-1"})
		req = withSession(req, ownerSession)

		rr := httptest.NewRecorder()
		server.handlePortfolio(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"pending":1234.56,"received":10}`, rr.Body.String())
	})

	t.Run("operator reads the path user's portfolio", func(t *testing.T) {
		mockService.EXPECT().
			ListFor(gomock.Any(), adminSession, "user-1").
			Return([]listing.Listing{
				{ID: "a", Status: listing.StatusPaid, QuotedValue: "50,00"},
			}, nil)

		req := httptest.NewRequest(http.MethodGet, "/users/user-1/portfolio", nil)
		req = mux.SetURLVars(req, map[string]string{"userID": "user-1"})
		req = withSession(req, adminSession)

		rr := httptest.NewRecorder()
		server.handlePortfolio(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"pending":0,"received":50}`, rr.Body.String())
	})

	t.Run("cannot read another user's portfolio", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/user-2/portfolio", nil)
		req = mux.SetURLVars(req, map[string]string{"userID": "user-2"})
		req = withSession(req, ownerSession)

		rr := httptest.NewRecorder()
		server.handlePortfolio(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestBasicAuthMiddleware(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock_server.NewMockLifecycle(ctrl)
	mockResolver := mock_server.NewMockSessionResolver(ctrl)
	server := New(mockService, mockResolver, nil, "", nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		respondJSON(w, http.StatusOK, map[string]string{"user_id": sess.UserID})
	})
	handler := server.basicAuthMiddleware(next)

	t.Run("missing credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/listings", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("bad credentials", func(t *testing.T) {
		mockResolver.EXPECT().
			Resolve(gomock.Any(), "owner@example.com", "wrong").
			Return(identity.Session{}, errors.New("invalid credentials"))

		req := httptest.NewRequest(http.MethodGet, "/listings", nil)
		req.SetBasicAuth("owner@example.com", "wrong")
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("session reaches the handler", func(t *testing.T) {
		mockResolver.EXPECT().
			Resolve(gomock.Any(), "owner@example.com", "secret").
			Return(ownerSession, nil)

		req := httptest.NewRequest(http.MethodGet, "/listings", nil)
		req.SetBasicAuth("owner@example.com", "secret")
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"user_id":"user-1"}`, rr.Body.String())
	})
}
