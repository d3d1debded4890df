package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/quebracell/backend/internal/lifecycle"
	"github.com/quebracell/backend/internal/photo"
	"github.com/quebracell/backend/internal/portfolio"
)

func (s *Server) handleSubmitListing(w http.ResponseWriter, r *http.Request) {
	var submitRequest struct {
		Model        string `json:"model"`
		Defect       string `json:"defect"`
		Neighborhood string `json:"neighborhood"`
		WaterDamage  *bool  `json:"water_damage"`
		SignsOfLife  *bool  `json:"signs_of_life"`
		PhotoFront   string `json:"photo_front_url"`
		PhotoBack    string `json:"photo_back_url"`
	}

	if err := json.NewDecoder(r.Body).Decode(&submitRequest); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// The submitter must answer both condition questions explicitly.
	if submitRequest.WaterDamage == nil || submitRequest.SignsOfLife == nil {
		respondError(w, http.StatusBadRequest, "Error: water_damage and signs_of_life are required")
		return
	}

	sess := sessionFrom(r.Context())
	id, err := s.service.Submit(r.Context(), sess, lifecycle.SubmitRequest{
		Model:        submitRequest.Model,
		Defect:       submitRequest.Defect,
		Neighborhood: submitRequest.Neighborhood,
		WaterDamage:  *submitRequest.WaterDamage,
		SignsOfLife:  *submitRequest.SignsOfLife,
		PhotoFront:   submitRequest.PhotoFront,
		PhotoBack:    submitRequest.PhotoBack,
	})
	if err != nil {
		respondDomainErr(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "Listing submitted successfully",
		"id":      id,
	})
}

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.service.ListAll(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, listings)
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "Missing listing ID")
		return
	}

	l, err := s.service.Get(r.Context(), sessionFrom(r.Context()), id)
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, l)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var quoteRequest struct {
		QuotedValue     string `json:"quoted_value"`
		PaymentDeadline string `json:"payment_deadline"`
	}
	if err := json.NewDecoder(r.Body).Decode(&quoteRequest); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := s.service.Quote(r.Context(), sessionFrom(r.Context()), id, quoteRequest.QuotedValue, quoteRequest.PaymentDeadline)
	if err != nil {
		respondDomainErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Proposal sent successfully",
	})
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var responseRequest struct {
		Decision     string `json:"decision"`
		CounterOffer string `json:"counter_offer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&responseRequest); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := s.service.Respond(r.Context(), sessionFrom(r.Context()), id,
		lifecycle.Decision(responseRequest.Decision), responseRequest.CounterOffer)
	if err != nil {
		respondDomainErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Response recorded",
	})
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.service.MarkPaid(r.Context(), sessionFrom(r.Context()), id); err != nil {
		respondDomainErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Payment confirmed",
	})
}

func (s *Server) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "Missing listing ID")
		return
	}

	if err := s.service.Delete(r.Context(), sessionFrom(r.Context()), id); err != nil {
		respondDomainErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Listing deleted",
	})
}

func (s *Server) handleOwnerListings(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	sess := sessionFrom(r.Context())

	if !sess.IsOperator() && sess.UserID != userID {
		respondError(w, http.StatusForbidden, "Error: not your listings")
		return
	}

	listings, err := s.service.ListFor(r.Context(), sess, userID)
	if err != nil {
		respondDomainErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, listings)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	sess := sessionFrom(r.Context())

	if !sess.IsOperator() && sess.UserID != userID {
		respondError(w, http.StatusForbidden, "Error: not your portfolio")
		return
	}

	listings, err := s.service.ListFor(r.Context(), sess, userID)
	if err != nil {
		respondDomainErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, portfolio.Summarize(listings))
}

const maxPhotoBytes = 8 << 20

// handleUploadPhoto stores one device photo and returns its retrieval
// URL. The client compresses before uploading; an upload that never gets
// attached to a listing is simply orphaned.
func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}

	side := photo.Side(r.FormValue("side"))
	if side != photo.SideFront && side != photo.SideBack {
		respondError(w, http.StatusBadRequest, "Error: side must be front or back")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Error: photo file missing")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Error: reading photo")
		return
	}

	sess := sessionFrom(r.Context())
	url, err := s.photos.Put(r.Context(), photo.Path(sess.UserID, side, time.Now()), data)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Error: photo storage unavailable, retry the upload")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"url": url})
}
