package server

import (
	"errors"
	"net/http"

	"mediloop/internal/donation"
)

func (s *Server) handleDonation(w http.ResponseWriter, r *http.Request) {
	var req donation.Request
	if err := decodeJSON(w, r, &req); err != nil {
		s.Metrics.Donation("invalid")
		writeError(w, http.StatusBadRequest, "Invalid JSON data received.")
		return
	}

	d, err := req.Validate(s.now())
	if err != nil {
		var verr *donation.ValidationError
		if errors.As(err, &verr) {
			s.Metrics.Donation("invalid")
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	c := s.client(r)
	if sess, err := s.Auth.Sessions.Authenticate(ctx, c); err != nil {
		s.logger().Warn("resolve donor session failed", "err", err)
	} else if sess != nil {
		d.DonorUserID = &sess.UserID
	}
	c.WriteCookies(w)

	id, err := s.Donations.Insert(ctx, d)
	if err != nil {
		s.Metrics.Donation("error")
		s.logger().Error("store donation failed", "err", err)
		writeError(w, http.StatusInternalServerError, donation.MsgFailed)
		return
	}

	s.Metrics.Donation("stored")
	s.logger().Info("donation stored", "donation_id", id)
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": donation.MsgSubmitted,
		"data":    envelope{"id": id},
	})
}
