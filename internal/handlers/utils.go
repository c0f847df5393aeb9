package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/dosip/dosip/internal/room"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("failed to encode response: %v", err)
	}
}

// writeDetail emits the {"detail": "..."} error shape every endpoint uses.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeDomainError maps room errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, room.ErrInvalidGame):
		writeDetail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, room.ErrNotHost), errors.Is(err, room.ErrNotYourTurn):
		writeDetail(w, http.StatusForbidden, err.Error())
	default:
		writeDetail(w, http.StatusBadRequest, err.Error())
	}
}
