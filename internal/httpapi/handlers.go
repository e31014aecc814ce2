package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/splitword/splitword-server/internal/registry"
)

// roundsBounds clamp the optional ?rounds override on room creation.
const (
	minRounds = 1
	maxRounds = 10
)

type createRoomResponse struct {
	Code string `json:"code"`
	Join string `json:"join"`
}

// CreateRoom mints a room and returns its code plus a shareable join
// reference. No body is required; ?rounds selects a game variant.
func CreateRoom(reg *registry.Registry, defaultRounds int, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rounds := defaultRounds
		if raw := r.URL.Query().Get("rounds"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n >= minRounds && n <= maxRounds {
				rounds = n
			}
		}

		rm, err := reg.Create(rounds)
		if err != nil {
			log.Error("create room", zap.Error(err))
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createRoomResponse{
			Code: rm.Code(),
			Join: "/ws?code=" + rm.Code(),
		})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
