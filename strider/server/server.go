// Package server implements the relay: a transient, process-lifetime,
// PIN-keyed byte store for one-shot peer-to-peer ledger sync. Grounded
// on original_source/land_strider/src/startup.rs.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/fizzgig/ledger/internal/ids"
	"github.com/fizzgig/ledger/internal/obslog"
)

// Relay bundles the job table and JWT secret behind HTTP handlers.
type Relay struct {
	settings Settings
	jobs     *JobTable
	log      zerolog.Logger
}

// New constructs a Relay ready to be wired into a router via Router.
func New(settings Settings) *Relay {
	return &Relay{settings: settings, jobs: NewJobTable(), log: obslog.Default("strider-server")}
}

// Router builds the mux.Router exposing the four relay endpoints,
// following the zkp-service server's NewRouter/.Use/.Methods idiom.
func (rl *Relay) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(rl.loggingMiddleware)
	r.HandleFunc("/", rl.root).Methods(http.MethodGet)
	r.HandleFunc("/reserve_pin", rl.reservePin).Methods(http.MethodPost)
	r.HandleFunc("/push_s", rl.pushS).Methods(http.MethodPost)
	r.HandleFunc("/pull", rl.pull).Methods(http.MethodGet)
	return r
}

func (rl *Relay) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		rl.log.Info().Str("method", r.Method).Str("path", r.URL.Path).Dur("elapsed", time.Since(start)).Msg("request")
	})
}

func (rl *Relay) root(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, "Hello, World!")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, message)
}

type reservePinRequest struct {
	Pw string `json:"pw"`
}

func (rl *Relay) reservePin(w http.ResponseWriter, r *http.Request) {
	var req reservePinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	pin, err := ids.GeneratePIN()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reserve pin")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Pw), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reserve pin")
		return
	}

	token, err := genJWT(rl.settings.JWTSecret, pin)
	if err != nil {
		rl.log.Error().Err(err).Msg("failed to generate jwt")
		writeError(w, http.StatusInternalServerError, "failed to reserve pin")
		return
	}

	rl.jobs.Insert(pin, &Job{PWHash: hash, Status: StatusPushReady})
	rl.log.Info().Str("pin", pin).Msg("pin reserved")

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "token": token, "pin": pin})
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", errMissingBearer
	}
	return strings.TrimPrefix(h, prefix), nil
}

var errMissingBearer = errors.New("missing bearer token")
var errPushAlreadyUsed = errors.New("Push token already used.  Please reserve a new one")
var errPushStreamFailed = errors.New("failed to process push stream")

func (rl *Relay) pushS(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing or malformed Authorization header")
		return
	}

	pin, err := validateJWT(rl.settings.JWTSecret, token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	// The whole status-check/body-read/status-transition sequence runs
	// with the job's slot locked, matching startup.rs::push_s holding
	// its sync_jobs guard across the entire chunk-streaming loop: a
	// retried or duplicate push against the same pin cannot observe or
	// tear a half-written Job.
	var statusCode int
	var respErr error
	var pushedBytes int
	found := rl.jobs.Mutate(pin, func(job *Job) {
		if job.Status != StatusPushReady {
			statusCode = http.StatusBadRequest
			respErr = errPushAlreadyUsed
			return
		}

		data, err := io.ReadAll(r.Body)
		if err != nil {
			statusCode = http.StatusInternalServerError
			respErr = errPushStreamFailed
			return
		}

		job.Data = data
		job.Status = StatusPullReady
		pushedBytes = len(data)
	})
	if !found {
		writeError(w, http.StatusBadRequest, "Token no longer valid")
		return
	}
	if respErr != nil {
		writeError(w, statusCode, respErr.Error())
		return
	}

	rl.log.Info().Str("pin", pin).Int("bytes", pushedBytes).Msg("job is pull ready")
	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}

func (rl *Relay) pull(w http.ResponseWriter, r *http.Request) {
	pin := r.URL.Query().Get("pin")
	pw := r.URL.Query().Get("pw")

	job, ok := rl.jobs.Remove(pin)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword(job.PWHash, []byte(pw)); err != nil {
		rl.jobs.Insert(pin, job)
		writeError(w, http.StatusBadRequest, "invalid credentials")
		return
	}

	if job.Status != StatusPullReady {
		writeError(w, http.StatusBadRequest, "Data is not ready")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(job.Data)
	_, _ = io.WriteString(w, "\n\n")
}
