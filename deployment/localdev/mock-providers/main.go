package main

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"net/http"
	"strings"
	"time"
)

// Fakes the four provider endpoints so the engine can run its real HTTP
// adapters locally. Point the provider endpoints at this server:
//
//	PULSE_ENGINE_SPEECH_ENDPOINT=http://localhost:9090/speech
//	PULSE_ENGINE_SENTIMENT_ENDPOINT=http://localhost:9090/sentiment
//	PULSE_ENGINE_SUMMARY_ENDPOINT=http://localhost:9090/summary
//	PULSE_ENGINE_TRACKER_BASE_URL=http://localhost:9090/tracker
//
// Responses are deterministic functions of the request so repeated runs
// stay comparable.

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/speech", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AudioRef string `json:"audio_ref"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		writeJSON(w, map[string]any{
			"transcript": fmt.Sprintf(
				"yesterday I wrapped up the migration for %s, today I am pairing on the review queue, no blockers",
				req.AudioRef),
		})
	})

	mux.HandleFunc("/sentiment", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text  string `json:"text"`
			Model string `json:"model"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		labels := []string{"very_negative", "negative", "neutral", "positive", "very_positive"}
		writeJSON(w, map[string]any{
			"label":      labels[hashOf(req.Text)%uint32(len(labels))],
			"confidence": 0.65 + float64(hashOf(req.Text)%30)/100,
		})
	})

	mux.HandleFunc("/summary", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text  string `json:"text"`
			Model string `json:"model"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		summary := req.Text
		if len(summary) > 100 {
			summary = summary[:100] + "..."
		}
		writeJSON(w, map[string]any{"summary": "update: " + summary})
	})

	mux.HandleFunc("/tracker/lookup", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token string `json:"token"`
			Kind  string `json:"kind"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		if req.Kind == "unknown" || strings.TrimSpace(req.Token) == "" {
			writeJSON(w, map[string]any{"found": false})
			return
		}
		statuses := []string{"To Do", "In Progress", "In Review", "Done"}
		writeJSON(w, map[string]any{
			"found":  true,
			"title":  "Work item " + req.Token,
			"status": statuses[hashOf(req.Token)%uint32(len(statuses))],
			"url":    "https://tracker.localdev/" + req.Token,
		})
	})

	logger := log.New(log.Writer(), "providers-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":9090",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :9090")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func hashOf(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

func decodePost(w http.ResponseWriter, r *http.Request, into any) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
