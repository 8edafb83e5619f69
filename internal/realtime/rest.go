package realtime

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"

	"timerlist/internal/producer"
	"timerlist/internal/protocol"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleGetTimers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.State())
}

// handleAddTimer accepts either a JSON body or a form-encoded body with
// name and duration fields.
func (s *Server) handleAddTimer(w http.ResponseWriter, r *http.Request) {
	fields, err := readTimerFields(r)
	if err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	state := s.producer.Submit(fields, nil)
	writeJSON(w, http.StatusCreated, state)
}

func readTimerFields(r *http.Request) (map[string]string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && err != http.ErrNotMultipart {
			return nil, err
		}
		return map[string]string{
			producer.FieldName:     r.PostFormValue(producer.FieldName),
			producer.FieldDuration: r.PostFormValue(producer.FieldDuration),
		}, nil
	default:
		var req protocol.TimersAddPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		return req.Fields(), nil
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Start())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Stop())
}

// handleHistory returns retained change events, optionally only those
// after ?since=<seq>.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r)
	if err != nil {
		http.Error(w, `{"error":"invalid since"}`, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.store.History(since))
}

// parseSince reads the optional since query parameter; absent means 0.
func parseSince(r *http.Request) (uint64, error) {
	v := r.URL.Query().Get("since")
	if v == "" {
		return 0, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
