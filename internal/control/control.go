package control

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"frame-cache/internal/cache"
)

// Handlers serves the control surface over the cache.
type Handlers struct {
	cache *cache.Cache
}

// New creates the control handlers.
func New(c *cache.Cache) *Handlers {
	return &Handlers{cache: c}
}

// commandEntry is one registered control command. Exactly the listed names
// exist; there is no dynamic dispatch into the cache's method set.
type commandEntry struct {
	get func(h *Handlers) (interface{}, error)
	set func(h *Handlers, value string) error
	act func(h *Handlers) error
}

var commandTable = map[string]commandEntry{
	"paused": {
		get: func(h *Handlers) (interface{}, error) {
			return h.cache.State() == cache.StatePaused, nil
		},
		set: func(h *Handlers, value string) error {
			paused, err := parseBoolValue(value)
			if err != nil {
				return err
			}
			return h.cache.PauseLooping(paused)
		},
	},
	"update_cache": {
		act: func(h *Handlers) error {
			return h.cache.UpdateCache()
		},
	},
}

// Router builds the control surface routes.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/api/control", h.Control).Methods("GET", "POST")
	r.HandleFunc("/api/query", h.Query).Methods("GET")
	r.HandleFunc("/api/file_info", h.FileInfo).Methods("GET")
	return r
}

// Control dispatches registered commands. Each query parameter is one
// command: an empty value reads the current state, a non-empty value is a
// set or action. Unknown command names are rejected outright.
func (h *Handlers) Control(w http.ResponseWriter, r *http.Request) {
	message := map[string]interface{}{}

	for name, values := range r.URL.Query() {
		entry, ok := commandTable[name]
		if !ok {
			writeJSONError(w, "unknown command: "+name, http.StatusBadRequest)
			return
		}

		value := ""
		if len(values) > 0 {
			value = values[0]
		}

		switch {
		case value == "" && entry.get != nil:
			result, err := entry.get(h)
			if err != nil {
				writeJSONError(w, err.Error(), http.StatusInternalServerError)
				return
			}
			message[name] = result
		case entry.act != nil:
			if err := entry.act(h); err != nil {
				writeJSONError(w, err.Error(), http.StatusInternalServerError)
				return
			}
			message[name] = "ok"
		case entry.set != nil:
			if err := entry.set(h, value); err != nil {
				writeJSONError(w, err.Error(), http.StatusBadRequest)
				return
			}
			if entry.get != nil {
				current, err := entry.get(h)
				if err == nil {
					message[name] = current
				}
			} else {
				message[name] = "ok"
			}
		default:
			writeJSONError(w, "command not readable: "+name, http.StatusBadRequest)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, message)
}

// QueryResponse is the result of a slideshow query.
type QueryResponse struct {
	Slots [][]int64 `json:"slots"`
	Count int       `json:"count"`
}

// Query evaluates a filter/sort expression and returns ordered slots.
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	sort := r.URL.Query().Get("sort")

	slots, err := h.cache.Query(filter, sort)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := QueryResponse{Slots: make([][]int64, 0, len(slots)), Count: len(slots)}
	for _, slot := range slots {
		response.Slots = append(response.Slots, slot)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// FileInfo returns the joined record for one file id.
func (h *Handlers) FileInfo(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeJSONError(w, "invalid id", http.StatusBadRequest)
		return
	}

	info, err := h.cache.GetFileInfo(r.Context(), id)
	if err != nil {
		writeJSONError(w, "file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, info)
}

func parseBoolValue(value string) (bool, error) {
	switch value {
	case "true", "on", "yes", "1":
		return true, nil
	case "false", "off", "no", "0":
		return false, nil
	}
	return strconv.ParseBool(value)
}
