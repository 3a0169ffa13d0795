package handlers

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strconv"
)

type Handler interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// clampCount parses a numeric query parameter defensively: integer-floored,
// never below 1, never above max. The core never sees a negative or
// fractional count.
func clampCount(raw string, def, max int) int {
	if raw == "" {
		return clampInt(def, def, max)
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return clampInt(def, def, max)
	}
	return clampInt(int(math.Floor(parsed)), def, max)
}

func clampInt(value, def, max int) int {
	if value < 1 {
		value = def
	}
	if value < 1 {
		value = 1
	}
	if value > max {
		value = max
	}
	return value
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
