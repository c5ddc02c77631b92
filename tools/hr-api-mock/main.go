package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// A simple struct to capture the incoming event data
type AttendanceComputedEvent struct {
	Identity        string    `json:"identity"`
	Day             string    `json:"day"`
	Status          string    `json:"status"`
	DurationMinutes int64     `json:"durationMinutes"`
	ComputedAt      time.Time `json:"computedAt"`
}

func attendanceHandler(w http.ResponseWriter, r *http.Request) {
	var event AttendanceComputedEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	log.Printf("Received attendance for %s on %s: %s (%d min)", event.Identity, event.Day, event.Status, event.DurationMinutes)
	w.WriteHeader(http.StatusOK)
}

func main() {
	http.HandleFunc("/", attendanceHandler)
	log.Println("HR API mock server starting on port 8081...")
	log.Fatal(http.ListenAndServe(":8081", nil))
}
