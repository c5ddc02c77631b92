package main

import (
	"bytes"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Simulates a fleet of push-protocol terminals: each device heartbeats every
// few seconds and periodically pushes an ATTLOG batch.
func main() {
	// Configuration
	baseURL := "http://localhost:8080"

	numDevices := 20
	punchesPerBatch := 10
	batches := 5
	heartbeatEvery := 3 * time.Second
	runFor := 60 * time.Second

	fmt.Printf("Starting device simulation: %d devices against %s for %v\n", numDevices, baseURL, runFor)

	var wg sync.WaitGroup
	var heartbeats int64
	var pushes int64
	var failures int64

	deadline := time.Now().Add(runFor)

	for i := 0; i < numDevices; i++ {
		wg.Add(1)
		serial := fmt.Sprintf("SIM%04d", i)

		go func(serial string) {
			defer wg.Done()

			pushed := 0
			for time.Now().Before(deadline) {
				// Heartbeat poll, like a real terminal asking for commands
				resp, err := http.Get(fmt.Sprintf("%s/iclock/getrequest?SN=%s", baseURL, serial))
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					resp.Body.Close()
					atomic.AddInt64(&heartbeats, 1)
				}

				// Occasionally push a punch batch
				if pushed < batches && rand.Intn(4) == 0 {
					payload := buildBatch(serial, punchesPerBatch)
					resp, err := http.Post(
						fmt.Sprintf("%s/iclock/cdata?SN=%s&table=ATTLOG", baseURL, serial),
						"text/plain", bytes.NewBufferString(payload))
					if err != nil {
						atomic.AddInt64(&failures, 1)
					} else {
						resp.Body.Close()
						atomic.AddInt64(&pushes, 1)
						pushed++
					}
				}

				time.Sleep(heartbeatEvery)
			}
		}(serial)
	}

	wg.Wait()

	fmt.Println("\n--- Simulation Results ---")
	fmt.Printf("Heartbeats: %d\n", heartbeats)
	fmt.Printf("Pushes:     %d\n", pushes)
	fmt.Printf("Failures:   %d\n", failures)
}

// buildBatch produces a tab-separated ATTLOG payload with n punches spread
// over the current day.
func buildBatch(serial string, n int) string {
	var buf bytes.Buffer
	base := time.Now().UTC().Truncate(24 * time.Hour).Add(8 * time.Hour)

	for i := 0; i < n; i++ {
		identity := fmt.Sprintf("%s-emp-%d", serial, rand.Intn(50))
		ts := base.Add(time.Duration(rand.Intn(600)) * time.Minute)
		fmt.Fprintf(&buf, "%s\t%s\t0\t1\n", identity, ts.Format("2006-01-02 15:04:05"))
	}
	return buf.String()
}
