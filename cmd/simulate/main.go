package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type bookPayload struct {
	SeatsBooked      int    `json:"seatsBooked"`
	PaymentReference string `json:"paymentReference"`
	UserID           string `json:"userId,omitempty"`
}

// Fires concurrent bookings at one ride and checks that the confirmed seat
// total never exceeds capacity.
func main() {
	api := flag.String("api", "http://localhost:8080", "API base URL")
	rideID := flag.String("ride", "", "ride id to book against")
	token := flag.String("token", "", "bearer token")
	workers := flag.Int("workers", 10, "concurrent booking attempts")
	seats := flag.Int("seats", 1, "seats per attempt")
	flag.Parse()

	if *rideID == "" {
		log.Fatal("-ride is required")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	var succeeded, rejected int64
	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			payload := bookPayload{
				SeatsBooked:      *seats,
				PaymentReference: fmt.Sprintf("sim-%d-%d", time.Now().UnixNano(), n),
				UserID:           fmt.Sprintf("sim_user_%d", n),
			}
			status, err := book(client, *api, *token, *rideID, payload)
			switch {
			case err != nil:
				log.Printf("worker %d: %v", n, err)
			case status == http.StatusOK:
				atomic.AddInt64(&succeeded, 1)
			default:
				atomic.AddInt64(&rejected, 1)
			}
		}(i)
	}
	wg.Wait()

	capacity, booked, err := rideSeats(client, *api, *token, *rideID)
	if err != nil {
		log.Fatalf("fetch ride failed: %v", err)
	}
	log.Printf("succeeded=%d rejected=%d capacity=%d booked=%d", succeeded, rejected, capacity, booked)
	if booked > capacity {
		log.Fatalf("OVERBOOKED: %d seats confirmed on a %d-seat ride", booked, capacity)
	}
	log.Printf("capacity held")
}

func book(client *http.Client, api, token, rideID string, payload bookPayload) (int, error) {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/api/rides/%s/book", api, rideID), bytes.NewBuffer(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func rideSeats(client *http.Client, api, token, rideID string) (capacity, booked int, err error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/rides/%s", api, rideID), nil)
	if err != nil {
		return 0, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, 0, fmt.Errorf("get ride status: %s", resp.Status)
	}
	var ride struct {
		AvailableSeats int `json:"availableSeats"`
		Passengers     []struct {
			SeatsBooked int    `json:"seatsBooked"`
			Status      string `json:"status"`
		} `json:"passengers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ride); err != nil {
		return 0, 0, err
	}
	for _, p := range ride.Passengers {
		if p.Status == "confirmed" {
			booked += p.SeatsBooked
		}
	}
	return ride.AvailableSeats, booked, nil
}

func init() {
	log.SetOutput(os.Stdout)
}
