package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// End-to-end smoke run against a live server: register a driver and a
// passenger, post a ride, book it while watching the ride's websocket
// channel, then rate the driver.
func main() {
	api := envOrDefault("API_BASE", "http://localhost:8080")
	wsBase := envOrDefault("WS_BASE", "ws://localhost:8080")
	stamp := time.Now().UnixNano()

	fmt.Println("Registering driver...")
	driver, err := register(api, fmt.Sprintf("smoke-driver-%d@example.com", stamp))
	if err != nil {
		log.Fatalf("driver register failed: %v", err)
	}
	if err := postJSON(api+"/api/driver/register", driver.Token, map[string]any{
		"licenseNumber": fmt.Sprintf("SMK-%d", stamp),
		"vehicle": map[string]any{
			"make":         "Honda",
			"model":        "Accord",
			"year":         2020,
			"licensePlate": fmt.Sprintf("SMK-%d", stamp%100000),
		},
	}, nil); err != nil {
		log.Fatalf("driver profile failed: %v", err)
	}
	// The register endpoint issued a passenger token; log in again to pick
	// up the driver role.
	driver, err = login(api, driver.User.Email)
	if err != nil {
		log.Fatalf("driver re-login failed: %v", err)
	}

	fmt.Println("Registering passenger...")
	passenger, err := register(api, fmt.Sprintf("smoke-rider-%d@example.com", stamp))
	if err != nil {
		log.Fatalf("passenger register failed: %v", err)
	}

	fmt.Println("Posting ride...")
	var ride struct {
		ID string `json:"id"`
	}
	if err := postJSON(api+"/api/rides", driver.Token, map[string]any{
		"origin":         map[string]any{"address": "Lagos", "latitude": 6.5244, "longitude": 3.3792},
		"destination":    map[string]any{"address": "Ibadan", "latitude": 7.3775, "longitude": 3.947},
		"departureTime":  time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"availableSeats": 3,
		"pricePerSeat":   1500,
	}, &ride); err != nil {
		log.Fatalf("post ride failed: %v", err)
	}
	fmt.Printf("Ride ID: %s\n", ride.ID)

	events := make(chan map[string]any, 5)
	go subscribeWS(wsBase, ride.ID, driver.Token, events)
	time.Sleep(500 * time.Millisecond)

	fmt.Println("Booking 2 seats...")
	if err := putJSON(api+"/api/rides/"+ride.ID+"/book", passenger.Token, map[string]any{
		"seatsBooked":      2,
		"paymentReference": fmt.Sprintf("smoke-%d", stamp),
	}, nil); err != nil {
		log.Fatalf("booking failed: %v", err)
	}

	select {
	case ev := <-events:
		fmt.Printf("WS event: %v\n", ev["type"])
	case <-time.After(3 * time.Second):
		fmt.Println("WS event not observed (timed out)")
	}

	fmt.Println("Rating the driver...")
	if err := postJSON(api+"/api/ratings", passenger.Token, map[string]any{
		"rideId":      ride.ID,
		"ratedUserId": driver.User.ID,
		"rating":      5,
		"review":      "smooth ride",
	}, nil); err != nil {
		log.Fatalf("rating failed: %v", err)
	}

	fmt.Println("Smoke run passed.")
}

type account struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Token string `json:"token"`
}

func register(api, email string) (account, error) {
	var acct account
	err := postJSON(api+"/api/auth/register", "", map[string]any{
		"email":     email,
		"password":  "smoketest123",
		"firstName": "Smoke",
		"lastName":  "Test",
	}, &acct)
	return acct, err
}

func login(api, email string) (account, error) {
	var acct account
	err := postJSON(api+"/api/auth/login", "", map[string]any{
		"email":    email,
		"password": "smoketest123",
	}, &acct)
	return acct, err
}

func postJSON(url, token string, payload, out any) error {
	return doJSON(http.MethodPost, url, token, payload, out)
}

func putJSON(url, token string, payload, out any) error {
	return doJSON(http.MethodPut, url, token, payload, out)
}

func doJSON(method, url, token string, payload, out any) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(method, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func subscribeWS(wsBase, rideID, token string, events chan<- map[string]any) {
	url := fmt.Sprintf("%s/ws/rides/%s?token=%s", wsBase, rideID, token)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Printf("ws dial failed: %v", err)
		return
	}
	defer conn.Close()
	for {
		var ev map[string]any
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		events <- ev
	}
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
