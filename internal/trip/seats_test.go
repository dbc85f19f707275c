package trip

import (
	"math"
	"testing"
)

func TestBookedSeats(t *testing.T) {
	tests := []struct {
		name       string
		passengers []Booking
		want       int
	}{
		{"no passengers", nil, 0},
		{"single confirmed", []Booking{{SeatsBooked: 2, Status: BookingConfirmed}}, 2},
		{"pending ignored", []Booking{{SeatsBooked: 2, Status: BookingPending}}, 0},
		{"cancelled ignored", []Booking{{SeatsBooked: 3, Status: BookingCancelled}}, 0},
		{
			"mixed statuses",
			[]Booking{
				{SeatsBooked: 2, Status: BookingConfirmed},
				{SeatsBooked: 1, Status: BookingPending},
				{SeatsBooked: 3, Status: BookingCancelled},
				{SeatsBooked: 1, Status: BookingConfirmed},
			},
			3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BookedSeats(tt.passengers); got != tt.want {
				t.Errorf("BookedSeats() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRemainingSeats(t *testing.T) {
	tests := []struct {
		name string
		ride Ride
		want int
	}{
		{"empty ride", Ride{AvailableSeats: 4}, 4},
		{
			"partially booked",
			Ride{AvailableSeats: 4, Passengers: []Booking{{SeatsBooked: 3, Status: BookingConfirmed}}},
			1,
		},
		{
			"fully booked",
			Ride{AvailableSeats: 2, Passengers: []Booking{
				{SeatsBooked: 1, Status: BookingConfirmed},
				{SeatsBooked: 1, Status: BookingConfirmed},
			}},
			0,
		},
		{
			"overbooked goes negative",
			Ride{AvailableSeats: 2, Passengers: []Booking{
				{SeatsBooked: 2, Status: BookingConfirmed},
				{SeatsBooked: 1, Status: BookingConfirmed},
			}},
			-1,
		},
		{
			"pending does not consume",
			Ride{AvailableSeats: 3, Passengers: []Booking{
				{SeatsBooked: 2, Status: BookingPending},
				{SeatsBooked: 1, Status: BookingConfirmed},
			}},
			2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemainingSeats(tt.ride); got != tt.want {
				t.Errorf("RemainingSeats() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAggregateRatings(t *testing.T) {
	tests := []struct {
		name    string
		stars   []int
		wantAvg float64
		wantN   int
	}{
		{"empty", nil, 0, 0},
		{"single", []int{4}, 4, 1},
		{"uniform", []int{5, 5, 5}, 5, 3},
		{"mixed", []int{1, 2, 3, 4, 5}, 3, 5},
		{"non-integral mean", []int{5, 4}, 4.5, 2},
		{"thirds", []int{5, 4, 4}, 13.0 / 3.0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratings := make([]Rating, len(tt.stars))
			for i, s := range tt.stars {
				ratings[i] = Rating{Stars: s}
			}
			got := AggregateRatings(ratings)
			if got.Count != tt.wantN {
				t.Errorf("Count = %d, want %d", got.Count, tt.wantN)
			}
			if math.Abs(got.Average-tt.wantAvg) > 1e-9 {
				t.Errorf("Average = %v, want %v", got.Average, tt.wantAvg)
			}
		})
	}
}
