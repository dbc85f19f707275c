package trip

// BookedSeats sums seats over confirmed bookings. Pending and cancelled
// bookings hold no capacity.
func BookedSeats(passengers []Booking) int {
	var total int
	for _, b := range passengers {
		if b.Status == BookingConfirmed {
			total += b.SeatsBooked
		}
	}
	return total
}

// RemainingSeats computes capacity left on the ride at call time. The result
// can be negative if overlapping bookings ever slipped past the capacity
// check; callers must treat a negative value as "no seats available".
func RemainingSeats(ride Ride) int {
	return ride.AvailableSeats - BookedSeats(ride.Passengers)
}

// AggregateRatings computes the arithmetic mean and count over all ratings a
// user has received. Empty input yields a zero aggregate.
func AggregateRatings(ratings []Rating) RatingAggregate {
	if len(ratings) == 0 {
		return RatingAggregate{}
	}
	var sum int
	for _, r := range ratings {
		sum += r.Stars
	}
	return RatingAggregate{
		Average: float64(sum) / float64(len(ratings)),
		Count:   len(ratings),
	}
}
