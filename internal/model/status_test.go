package model

import "testing"

func TestClassifySeats(t *testing.T) {
	tests := []struct {
		name   string
		seats  int
		booked int
		want   SeatStatus
	}{
		{"empty ride", 10, 0, SeatsAvailable},
		{"below threshold", 10, 7, SeatsAvailable},
		{"at threshold", 10, 8, SeatsNearlyFull},
		{"above threshold", 10, 9, SeatsNearlyFull},
		{"all booked", 10, 10, SeatsFull},
		{"single seat free", 1, 0, SeatsAvailable},
		{"single seat taken", 1, 1, SeatsFull},
		{"zero capacity", 0, 0, SeatsFull},
		{"overbooked document", 10, 12, SeatsFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifySeats(tt.seats, tt.booked); got != tt.want {
				t.Errorf("ClassifySeats(%d, %d) = %q, want %q", tt.seats, tt.booked, got, tt.want)
			}
		})
	}
}

func TestSeatStatusFullIffNoSeatsLeft(t *testing.T) {
	for booked := 0; booked <= 10; booked++ {
		r := Ride{Seats: 10, BookedSeats: booked}
		full := r.SeatStatus() == SeatsFull
		if full != (booked == 10) {
			t.Errorf("seats=10 booked=%d: full=%v", booked, full)
		}
	}
}
