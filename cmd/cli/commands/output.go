package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

func statusColor(status model.Status) string {
	switch status {
	case model.StatusAssigned:
		return colorGreen
	case model.StatusCheckedIn:
		return colorGreen
	case model.StatusNoShow:
		return colorRed
	case model.StatusCancelled:
		return colorDim
	}
	return colorReset
}

func printBooking(w io.Writer, b model.Booking) {
	forced := ""
	if b.Forced {
		forced = colorYellow + " (double booked)" + colorReset
	}
	fmt.Fprintf(w, "  %s  %s  %02d:00-%02d:00  %-12s %-10s %s%s%s%s\n",
		b.ID, b.Date, b.StartHour, b.EndHour, b.LocationID, b.VolunteerID,
		statusColor(b.Status), b.Status, colorReset, forced)
}

func printBookings(w io.Writer, bookings []model.Booking) {
	if len(bookings) == 0 {
		fmt.Fprintln(w, "No bookings found.")
		return
	}
	for _, b := range bookings {
		printBooking(w, b)
	}
	fmt.Fprintln(w)
}

// confirm asks a yes/no question; anything but y or yes is no
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
