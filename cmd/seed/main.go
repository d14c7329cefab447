package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// Seeds a running api-server with a believable clinic week: a handful of
// physicians, a pool of patients, and a spread of bookings over the next
// five business days. The engine keeps schedules in memory, so seeding goes
// through the HTTP API of the live process.

type bookRequest struct {
	PatientID       string `json:"patient_id"`
	PhysicianID     string `json:"physician_id"`
	Start           string `json:"start"`
	DurationMinutes int    `json:"duration_minutes"`
	ReasonForVisit  string `json:"reason_for_visit,omitempty"`
	Notes           string `json:"notes,omitempty"`
	RoomNumber      string `json:"room_number,omitempty"`
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}

	gofakeit.Seed(time.Now().UnixNano())

	physicians := make([]uuid.UUID, 8)
	for i := range physicians {
		physicians[i] = uuid.New()
	}
	patients := make([]uuid.UUID, 60)
	for i := range patients {
		patients[i] = uuid.New()
	}

	reasons := []string{
		"Annual physical",
		"Follow-up visit",
		"Flu symptoms",
		"Back pain",
		"Medication review",
		"Lab results discussion",
		"Blood pressure check",
		"Referral consultation",
	}
	durations := []int{15, 30, 30, 45, 60}

	client := &http.Client{Timeout: 5 * time.Second}

	booked, rejected := 0, 0
	for _, day := range nextBusinessDays(5) {
		for _, physicianID := range physicians {
			// A partially filled day per physician.
			slots := gofakeit.Number(3, 7)
			hour := 8
			for i := 0; i < slots && hour < 16; i++ {
				dur := durations[gofakeit.Number(0, len(durations)-1)]
				start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC)

				req := bookRequest{
					PatientID:       patients[gofakeit.Number(0, len(patients)-1)].String(),
					PhysicianID:     physicianID.String(),
					Start:           start.Format(time.RFC3339),
					DurationMinutes: dur,
					ReasonForVisit:  reasons[gofakeit.Number(0, len(reasons)-1)],
					RoomNumber:      fmt.Sprintf("%d", gofakeit.Number(100, 120)),
				}
				ok, err := book(client, baseURL, req)
				if err != nil {
					log.Fatalf("booking request failed: %v", err)
				}
				if ok {
					booked++
				} else {
					rejected++
				}

				// Leave gaps so slot search has something to find.
				hour += 1 + gofakeit.Number(0, 1)
			}
		}
	}

	log.Printf("seed complete: booked=%d rejected=%d", booked, rejected)
	log.Println("physician ids:")
	for _, id := range physicians {
		log.Printf("  %s", id)
	}
}

func book(client *http.Client, baseURL string, req bookRequest) (bool, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return false, err
	}

	resp, err := client.Post(baseURL+"/appointments", "application/json", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusCreated:
		return true, nil
	case http.StatusConflict:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status %d booking %s", resp.StatusCode, req.Start)
	}
}

// nextBusinessDays returns the next n weekdays, starting tomorrow.
func nextBusinessDays(n int) []time.Time {
	var days []time.Time
	day := time.Now().UTC().AddDate(0, 0, 1)
	for len(days) < n {
		switch day.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			days = append(days, day)
		}
		day = day.AddDate(0, 0, 1)
	}
	return days
}
