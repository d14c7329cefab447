package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Load generator for a running api-server. Workers hammer a small set of
// physicians with deliberately overlapping booking requests, mixed with
// cancels and reads, then the final verification pass pulls every schedule
// and asserts that no two active appointments overlap. If the per-physician
// locking in the engine is broken, this is the tool that catches it.

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	Physicians   int
	Patients     int
	BookingRatio float64
	CancelRatio  float64
	ReadRatio    float64
}

type DataPool struct {
	Physicians []uuid.UUID
	Patients   []uuid.UUID

	mu           sync.RWMutex
	appointments []booked
}

type booked struct {
	ID          uuid.UUID
	PhysicianID uuid.UUID
}

func (dp *DataPool) Add(id, physicianID uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, booked{ID: id, PhysicianID: physicianID})
}

func (dp *DataPool) Random(rng *rand.Rand) (booked, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return booked{}, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total    int64
	Success  int64
	Conflict int64
	Error    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.latencies))
	copy(latencies, om.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[len(latencies)*50/100]
	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]
	return avg, min, max, p50, p95
}

type Metrics struct {
	Booking OperationMetrics
	Cancel  OperationMetrics
	Read    OperationMetrics
	NextFit OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	days    []time.Time
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d physicians=%d booking=%.2f cancel=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.Physicians, cfg.BookingRatio, cfg.CancelRatio, cfg.ReadRatio)

	pool := &DataPool{}
	for i := 0; i < cfg.Physicians; i++ {
		pool.Physicians = append(pool.Physicians, uuid.New())
	}
	for i := 0; i < cfg.Patients; i++ {
		pool.Patients = append(pool.Patients, uuid.New())
	}

	sim := &Simulator{
		config: cfg,
		pool:   pool,
		client: &http.Client{Timeout: 10 * time.Second},
		days:   nextBusinessDays(5),
	}

	sim.Run()
	sim.PrintReport()

	if err := sim.VerifyNoDoubleBookings(); err != nil {
		log.Fatalf("VERIFICATION FAILED: %v", err)
	}
	log.Println("verification passed: no overlapping active appointments on any physician")
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		Physicians:   getInt("SIM_PHYSICIANS", 4),
		Patients:     getInt("SIM_PATIENTS", 200),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.6),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.1),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
	}

	total := cfg.BookingRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Physicians <= 0 {
		return fmt.Errorf("SIM_PHYSICIANS must be > 0")
	}
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng)
			case r < s.config.BookingRatio+s.config.CancelRatio:
				s.doCancel(ctx, rng)
			default:
				if rng.Intn(2) == 0 {
					s.doRead(ctx, rng)
				} else {
					s.doNextAvailable(ctx, rng)
				}
			}
		}
	}
}

// doBooking requests a window drawn from a small grid, so collisions between
// workers happen constantly on purpose.
func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	physicianID := s.pool.Physicians[rng.Intn(len(s.pool.Physicians))]
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	day := s.days[rng.Intn(len(s.days))]

	hour := 8 + rng.Intn(8)
	minute := 15 * rng.Intn(4)
	dur := 15 * (1 + rng.Intn(4))
	startAt := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)

	reqBody := map[string]any{
		"physician_id":     physicianID.String(),
		"patient_id":       patientID.String(),
		"start":            startAt.Format(time.RFC3339),
		"duration_minutes": dur,
		"reason_for_visit": "load test",
	}
	body, _ := json.Marshal(reqBody)

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, "POST", s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success, conflict := false, false
	if err == nil {
		defer resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusCreated:
			success = true
			var opResp struct {
				Appointment struct {
					ID uuid.UUID `json:"id"`
				} `json:"appointment"`
			}
			bodyBytes, _ := io.ReadAll(resp.Body)
			if json.Unmarshal(bodyBytes, &opResp) == nil && opResp.Appointment.ID != uuid.Nil {
				s.pool.Add(opResp.Appointment.ID, physicianID)
			}
		case http.StatusConflict:
			conflict = true
		}
	}

	s.metrics.Booking.Record(latency, success, conflict)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.pool.Random(rng)
	if !ok {
		return
	}

	reqBody := map[string]string{
		"physician_id": appt.PhysicianID.String(),
		"reason":       "simulated cancellation",
	}
	body, _ := json.Marshal(reqBody)

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/appointments/%s/cancel", s.config.APIBaseURL, appt.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success, conflict := false, false
	if err == nil {
		defer resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusOK:
			success = true
		case http.StatusConflict:
			// Already cancelled by another worker.
			conflict = true
		}
	}

	s.metrics.Cancel.Record(latency, success, conflict)
}

func (s *Simulator) doRead(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.pool.Random(rng)
	if !ok {
		return
	}

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/appointments/%s", s.config.APIBaseURL, appt.ID), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.Read.Record(latency, success, false)
}

func (s *Simulator) doNextAvailable(ctx context.Context, rng *rand.Rand) {
	physicianID := s.pool.Physicians[rng.Intn(len(s.pool.Physicians))]

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/physicians/%s/next-available?duration_minutes=30", s.config.APIBaseURL, physicianID), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound
	}

	s.metrics.NextFit.Record(latency, success, false)
}

// VerifyNoDoubleBookings pulls every physician's schedule over the simulated
// days and checks the pairwise overlap invariant on active appointments.
func (s *Simulator) VerifyNoDoubleBookings() error {
	type apptJSON struct {
		ID     uuid.UUID `json:"id"`
		Start  time.Time `json:"start"`
		End    time.Time `json:"end"`
		Status string    `json:"status"`
	}

	rangeStart := s.days[0].Format(time.RFC3339)
	rangeEnd := s.days[len(s.days)-1].AddDate(0, 0, 1).Format(time.RFC3339)

	for _, physicianID := range s.pool.Physicians {
		url := fmt.Sprintf("%s/physicians/%s/schedule?start=%s&end=%s",
			s.config.APIBaseURL, physicianID, rangeStart, rangeEnd)
		resp, err := s.client.Get(url)
		if err != nil {
			return fmt.Errorf("fetch schedule for %s: %w", physicianID, err)
		}

		var appts []apptJSON
		err = json.NewDecoder(resp.Body).Decode(&appts)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode schedule for %s: %w", physicianID, err)
		}

		active := appts[:0]
		for _, a := range appts {
			if a.Status != "cancelled" {
				active = append(active, a)
			}
		}
		sort.Slice(active, func(i, j int) bool { return active[i].Start.Before(active[j].Start) })

		for i := 1; i < len(active); i++ {
			if active[i].Start.Before(active[i-1].End) {
				return fmt.Errorf("physician %s: %s (%s-%s) overlaps %s (%s-%s)",
					physicianID,
					active[i-1].ID, active[i-1].Start, active[i-1].End,
					active[i].ID, active[i].Start, active[i].End)
			}
		}
	}
	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Read by ID", &s.metrics.Read)
	printOperationReport("Next Available", &s.metrics.NextFit)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failures := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failures > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failures, float64(failures)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

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

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
