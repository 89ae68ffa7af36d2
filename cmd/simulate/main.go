package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hackgods/patient-appointment-agent/internal/events"
	"github.com/hackgods/patient-appointment-agent/internal/functions"
)

type SimConfig struct {
	APIBaseURL string
	Patients   int
	Workers    int
	Timeout    time.Duration
	Seed       uint64
	// UnavailableRatio is the share of patients asking for a doctor who is
	// never available, which exercises the on-call fallback.
	UnavailableRatio float64
}

type OperationMetrics struct {
	Total         int64
	Success       int64
	ErrorResponse int64
	Failed        int64
	Latencies     []time.Duration
	mu            sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, outcome callOutcome) {
	atomic.AddInt64(&om.Total, 1)
	switch outcome {
	case outcomeSuccess:
		atomic.AddInt64(&om.Success, 1)
	case outcomeErrorResponse:
		atomic.AddInt64(&om.ErrorResponse, 1)
	default:
		atomic.AddInt64(&om.Failed, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentileIndex(n, pct int) int {
	idx := n * pct / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type callOutcome int

const (
	outcomeSuccess callOutcome = iota
	outcomeErrorResponse
	outcomeFailed
)

// envelope mirrors the function result the agent receives.
type envelope struct {
	ErrorResponse  string          `json:"errorResponse"`
	FunctionResult json.RawMessage `json:"functionResult"`
}

type webhookResult struct {
	EventID      string    `json:"eventId"`
	FunctionName string    `json:"functionName"`
	Response     *envelope `json:"response"`
	Error        string    `json:"error"`
}

type webhookResponse struct {
	Results []webhookResult `json:"results"`
}

type Simulator struct {
	config   SimConfig
	client   *http.Client
	metrics  map[string]*OperationMetrics
	booked   int64
	onCall   int64
	gaveUp   int64
	fakerMu  sync.Mutex
	faker    *gofakeit.Faker
	patients chan int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := SimConfig{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive fake patients through the appointment workflow via the webhook",
		Long: `simulate posts function call events to a running api-server, walking each
fake patient from registration through symptoms, doctor and time slot
preferences to a booked appointment. A per-function latency report is
printed at the end.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateConfig(cfg); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.APIBaseURL, "base-url", "http://localhost:8080", "api-server base URL")
	flags.IntVar(&cfg.Patients, "patients", 50, "number of fake patients to book")
	flags.IntVar(&cfg.Workers, "workers", 5, "concurrent patient conversations")
	flags.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "per-request timeout")
	flags.Uint64Var(&cfg.Seed, "seed", 0, "faker seed, 0 picks a random one")
	flags.Float64Var(&cfg.UnavailableRatio, "unavailable-ratio", 0.3, "share of patients preferring an unavailable doctor")
	return cmd
}

func validateConfig(cfg SimConfig) error {
	if cfg.APIBaseURL == "" {
		return fmt.Errorf("--base-url is required")
	}
	if cfg.Patients <= 0 {
		return fmt.Errorf("--patients must be > 0")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("--workers must be > 0")
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("--timeout must be > 0")
	}
	if cfg.UnavailableRatio < 0 || cfg.UnavailableRatio > 1 {
		return fmt.Errorf("--unavailable-ratio must be between 0 and 1")
	}
	return nil
}

func run(ctx context.Context, cfg SimConfig) error {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("config: base-url=%s patients=%d workers=%d timeout=%s",
		cfg.APIBaseURL, cfg.Patients, cfg.Workers, cfg.Timeout)

	sim := NewSimulator(cfg)
	start := time.Now()
	sim.Run(ctx)
	sim.PrintReport(time.Since(start))
	return nil
}

func NewSimulator(cfg SimConfig) *Simulator {
	m := make(map[string]*OperationMetrics, len(functions.Names))
	for _, name := range functions.Names {
		m[name] = &OperationMetrics{}
	}
	return &Simulator{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		metrics: m,
		faker:   gofakeit.New(cfg.Seed),
	}
}

func (s *Simulator) Run(ctx context.Context) {
	s.patients = make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx)
		}()
	}

feed:
	for i := 0; i < s.config.Patients; i++ {
		select {
		case <-ctx.Done():
			break feed
		case s.patients <- i:
		}
	}
	close(s.patients)

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context) {
	for range s.patients {
		if ctx.Err() != nil {
			return
		}
		s.bookPatient(ctx, s.newPatient())
	}
}

type fakePatient struct {
	Identity  functions.PatientArgs
	Channel   uuid.UUID
	Symptoms  []string
	Doctor    string
	TimeSlots []string
}

var symptomPool = []string{
	"headache", "fever", "cough", "sore throat", "itchy eyes", "redness",
	"back pain", "fatigue", "nausea", "dizziness", "rash", "shortness of breath",
}

var (
	availableDoctors   = []string{"Dr. Bob Seuss", "Dr. Sam Smith"}
	unavailableDoctors = []string{"Dr. Jane Foster", "Dr. Ravi Patel", "Dr. Maria Lopez"}
)

// newPatient draws a patient from the shared faker. Draws for one patient
// are kept together so a fixed seed reproduces the same patients.
func (s *Simulator) newPatient() fakePatient {
	s.fakerMu.Lock()
	defer s.fakerMu.Unlock()
	f := s.faker

	p := fakePatient{
		Identity: functions.PatientArgs{
			FirstName:   f.FirstName(),
			LastName:    f.LastName(),
			InsuranceID: f.Numerify("ID#####"),
		},
		Channel: uuid.New(),
	}

	n := f.Number(1, 3)
	for i := 0; i < n; i++ {
		p.Symptoms = append(p.Symptoms, f.RandomString(symptomPool))
	}

	if f.Float64Range(0, 1) < s.config.UnavailableRatio {
		p.Doctor = f.RandomString(unavailableDoctors)
	} else {
		p.Doctor = f.RandomString(availableDoctors)
	}

	day := time.Now().UTC().AddDate(0, 0, f.Number(1, 30)).Truncate(24 * time.Hour)
	slots := f.Number(1, 3)
	for i := 0; i < slots; i++ {
		slot := day.Add(time.Duration(f.Number(8, 17)) * time.Hour)
		p.TimeSlots = append(p.TimeSlots, slot.Format(time.RFC3339))
	}
	return p
}

// bookPatient walks one conversation. It stops at the first step whose
// envelope carries an error, except for the availability check which falls
// back to the on-call doctor.
func (s *Simulator) bookPatient(ctx context.Context, p fakePatient) {
	id := p.Identity

	steps := []struct {
		name   string
		params any
	}{
		{functions.RegisterPatient, id},
		{functions.StoreSymptoms, functions.StoreSymptomsArgs{PatientArgs: id, Symptoms: p.Symptoms}},
		{functions.StorePreferredDoctorDetails, functions.StorePreferredDoctorArgs{PatientArgs: id, PreferredDoctorName: p.Doctor}},
		{functions.StorePreferredTimeSlots, functions.StorePreferredTimeSlotsArgs{PatientArgs: id, PreferredAppointmentTimes: p.TimeSlots}},
	}
	for _, step := range steps {
		env, ok := s.call(ctx, p.Channel, step.name, step.params)
		if !ok || env.ErrorResponse != "" {
			atomic.AddInt64(&s.gaveUp, 1)
			return
		}
	}

	env, ok := s.call(ctx, p.Channel, functions.CheckPreferredDoctorAvailabilityAndScheduleVisit, id)
	if !ok {
		atomic.AddInt64(&s.gaveUp, 1)
		return
	}
	if env.ErrorResponse == "" {
		atomic.AddInt64(&s.booked, 1)
		return
	}

	env, ok = s.call(ctx, p.Channel, functions.ScheduleAppointmentWithOnCallDoctor, id)
	if !ok || env.ErrorResponse != "" {
		atomic.AddInt64(&s.gaveUp, 1)
		return
	}
	atomic.AddInt64(&s.onCall, 1)
	s.call(ctx, p.Channel, functions.RetrievePatientRegistrationInfo, id)
}

// call posts a single function call event to the webhook and returns the
// envelope the server produced for it.
func (s *Simulator) call(ctx context.Context, channel uuid.UUID, name string, params any) (envelope, bool) {
	om := s.metrics[name]

	ev, err := events.NewFunctionCallEvent(channel, "simulator", name, params)
	if err != nil {
		log.Printf("%s: build event: %v", name, err)
		om.Record(0, outcomeFailed)
		return envelope{}, false
	}
	body, err := json.Marshal([]events.GridEvent{ev})
	if err != nil {
		log.Printf("%s: encode event: %v", name, err)
		om.Record(0, outcomeFailed)
		return envelope{}, false
	}

	start := time.Now()
	env, err := s.post(ctx, body)
	latency := time.Since(start)
	if err != nil {
		log.Printf("%s: %v", name, err)
		om.Record(latency, outcomeFailed)
		return envelope{}, false
	}

	if env.ErrorResponse != "" {
		om.Record(latency, outcomeErrorResponse)
	} else {
		om.Record(latency, outcomeSuccess)
	}
	return env, true
}

func (s *Simulator) post(ctx context.Context, body []byte) (envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/api/updates", bytes.NewReader(body))
	if err != nil {
		return envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(events.HeaderEventType, events.Notification)

	resp, err := s.client.Do(req)
	if err != nil {
		return envelope{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return envelope{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out webhookResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return envelope{}, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Results) == 0 {
		return envelope{}, fmt.Errorf("no results in response")
	}
	res := out.Results[0]
	if res.Error != "" {
		return envelope{}, fmt.Errorf("event %s: %s", res.EventID, res.Error)
	}
	if res.Response == nil {
		return envelope{}, fmt.Errorf("event %s: no function response", res.EventID)
	}
	return *res.Response, nil
}

func (s *Simulator) PrintReport(elapsed time.Duration) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Elapsed: %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Patients: %d  Workers: %d\n", s.config.Patients, s.config.Workers)
	fmt.Printf("Booked with preferred doctor: %d\n", atomic.LoadInt64(&s.booked))
	fmt.Printf("Booked with on-call doctor: %d\n", atomic.LoadInt64(&s.onCall))
	fmt.Printf("Abandoned: %d\n", atomic.LoadInt64(&s.gaveUp))
	fmt.Println()

	for _, name := range functions.Names {
		printOperationReport(name, s.metrics[name])
	}
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	errResp := atomic.LoadInt64(&om.ErrorResponse)
	failed := atomic.LoadInt64(&om.Failed)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if errResp > 0 {
		fmt.Printf("  Error responses: %d (%.1f%%)\n", errResp, float64(errResp)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Failed: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}
