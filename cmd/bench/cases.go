// README: Bench cases; environment, API contract, microphone contention and throughput checks.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"ridesafe/internal/modules/risk"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	rider := "bench-" + uuid.NewString()[:8]
	origin := map[string]float64{"lat": 12.9716, "lon": 77.5946}
	dest := map[string]float64{"lat": 12.9816, "lon": 77.6046}

	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusSkip, Note: "dsn not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Env: risk_assessments table exists",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusSkip, Note: "dsn not configured"}
				}
				var exists bool
				err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'risk_assessments')`).Scan(&exists)
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				if !exists {
					return Result{Status: StatusFail, Note: "table missing; has the API started with a DSN?"}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: StatusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		httpCase("API: health", http.MethodGet, base+"/health", nil, http.StatusOK),
		httpCase("API: blank search returns no candidates", http.MethodGet, base+"/api/places/search?session=bench&q=", nil, http.StatusOK),
		httpCase("API: rider fix accepted", http.MethodPut, base+"/api/riders/"+rider+"/location",
			map[string]any{"lat": origin["lat"], "lon": origin["lon"], "accuracy_m": 10}, http.StatusOK),
		// 200 with a live classifier or the offline estimate; 422/502 when routing is down.
		httpCase("API: assess route from explicit origin", http.MethodPost, base+"/api/routes/assess",
			map[string]any{"origin": origin, "destination": dest}, http.StatusOK),
		httpCase("API: assess route from rider fix", http.MethodPost, base+"/api/routes/assess",
			map[string]any{"rider_id": rider, "destination": dest}, http.StatusOK),
		{
			Name: "DB: assessments logged",
			Run: func(ctx context.Context, r *Runner) Result {
				return assessmentsLogged(ctx, r)
			},
		},
		httpCase("API: manual incident without description rejected", http.MethodPost, base+"/api/incidents/manual",
			map[string]any{"user_id": rider, "type": "theft"}, http.StatusBadRequest),
		httpCase("API: manual incident filed", http.MethodPost, base+"/api/incidents/manual",
			map[string]any{"user_id": rider, "type": "near_miss", "description": "bench run", "location": "bench"},
			http.StatusCreated, http.StatusAccepted),
		httpCase("API: incident list", http.MethodGet, base+"/api/incidents?user_id="+rider, nil, http.StatusOK),
		{
			Name: "Contention: one microphone per rider",
			Run: func(ctx context.Context, r *Runner) Result {
				return microphoneContention(ctx, r, rider)
			},
		},
		{
			Name: "Perf: rider fix throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodPut, base+"/api/riders/"+rider+"/location",
					map[string]any{"lat": origin["lat"], "lon": origin["lon"]})
			},
		},
	}
}

func httpCase(name, method, url string, body any, okStatuses ...int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			status, err := r.do(ctx, method, url, body)
			latency := time.Since(start)
			if err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			if contains(okStatuses, status) {
				return Result{Status: StatusPass, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
			}
			return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
		},
	}
}

func (r *Runner) do(ctx context.Context, method, url string, body any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode, nil
}

// assessmentsLogged reads back the log the assess cases above should have
// written to. Writes are asynchronous, so it polls briefly.
func assessmentsLogged(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: StatusSkip, Note: "dsn not configured"}
	}
	log, err := risk.NewPostgresLog(ctx, r.db)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	start := time.Now()
	deadline := start.Add(3 * time.Second)
	for {
		recent, err := log.Recent(ctx, 2)
		if err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		if len(recent) > 0 {
			offline := 0
			for _, a := range recent {
				if a.IsOffline {
					offline++
				}
			}
			return Result{Status: StatusPass, Latency: time.Since(start),
				Note: fmt.Sprintf("latest=%s offline=%d/%d", recent[0].Label, offline, len(recent))}
		}
		if time.Now().After(deadline) {
			return Result{Status: StatusFail, Note: "no assessments recorded"}
		}
		select {
		case <-ctx.Done():
			return Result{Status: StatusFail, Note: ctx.Err().Error()}
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// microphoneContention opens one recording per goroutine for the same rider;
// exactly one may start.
func microphoneContention(ctx context.Context, r *Runner, rider string) Result {
	var started, busy atomic.Int64
	sessions := make([]string, r.cfg.Concurrency)
	g, gctx := errgroup.WithContext(ctx)
	for i := range sessions {
		sessions[i] = fmt.Sprintf("bench-%s-%d", rider, i)
		url := fmt.Sprintf("%s/api/recordings/%s/start?rider_id=%s", r.cfg.BaseURL, sessions[i], rider)
		g.Go(func() error {
			status, err := r.do(gctx, http.MethodPost, url, nil)
			if err != nil {
				return err
			}
			switch status {
			case http.StatusOK:
				started.Add(1)
			case http.StatusConflict:
				busy.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()

	for _, s := range sessions {
		url := fmt.Sprintf("%s/api/recordings/%s/discard?rider_id=%s", r.cfg.BaseURL, s, rider)
		_, _ = r.do(ctx, http.MethodPost, url, nil)
	}

	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	note := fmt.Sprintf("started=%d busy=%d", started.Load(), busy.Load())
	if started.Load() == 1 && busy.Load() == int64(r.cfg.Concurrency-1) {
		return Result{Status: StatusPass, Note: note}
	}
	return Result{Status: StatusFail, Note: note}
}

func perfLoad(ctx context.Context, r *Runner, method, url string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount atomic.Int64

	var g errgroup.Group
	for i := 0; i < r.cfg.Concurrency; i++ {
		g.Go(func() error {
			for time.Now().Before(end) && ctx.Err() == nil {
				if _, err := r.do(ctx, method, url, payload); err != nil {
					errCount.Add(1)
					continue
				}
				count.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if count.Load() == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count.Load()) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount.Load())}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}
