package cycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimechecker/internal/alert"
	"github.com/hamed0406/uptimechecker/internal/domain"
	"github.com/hamed0406/uptimechecker/internal/probe"
	"github.com/hamed0406/uptimechecker/internal/repo"
)

// ErrStorageUnavailable aborts a whole cycle; the next invocation starts over.
var ErrStorageUnavailable = errors.New("storage unavailable")

type Stage string

const (
	StageStart    Stage = "start"
	StageProbe    Stage = "probe"
	StageClassify Stage = "classify"
	StagePersist  Stage = "persist"
	StageEvaluate Stage = "evaluate_alert"
	StageAlert    Stage = "record_alert"
	StageNotify   Stage = "notify"
	StageDone     Stage = "done"
	StageFailed   Stage = "failed"
)

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Outcome is where one endpoint's pipeline ended in a cycle.
type Outcome struct {
	URL            string                `json:"url"`
	Stage          Stage                 `json:"stage"` // StageDone or StageFailed
	FailedAt       Stage                 `json:"failed_at,omitempty"`
	Error          string                `json:"error,omitempty"`
	StatusCode     int                   `json:"status_code,omitempty"`
	ElapsedMS      float64               `json:"elapsed_ms,omitempty"`
	Classification domain.Classification `json:"classification,omitempty"`
	Alerted        bool                  `json:"alerted"`
	AlertID        int64                 `json:"alert_id,omitempty"`
	Suppressed     bool                  `json:"suppressed,omitempty"`
}

type Report struct {
	CycleID   string    `json:"cycle_id"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Outcomes  []Outcome `json:"outcomes"`
}

type Orchestrator struct {
	Logger      *zap.Logger
	Endpoints   []domain.Endpoint
	Prober      probe.Prober
	Open        repo.Opener
	Notifier    Notifier
	Alerting    alert.Config
	Concurrency int
	Now         func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Run drives one poll cycle over every configured endpoint. The only error
// it returns is ErrStorageUnavailable; everything else is logged and
// reported per endpoint.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	rep := Report{CycleID: uuid.NewString(), StartedAt: o.now().UTC()}
	log := o.Logger.With(zap.String("cycle_id", rep.CycleID))
	log.Info("cycle_started", zap.Int("endpoints", len(o.Endpoints)))

	store, err := o.Open(ctx)
	if err != nil {
		log.Error("cycle_storage_unavailable", zap.Error(err))
		return rep, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("storage_close_error", zap.Error(err))
		}
	}()

	if err := store.Provision(ctx); err != nil {
		// best effort: writes below may fail individually
		log.Error("storage_provision_error", zap.Error(err))
	}

	dedup := alert.New(store, store, o.Alerting, o.Now)

	concurrency := o.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	rep.Outcomes = make([]Outcome, len(o.Endpoints))
	for i, ep := range o.Endpoints {
		i, ep := i, ep
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()
			rep.Outcomes[i] = o.process(ctx, log, store, dedup, ep)
		}()
	}
	wg.Wait()

	rep.Duration = time.Since(rep.StartedAt).String()
	o.logSummary(log, rep)
	return rep, nil
}

// process runs Probe → Classify → Persist → EvaluateAlert → (Notify) for one
// endpoint. Any failure ends this endpoint only.
func (o *Orchestrator) process(ctx context.Context, log *zap.Logger, store repo.HistoryStore, dedup *alert.Deduplicator, ep domain.Endpoint) (out Outcome) {
	out = Outcome{URL: ep.URL, Stage: StageStart}
	log = log.With(zap.String("url", ep.URL))

	fail := func(stage Stage, event string, err error) Outcome {
		log.Warn(event, zap.String("stage", string(stage)), zap.Error(err))
		out.FailedAt = stage
		out.Stage = StageFailed
		out.Error = err.Error()
		return out
	}
	defer func() {
		if r := recover(); r != nil {
			out = fail(out.Stage, "endpoint_panic", fmt.Errorf("panic: %v", r))
		}
	}()

	out.Stage = StageProbe
	res, err := o.Prober.Probe(ctx, ep)
	if err != nil {
		var pe *domain.ProbeError
		if errors.As(err, &pe) && pe.DNSClass != "" {
			log = log.With(zap.String("dns_class", pe.DNSClass))
		}
		return fail(StageProbe, "probe_error", err)
	}
	out.StatusCode = res.StatusCode
	out.ElapsedMS = float64(res.Elapsed.Microseconds()) / 1000

	out.Stage = StageClassify
	cls := domain.Classify(res.StatusCode, res.Elapsed, ep)
	out.Classification = cls

	out.Stage = StagePersist
	ev := domain.HealthEvent{
		EndpointURL:           ep.URL,
		StatusCode:            res.StatusCode,
		Classification:        cls,
		ResponseTime:          res.Elapsed,
		MaxResponseTime:       ep.MaxResponseTime,
		AcceptableStatusCodes: ep.AcceptableStatusCodes,
		CreatedAt:             o.now().UTC(),
	}
	if err := store.Record(ctx, ev); err != nil {
		return fail(StagePersist, "health_event_insert_error", err)
	}
	log.Info("endpoint_checked",
		zap.Int("status", res.StatusCode),
		zap.String("classification", string(cls)),
		zap.String("response_time", domain.FormatSeconds(res.Elapsed)),
	)

	out.Stage = StageEvaluate
	dec, err := dedup.Evaluate(ctx, ev)
	if err != nil {
		return fail(StageEvaluate, "alert_evaluate_error", err)
	}
	out.Suppressed = dec.Suppressed
	if dec.Suppressed {
		log.Info("alert_suppressed", zap.String("issue_type", string(dec.IssueType)), zap.Int("count", dec.Count))
	}
	if !dec.Fire {
		out.Stage = StageDone
		return out
	}

	out.Stage = StageAlert
	rec, err := dedup.Record(ctx, dec)
	if err != nil {
		return fail(StageAlert, "alert_insert_error", err)
	}
	out.Alerted = true
	out.AlertID = rec.ID
	log.Info("alert_fired",
		zap.Int64("alert_id", rec.ID),
		zap.String("issue_type", string(rec.IssueType)),
		zap.Int("count", dec.Count),
	)

	out.Stage = StageNotify
	if o.Notifier != nil {
		// channel failures are logged by the notifier and never undo the record
		_ = o.Notifier.Notify(ctx, rec.Message)
	}
	out.Stage = StageDone
	return out
}

func (o *Orchestrator) logSummary(log *zap.Logger, rep Report) {
	counts := map[domain.Classification]int{}
	failed, alerts := 0, 0
	for _, out := range rep.Outcomes {
		if out.Stage == StageFailed {
			failed++
		}
		if out.Classification != "" {
			counts[out.Classification]++
		}
		if out.Alerted {
			alerts++
		}
	}
	log.Info("cycle_finished",
		zap.String("duration", rep.Duration),
		zap.Int("healthy", counts[domain.Healthy]),
		zap.Int("slow", counts[domain.Slow]),
		zap.Int("unhealthy", counts[domain.Unhealthy]),
		zap.Int("failed", failed),
		zap.Int("alerts", alerts),
	)
}
