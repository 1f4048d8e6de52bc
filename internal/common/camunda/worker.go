// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"directory-engine/internal/common/logger"
	"directory-engine/internal/common/metrics"
)

// JobHandler completes or fails the job itself.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Registration describes one job worker to open.
type Registration struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
	Handler       JobHandler
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

func NewWorker(client zbc.Client, reg Registration, log logger.Logger) *CamundaWorker {
	log = logger.Component(log, "camunda-worker").WithFields(map[string]interface{}{"taskType": reg.TaskType})

	maxJobs := reg.MaxJobsActive
	if maxJobs <= 0 {
		maxJobs = 1
	}

	step := client.NewJobWorker().
		JobType(reg.TaskType).
		Handler(func(jc worker.JobClient, job entities.Job) {
			start := time.Now()
			metrics.WorkerJobsActive.WithLabelValues(reg.TaskType).Inc()
			defer metrics.WorkerJobsActive.WithLabelValues(reg.TaskType).Dec()

			reg.Handler.Handle(jc, job)

			metrics.WorkerJobDuration.WithLabelValues(reg.TaskType).Observe(time.Since(start).Seconds())
		}).
		MaxJobsActive(maxJobs).
		Name("directory-engine")
	if reg.Timeout > 0 {
		// the broker lease must outlive the handler's own deadline
		step = step.Timeout(reg.Timeout + 5*time.Second)
	}

	return &CamundaWorker{
		worker:   step.Open(),
		logger:   log,
		taskType: reg.TaskType,
	}
}

func (w *CamundaWorker) Start() {
	w.logger.Info("worker started", nil)
}

// Stop closes the job worker and waits for in-flight jobs. The shared client
// is closed by its owner.
func (w *CamundaWorker) Stop(ctx context.Context) {
	w.logger.Info("stopping worker", nil)

	done := make(chan struct{})
	go func() {
		w.worker.Close()
		w.worker.AwaitClose()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("worker stop timed out", map[string]interface{}{"error": ctx.Err().Error()})
	}
}
