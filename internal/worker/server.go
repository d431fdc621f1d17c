package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// WorkerServer wraps the asynq server running the background handlers:
// stroke persistence and the idle-room sweep.
type WorkerServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logrus.Entry
}

// NewWorkerServer creates the worker server. Handlers are registered on the
// returned server's mux by the bootstrap.
func NewWorkerServer(redisOpt asynq.RedisClientOpt, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 5,
				"low":     1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).WithError(err).Error("Task failed")
			}),
		},
	)

	return &WorkerServer{
		server: server,
		mux:    asynq.NewServeMux(),
		log:    logEntry,
	}
}

// Handle registers a task handler on the worker mux.
func (ws *WorkerServer) Handle(taskType string, handler asynq.Handler) {
	ws.mux.Handle(taskType, handler)
}

// Start runs the worker server. It should be called in its own goroutine.
func (ws *WorkerServer) Start() {
	ws.log.Info("Worker server starting")
	if err := ws.server.Run(ws.mux); err != nil {
		if !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		}
		ws.log.Info("Worker server stopped")
	}
}

// Shutdown gracefully stops the worker server.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server")
	ws.server.Shutdown()
}
