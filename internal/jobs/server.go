package jobs

import (
	"context"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/jobs/tasks"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/logging"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments"

	"github.com/hibiken/asynq"
)

type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewServer builds the worker that drains queued payment events into
// dispatcher.
func NewServer(redisAddr string, concurrency int, dispatcher payments.Dispatcher) *Server {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				DefaultQueue: 10,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logging.Error(ctx).
					Err(err).
					Str("task_type", task.Type()).
					Msg("task failed")
			}),
		},
	)

	return &Server{
		server: server,
		mux:    NewServeMux(dispatcher),
	}
}

func NewServeMux(dispatcher payments.Dispatcher) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypePaymentEvent, tasks.NewPaymentEventHandler(dispatcher))
	return mux
}

func (s *Server) Start() error {
	logging.Logger().Info().Msg("starting asynq worker")
	return s.server.Start(s.mux)
}

func (s *Server) Shutdown() {
	logging.Logger().Info().Msg("shutting down asynq worker")
	s.server.Shutdown()
}
