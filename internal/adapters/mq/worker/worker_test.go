package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/credence/internal/adapters/mq/queue"
	"github.com/okian/credence/internal/adapters/mq/worker"
	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu   sync.Mutex
	seen []string
	fail map[string]error
}

func (r *recorder) Ingest(_ context.Context, obs model.Observation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.fail[obs.Content]; ok {
		return err
	}
	r.seen = append(r.seen, obs.Content)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func observation(i int) model.Observation {
	return model.Observation{Content: fmt.Sprintf("obs-%d", i), SourceID: "s", Category: "c", Confidence: 0.9}
}

func TestPool(t *testing.T) {
	Convey("Given a pool over a buffered queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		rec := &recorder{fail: map[string]error{"obs-3": errors.New("unknown source")}}
		pool := worker.NewPool(4, q, rec)

		So(pool.Size(), ShouldEqual, 4)

		Convey("When observations are enqueued and the queue is closed", func() {
			for i := 0; i < 20; i++ {
				So(q.Enqueue(ctx, observation(i)), ShouldBeNil)
			}
			pool.Start(ctx)
			pool.Start(ctx)
			So(q.Close(), ShouldBeNil)

			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			err := pool.Shutdown(shutdownCtx)

			Convey("Then every observation is handed to the ingester", func() {
				So(err, ShouldBeNil)
				So(rec.count(), ShouldEqual, 19)
				So(q.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the pool never started", func() {
			Convey("Then shutdown returns immediately", func() {
				So(pool.Shutdown(ctx), ShouldBeNil)
			})
		})

		Convey("When shutdown times out on an open queue", func() {
			pool.Start(ctx)
			shutdownCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			err := pool.Shutdown(shutdownCtx)

			Convey("Then the workers are cancelled and the timeout is reported", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})
	})

	Convey("Given a single worker with a function ingester", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		got := make(chan string, 4)
		w := worker.NewWorker(q, worker.IngesterFunc(func(_ context.Context, obs model.Observation) error {
			got <- obs.Content
			return nil
		}), worker.WithName("solo"))

		done := make(chan struct{})
		go func() {
			w.Run(ctx)
			close(done)
		}()

		Convey("When an observation arrives and the context is cancelled", func() {
			So(q.Enqueue(ctx, observation(7)), ShouldBeNil)
			So(<-got, ShouldEqual, "obs-7")
			cancel()
			<-done

			Convey("Then the worker stops", func() {
				So(ctx.Err(), ShouldNotBeNil)
			})
		})
	})
}
