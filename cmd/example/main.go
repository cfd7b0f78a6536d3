// Command example demonstrates a producer/consumer pair driven through a
// broker.Processor, retrying enqueue attempts against a full queue with
// exponential backoff.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/kbroker/kbroker/broker"
	"github.com/kbroker/kbroker/config"
	"github.com/kbroker/kbroker/consumer"
	"github.com/kbroker/kbroker/observability"
)

const (
	exampleLoggerPrefix = "kbroker-example "
	produceCount        = 20
	enqueueRetryBudget  = 2 * time.Second
)

func main() {
	keyFlag := flag.String("key", "orders", "queue key producer and consumer share")
	flag.Parse()

	ctx, cancel := newSignalContext()
	defer cancel()

	logger := newExampleLogger()
	observability.SetLogger(loggerAdapter{logger})

	p := broker.New[string, int](config.Config{MaxThreads: 2, QueueCapacity: 4})

	received := make(chan int, produceCount)
	ref := consumer.Func[string, int](func(key string, value int) {
		logger.Printf("consumed key=%s value=%d", key, value)
		received <- value
	})

	if !p.Subscribe(*keyFlag, ref) {
		logger.Fatalf("subscribe to key=%s failed unexpectedly", *keyFlag)
	}
	p.Start()
	defer p.Stop()

	go produce(ctx, logger, p, *keyFlag)

	consumedCount := 0
	for consumedCount < produceCount {
		select {
		case <-received:
			consumedCount++
		case <-ctx.Done():
			logger.Printf("interrupted after consuming %d/%d values", consumedCount, produceCount)
			return
		}
	}
	logger.Printf("consumed all %d values", produceCount)
}

func produce(ctx context.Context, logger *log.Logger, p *broker.Processor[string, int], key string) {
	for i := 0; i < produceCount; i++ {
		if ctx.Err() != nil {
			return
		}
		if err := enqueueWithBackoff(ctx, p, key, i); err != nil {
			logger.Printf("enqueue key=%s value=%d gave up: %v", key, i, err)
			return
		}
	}
}

// enqueueWithBackoff retries Enqueue against a full queue with exponential
// backoff, giving up once enqueueRetryBudget has elapsed or ctx is done.
func enqueueWithBackoff(ctx context.Context, p *broker.Processor[string, int], key string, value int) error {
	ctx, cancel := context.WithTimeout(ctx, enqueueRetryBudget)
	defer cancel()

	backoffCfg := backoff.NewExponentialBackOff()

	for {
		if p.Enqueue(key, value) {
			return nil
		}

		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop {
			return fmt.Errorf("queue %s stayed full past the retry budget", key)
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("queue %s stayed full past the retry budget", key)
			}
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

func newSignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newExampleLogger() *log.Logger {
	return log.New(os.Stdout, exampleLoggerPrefix, log.LstdFlags|log.Lmicroseconds)
}

// loggerAdapter routes observability.Logger calls through a *log.Logger,
// matching this codebase's plain stdlib logging for standalone binaries.
type loggerAdapter struct {
	logger *log.Logger
}

func (a loggerAdapter) Debug(msg string, fields ...observability.Field) { a.log("DEBUG", msg, fields) }
func (a loggerAdapter) Info(msg string, fields ...observability.Field)  { a.log("INFO", msg, fields) }
func (a loggerAdapter) Error(msg string, fields ...observability.Field) { a.log("ERROR", msg, fields) }

func (a loggerAdapter) log(level, msg string, fields []observability.Field) {
	a.logger.Printf("%s %s %v", level, msg, fields)
}
