package storage

import (
	"context"
	"errors"
	"mime/multipart"
	"time"

	"foodgram/internal/logging"
	"foodgram/internal/metrics"

	gobreaker "github.com/sony/gobreaker/v2"
)

var ErrStorageUnavailable = errors.New("image storage temporarily unavailable")

type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	Timeout          time.Duration
}

type breakerStorage struct {
	Storage
	cb *gobreaker.CircuitBreaker[string]
}

// NewBreakerStorage guards the remote calls of next with a circuit breaker.
// Rejected uploads (bad type, empty file) do not count as failures.
func NewBreakerStorage(next Storage, cfg BreakerConfig) Storage {
	if cfg.Name == "" {
		cfg.Name = "storage"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	metrics.StorageBreakerState.WithLabelValues(cfg.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrFileTypeNotAllowed) ||
				errors.Is(err, ErrEmptyFile) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("storage circuit breaker state changed")
			metrics.StorageBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	return &breakerStorage{Storage: next, cb: cb}
}

func (b *breakerStorage) execute(fn func() (string, error)) (string, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", ErrStorageUnavailable
	}
	return res, err
}

func (b *breakerStorage) UploadFile(ctx context.Context, fileName string, file *multipart.FileHeader, folder string, allowedMimetype ...string) (string, error) {
	return b.execute(func() (string, error) {
		return b.Storage.UploadFile(ctx, fileName, file, folder, allowedMimetype...)
	})
}

func (b *breakerStorage) UploadBytes(ctx context.Context, fileName string, data []byte, folder string, allowedMimetype ...string) (string, error) {
	return b.execute(func() (string, error) {
		return b.Storage.UploadBytes(ctx, fileName, data, folder, allowedMimetype...)
	})
}

func (b *breakerStorage) DeleteFile(ctx context.Context, objectKey string) error {
	_, err := b.execute(func() (string, error) {
		return "", b.Storage.DeleteFile(ctx, objectKey)
	})
	return err
}
