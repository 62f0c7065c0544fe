package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrStoreUnavailable wraps infrastructure failures that survived the
// single transparent retry.
var ErrStoreUnavailable = errors.New("store unavailable")

// retryOnce runs a store operation, retrying once before reporting the
// store as unavailable. Business sentinels pass through unretried and
// unwrapped; they are answers, not failures.
func retryOnce(log *zap.Logger, op func() error, sentinels ...error) error {
	err := op()
	if err == nil {
		return nil
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err
		}
	}
	log.Warn("store operation failed, retrying", zap.Error(err))
	if err = op(); err != nil {
		for _, s := range sentinels {
			if errors.Is(err, s) {
				return err
			}
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
