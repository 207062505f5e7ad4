package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Probe reports whether one dependency is reachable.
type Probe func(ctx context.Context) error

type HealthUsecase interface {
	Check(ctx context.Context) map[string]string
	Ready(ctx context.Context) (map[string]string, error)
}

type healthUsecase struct {
	probes  map[string]Probe
	timeout time.Duration
}

func NewHealthUsecase(probes map[string]Probe) HealthUsecase {
	return &healthUsecase{probes: probes, timeout: 2 * time.Second}
}

func (u *healthUsecase) Check(ctx context.Context) map[string]string {
	return map[string]string{
		"status": "ok",
	}
}

// Ready runs every probe and reports each dependency as "ok" or "unavailable".
func (u *healthUsecase) Ready(ctx context.Context) (map[string]string, error) {
	names := make([]string, 0, len(u.probes))
	for name := range u.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	status := map[string]string{"status": "ok"}
	var errs []error
	for _, name := range names {
		probeCtx, cancel := context.WithTimeout(ctx, u.timeout)
		err := u.probes[name](probeCtx)
		cancel()
		if err != nil {
			status[name] = "unavailable"
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		status[name] = "ok"
	}
	if len(errs) > 0 {
		status["status"] = "unavailable"
		return status, errors.Join(errs...)
	}
	return status, nil
}
