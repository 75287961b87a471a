package dataservice

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/ChilliBits/particulate-matter-api/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

type fetchMode int

const (
	fetchRange fetchMode = iota
	fetchLatest
	fetchAll
)

func (m fetchMode) String() string {
	switch m {
	case fetchRange:
		return "range"
	case fetchLatest:
		return "latest"
	case fetchAll:
		return "all"
	}
	return "unknown"
}

// fetch scans the records of every chip concurrently and concatenates them in
// chip order. The first store failure cancels the remaining scans, except for
// chips missing from the sensor index, which are skipped.
func (s *DataService) fetch(ctx context.Context, chipIDs []uint64, w Window, mode fetchMode) ([]models.DataRecord, error) {
	if len(chipIDs) == 0 {
		return []models.DataRecord{}, nil
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := s.pool
	if s.cfg.MaxPerRequestFanout > 0 {
		sub := s.pool.NewSubpool(s.cfg.MaxPerRequestFanout)
		defer sub.StopAndWait()
		pool = sub
	}

	var (
		failOnce sync.Once
		failure  error
	)
	group := pool.NewGroupContext(fetchCtx)
	for _, chipID := range chipIDs {
		group.SubmitErr(func() ([]models.DataRecord, error) {
			records, err := s.fetchOne(fetchCtx, chipID, w, mode)
			if err == nil {
				return records, nil
			}
			if fetchCtx.Err() != nil {
				return nil, fetchCtx.Err()
			}
			if s.skipUnregistered(fetchCtx, chipID, mode, err) {
				return nil, nil
			}
			failOnce.Do(func() {
				failure = dataAccess(chipID, err)
				cancel()
			})
			return nil, failure
		})
	}

	results, err := group.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if failure != nil {
		return nil, failure
	}
	if err != nil {
		return nil, errors.NewDataAccessError("failed to fetch records", err)
	}

	total := 0
	for _, records := range results {
		total += len(records)
	}
	merged := make([]models.DataRecord, 0, total)
	for _, records := range results {
		merged = append(merged, records...)
	}
	return merged, nil
}

func (s *DataService) fetchOne(ctx context.Context, chipID uint64, w Window, mode fetchMode) ([]models.DataRecord, error) {
	if s.cfg.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.StoreTimeout)
		defer cancel()
	}

	switch mode {
	case fetchRange:
		return s.records.ScanRange(ctx, chipID, w.From, w.To)
	case fetchLatest:
		record, err := s.records.Latest(ctx, chipID)
		if err != nil || record == nil {
			return nil, err
		}
		return []models.DataRecord{*record}, nil
	case fetchAll:
		return s.records.ScanAll(ctx, chipID)
	}
	return nil, fmt.Errorf("unknown fetch mode %d", mode)
}

// skipUnregistered reports whether a failed chip is absent from the sensor index.
func (s *DataService) skipUnregistered(ctx context.Context, chipID uint64, mode fetchMode, storeErr error) bool {
	exists, err := s.sensors.Exists(ctx, chipID)
	if err != nil || exists {
		return false
	}
	nuts.L.Warnf("[DataService] Skipping unregistered sensor %d (%s): %v", chipID, mode, storeErr)
	s.cfg.Monitor.RecordEvent("unregistered_sensor_skipped", map[string]string{
		"chip_id": strconv.FormatUint(chipID, 10),
		"mode":    mode.String(),
	})
	return true
}

func dataAccess(chipID uint64, err error) error {
	var apiErr *errors.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	return errors.NewDataAccessError(fmt.Sprintf("failed to read records of sensor %d", chipID), err)
}
