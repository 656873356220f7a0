// Package reconcile implements the background sweep that detects and repairs
// drift between the metadata store and the blob store: dangling references
// are nulled, orphan blobs older than the grace period are deleted. The
// scanner never deletes metadata records.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"custodian/internal/blob"
	"custodian/internal/incident"
	"custodian/internal/platform/metrics"
	"custodian/internal/resource/store"
	"custodian/pkg/domain"
	"custodian/pkg/platform/sentinel"
	"custodian/pkg/requestcontext"
)

// ErrScanInProgress is returned when a run is requested while another run is
// still active; passes are single-flight.
var ErrScanInProgress = errors.New("reconciliation scan already in progress")

const orphanCheckConcurrency = 8

// Report summarizes one reconciliation pass.
type Report struct {
	RecordsChecked   int
	BlobsChecked     int
	DanglingRepaired int
	OrphansDeleted   int
	StartedAt        time.Time
	FinishedAt       time.Time
}

// Scanner audits and repairs dual-store drift. The grace period is the sole
// safety mechanism against racing an in-flight create: it must exceed the
// worst-case gap between blob-write completion and metadata-write completion
// under retry, and nothing younger than it is ever touched.
type Scanner struct {
	meta      store.Store
	blobs     blob.Store
	incidents *incident.Recorder
	grace     time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	running   atomic.Bool
}

type Option func(*Scanner)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

func New(meta store.Store, blobs blob.Store, incidents *incident.Recorder, grace time.Duration, opts ...Option) (*Scanner, error) {
	if meta == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if incidents == nil {
		return nil, fmt.Errorf("incident recorder is required")
	}
	if grace <= 0 {
		return nil, fmt.Errorf("grace period must be positive")
	}
	s := &Scanner{
		meta:      meta,
		blobs:     blobs,
		incidents: incidents,
		grace:     grace,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run executes reconciliation passes on the given interval until ctx is
// cancelled.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			report, err := s.RunOnce(ctx)
			if err != nil {
				if errors.Is(err, ErrScanInProgress) {
					continue
				}
				s.logger.ErrorContext(ctx, "reconciliation pass failed", "error", err)
				continue
			}
			s.logger.InfoContext(ctx, "reconciliation pass finished",
				"records_checked", report.RecordsChecked,
				"blobs_checked", report.BlobsChecked,
				"dangling_repaired", report.DanglingRepaired,
				"orphans_deleted", report.OrphansDeleted)
		}
	}
}

// RunOnce executes a single reconciliation pass: first the dangling-reference
// pass, then the orphan pass. At most one run is active at a time.
func (s *Scanner) RunOnce(ctx context.Context) (Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Report{}, ErrScanInProgress
	}
	defer s.running.Store(false)

	now := requestcontext.Now(ctx)
	report := Report{StartedAt: now}

	referenced, err := s.repairDanglingReferences(ctx, now, &report)
	if err != nil {
		return report, err
	}
	if err := s.deleteOrphans(ctx, now, referenced, &report); err != nil {
		return report, err
	}

	report.FinishedAt = requestcontext.Now(ctx)
	if s.metrics != nil {
		s.metrics.ScannerRuns.Inc()
	}
	return report, nil
}

// repairDanglingReferences nulls blob references that no longer resolve and
// returns the set of blob paths that are still referenced.
func (s *Scanner) repairDanglingReferences(ctx context.Context, now time.Time, report *Report) (map[string]struct{}, error) {
	records, err := s.meta.ListWithBlobRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records with blob refs: %w", err)
	}

	referenced := make(map[string]struct{}, len(records))
	for _, record := range records {
		report.RecordsChecked++

		_, statErr := s.blobs.Stat(ctx, record.BlobRef)
		if statErr == nil {
			referenced[record.BlobRef] = struct{}{}
			continue
		}
		if !errors.Is(statErr, sentinel.ErrNotFound) {
			return nil, fmt.Errorf("stat blob %s: %w", record.BlobRef, statErr)
		}

		// Nothing younger than the grace period is touched, even for a
		// repair: a create retrying its blob write looks identical.
		if now.Sub(record.UpdatedAt) < s.grace {
			continue
		}

		clearErr := s.meta.ClearBlobRef(ctx, record.TenantID, record.ID, record.Version)
		if clearErr != nil {
			if errors.Is(clearErr, sentinel.ErrNotFound) || errors.Is(clearErr, sentinel.ErrConflict) {
				// Record changed or vanished under us; next pass re-evaluates.
				continue
			}
			return nil, fmt.Errorf("clear blob ref for %s/%s: %w", record.TenantID, record.ID, clearErr)
		}

		report.DanglingRepaired++
		if s.metrics != nil {
			s.metrics.DanglingRepaired.Inc()
		}
		s.incidents.Record(ctx, incident.TypeDanglingReference,
			record.TenantID, record.ID, record.BlobRef,
			"blob reference pointed at a missing blob; reference nulled")
	}
	return referenced, nil
}

// deleteOrphans removes unreferenced blobs older than the grace period.
func (s *Scanner) deleteOrphans(ctx context.Context, now time.Time, referenced map[string]struct{}, report *Report) error {
	paths, err := s.blobs.List(ctx, domain.NamespaceRoot())
	if err != nil {
		return fmt.Errorf("list blobs: %w", err)
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(orphanCheckConcurrency)

	for _, path := range paths {
		mu.Lock()
		report.BlobsChecked++
		mu.Unlock()

		if _, ok := referenced[path]; ok {
			continue
		}

		group.Go(func() error {
			deleted, err := s.deleteIfOrphan(groupCtx, now, path)
			if err != nil {
				return err
			}
			if deleted {
				mu.Lock()
				report.OrphansDeleted++
				mu.Unlock()
			}
			return nil
		})
	}
	return group.Wait()
}

func (s *Scanner) deleteIfOrphan(ctx context.Context, now time.Time, path string) (bool, error) {
	obj, err := s.blobs.Stat(ctx, path)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob %s: %w", path, err)
	}

	// Grace period: a blob this young may belong to a create whose metadata
	// write is still in flight.
	if now.Sub(obj.CreatedAt) < s.grace {
		return false, nil
	}

	// The path encodes its owning record; re-check it right before deleting
	// in case the reference landed after the referenced-set was built.
	tenant, resourceID, parseErr := domain.ParseBlobPath(path)
	if parseErr == nil {
		record, getErr := s.meta.Get(ctx, tenant, resourceID)
		if getErr == nil && record.BlobRef == path {
			return false, nil
		}
		if getErr != nil && !errors.Is(getErr, sentinel.ErrNotFound) {
			return false, fmt.Errorf("cross-check record for %s: %w", path, getErr)
		}
	}

	if err := s.blobs.Delete(ctx, path); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete orphan blob %s: %w", path, err)
	}

	if s.metrics != nil {
		s.metrics.OrphansDeleted.Inc()
	}
	s.incidents.Record(ctx, incident.TypeOrphanBlob, tenant, resourceID, path,
		"unreferenced blob past grace period deleted")
	return true, nil
}
