// Package incident captures InconsistencyDetected events: drift between the
// metadata store and the blob store. Recording an incident must never fail a
// user-facing operation, so the recorder logs and swallows sink errors.
package incident

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"custodian/internal/platform/metrics"
	"custodian/pkg/domain"
	"custodian/pkg/requestcontext"
)

// Recorder persists incidents and optionally fans them out to a worker
// channel for external publishing.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	outbox  chan<- Incident
}

type RecorderOption func(*Recorder)

func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// WithOutbox fans recorded incidents out to a channel consumed by a Worker.
// Sends are non-blocking; a full outbox drops the fan-out copy (the store
// copy is authoritative).
func WithOutbox(outbox chan<- Incident) RecorderOption {
	return func(r *Recorder) { r.outbox = outbox }
}

func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record captures an incident. Errors from the sink are logged, never
// returned: the caller is usually in the middle of surfacing a more important
// failure.
func (r *Recorder) Record(ctx context.Context, typ Type, tenant domain.TenantID, resource domain.ResourceID, blobRef, detail string) {
	inc := Incident{
		ID:         uuid.New(),
		Type:       typ,
		TenantID:   tenant,
		ResourceID: resource,
		BlobRef:    blobRef,
		Detail:     detail,
		DetectedAt: requestcontext.Now(ctx),
	}

	r.logger.WarnContext(ctx, "inconsistency detected",
		"incident_type", string(typ),
		"tenant_id", tenant.String(),
		"resource_id", resource.String(),
		"blob_ref", blobRef,
		"detail", detail,
	)

	if r.metrics != nil {
		r.metrics.IncidentsRecorded.WithLabelValues(string(typ)).Inc()
	}

	if err := r.store.Append(ctx, inc); err != nil {
		r.logger.ErrorContext(ctx, "incident append failed", "error", err)
	}

	if r.outbox != nil {
		select {
		case r.outbox <- inc:
		default:
			r.logger.WarnContext(ctx, "incident outbox full, dropping fan-out copy",
				"incident_id", inc.ID.String())
		}
	}
}
