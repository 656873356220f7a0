// Package lifecycle orchestrates resource creation and deletion across the
// metadata store and the blob store. The two stores share no transaction, so
// ordering and compensation carry the consistency guarantees:
//
//   - create: blob first, then metadata; a failed metadata write triggers a
//     compensating blob delete, and a failed compensation becomes an incident
//     for the reconciliation scanner.
//   - delete: blob first, then metadata. A failed blob delete leaves the
//     record fully intact and retryable; a failed metadata delete leaves a
//     dangling reference, which fails loudly on the next read and is trivially
//     repaired by the scanner. Dangling references beat orphan blobs, which
//     leak storage silently.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"custodian/internal/blob"
	"custodian/internal/incident"
	"custodian/internal/platform/metrics"
	"custodian/internal/resource/models"
	"custodian/internal/resource/store"
	"custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/platform/sentinel"
	"custodian/pkg/requestcontext"
)

// CreateSpec describes a resource to create. Blob is optional.
type CreateSpec struct {
	Kind   models.Kind
	Fields map[string]any
	Blob   *BlobContent
}

// BlobContent is an uploaded payload attached to a resource.
type BlobContent struct {
	Bytes       []byte
	ContentType string
}

// Coordinator runs the dual-store lifecycle protocol.
type Coordinator struct {
	meta      store.Store
	blobs     blob.Store
	incidents *incident.Recorder
	logger    *slog.Logger
	metrics   *metrics.Metrics
	retry     RetryPolicy
	locks     *keyedMutex
	tracer    trace.Tracer
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Coordinator) { c.retry = policy }
}

func New(meta store.Store, blobs blob.Store, incidents *incident.Recorder, opts ...Option) (*Coordinator, error) {
	if meta == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if incidents == nil {
		return nil, fmt.Errorf("incident recorder is required")
	}
	c := &Coordinator{
		meta:      meta,
		blobs:     blobs,
		incidents: incidents,
		logger:    slog.Default(),
		retry:     DefaultRetryPolicy(),
		locks:     newKeyedMutex(),
		tracer:    otel.Tracer("custodian/lifecycle"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Create writes the blob (when present) and then the metadata record.
func (c *Coordinator) Create(ctx context.Context, tenant domain.TenantID, spec CreateSpec) (*models.Resource, error) {
	ctx, span := c.tracer.Start(ctx, "lifecycle.Create",
		trace.WithAttributes(attribute.String("tenant_id", tenant.String())))
	defer span.End()

	if tenant.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID required")
	}
	id := domain.NewResourceID()
	record, err := models.New(id, tenant, spec.Kind, spec.Fields, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	// Once the first store call is issued the operation runs to completion;
	// callers may abandon the result but cannot abort it mid-flight.
	opCtx := context.WithoutCancel(ctx)

	if spec.Blob != nil {
		obj := blob.Object{
			Path:        domain.BlobPath(tenant, id),
			TenantID:    tenant,
			ResourceID:  id,
			Bytes:       spec.Blob.Bytes,
			ContentType: spec.Blob.ContentType,
			CreatedAt:   record.CreatedAt,
		}
		err := c.withRetry(opCtx, "blob put", func(callCtx context.Context) error {
			_, putErr := c.blobs.Put(callCtx, obj)
			return putErr
		})
		if err != nil {
			return nil, c.storeError(err, "write blob", tenant, id)
		}
		record.BlobRef = obj.Path
	}

	err = c.withRetry(opCtx, "metadata put", func(callCtx context.Context) error {
		return c.meta.Put(callCtx, record)
	})
	if err != nil {
		if record.BlobRef != "" {
			c.compensateBlob(opCtx, tenant, id, record.BlobRef, err)
		}
		return nil, c.storeError(err, "write metadata", tenant, id)
	}

	if c.metrics != nil {
		c.metrics.ResourcesCreated.Inc()
	}
	c.logger.InfoContext(ctx, "resource created",
		"tenant_id", tenant.String(), "resource_id", id.String(),
		"kind", spec.Kind.String(), "has_blob", record.BlobRef != "")
	return record, nil
}

// compensateBlob undoes the blob write of a create whose metadata write
// failed. If the compensation itself fails, the blob becomes a
// scanner-handled orphan and an incident is recorded; the original failure is
// still what the caller sees.
func (c *Coordinator) compensateBlob(ctx context.Context, tenant domain.TenantID, id domain.ResourceID, ref string, cause error) {
	err := c.withRetry(ctx, "compensating blob delete", func(callCtx context.Context) error {
		delErr := c.blobs.Delete(callCtx, ref)
		if errors.Is(delErr, sentinel.ErrNotFound) {
			return nil
		}
		return delErr
	})
	if err != nil {
		c.incidents.Record(ctx, incident.TypeCompensationFailed, tenant, id, ref,
			fmt.Sprintf("metadata write failed (%v) and compensating blob delete failed (%v)", cause, err))
	}
}

// Get returns a tenant's resource record.
func (c *Coordinator) Get(ctx context.Context, tenant domain.TenantID, id domain.ResourceID) (*models.Resource, error) {
	record, err := c.meta.Get(ctx, tenant, id)
	if err != nil {
		return nil, c.storeError(err, "read metadata", tenant, id)
	}
	return record, nil
}

// ListByTenant returns a tenant's resources, optionally filtered by kind.
func (c *Coordinator) ListByTenant(ctx context.Context, tenant domain.TenantID, kind models.Kind) ([]*models.Resource, error) {
	if tenant.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID required")
	}
	records, err := c.meta.ListByTenant(ctx, tenant)
	if err != nil {
		return nil, c.storeError(err, "list metadata", tenant, domain.ResourceID{})
	}
	if kind == "" {
		return records, nil
	}
	filtered := records[:0]
	for _, record := range records {
		if record.Kind == kind {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

// GetBlob returns the blob attached to a resource.
func (c *Coordinator) GetBlob(ctx context.Context, tenant domain.TenantID, id domain.ResourceID) (blob.Object, error) {
	record, err := c.Get(ctx, tenant, id)
	if err != nil {
		return blob.Object{}, err
	}
	if record.BlobRef == "" {
		return blob.Object{}, dErrors.New(dErrors.CodeNotFound, "resource has no blob")
	}
	obj, err := c.blobs.Get(ctx, record.BlobRef)
	if err != nil {
		// A missing blob behind a live reference is a dangling reference;
		// the scanner will repair it, the caller sees not-found.
		return blob.Object{}, c.storeError(err, "read blob", tenant, id)
	}
	return obj, nil
}

// Delete removes a resource: blob first, then the metadata record.
// Operations on the same resource are serialized; the loser of a concurrent
// delete observes not-found rather than a second successful deletion.
func (c *Coordinator) Delete(ctx context.Context, tenant domain.TenantID, id domain.ResourceID) error {
	ctx, span := c.tracer.Start(ctx, "lifecycle.Delete",
		trace.WithAttributes(
			attribute.String("tenant_id", tenant.String()),
			attribute.String("resource_id", id.String())))
	defer span.End()

	if tenant.IsNil() || id.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "tenant and resource IDs required")
	}

	unlock := c.locks.lock(tenant.String() + "/" + id.String())
	defer unlock()

	opCtx := context.WithoutCancel(ctx)

	record, err := c.meta.Get(opCtx, tenant, id)
	if err != nil {
		return c.storeError(err, "read metadata", tenant, id)
	}

	if record.BlobRef != "" {
		err := c.withRetry(opCtx, "blob delete", func(callCtx context.Context) error {
			delErr := c.blobs.Delete(callCtx, record.BlobRef)
			if errors.Is(delErr, sentinel.ErrNotFound) {
				// Already gone; the goal state is reached.
				return nil
			}
			return delErr
		})
		if err != nil {
			// Record stays fully intact; the caller can retry safely.
			return c.storeError(err, "delete blob", tenant, id)
		}
	}

	err = c.withRetry(opCtx, "metadata delete", func(callCtx context.Context) error {
		return c.meta.Delete(callCtx, tenant, id)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return c.storeError(err, "delete metadata", tenant, id)
		}
		// Blob is gone but the record remains: a dangling reference. Loud
		// by design; the scanner nulls it on the next pass.
		c.logger.WarnContext(ctx, "metadata delete failed after blob delete, dangling reference remains",
			"tenant_id", tenant.String(), "resource_id", id.String(), "error", err)
		return c.storeError(err, "delete metadata", tenant, id)
	}

	if c.metrics != nil {
		c.metrics.ResourcesDeleted.Inc()
	}
	c.logger.InfoContext(ctx, "resource deleted",
		"tenant_id", tenant.String(), "resource_id", id.String())
	return nil
}

// storeError translates store failures into the domain taxonomy with enough
// context for diagnosis.
func (c *Coordinator) storeError(err error, op string, tenant domain.TenantID, id domain.ResourceID) error {
	target := fmt.Sprintf("%s %s/%s", op, tenant.String(), id.String())
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, target)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, target)
	case errors.Is(err, errRetriesExhausted):
		return dErrors.Wrap(err, dErrors.CodePermanentStore, target)
	case isTransient(err) || errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTransientStore, target)
	default:
		return dErrors.Wrap(err, dErrors.CodePermanentStore, target)
	}
}
