package incident

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodian/pkg/domain"
	"custodian/pkg/requestcontext"
)

func TestRecorderAppendsToStore(t *testing.T) {
	store := NewInMemoryStore()
	recorder := NewRecorder(store)

	detectedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), detectedAt)
	resource := domain.NewResourceID()

	recorder.Record(ctx, TypeOrphanBlob, "tenant-1", resource,
		"tenants/tenant-1/blobs/"+resource.String(), "unreferenced blob deleted")

	incidents, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, incidents, 1)

	inc := incidents[0]
	assert.Equal(t, TypeOrphanBlob, inc.Type)
	assert.Equal(t, domain.TenantID("tenant-1"), inc.TenantID)
	assert.Equal(t, resource, inc.ResourceID)
	assert.Equal(t, detectedAt, inc.DetectedAt)
	assert.NotEmpty(t, inc.ID)
}

func TestRecorderSwallowsStoreFailures(t *testing.T) {
	recorder := NewRecorder(failingSink{err: errors.New("sink down")})

	// Must not panic or propagate; recording happens while surfacing a more
	// important failure.
	recorder.Record(context.Background(), TypeCompensationFailed,
		"tenant-1", domain.NewResourceID(), "", "compensation failed")
}

func TestRecorderFansOutToOutbox(t *testing.T) {
	store := NewInMemoryStore()
	outbox := make(chan Incident, 1)
	recorder := NewRecorder(store, WithOutbox(outbox))

	recorder.Record(context.Background(), TypeDanglingReference,
		"tenant-1", domain.NewResourceID(), "ref", "reference nulled")

	select {
	case inc := <-outbox:
		assert.Equal(t, TypeDanglingReference, inc.Type)
	default:
		t.Fatal("expected incident on outbox")
	}
}

func TestRecorderDropsFanOutWhenOutboxFull(t *testing.T) {
	store := NewInMemoryStore()
	outbox := make(chan Incident, 1)
	recorder := NewRecorder(store, WithOutbox(outbox))

	for i := 0; i < 3; i++ {
		recorder.Record(context.Background(), TypeOrphanBlob,
			"tenant-1", domain.NewResourceID(), "ref", "orphan deleted")
	}

	// The store copy is complete even though the outbox dropped two.
	incidents, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, incidents, 3)
	assert.Len(t, outbox, 1)
}

func TestWorkerPublishesFromInbox(t *testing.T) {
	inbox := make(chan Incident, 2)
	pub := &capturingPublisher{published: make(chan Incident, 2)}
	worker := NewWorker(pub, inbox, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	want := Incident{Type: TypeOrphanBlob, TenantID: "tenant-1"}
	inbox <- want

	select {
	case got := <-pub.published:
		assert.Equal(t, want.Type, got.Type)
	case <-time.After(time.Second):
		t.Fatal("incident was not published")
	}

	cancel()
	<-done
}

type failingSink struct {
	err error
}

func (s failingSink) Append(context.Context, Incident) error { return s.err }
func (s failingSink) List(context.Context) ([]Incident, error) {
	return nil, s.err
}

type capturingPublisher struct {
	published chan Incident
}

func (p *capturingPublisher) Publish(_ context.Context, inc Incident) error {
	p.published <- inc
	return nil
}
