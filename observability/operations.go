package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the tracer name for resolver operations
	TracerName = "github.com/caldera-build/resolver"
)

// Common attribute keys
const (
	AttrArtifactID      = attribute.Key("artifact.id")
	AttrArtifactVersion = attribute.Key("artifact.version")
	AttrRepositoryURL   = attribute.Key("artifact.repository.url")
	AttrScope           = attribute.Key("artifact.scope")
	AttrOperation       = attribute.Key("artifact.operation")
	AttrCacheHit        = attribute.Key("artifact.cache.hit")
	AttrRetryCount      = attribute.Key("artifact.retry.count")
)

// StartArtifactDownloadSpan starts a span for an artifact file download.
func StartArtifactDownloadSpan(ctx context.Context, artifactID, version, repositoryURL string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "artifact.download",
		trace.WithAttributes(
			AttrArtifactID.String(artifactID),
			AttrArtifactVersion.String(version),
			AttrRepositoryURL.String(repositoryURL),
			AttrOperation.String("download"),
		),
	)
}

// StartCollectSpan starts a span for a full dependency collection run.
func StartCollectSpan(ctx context.Context, rootCoordinate string, directDependencyCount int) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "collect.run",
		trace.WithAttributes(
			attribute.String("collect.root", rootCoordinate),
			attribute.Int("collect.direct_dependencies", directDependencyCount),
			AttrOperation.String("collect"),
		),
	)
}

// StartCacheLookupSpan starts a span for cache lookup
func StartCacheLookupSpan(ctx context.Context, cacheKey string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "cache.lookup",
		trace.WithAttributes(
			attribute.String("cache.key", cacheKey),
		),
	)
}

// RecordCacheHit records cache hit/miss on the current span
func RecordCacheHit(ctx context.Context, hit bool) {
	SetAttributes(ctx, AttrCacheHit.Bool(hit))
}

// StartDescriptorResolveSpan starts a span for a single descriptor resolution.
func StartDescriptorResolveSpan(ctx context.Context, artifactID, scope string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "descriptor.resolve",
		trace.WithAttributes(
			AttrArtifactID.String(artifactID),
			AttrScope.String(scope),
			AttrOperation.String("resolve"),
		),
	)
}

// StartConflictTransformSpan starts a span for a single graph transformer pass.
func StartConflictTransformSpan(ctx context.Context, transformerName string, nodeCount int) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "graph.transform",
		trace.WithAttributes(
			attribute.String("transform.name", transformerName),
			attribute.Int("transform.nodes", nodeCount),
		),
	)
}

// RecordRetry records a retry attempt on the current span
func RecordRetry(ctx context.Context, attempt int, err error) {
	span := SpanFromContext(ctx)
	span.AddEvent("retry",
		trace.WithAttributes(
			attribute.Int("retry.attempt", attempt),
			attribute.String("retry.error", err.Error()),
		),
	)
}

// StartLockAcquireSpan starts a span for a SyncContext lock acquisition.
func StartLockAcquireSpan(ctx context.Context, key string, exclusive bool) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "sync.acquire",
		trace.WithAttributes(
			attribute.String("sync.key", key),
			attribute.Bool("sync.exclusive", exclusive),
			AttrOperation.String("lock_acquire"),
		),
	)
}

// EndSpanWithError ends a span with an error status
func EndSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
