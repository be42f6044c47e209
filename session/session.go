// Package session holds the typed configuration threaded explicitly through
// every resolver call. There is no global state: a Session is built once
// (typically from a config loader external to this module) and passed by
// value or pointer into collector, transform, syncctx, and resolve calls.
package session

import "time"

// ConflictVerbosity controls whether losing nodes are retained in the
// resolved graph after conflict resolution.
type ConflictVerbosity string

const (
	VerbosityNone     ConflictVerbosity = "NONE"
	VerbosityStandard ConflictVerbosity = "STANDARD"
	VerbosityFull     ConflictVerbosity = "FULL"
)

// VersionStrategy selects how a conflict group's winner is chosen.
type VersionStrategy string

const (
	StrategyNearest VersionStrategy = "NEAREST"
	StrategyHighest VersionStrategy = "HIGHEST"
)

// NameMapperKind selects the SyncContext key derivation strategy.
type NameMapperKind string

const (
	NameMapperStatic         NameMapperKind = "static"
	NameMapperGAV            NameMapperKind = "gav"
	NameMapperDiscriminating NameMapperKind = "discriminating"
	NameMapperFile           NameMapperKind = "file"
)

// LockFactoryKind selects the lock implementation backing SyncContext keys.
type LockFactoryKind string

const (
	LockFactoryLocalRWLock    LockFactoryKind = "local-rwlock"
	LockFactoryLocalSemaphore LockFactoryKind = "local-semaphore"
	LockFactoryFile           LockFactoryKind = "file"
)

// HTTPVersion selects the transport's negotiated protocol.
type HTTPVersion string

const (
	HTTP1_1 HTTPVersion = "HTTP_1_1"
	HTTP2   HTTPVersion = "HTTP_2"
)

// HTTPSSecurityMode controls certificate validation strictness.
type HTTPSSecurityMode string

const (
	SecurityModeDefault  HTTPSSecurityMode = "default"
	SecurityModeInsecure HTTPSSecurityMode = "insecure"
)

// LocalRepoInterop is a tri-state: Unset defers to the default (enabled
// unless a RemoteRepositoryFilter is active), Enabled/Disabled force the
// behavior regardless of filter state.
type LocalRepoInterop int

const (
	LocalRepoInteropUnset LocalRepoInterop = iota
	LocalRepoInteropEnabled
	LocalRepoInteropDisabled
)

// Session is the explicit configuration object threaded through every
// resolver call. Zero value is valid: every accessor falls back to the
// documented default when the corresponding field is unset.
type Session struct {
	// collector.bf.*
	collectorSkipper *bool
	collectorThreads *int

	// dependencyManager.verbose
	dependencyManagerVerbose *bool

	// conflictResolver.verbose
	conflictResolverVerbose *ConflictVerbosity

	// versionSelector.strategy
	versionSelectorStrategy *VersionStrategy

	// syncContext.named.*
	syncNamedTime          *time.Duration
	syncNamedExclusiveTime *time.Duration
	syncNamedRetry         *int
	syncNamedRetryWait     *time.Duration
	syncNamedNameMapper    *NameMapperKind
	syncNamedFactory       *LockFactoryKind

	// artifactResolver.*
	artifactResolverSnapshotNormalization *bool
	artifactResolverSimpleLrmInterop      *LocalRepoInterop

	// transport.http.*
	transportMaxConcurrentRequests *int
	transportHTTPVersion           *HTTPVersion
	transportExpectContinue        *bool
	transportHTTPSSecurityMode     *HTTPSSecurityMode

	// RemoteRepositoryFilter is stored for callers and returned by
	// RemoteRepositoryFilter(); ArtifactResolver does not consult it. Its
	// presence forces SimpleLrmInterop to Disabled unless explicitly
	// overridden.
	remoteRepositoryFilter func(repository string) bool
}

// New returns a Session with all defaults in effect.
func New() *Session {
	return &Session{}
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }

// --- collector.bf.* ---

const defaultCollectorThreads = 5

func (s *Session) CollectorSkipperEnabled() bool {
	if s.collectorSkipper == nil {
		return true
	}
	return *s.collectorSkipper
}

func (s *Session) SetCollectorSkipperEnabled(v bool) *Session {
	s.collectorSkipper = boolPtr(v)
	return s
}

func (s *Session) CollectorThreads() int {
	if s.collectorThreads == nil {
		return defaultCollectorThreads
	}
	return *s.collectorThreads
}

func (s *Session) SetCollectorThreads(n int) *Session {
	s.collectorThreads = intPtr(n)
	return s
}

// --- dependencyManager.verbose ---

func (s *Session) DependencyManagerVerbose() bool {
	return s.dependencyManagerVerbose != nil && *s.dependencyManagerVerbose
}

func (s *Session) SetDependencyManagerVerbose(v bool) *Session {
	s.dependencyManagerVerbose = boolPtr(v)
	return s
}

// --- conflictResolver.verbose ---

func (s *Session) ConflictResolverVerbose() ConflictVerbosity {
	if s.conflictResolverVerbose == nil {
		return VerbosityNone
	}
	return *s.conflictResolverVerbose
}

func (s *Session) SetConflictResolverVerbose(v ConflictVerbosity) *Session {
	s.conflictResolverVerbose = &v
	return s
}

// --- versionSelector.strategy ---

func (s *Session) VersionSelectorStrategy() VersionStrategy {
	if s.versionSelectorStrategy == nil {
		return StrategyNearest
	}
	return *s.versionSelectorStrategy
}

func (s *Session) SetVersionSelectorStrategy(v VersionStrategy) *Session {
	s.versionSelectorStrategy = &v
	return s
}

// --- syncContext.named.* ---

func (s *Session) SyncNamedTime() time.Duration {
	if s.syncNamedTime == nil {
		return 300 * time.Second
	}
	return *s.syncNamedTime
}

func (s *Session) SetSyncNamedTime(d time.Duration) *Session {
	s.syncNamedTime = &d
	return s
}

func (s *Session) SyncNamedExclusiveTime() time.Duration {
	if s.syncNamedExclusiveTime == nil {
		return 5 * time.Second
	}
	return *s.syncNamedExclusiveTime
}

func (s *Session) SetSyncNamedExclusiveTime(d time.Duration) *Session {
	s.syncNamedExclusiveTime = &d
	return s
}

func (s *Session) SyncNamedRetry() int {
	if s.syncNamedRetry == nil {
		return 1
	}
	return *s.syncNamedRetry
}

func (s *Session) SetSyncNamedRetry(n int) *Session {
	s.syncNamedRetry = intPtr(n)
	return s
}

func (s *Session) SyncNamedRetryWait() time.Duration {
	if s.syncNamedRetryWait == nil {
		return 200 * time.Millisecond
	}
	return *s.syncNamedRetryWait
}

func (s *Session) SetSyncNamedRetryWait(d time.Duration) *Session {
	s.syncNamedRetryWait = &d
	return s
}

func (s *Session) SyncNamedNameMapper() NameMapperKind {
	if s.syncNamedNameMapper == nil {
		return NameMapperGAV
	}
	return *s.syncNamedNameMapper
}

func (s *Session) SetSyncNamedNameMapper(v NameMapperKind) *Session {
	s.syncNamedNameMapper = &v
	return s
}

func (s *Session) SyncNamedFactory() LockFactoryKind {
	if s.syncNamedFactory == nil {
		return LockFactoryLocalRWLock
	}
	return *s.syncNamedFactory
}

func (s *Session) SetSyncNamedFactory(v LockFactoryKind) *Session {
	s.syncNamedFactory = &v
	return s
}

// --- artifactResolver.* ---

func (s *Session) ArtifactResolverSnapshotNormalization() bool {
	if s.artifactResolverSnapshotNormalization == nil {
		return true
	}
	return *s.artifactResolverSnapshotNormalization
}

func (s *Session) SetArtifactResolverSnapshotNormalization(v bool) *Session {
	s.artifactResolverSnapshotNormalization = boolPtr(v)
	return s
}

// SimpleLrmInterop resolves the tri-state: an active RemoteRepositoryFilter
// forces Disabled unless the caller explicitly set Enabled.
func (s *Session) SimpleLrmInterop() LocalRepoInterop {
	if s.artifactResolverSimpleLrmInterop != nil {
		return *s.artifactResolverSimpleLrmInterop
	}
	if s.remoteRepositoryFilter != nil {
		return LocalRepoInteropDisabled
	}
	return LocalRepoInteropUnset
}

func (s *Session) SetSimpleLrmInterop(v LocalRepoInterop) *Session {
	s.artifactResolverSimpleLrmInterop = &v
	return s
}

// --- transport.http.* ---

func (s *Session) TransportMaxConcurrentRequests() int {
	if s.transportMaxConcurrentRequests == nil {
		return 64
	}
	return *s.transportMaxConcurrentRequests
}

func (s *Session) SetTransportMaxConcurrentRequests(n int) *Session {
	s.transportMaxConcurrentRequests = intPtr(n)
	return s
}

func (s *Session) TransportHTTPVersion() HTTPVersion {
	if s.transportHTTPVersion == nil {
		return HTTP2
	}
	return *s.transportHTTPVersion
}

func (s *Session) SetTransportHTTPVersion(v HTTPVersion) *Session {
	s.transportHTTPVersion = &v
	return s
}

func (s *Session) TransportExpectContinue() bool {
	return s.transportExpectContinue != nil && *s.transportExpectContinue
}

func (s *Session) SetTransportExpectContinue(v bool) *Session {
	s.transportExpectContinue = boolPtr(v)
	return s
}

func (s *Session) TransportHTTPSSecurityMode() HTTPSSecurityMode {
	if s.transportHTTPSSecurityMode == nil {
		return SecurityModeDefault
	}
	return *s.transportHTTPSSecurityMode
}

func (s *Session) SetTransportHTTPSSecurityMode(v HTTPSSecurityMode) *Session {
	s.transportHTTPSSecurityMode = &v
	return s
}

// --- RemoteRepositoryFilter ---

func (s *Session) RemoteRepositoryFilter() func(repository string) bool {
	return s.remoteRepositoryFilter
}

func (s *Session) SetRemoteRepositoryFilter(f func(repository string) bool) *Session {
	s.remoteRepositoryFilter = f
	return s
}
