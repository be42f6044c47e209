package resolve

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/caldera-build/resolver/artifact"
	"github.com/caldera-build/resolver/localrepo"
	"github.com/caldera-build/resolver/session"
	"github.com/caldera-build/resolver/syncctx"
)

type fakeTransport struct {
	gets        int32
	failUntil   int32
	content     []byte
	peekMissing bool
}

func (t *fakeTransport) Peek(ctx context.Context, url string) (bool, error) {
	return !t.peekMissing, nil
}

func (t *fakeTransport) Get(ctx context.Context, url, dataPath string, resumeOffset int64) (map[string][]string, map[string]string, error) {
	n := atomic.AddInt32(&t.gets, 1)
	if n <= t.failUntil {
		return nil, nil, fmt.Errorf("simulated transient failure %d", n)
	}
	content := t.content
	if content == nil {
		content = []byte("jar-bytes")
	}
	if err := os.WriteFile(dataPath, content, 0o644); err != nil {
		return nil, nil, err
	}
	return map[string][]string{}, map[string]string{}, nil
}

func (t *fakeTransport) Put(ctx context.Context, url, path string) error { return nil }

func testArtifact(id string) artifact.Artifact {
	return artifact.Artifact{GroupID: "com.example", ArtifactID: id, Version: "1.0", Extension: "jar"}
}

func newResolver(t *testing.T, transport Transport, repos []Repository) (*ArtifactResolver, localrepo.Repository) {
	t.Helper()
	local, err := localrepo.NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileRepository() error = %v", err)
	}
	sess := session.New()
	sc := syncctx.New(sess, syncctx.GAVNameMapper())
	return New(sess, sc, local, transport, repos), local
}

func TestResolve_DownloadsMissingArtifact(t *testing.T) {
	transport := &fakeTransport{}
	repos := []Repository{{ID: "central", URL: "https://repo.example/maven", Policy: UpdatePolicyAlways{}}}
	resolver, _ := newResolver(t, transport, repos)

	results, err := resolver.Resolve(context.Background(), []Request{{Artifact: testArtifact("widget")}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(results) != 1 || results[0].File == "" {
		t.Fatalf("expected a resolved file, got %+v", results)
	}
	if results[0].Repository != "central" {
		t.Errorf("Repository = %q, want central", results[0].Repository)
	}
	data, err := os.ReadFile(results[0].File)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "jar-bytes" {
		t.Errorf("file content = %q", data)
	}
}

func TestResolve_SecondCallHitsLocalRepository(t *testing.T) {
	transport := &fakeTransport{}
	repos := []Repository{{ID: "central", URL: "https://repo.example/maven", Policy: UpdatePolicyAlways{}}}
	resolver, _ := newResolver(t, transport, repos)

	req := []Request{{Artifact: testArtifact("widget")}}
	if _, err := resolver.Resolve(context.Background(), req); err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}
	if _, err := resolver.Resolve(context.Background(), req); err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
	if transport.gets != 1 {
		t.Errorf("expected exactly one network fetch, got %d", transport.gets)
	}
}

func TestResolve_LocalPathShortCircuitsNetwork(t *testing.T) {
	transport := &fakeTransport{}
	resolver, _ := newResolver(t, transport, nil)

	a := testArtifact("widget")
	a.LocalPath = "/already/on/disk/widget-1.0.jar"
	results, err := resolver.Resolve(context.Background(), []Request{{Artifact: a}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if results[0].File != a.LocalPath {
		t.Errorf("File = %q, want %q", results[0].File, a.LocalPath)
	}
	if transport.gets != 0 {
		t.Error("expected no network access for an unhosted artifact")
	}
}

func TestResolve_UpdatePolicyNeverAvoidsRecheckAfterFailure(t *testing.T) {
	transport := &fakeTransport{failUntil: 100}
	repos := []Repository{{ID: "central", URL: "https://repo.example/maven", Policy: UpdatePolicyNever{}}}
	resolver, _ := newResolver(t, transport, repos)

	req := []Request{{Artifact: testArtifact("widget")}}
	results, err := resolver.Resolve(context.Background(), req)
	if err == nil {
		t.Fatal("expected first Resolve() to fail")
	}
	if results[0].Err == nil {
		t.Fatal("expected result error recorded")
	}

	results2, err2 := resolver.Resolve(context.Background(), req)
	if err2 == nil {
		t.Fatal("expected second Resolve() to fail fast from cached error")
	}
	if transport.gets != 1 {
		t.Errorf("expected UpdatePolicyNever to avoid a second network attempt, got %d gets", transport.gets)
	}
	if results2[0].Err == nil {
		t.Fatal("expected cached failure surfaced on second attempt")
	}
}

func TestResolve_WorkspaceReaderTakesPriorityOverNetwork(t *testing.T) {
	transport := &fakeTransport{}
	repos := []Repository{{ID: "central", URL: "https://repo.example/maven", Policy: UpdatePolicyAlways{}}}
	sess := session.New()
	local, _ := localrepo.NewFileRepository(t.TempDir())
	sc := syncctx.New(sess, syncctx.GAVNameMapper())
	ws := fakeWorkspace{"com.example:widget:1.0": "/workspace/build/widget.jar"}
	resolver := New(sess, sc, local, transport, repos, WithWorkspaceReader(ws))

	results, err := resolver.Resolve(context.Background(), []Request{{Artifact: testArtifact("widget")}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if results[0].File != "/workspace/build/widget.jar" {
		t.Errorf("File = %q, want workspace path", results[0].File)
	}
	if transport.gets != 0 {
		t.Error("expected workspace hit to avoid network")
	}
}

type fakeWorkspace map[string]string

func (w fakeWorkspace) Find(a artifact.Artifact) (string, bool) {
	file, ok := w[fmt.Sprintf("%s:%s:%s", a.GroupID, a.ArtifactID, a.Version)]
	return file, ok
}

func TestResolve_PostProcessorFailureCachesError(t *testing.T) {
	transport := &fakeTransport{}
	repos := []Repository{{ID: "central", URL: "https://repo.example/maven", Policy: UpdatePolicyAlways{}}}
	resolver, local := newResolver(t, transport, repos)
	resolver.postProcessors = append(resolver.postProcessors, failingPostProcessor{})

	a := testArtifact("widget")
	_, err := resolver.Resolve(context.Background(), []Request{{Artifact: a}})
	if err == nil {
		t.Fatal("expected post-processor failure to surface")
	}
	if _, ok := local.CachedError(context.Background(), a, "central"); !ok {
		t.Error("expected the local repository to record the cached error")
	}
}

type failingPostProcessor struct{}

func (failingPostProcessor) Process(ctx context.Context, a artifact.Artifact, file string, checksums map[string]string) error {
	return fmt.Errorf("checksum rejected")
}

func TestNormalizeSnapshot_CopiesUnderBaseVersionName(t *testing.T) {
	dir := t.TempDir()
	a := artifact.Artifact{GroupID: "g", ArtifactID: "widget", Version: "1.0-20240102.030405-7", BaseVersion: "1.0-SNAPSHOT", Extension: "jar"}
	src := dir + "/widget-1.0-20240102.030405-7.jar"
	if err := os.WriteFile(src, []byte("bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	dest, err := NormalizeSnapshot(a, src, time.Time{})
	if err != nil {
		t.Fatalf("NormalizeSnapshot() error = %v", err)
	}
	if dest == src {
		t.Fatal("expected a distinct alias path")
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "bytes" {
		t.Errorf("alias content = %q", data)
	}
}

func TestNormalizeSnapshot_NoOpForReleaseVersions(t *testing.T) {
	dir := t.TempDir()
	a := testArtifact("widget")
	src := dir + "/widget-1.0.jar"
	os.WriteFile(src, []byte("x"), 0o644)

	dest, err := NormalizeSnapshot(a, src, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if dest != src {
		t.Errorf("expected no-op for a non-snapshot artifact, got %q", dest)
	}
}

func TestArtifactURL_UsesMavenLayout(t *testing.T) {
	a := artifact.Artifact{GroupID: "com.example", ArtifactID: "widget", Version: "1.0", Extension: "jar"}
	got := ArtifactURL("https://repo.example/maven/", a)
	want := "https://repo.example/maven/com/example/widget/1.0/widget-1.0.jar"
	if got != want {
		t.Errorf("ArtifactURL() = %q, want %q", got, want)
	}
}

func TestUpdatePolicyDaily_RechecksAcrossDayBoundary(t *testing.T) {
	p := UpdatePolicyDaily{}
	yesterday := time.Now().Add(-25 * time.Hour)
	if !p.ShouldCheck(yesterday, true) {
		t.Error("expected a recheck once the calendar day has changed")
	}
	if p.ShouldCheck(time.Now(), true) {
		t.Error("expected no recheck within the same day")
	}
}
