package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caldera-build/resolver/cache"
	resolverhttp "github.com/caldera-build/resolver/http"
	"github.com/caldera-build/resolver/localrepo"
	"github.com/caldera-build/resolver/observability"
	"github.com/caldera-build/resolver/resilience"
	"github.com/caldera-build/resolver/resolve"
	"github.com/caldera-build/resolver/session"
	"github.com/caldera-build/resolver/syncctx"
)

// defaultLocalRepo mirrors the ~/.m2/repository convention: a single
// per-user cache shared by every invocation unless overridden.
func defaultLocalRepo() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".resolver", "repository"), nil
}

// environment bundles the collaborators every resolvectl command needs to
// drive resolve.ArtifactResolver: a local repository, a named-lock sync
// context, and an HTTP transport shared across all configured repositories.
type environment struct {
	sess         *session.Session
	sync         *syncctx.SyncContext
	local        localrepo.Repository
	transport    resolve.Transport
	repositories []resolve.Repository
}

// buildEnvironment reads the --local-repo and --repository persistent
// flags (walking up to the root command, since subcommands inherit them)
// and assembles an environment ready to hand to resolve.New.
func buildEnvironment(cmd *cobra.Command) (*environment, error) {
	root := cmd.Root().PersistentFlags()

	localRepoFlag, _ := root.GetString("local-repo")
	if localRepoFlag == "" {
		var err error
		localRepoFlag, err = defaultLocalRepo()
		if err != nil {
			return nil, fmt.Errorf("resolve default local repository: %w", err)
		}
	}

	local, err := localrepo.NewFileRepository(localRepoFlag)
	if err != nil {
		return nil, fmt.Errorf("open local repository %s: %w", localRepoFlag, err)
	}

	repoFlags, _ := root.GetStringSlice("repository")
	repositories, err := parseRepositories(repoFlags)
	if err != nil {
		return nil, err
	}

	sess := session.New()
	sc := syncctx.New(sess, syncctx.GAVNameMapper())

	cfg := resolverhttp.DefaultConfig()
	cfg.Logger = observability.NewDefaultLogger()
	breakerConfig := resilience.DefaultCircuitBreakerConfig()
	cfg.CircuitBreakerConfig = &breakerConfig
	if traceFlag, _ := root.GetBool("trace"); traceFlag {
		cfg.EnableTracing = true
	}
	client := resolverhttp.NewClient(cfg)
	limiter := resilience.NewPerSourceLimiterWithDefaults()

	var transport resolve.Transport = resolve.NewHTTPTransport(client, nil, limiter)

	noCache, _ := root.GetBool("no-cache")
	if !noCache {
		diskCache, err := cache.NewDiskCache(filepath.Join(localRepoFlag, ".transport-cache"), 1<<30)
		if err != nil {
			return nil, fmt.Errorf("open transport cache: %w", err)
		}
		memoryCache := cache.NewMemoryCache(1000, 64<<20)
		transport = resolve.NewCachingTransport(transport, cache.NewMultiTierCache(memoryCache, diskCache))
	}

	return &environment{
		sess:         sess,
		sync:         sc,
		local:        local,
		transport:    transport,
		repositories: repositories,
	}, nil
}

// parseRepositories parses --repository values of the form id=url. A bare
// URL with no "id=" prefix is assigned an id derived from its position.
func parseRepositories(flags []string) ([]resolve.Repository, error) {
	if len(flags) == 0 {
		return []resolve.Repository{{ID: "central", URL: "https://repo.maven.apache.org/maven2", Policy: resolve.UpdatePolicyDaily{}}}, nil
	}

	repos := make([]resolve.Repository, 0, len(flags))
	for i, f := range flags {
		id, url := fmt.Sprintf("repo%d", i+1), f
		if idx := strings.Index(f, "="); idx >= 0 {
			id, url = f[:idx], f[idx+1:]
		}
		if url == "" {
			return nil, fmt.Errorf("invalid --repository value %q: missing URL", f)
		}
		repos = append(repos, resolve.Repository{ID: id, URL: url, Policy: resolve.UpdatePolicyDaily{}})
	}
	return repos, nil
}
