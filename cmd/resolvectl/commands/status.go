package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/caldera-build/resolver/cmd/resolvectl/output"
	"github.com/caldera-build/resolver/observability"
)

// localRepoSizeBytes sums the size of every regular file under root. A
// missing root reports zero rather than failing the check outright.
func localRepoSizeBytes(root string) int64 {
	var total int64
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

// NewStatusCommand creates the "status" command: reports reachability of
// the configured repositories and local repository disk usage.
func NewStatusCommand(console *output.Console) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report repository reachability and local repository usage",
		Long: `Runs a HEAD check against every configured repository and reports the
local repository's disk usage, aggregated into an overall status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := buildEnvironment(cmd)
			if err != nil {
				return err
			}

			root := cmd.Root().PersistentFlags()
			localRepoFlag, _ := root.GetString("local-repo")
			if localRepoFlag == "" {
				localRepoFlag, err = defaultLocalRepo()
				if err != nil {
					return err
				}
			}

			const maxLocalRepoBytes = 10 << 30 // 10 GiB, a soft budget for the "degraded" threshold

			checker := observability.NewHealthChecker()
			for _, repo := range env.repositories {
				checker.Register(observability.HTTPSourceHealthCheck(repo.ID, repo.URL, 5*time.Second))
			}
			checker.Register(observability.CacheHealthCheck("local-repository", localRepoSizeBytes(localRepoFlag), maxLocalRepoBytes))

			ctx := cmd.Context()
			results := checker.Check(ctx)
			for _, repo := range env.repositories {
				r := results[repo.ID]
				console.Println(formatHealthLine(repo.ID, r))
			}
			console.Println(formatHealthLine("local-repository", results["local-repository"]))

			overall := checker.OverallStatus(ctx)
			console.Println("")
			console.Println("overall: " + string(overall))
			if overall == observability.HealthStatusUnhealthy {
				return fmt.Errorf("status: one or more repositories are unreachable")
			}
			return nil
		},
	}
	return cmd
}

func formatHealthLine(name string, r observability.HealthCheckResult) string {
	line := name + ": " + string(r.Status)
	if r.Message != "" {
		line += " (" + r.Message + ")"
	}
	return line
}
