package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yaegashi/resourceprovisioner/domain/model"
	"github.com/yaegashi/resourceprovisioner/internal/keylock"
	"github.com/yaegashi/resourceprovisioner/internal/logging"
	"github.com/yaegashi/resourceprovisioner/usecase/resourcing"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// batchFile is the on-disk list of requests for "resource batch".
type batchFile struct {
	Requests []batchRequest `yaml:"requests"`
}

type batchRequest struct {
	Workspace      model.Workspace `yaml:"workspace"`
	Templates      []string        `yaml:"templates"`
	RequestingUser string          `yaml:"requestingUser"`
}

func (r batchRequest) input() *resourcing.HandleInput {
	ws := r.Workspace
	if ws.Organization != nil {
		org := *ws.Organization
		ws.Organization = &org
	}
	return &resourcing.HandleInput{
		Workspace:      &ws,
		Templates:      toTemplates(r.Templates),
		RequestingUser: r.RequestingUser,
	}
}

func readBatchFile(path string) ([]batchRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	var f batchFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML %s: %w", path, err)
	}
	if len(f.Requests) == 0 {
		return nil, fmt.Errorf("no requests in %s", path)
	}
	return f.Requests, nil
}

type handleFunc func(ctx context.Context, in *resourcing.HandleInput) (*resourcing.HandleOutput, error)

// runBatch handles requests with at most parallel workspaces in flight.
// Requests for the same acronym run one after another in file order.
// Results keep the input order.
func runBatch(ctx context.Context, reqs []batchRequest, parallel int, handle handleFunc) []runResult {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]runResult, len(reqs))
	var locks keylock.KeyLock
	var g errgroup.Group
	g.SetLimit(parallel)
	for _, idx := range groupByAcronym(reqs) {
		idx := idx
		g.Go(func() error {
			for _, i := range idx {
				results[i] = handleOne(ctx, &locks, reqs[i], handle)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// groupByAcronym returns request indexes per acronym in order of first
// appearance.
func groupByAcronym(reqs []batchRequest) [][]int {
	pos := map[string]int{}
	var groups [][]int
	for i, r := range reqs {
		k := r.Workspace.Acronym
		n, ok := pos[k]
		if !ok {
			n = len(groups)
			pos[k] = n
			groups = append(groups, nil)
		}
		groups[n] = append(groups[n], i)
	}
	return groups
}

func handleOne(ctx context.Context, locks *keylock.KeyLock, req batchRequest, handle handleFunc) runResult {
	if err := ctx.Err(); err != nil {
		return runResult{Error: err.Error()}
	}
	// Azure Repos compares branch names without case, so ABC and abc share
	// a remote branch.
	unlock := locks.Lock(strings.ToUpper(req.Workspace.Acronym))
	defer unlock()
	out, err := handle(ctx, req.input())
	if err != nil {
		logging.FromContext(ctx).Warn(ctx, "batch request failed", "workspace", req.Workspace.Acronym, "err", err)
	}
	return newRunResult(out, err)
}

func newCmdResourceBatch() *cobra.Command {
	var (
		file     string
		parallel int
	)
	c := &cobra.Command{
		Use:                "batch",
		Short:              "Run resourcing requests listed in a YAML file",
		Example:            "  provisioner resource batch -f requests.yml --parallel 4",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		Args:               cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			reqs, err := readBatchFile(file)
			if err != nil {
				return err
			}
			uc, err := buildResourcingUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag(cmd))
			defer cancel()
			ctx, cleanup := withCmdRunLogger(ctx, "resource.batch", file)
			defer func() { cleanup(err) }()

			results := runBatch(ctx, reqs, parallel, uc.Handle)
			enc := json.NewEncoder(cmd.OutOrStdout())
			failed := 0
			for _, r := range results {
				if r.Error != "" {
					failed++
				}
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d requests failed", failed, len(results))
			}
			return nil
		},
	}
	c.Flags().StringVarP(&file, "file", "f", "", "Path to the requests YAML file")
	c.Flags().IntVar(&parallel, "parallel", 1, "Maximum number of workspaces handled at once")
	return c
}
