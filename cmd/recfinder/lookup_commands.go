package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sydlexius/recfinder/internal/filter"
	"github.com/sydlexius/recfinder/internal/recommend"
)

type lookupFlags struct {
	urls    bool
	workers int
}

func (f *lookupFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.urls, "urls", false, "Add a Last.fm page URL column")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Concurrent artist.getinfo requests (default from config)")
}

func newSimilarCommand(ctx *commandContext) *cobra.Command {
	var flags lookupFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "similar <artist>",
		Short: "List artists similar to a seed artist, in rank order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--max must not be negative, got %d", limit)
			}
			seed := strings.TrimSpace(args[0])
			svc, err := ctx.lookupService(cmd, flags)
			if err != nil {
				return err
			}

			names, err := svc.Similar(cmd.Context(), seed)
			if err != nil {
				return fmt.Errorf("similar artists for %q: %w", seed, err)
			}
			if limit > 0 && len(names) > limit {
				names = names[:limit]
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, similarOutput{Artist: seed, Similar: names})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSimilar(names, flags.urls, shouldDecorate(cmd.OutOrStdout())))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&limit, "max", 0, "Show at most this many artists (0 for all)")
	return cmd
}

func newObscureCommand(ctx *commandContext) *cobra.Command {
	var flags lookupFlags
	var listeners int

	cmd := &cobra.Command{
		Use:   "obscure <artist>",
		Short: "Find similar artists with at most N listeners",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if listeners <= 0 {
				return fmt.Errorf("--listeners must be greater than zero, got %d", listeners)
			}
			return ctx.runRecommend(cmd, args[0], filter.Threshold(listeners), flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&listeners, "listeners", "n", 0, "Maximum listener count for a match")
	_ = cmd.MarkFlagRequired("listeners")
	return cmd
}

func newTagsCommand(ctx *commandContext) *cobra.Command {
	var flags lookupFlags
	var tags []string

	cmd := &cobra.Command{
		Use:   "tags <artist>",
		Short: "Find similar artists carrying one of the given tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := filter.TagSet(tags...)
			if err := mode.Validate(); err != nil {
				return err
			}
			return ctx.runRecommend(cmd, args[0], mode, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "Tag to match (repeatable)")
	_ = cmd.MarkFlagRequired("tag")
	return cmd
}

func (c *commandContext) lookupService(cmd *cobra.Command, flags lookupFlags) (*recommend.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("workers") {
		if flags.workers < 1 {
			return nil, fmt.Errorf("--workers must be at least 1, got %d", flags.workers)
		}
		cfg.Filter.Workers = flags.workers
	}
	return c.newService(cfg, nil)
}

// runRecommend runs the pipeline and prints its rows. A similarity failure
// still prints the error rows before the command fails.
func (c *commandContext) runRecommend(cmd *cobra.Command, seed string, mode filter.Mode, flags lookupFlags) error {
	seed = strings.TrimSpace(seed)
	svc, err := c.lookupService(cmd, flags)
	if err != nil {
		return err
	}

	res, runErr := svc.Recommend(cmd.Context(), seed, mode)
	if res == nil {
		return runErr
	}

	if c.jsonOutput() {
		if err := writeJSON(cmd, newRecommendOutput(res)); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), renderResult(res, flags.urls, shouldDecorate(cmd.OutOrStdout())))
	}

	if runErr != nil {
		return fmt.Errorf("similar artists for %q: %w", seed, runErr)
	}
	return nil
}

type similarOutput struct {
	Artist  string   `json:"artist"`
	Similar []string `json:"similar"`
}

type recommendOutput struct {
	*recommend.Result
	Label string         `json:"label"`
	Rows  recommend.Rows `json:"rows"`
}

func newRecommendOutput(res *recommend.Result) recommendOutput {
	return recommendOutput{Result: res, Label: res.Label(), Rows: res.Rows()}
}
