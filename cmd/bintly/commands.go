package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"bintly/internal/benchmark"
	"bintly/internal/config"
	berrors "bintly/internal/errors"
	"bintly/internal/eval"
	"bintly/internal/external"
	"bintly/internal/moltbook"
	"bintly/internal/observability"
	"bintly/internal/orchestrator"
	"bintly/internal/post"
	"bintly/internal/runstore"
	"bintly/internal/server"
)

func newAggregateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Run one aggregation pass and write a new evaluation artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := opts.logger("aggregate")

			collector, err := observability.NewMetricsCollector(observability.MetricsFromConfig(cfg), logger)
			if err != nil {
				return err
			}
			defer func() { _ = collector.Shutdown(context.Background()) }()
			tracer, stopTracer, err := newTracer(cfg)
			if err != nil {
				return err
			}
			defer stopTracer()
			ctx, span := tracer.StartSpan(cmd.Context(), observability.SpanAggregate,
				attribute.String(observability.AttrBenchmarkVersion, cfg.BenchmarkVersion))
			defer span.End()

			store, err := runstore.OpenFile(cfg.RunsPath, logger)
			if err != nil {
				return err
			}
			for _, r := range store.Rejections() {
				fmt.Fprintln(cmd.ErrOrStderr(), yellow(fmt.Sprintf("rejected line %d: %s", r.Line, r.Reason)))
			}

			assembler := eval.Assembler{
				Version: cfg.BenchmarkVersion,
				Weights: eval.WeightsFromConfig(cfg),
				Policy:  eval.PolicyFromConfig(cfg),
			}
			started := time.Now()
			artifact, err := assembler.Assemble(ctx, store)
			if err != nil {
				collector.RecordAggregationPass(ctx, cfg.BenchmarkVersion, "failed", time.Since(started))
				span.SetAttributes(observability.ErrorAttrs(err)...)
				return err
			}
			collector.RecordAggregationPass(ctx, cfg.BenchmarkVersion, "ok", time.Since(started))
			span.SetAttributes(observability.StatusAttrs("ok")...)
			span.SetAttributes(attribute.Int(observability.AttrTaskCount, artifact.TaskCount))
			logger.Info("aggregation pass over %d tasks took %s", artifact.TaskCount, time.Since(started))

			if err := artifact.Save(cfg.ArtifactPath()); err != nil {
				return err
			}
			stamp := artifact.GeneratedAt.Format("20060102T150405Z")
			if err := artifact.Save(cfg.ArchivedArtifactPath(stamp)); err != nil {
				return err
			}
			if err := artifact.Summary().Save(cfg.SummaryPath()); err != nil {
				return err
			}
			if err := os.WriteFile(cfg.ArtifactNarrativePath(), []byte(post.Results(artifact)+"\n"), 0o644); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, bold("Evaluation artifact written"))
			fmt.Fprintln(out, gray("  "+cfg.ArtifactPath()))
			fmt.Fprintln(out, gray("  "+cfg.SummaryPath()))
			fmt.Fprintf(out, "  tasks: %d, classifications: %d, failing runs: %d across %d kinds\n",
				artifact.TaskCount, len(artifact.Classifications),
				artifact.Taxonomy.TotalFailures(), len(artifact.Taxonomy))
			if artifact.Comparative.VersonalityPerformanceDelta != nil {
				fmt.Fprintf(out, "  VPD: %+.4f\n", *artifact.Comparative.VersonalityPerformanceDelta)
			}
			return nil
		},
	}
	return cmd
}

func newPostCommand(opts *rootOptions) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Render the announcement content from the latest artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			artifact, err := eval.LoadArtifact(cfg.ArtifactPath())
			if err != nil {
				artifact = nil // render without findings
			}
			var text string
			switch kind {
			case "launch":
				text = post.Launch(artifact)
			case "results":
				text = post.Results(artifact)
			case "combined":
				text = post.Combined(artifact)
			default:
				return berrors.NewConfigurationError("kind", "unknown post kind %q (launch, results, combined)", kind)
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "combined", "which post to render: launch, results, combined")
	return cmd
}

// newTracer builds the tracer provider for one command invocation. The
// returned stop function flushes pending spans.
func newTracer(cfg config.RuntimeConfig) (*observability.TracerProvider, func(), error) {
	tracer, err := observability.NewTracerProvider(observability.TracingFromConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	}
	return tracer, stop, nil
}

// newMoltbookClient builds the rate-limited client, requiring an API key.
func newMoltbookClient(cfg config.RuntimeConfig, opts *rootOptions) (*moltbook.RateLimitedClient, error) {
	if cfg.MoltbookAPIKey == "" {
		return nil, berrors.NewConfigurationError("moltbook_api_key", "not set; export MOLTBOOK_API_KEY")
	}
	return moltbook.NewRateLimitedClient(moltbook.Config{
		APIKey:  cfg.MoltbookAPIKey,
		BaseURL: cfg.MoltbookBaseURL,
		Logger:  opts.logger("moltbook"),
	}), nil
}

// withOrchestrator acquires the single-writer lock, runs fn, and always
// releases the lock.
func withOrchestrator(cfg config.RuntimeConfig, opts *rootOptions, client orchestrator.Client, fn func(*orchestrator.Orchestrator) error) error {
	lock := orchestrator.NewLock(cfg.StatePath)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	o, err := orchestrator.New(
		orchestrator.LimitsFromConfig(cfg),
		orchestrator.NewFileStateStore(cfg.StatePath),
		client,
		opts.logger("orchestrator"),
	)
	if err != nil {
		return err
	}
	return fn(o)
}

func newPublishCommand(opts *rootOptions) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the canonical post (at most once per run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			client, err := newMoltbookClient(cfg, opts)
			if err != nil {
				return err
			}
			artifact, err := eval.LoadArtifact(cfg.ArtifactPath())
			if err != nil {
				artifact = nil
			}
			var content string
			switch kind {
			case "launch":
				content = post.Launch(artifact)
			case "combined":
				content = post.Combined(artifact)
			default:
				return berrors.NewConfigurationError("kind", "unknown post kind %q (launch, combined)", kind)
			}

			tracer, stopTracer, err := newTracer(cfg)
			if err != nil {
				return err
			}
			defer stopTracer()

			return withOrchestrator(cfg, opts, client, func(o *orchestrator.Orchestrator) error {
				ctx, span := tracer.StartSpan(cmd.Context(), observability.SpanPublish)
				defer span.End()
				published, err := o.PublishOnce(ctx, post.LaunchTitle, content)
				if err != nil {
					span.SetAttributes(observability.ErrorAttrs(err)...)
					return err
				}
				span.SetAttributes(attribute.String(observability.AttrPostID, published.ID))
				fmt.Fprintln(cmd.OutOrStdout(), green("published post "+published.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "combined", "which post to publish: launch, combined")
	return cmd
}

func newPollCommand(opts *rootOptions) *cobra.Command {
	var ingestReports bool
	var recoverPost bool
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll comments on the published post and send bounded replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			client, err := newMoltbookClient(cfg, opts)
			if err != nil {
				return err
			}

			collector, err := observability.NewMetricsCollector(observability.MetricsFromConfig(cfg), opts.logger("metrics"))
			if err != nil {
				return err
			}
			defer func() { _ = collector.Shutdown(context.Background()) }()
			tracer, stopTracer, err := newTracer(cfg)
			if err != nil {
				return err
			}
			defer stopTracer()

			return withOrchestrator(cfg, opts, client, func(o *orchestrator.Orchestrator) error {
				ctx, span := tracer.StartSpan(cmd.Context(), observability.SpanPoll)
				defer span.End()
				if recoverPost {
					recovered, err := o.RecoverPost(ctx, post.LaunchTitle)
					if err != nil {
						span.SetAttributes(observability.ErrorAttrs(err)...)
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), gray("tracking post "+recovered.ID))
				}
				report, err := o.PollAndReply(ctx)
				if err != nil {
					span.SetAttributes(observability.ErrorAttrs(err)...)
					return err
				}
				span.SetAttributes(attribute.Int(observability.AttrRepliesSent, report.RepliesSent))
				collector.RecordPollCycle(ctx, report.RepliesSent)
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "answered %d, recorded-not-answered %d, ignored %d, replies used %d/%d\n",
					len(report.Answered), len(report.Unanswered), report.Ignored,
					report.RepliesSent, cfg.MaxRepliesPerPost)

				if !ingestReports || len(report.ResultReports) == 0 {
					return nil
				}
				normalizer, err := newNormalizer(cfg, opts)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), yellow("skipping report ingestion: "+err.Error()))
					return nil
				}
				for _, comment := range report.ResultReports {
					result, err := normalizer.Ingest(ctx, []byte(comment.Content))
					if err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), yellow(fmt.Sprintf("comment %s: %v", comment.ID, err)))
						continue
					}
					collector.RecordIngest(ctx, "moltbook_comment", result.Accepted, len(result.Rejected))
					fmt.Fprintf(out, "comment %s: %d accepted, %d rejected\n",
						comment.ID, result.Accepted, len(result.Rejected))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&ingestReports, "ingest", true, "normalize result-report comments into the run store")
	cmd.Flags().BoolVar(&recoverPost, "recover", false, "recover a lost post id by scanning recent posts")
	return cmd
}

func newNormalizer(cfg config.RuntimeConfig, opts *rootOptions) (*external.Normalizer, error) {
	bench, err := benchmark.Load(cfg.BenchmarkPath)
	if err != nil {
		return nil, err
	}
	store, err := runstore.OpenFile(cfg.RunsPath, opts.logger("runstore"))
	if err != nil {
		return nil, err
	}
	return external.NewNormalizer(bench, store, opts.logger("ingest")), nil
}

func newIngestCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Normalize an external report file (or stdin) into the run store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			var raw []byte
			if len(args) == 1 {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			normalizer, err := newNormalizer(cfg, opts)
			if err != nil {
				return err
			}
			collector, err := observability.NewMetricsCollector(observability.MetricsFromConfig(cfg), opts.logger("metrics"))
			if err != nil {
				return err
			}
			defer func() { _ = collector.Shutdown(context.Background()) }()
			tracer, stopTracer, err := newTracer(cfg)
			if err != nil {
				return err
			}
			defer stopTracer()
			ctx, span := tracer.StartSpan(cmd.Context(), observability.SpanIngest)
			defer span.End()

			result, err := normalizer.Ingest(ctx, raw)
			if err != nil {
				span.SetAttributes(observability.ErrorAttrs(err)...)
				return err
			}
			collector.RecordIngest(ctx, "file", result.Accepted, len(result.Rejected))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pass %s: %d accepted, %d duplicate, %d rejected\n",
				result.PassID, result.Accepted, result.Duplicate, len(result.Rejected))
			for _, r := range result.Rejected {
				fmt.Fprintln(out, yellow(fmt.Sprintf("  submission %d (%s): %s", r.Index, r.TaskID, r.Reason)))
			}
			return nil
		},
	}
	return cmd
}

func newHeartbeatCommand(opts *rootOptions) *cobra.Command {
	var checkFeed bool
	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Check Moltbook account status, DMs, and optionally the feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			client, err := newMoltbookClient(cfg, opts)
			if err != nil {
				return err
			}
			heartbeatOpts := moltbook.DefaultHeartbeatOptions()
			heartbeatOpts.CheckFeed = checkFeed
			fmt.Fprintln(cmd.OutOrStdout(), moltbook.Heartbeat(cmd.Context(), client.Client, heartbeatOpts))
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkFeed, "feed", false, "also check the feed")
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the results dashboard and metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := opts.logger("server")

			_, stopTracer, err := newTracer(cfg)
			if err != nil {
				return err
			}
			defer stopTracer()

			runs, err := runstore.OpenFile(cfg.RunsPath, logger)
			if err != nil {
				return err
			}
			states := orchestrator.NewFileStateStore(cfg.StatePath)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.New(cfg, runs, states, logger).Run(ctx)
		},
	}
	return cmd
}
