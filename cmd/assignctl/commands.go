package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cuongbtq/assignment-orchestrator/internal/api/dto"
	"github.com/cuongbtq/assignment-orchestrator/internal/client"
	"github.com/spf13/cobra"
)

// EnvAPIURL overrides the default --api-url
const EnvAPIURL = "ASSIGNCTL_API_URL"

const defaultAPIURL = "http://localhost:8080"

type options struct {
	apiURL  string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	defaultURL := os.Getenv(EnvAPIURL)
	if defaultURL == "" {
		defaultURL = defaultAPIURL
	}

	root := &cobra.Command{
		Use:           "assignctl",
		Short:         "Inspect and control job assignment automation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", defaultURL, "Base URL of the api service (or set "+EnvAPIURL+")")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	root.AddCommand(
		&cobra.Command{
			Use:   "attempts <job-id>",
			Short: "Show the attempt history of a job",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := opts.context(cmd)
				defer cancel()

				resp, err := opts.client().ListAttempts(ctx, args[0])
				if err != nil {
					return err
				}
				return printAttempts(cmd.OutOrStdout(), resp.JobID, resp.JobStatus, resp.Attempts)
			},
		},
		&cobra.Command{
			Use:   "retry <job-id>",
			Short: "Queue a new automation run for a job",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := opts.context(cmd)
				defer cancel()

				resp, err := opts.client().Retry(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "job %s: %s\n", resp.JobID, resp.Status)
				return nil
			},
		},
		&cobra.Command{
			Use:   "stop <job-id>",
			Short: "Stop automation for a job",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := opts.context(cmd)
				defer cancel()

				resp, err := opts.client().Stop(ctx, args[0])
				if err != nil {
					return err
				}
				if resp.Stopped {
					fmt.Fprintf(cmd.OutOrStdout(), "job %s: pending offers stopped\n", resp.JobID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "job %s: nothing pending\n", resp.JobID)
				}
				return nil
			},
		},
	)

	return root
}

func (o *options) client() *client.Client {
	return client.New(o.apiURL)
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func printAttempts(out io.Writer, jobID, jobStatus string, attempts []dto.AttemptDTO) error {
	fmt.Fprintf(out, "job %s (%s)\n", jobID, jobStatus)
	if len(attempts) == 0 {
		fmt.Fprintln(out, "no attempts")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCANDIDATE\tSTATUS\tCREATED\tREMARK")
	for _, a := range attempts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			a.AttemptNumber, candidateLabel(a), a.Status, a.CreatedAt.Format(time.RFC3339), a.Remark)
	}
	return tw.Flush()
}

func candidateLabel(a dto.AttemptDTO) string {
	if a.CandidateName == "" {
		return a.CandidateID
	}
	return a.CandidateName + " (" + a.CandidateID + ")"
}
