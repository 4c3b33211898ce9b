package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/pscheid92/timecapsule/internal/reflection"
	"github.com/spf13/cobra"
)

type scheduleOptions struct {
	created   string
	reveal    string
	sentiment string
}

type scheduledQuestion struct {
	Date     string `json:"date"`
	Ordinal  int    `json:"ordinal"`
	Question string `json:"question"`
}

type schedulePreview struct {
	Sentiment domain.SentimentLabel `json:"sentiment"`
	Cadence   string                `json:"cadence"`
	Questions []scheduledQuestion   `json:"questions"`
}

// NewScheduleCommand previews the reflection questions a capsule would receive.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &scheduleOptions{}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Preview the question schedule for a capsule",
		Long: `Print the calendar days on which a capsule created at --created and revealed
at --reveal would ask a reflection question, with the question for each day.
Dates are YYYY-MM-DD and interpreted in UTC.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			preview, err := buildSchedulePreview(opts)
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), preview)
			}
			return writeSchedulePreview(cmd.OutOrStdout(), preview)
		},
	}

	cmd.Flags().StringVar(&opts.created, "created", "", "creation date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.reveal, "reveal", "", "reveal date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.sentiment, "sentiment", string(domain.SentimentNeutral), "initial sentiment (positive|neutral|negative)")
	_ = cmd.MarkFlagRequired("created")
	_ = cmd.MarkFlagRequired("reveal")

	return cmd
}

func buildSchedulePreview(opts *scheduleOptions) (*schedulePreview, error) {
	created, err := time.Parse(time.DateOnly, opts.created)
	if err != nil {
		return nil, fmt.Errorf("invalid --created: %w", err)
	}
	reveal, err := time.Parse(time.DateOnly, opts.reveal)
	if err != nil {
		return nil, fmt.Errorf("invalid --reveal: %w", err)
	}
	if !reveal.After(created) {
		return nil, errors.New("--reveal must be after --created")
	}

	label := domain.ParseSentimentLabel(opts.sentiment)
	preview := &schedulePreview{
		Sentiment: label,
		Cadence:   reflection.CadenceFor(label).String(),
	}
	for i, day := range reflection.GenerateSchedule(created, reveal, label) {
		preview.Questions = append(preview.Questions, scheduledQuestion{
			Date:     day.Format(time.DateOnly),
			Ordinal:  i,
			Question: reflection.SelectQuestion(label, i),
		})
	}
	return preview, nil
}

func writeSchedulePreview(w io.Writer, p *schedulePreview) error {
	if _, err := fmt.Fprintf(w, "sentiment: %s (%s)\n", p.Sentiment, p.Cadence); err != nil {
		return err
	}
	if len(p.Questions) == 0 {
		_, err := fmt.Fprintln(w, "no questions scheduled")
		return err
	}
	for _, q := range p.Questions {
		if _, err := fmt.Fprintf(w, "%s  #%d  %s\n", q.Date, q.Ordinal+1, q.Question); err != nil {
			return err
		}
	}
	return nil
}
