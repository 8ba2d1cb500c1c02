package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/app"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos"
	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	apperrors "github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/errors"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/materializer"
)

type DatesOptions struct {
	QuestionnaireID int
	Version         int // 0 selects the latest version
	Participant     string
}

// PreviewRow is one instance the scheduler would create.
type PreviewRow struct {
	Cycle       int       `json:"cycle"`
	DateOfIssue time.Time `json:"date_of_issue"`
	Status      string    `json:"status"`
}

type Preview struct {
	QuestionnaireID      int          `json:"questionnaire_id"`
	QuestionnaireVersion int          `json:"questionnaire_version"`
	Participant          string       `json:"participant"`
	CycleUnit            string       `json:"cycle_unit"`
	Condition            string       `json:"condition,omitempty"`
	Rows                 []PreviewRow `json:"rows"`
}

func NewDatesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DatesOptions{}
	cmd := &cobra.Command{
		Use:   "dates",
		Short: "Preview issue dates for a questionnaire and participant",
		Long: `Reads the questionnaire and participant from the database and prints the
instances the scheduler would create for them. Nothing is written.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), app.ModeCommand)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := BuildPreview(cmd.Context(), a.Repos, a.Services.Materializer, *opts)
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			return writePreview(cmd.OutOrStdout(), p, a.Cfg.Location)
		},
	}
	cmd.Flags().IntVar(&opts.QuestionnaireID, "questionnaire", 0, "questionnaire id")
	cmd.Flags().IntVar(&opts.Version, "version", 0, "questionnaire version (default latest)")
	cmd.Flags().StringVar(&opts.Participant, "participant", "", "participant pseudonym")
	_ = cmd.MarkFlagRequired("questionnaire")
	_ = cmd.MarkFlagRequired("participant")
	return cmd
}

// BuildPreview generates the instance series for one questionnaire and
// participant without persisting it.
func BuildPreview(ctx context.Context, rs repos.Set, mat *materializer.Materializer, opts DatesOptions) (*Preview, error) {
	dbc := dbctx.Context{Ctx: ctx}

	var (
		q   *types.Questionnaire
		err error
	)
	if opts.Version > 0 {
		q, err = rs.Questionnaires.Get(dbc, opts.QuestionnaireID, opts.Version)
	} else {
		q, err = rs.Questionnaires.GetLatest(dbc, opts.QuestionnaireID)
	}
	if err != nil {
		return nil, fmt.Errorf("load questionnaire %d: %w", opts.QuestionnaireID, err)
	}
	if q == nil {
		return nil, fmt.Errorf("questionnaire %d version %d: %w", opts.QuestionnaireID, opts.Version, apperrors.ErrNotFound)
	}

	p, err := rs.Participants.Get(dbc, opts.Participant)
	if err != nil {
		return nil, fmt.Errorf("load participant: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("participant %q: %w", opts.Participant, apperrors.ErrNotFound)
	}

	cond, err := rs.Conditions.GetForQuestionnaire(dbc, q.ID, q.Version)
	if err != nil {
		return nil, fmt.Errorf("load condition: %w", err)
	}

	out := &Preview{
		QuestionnaireID:      q.ID,
		QuestionnaireVersion: q.Version,
		Participant:          p.Pseudonym,
		CycleUnit:            q.CycleUnit,
		Rows:                 []PreviewRow{},
	}
	if cond != nil {
		out.Condition = cond.ConditionType
	}

	built := mat.Build(ctx, q, p, materializer.BuildOptions{
		HasInternalCondition: cond != nil && cond.ConditionType == types.ConditionTypeInternalLast,
	})
	for _, qi := range built {
		out.Rows = append(out.Rows, PreviewRow{Cycle: qi.Cycle, DateOfIssue: qi.DateOfIssue, Status: qi.Status})
	}
	return out, nil
}

func writePreview(w io.Writer, p *Preview, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	fmt.Fprintf(w, "questionnaire %d v%d (%s) for %s\n", p.QuestionnaireID, p.QuestionnaireVersion, p.CycleUnit, p.Participant)
	if p.Condition == types.ConditionTypeExternal {
		fmt.Fprintln(w, "note: externally conditioned; dates anchor at the condition's release once it is met")
	}
	if len(p.Rows) == 0 {
		_, err := fmt.Fprintln(w, "no instances")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CYCLE\tDATE OF ISSUE\tSTATUS")
	for _, r := range p.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.Cycle, r.DateOfIssue.In(loc).Format("2006-01-02 15:04 MST"), r.Status)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
