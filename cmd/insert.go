package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/leads"
)

var (
	insertSource   string
	insertLocation string
	insertTitles   []string
)

var insertCmd = &cobra.Command{
	Use:   "insert",
	Short: "Fetch, score, enrich and save leads from one source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "insert")
		if err != nil {
			return err
		}
		defer env.Close()

		adapter, err := env.Sources.Get(strings.ToLower(strings.TrimSpace(insertSource)))
		if err != nil {
			return eris.Wrapf(err, "available sources: %s", strings.Join(env.Sources.Names(), ", "))
		}

		titles := make([]string, 0, len(insertTitles))
		for _, t := range insertTitles {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				titles = append(titles, t)
			}
		}

		taskID := leads.NewTaskID()
		result, err := env.Service.InsertLeads(ctx, taskID, adapter, strings.ToLower(strings.TrimSpace(insertLocation)), titles)
		if err != nil {
			return err
		}

		zap.L().Info("insert complete",
			zap.String("task_id", taskID),
			zap.String("summary", result.Message()),
		)
		cmd.Println(result.Message())
		return nil
	},
}

func init() {
	insertCmd.Flags().StringVar(&insertSource, "source", "jsearch", "lead source (jsearch, active_jobs_db, file)")
	insertCmd.Flags().StringVar(&insertLocation, "location", "", "location to search, e.g. \"fr\" or \"paris\"")
	insertCmd.Flags().StringSliceVar(&insertTitles, "job-title", nil, "job titles to search (repeatable)")
	rootCmd.AddCommand(insertCmd)
}
