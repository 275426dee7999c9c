package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
)

var (
	profileFile     string
	profileJobTitle string
	profileLocation string
	profileBio      string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update the profile leads are scored against",
}

var profileGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the saved profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := st.GetProfile(ctx)
		if err != nil {
			return err
		}
		if p == nil {
			return eris.New("no profile saved; run `prospect-cli profile set` first")
		}
		return writeIndentedJSON(cmd, p)
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save the profile from a JSON file and/or flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		p, err := buildProfile(profileFile, profileJobTitle, profileLocation, profileBio)
		if err != nil {
			return err
		}

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.UpsertProfile(ctx, p); err != nil {
			return err
		}
		zap.L().Info("profile saved",
			zap.String("job_title", p.JobTitle),
			zap.Int("work_experience", len(p.WorkExperience)),
		)
		return nil
	},
}

// buildProfile reads path, when given, and applies non-empty flag values on
// top. A job title is required.
func buildProfile(path, jobTitle, location, bio string) (model.Profile, error) {
	var p model.Profile
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return p, eris.Wrap(err, "read profile file")
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return p, eris.Wrapf(err, "parse profile file %s", path)
		}
	}
	if jobTitle != "" {
		p.JobTitle = jobTitle
	}
	if location != "" {
		p.Location = location
	}
	if bio != "" {
		p.Bio = bio
	}
	if p.JobTitle == "" {
		return p, eris.New("profile job title is required (--job-title or job_title in --file)")
	}
	return p, nil
}

func writeIndentedJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	profileSetCmd.Flags().StringVar(&profileFile, "file", "", "JSON profile file")
	profileSetCmd.Flags().StringVar(&profileJobTitle, "job-title", "", "your job title")
	profileSetCmd.Flags().StringVar(&profileLocation, "location", "", "your location")
	profileSetCmd.Flags().StringVar(&profileBio, "bio", "", "short bio")

	profileCmd.AddCommand(profileGetCmd, profileSetCmd)
	rootCmd.AddCommand(profileCmd)
}
