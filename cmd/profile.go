// =============================================================================
// NFe to XLSX Converter - Profile Commands
// =============================================================================
//
// Mapping profiles are named, stored field mappings. At most one profile is
// active; convert uses it when no mapping is given explicitly.
//
// COMMAND USAGE:
//   nfeconv profile list
//   nfeconv profile show NAME|ID
//   nfeconv profile init
//   nfeconv profile import FILE --name NAME [--description D] [--activate]
//   nfeconv profile delete NAME|ID
//   nfeconv profile activate NAME|ID
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/profile"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/validation"
)

var importFlags struct {
	name        string
	description string
	activate    bool
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage stored mapping profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	Args:  cobra.NoArgs,
	RunE: withProfiles(func(cmd *cobra.Command, args []string, mgr *profile.Manager) error {
		list, err := mgr.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No profiles. Run 'nfeconv profile init' to create the defaults.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ACTIVE\tNAME\tFIELDS\tID\tUPDATED")
		for _, p := range list {
			active := ""
			if p.IsActive {
				active = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", active, p.Name, len(p.Mappings), p.ID, p.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	}),
}

var profileShowCmd = &cobra.Command{
	Use:   "show NAME|ID",
	Short: "Print a profile as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: withProfiles(func(cmd *cobra.Command, args []string, mgr *profile.Manager) error {
		p, err := mgr.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(p)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}),
}

var profileInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the default and full profiles",
	Args:  cobra.NoArgs,
	RunE: withProfiles(func(cmd *cobra.Command, args []string, mgr *profile.Manager) error {
		ctx := cmd.Context()
		for _, p := range []*profile.Profile{profile.DefaultProfile(), profile.FullProfile()} {
			if existing, err := mgr.Find(ctx, p.Name); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Profile %q already exists (%s)\n", existing.Name, existing.ID)
				continue
			} else if !errors.Is(err, profile.ErrNotFound) {
				return err
			}
			if err := mgr.Save(ctx, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created profile %q with %d field(s)\n", p.Name, len(p.Mappings))
		}

		if _, err := mgr.Active(ctx); errors.Is(err, profile.ErrNotFound) {
			def, err := mgr.Find(ctx, profile.DefaultProfile().Name)
			if err != nil {
				return err
			}
			return mgr.Activate(ctx, def.ID)
		} else if err != nil {
			return err
		}
		return nil
	}),
}

var profileImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Store a mapping file as a profile",
	Args:  cobra.ExactArgs(1),
	RunE: withProfiles(func(cmd *cobra.Command, args []string, mgr *profile.Manager) error {
		ctx := cmd.Context()
		m, err := appConfig.LoadMapping(args[0])
		if err != nil {
			return err
		}
		if res := validation.ValidateMapping(m); !res.IsValid {
			return fmt.Errorf("mapping is invalid:\n%s", validation.FormatErrors(res.Errors))
		}

		name := importFlags.name
		if name == "" {
			return errors.New("--name is required")
		}

		p := profile.FromMapping(name, importFlags.description, m)
		if existing, err := mgr.Find(ctx, name); err == nil {
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, profile.ErrNotFound) {
			return err
		}
		if err := mgr.Save(ctx, p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %q (%s) with %d field(s)\n", p.Name, p.ID, len(p.Mappings))

		if importFlags.activate {
			return mgr.Activate(ctx, p.ID)
		}
		return nil
	}),
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete NAME|ID",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: withProfiles(func(cmd *cobra.Command, args []string, mgr *profile.Manager) error {
		p, err := mgr.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := mgr.Delete(cmd.Context(), p.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %q\n", p.Name)
		return nil
	}),
}

var profileActivateCmd = &cobra.Command{
	Use:   "activate NAME|ID",
	Short: "Make a profile the default for convert",
	Args:  cobra.ExactArgs(1),
	RunE: withProfiles(func(cmd *cobra.Command, args []string, mgr *profile.Manager) error {
		p, err := mgr.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := mgr.Activate(cmd.Context(), p.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Profile %q is now active\n", p.Name)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(
		profileListCmd,
		profileShowCmd,
		profileInitCmd,
		profileImportCmd,
		profileDeleteCmd,
		profileActivateCmd,
	)

	profileImportCmd.Flags().StringVar(&importFlags.name, "name", "", "Profile name (required)")
	profileImportCmd.Flags().StringVar(&importFlags.description, "description", "", "Profile description")
	profileImportCmd.Flags().BoolVar(&importFlags.activate, "activate", false, "Activate the profile after saving")
}

// withProfiles opens the profile store around a command.
func withProfiles(run func(cmd *cobra.Command, args []string, mgr *profile.Manager) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		store, mgr, err := openProfiles(false)
		if err != nil {
			return err
		}
		defer store.Close()
		return run(cmd, args, mgr)
	}
}
