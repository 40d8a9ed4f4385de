package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	pmProject   string
	pmClear     bool
	pmDigestOut string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage per-project settings and summaries",
}

var projectSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Set or clear a project override (sample_rows, show_removed, format)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pmProject == "" {
			return fmt.Errorf("--project is required")
		}
		p, err := loadProjectByName(pmProject)
		if err != nil {
			return err
		}
		key := args[0]
		val := ""
		if len(args) == 2 {
			val = args[1]
		}
		if !pmClear && val == "" {
			return fmt.Errorf("value is required unless --clear is set")
		}
		switch key {
		case "sample_rows":
			if pmClear {
				p.Settings.SampleRows = 0
				break
			}
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for sample_rows: %v (must be > 0)", val)
			}
			p.Settings.SampleRows = i
		case "show_removed":
			if pmClear {
				p.Settings.ShowRemoved = nil
				break
			}
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for show_removed: %v", val)
			}
			p.Settings.ShowRemoved = &b
		case "format":
			if pmClear {
				p.Settings.Format = ""
				break
			}
			f := strings.ToLower(val)
			switch f {
			case "md", "markdown", "json", "yaml", "yml", "html":
			default:
				return fmt.Errorf("invalid format: %s (use md, json, yaml or html)", val)
			}
			p.Settings.Format = f
		default:
			return fmt.Errorf("unknown project key: %s", key)
		}
		if err := p.Save(); err != nil {
			return err
		}
		if pmClear {
			fmt.Printf("✓ Cleared %s for %s\n", key, pmProject)
		} else {
			fmt.Printf("✓ Set %s for %s: %s\n", key, pmProject, val)
		}
		return nil
	},
}

var projectRemoveCmd = &cobra.Command{
	Use:   "remove <summary-id>",
	Short: "Remove a dataset summary (ID or unique ID prefix)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pmProject == "" {
			return fmt.Errorf("--project is required")
		}
		p, err := loadProjectByName(pmProject)
		if err != nil {
			return err
		}
		s, err := p.Remove(args[0])
		if err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Removed summary %s (%s)\n", s.ID, s.Source)
		return nil
	},
}

var projectDigestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Concatenate every dataset summary in a project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pmProject == "" {
			return fmt.Errorf("--project is required")
		}
		p, err := loadProjectByName(pmProject)
		if err != nil {
			return err
		}
		digest, err := p.Digest()
		if err != nil {
			return err
		}
		if pmDigestOut == "" {
			fmt.Println(digest)
			return nil
		}
		if err := utils.SafeWriteFile(pmDigestOut, []byte(digest)); err != nil {
			return err
		}
		fmt.Printf("✓ Wrote digest to %s\n", pmDigestOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectSetCmd, projectRemoveCmd, projectDigestCmd)

	projectCmd.PersistentFlags().StringVarP(&pmProject, "project", "p", "", "project name")
	projectSetCmd.Flags().BoolVar(&pmClear, "clear", false, "clear the project's override for key")
	projectDigestCmd.Flags().StringVarP(&pmDigestOut, "output", "o", "", "write the digest to a file instead of stdout")
}
