package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	listProjects  bool
	listSummaries bool
	listProjName  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects or dataset summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listProjects == listSummaries { // either both true or both false
			return fmt.Errorf("specify exactly one of --projects or --summaries")
		}
		if listProjects {
			return listAllProjects()
		}
		if listProjName == "" {
			return fmt.Errorf("--project is required when using --summaries")
		}
		p, err := loadProjectByName(listProjName)
		if err != nil {
			return err
		}
		if len(p.Summaries) == 0 {
			fmt.Println("(no summaries)")
			return nil
		}
		for _, s := range p.SortedSummaries() {
			fmt.Printf("- %s: %s [%d rows, %d kept, -%d missing, -%d outliers] (%s)\n",
				s.ID, s.Source, s.Rows, s.CleanedRows, s.RemovedMissing, s.RemovedOutliers, s.Description)
		}
		return nil
	},
}

func listAllProjects() error {
	root, err := defaultProjectsDir()
	if err != nil {
		return err
	}
	dirs, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	found := false
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		pj := filepath.Join(root, e.Name(), "project.json")
		if _, err := os.Stat(pj); err == nil {
			fmt.Printf("- %s\n", e.Name())
			found = true
		}
	}
	if !found {
		fmt.Println("(no projects)")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listProjects, "projects", false, "list projects")
	listCmd.Flags().BoolVar(&listSummaries, "summaries", false, "list dataset summaries in a project")
	listCmd.Flags().StringVarP(&listProjName, "project", "p", "", "project name for --summaries")
}
