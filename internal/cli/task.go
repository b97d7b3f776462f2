package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/atlasos/atlas/internal/config"
	"github.com/atlasos/atlas/internal/store"
	"github.com/spf13/cobra"
)

var (
	taskCmd = &cobra.Command{
		Use:   "task",
		Short: "Task utilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	taskSubmitCmd = &cobra.Command{
		Use:   "submit",
		Short: "Create a task on a dashboard",
		RunE:  runTaskSubmit,
	}

	taskListCmd = &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE:  runTaskList,
	}
)

func init() {
	taskSubmitCmd.Flags().String("title", "", "Task title")
	taskSubmitCmd.Flags().String("description", "", "Task description")
	taskSubmitCmd.Flags().String("hub", store.HubPersonal, "Hub (personal, group, enterprise)")
	taskSubmitCmd.Flags().Int("priority", 0, "Priority (higher sorts first)")
	taskListCmd.Flags().String("hub", "", "Filter by hub")
	taskListCmd.Flags().String("status", "", "Filter by status")
	taskListCmd.Flags().Int("limit", 20, "Maximum rows")
	taskListCmd.Flags().Bool("json", false, "Output machine-readable JSON")
	taskCmd.AddCommand(taskSubmitCmd)
	taskCmd.AddCommand(taskListCmd)
}

func openTaskStore() (*store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return store.Open(store.Options{
		Driver: cfg.Store.Driver,
		Path:   cfg.Store.Path,
		DSN:    cfg.Store.DSN,
	})
}

func runTaskSubmit(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	hub, _ := cmd.Flags().GetString("hub")
	priority, _ := cmd.Flags().GetInt("priority")
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("--title is required")
	}

	st, err := openTaskStore()
	if err != nil {
		return err
	}
	defer st.Close()

	task, err := st.CreateTask(&store.Task{
		Hub:         hub,
		Title:       strings.TrimSpace(title),
		Description: description,
		Priority:    priority,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", task.TaskID, task.Hub)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	hub, _ := cmd.Flags().GetString("hub")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	st, err := openTaskStore()
	if err != nil {
		return err
	}
	defer st.Close()

	tasks, err := st.ListTasks(hub, status, limit, 0)
	if err != nil {
		return err
	}
	return printTaskList(cmd.OutOrStdout(), tasks, asJSON)
}

func printTaskList(w io.Writer, tasks []store.Task, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks.")
		return err
	}
	for _, t := range tasks {
		_, _ = fmt.Fprintf(w, "%-14s %-10s %-10s %s\n", t.TaskID, t.Hub, t.Status, t.Title)
	}
	return nil
}
