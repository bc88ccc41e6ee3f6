package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"tasksync/store"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	todoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newTasksCmd() *cobra.Command {
	var search string
	var freelancerID string

	cmd := &cobra.Command{
		Use:   "tasks <user-id>",
		Short: "List a user's tasks from the local store",
		Long: `List tasks stored for a user, newest first.

Examples:
  tasksync tasks alice
  tasksync tasks alice --search "invoice"
  tasksync tasks alice --freelancer fr-42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]

			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()

			tasks, err := app.tasks.ListTasks(cmd.Context(), userID, &store.TaskFilter{
				Search:       search,
				FreelancerID: freelancerID,
			})
			if err != nil {
				return fmt.Errorf("failed to list tasks: %w", err)
			}

			if len(tasks) == 0 {
				fmt.Println(dimStyle.Render("No tasks found"))
				return nil
			}

			for _, task := range tasks {
				fmt.Println(renderTask(task))
			}
			fmt.Println(dimStyle.Render(fmt.Sprintf("%d task(s)", len(tasks))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by title substring")
	cmd.Flags().StringVarP(&freelancerID, "freelancer", "f", "", "filter by assigned freelancer id")

	return cmd
}

// renderTask formats one task as a single styled line with optional detail
func renderTask(task store.Task) string {
	var b strings.Builder

	b.WriteString(statusStyle(task.Status).Render(statusBadge(task.Status)))
	b.WriteString(" ")
	b.WriteString(titleStyle.Render(task.Title))

	var details []string
	if task.DueDate != nil {
		details = append(details, "due "+task.DueDate.Format("2006-01-02"))
	}
	if task.FreelancerEmail != "" {
		details = append(details, task.FreelancerEmail)
	}
	if task.Source != "" {
		details = append(details, task.Source)
	}
	details = append(details, task.ExternalID)
	details = append(details, "updated "+formatRelative(task.UpdatedAt))

	b.WriteString(" ")
	b.WriteString(dimStyle.Render("(" + strings.Join(details, ", ") + ")"))
	return b.String()
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case store.StatusDone, store.StatusCompleted:
		return doneStyle
	case store.StatusInProgress:
		return progressStyle
	default:
		return todoStyle
	}
}

func statusBadge(status string) string {
	switch status {
	case store.StatusDone, store.StatusCompleted:
		return "[x]"
	case store.StatusInProgress:
		return "[>]"
	default:
		return "[ ]"
	}
}

// formatRelative shows update recency in human terms
func formatRelative(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("2006-01-02")
	}
}
