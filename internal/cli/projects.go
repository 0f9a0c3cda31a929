package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/billingdesk/internal/api"
	"github.com/odyssey-erp/billingdesk/internal/billing"
)

func (r *root) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects and milestones",
	}
	cmd.AddCommand(
		r.projectsListCmd(),
		r.projectsShowCmd(),
		r.projectsSaveCmd(),
		r.projectsDeleteCmd(),
		r.projectsMilestoneCmd(),
	)
	return cmd
}

func (r *root) projectsListCmd() *cobra.Command {
	var f api.ProjectFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			list, err := rt.Desk.Projects(cmd.Context(), f)
			if err != nil {
				return err
			}
			return r.printer(cmd, rt.Money).projects(list)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.Search, "search", "s", "", "filter by title, code or customer")
	flags.StringVar(&f.Status, "status", "", "active, closed or cancelled")
	flags.Int64Var(&f.CustomerID, "customer", 0, "only projects of this customer id")
	return cmd
}

func (r *root) projectsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show project financials, milestone reconciliation and invoices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			view, err := rt.Desk.ProjectOverview(cmd.Context(), id)
			if err != nil {
				return err
			}
			p := r.printer(cmd, rt.Money)
			if ok, err := p.structured(view); ok {
				return err
			}
			p.heading(fmt.Sprintf("%s %s", view.Project.Code, view.Project.Title))
			if name := view.Customer.DisplayName(); name != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Customer: %s\n", name)
			}
			fin := view.Financial
			fmt.Fprintf(cmd.OutOrStdout(), "Budget:   %s\nInvoiced: %s\nIssued:   %s\nRemaining: %s\nProgress: %.1f%%\n",
				p.amount(fin.TotalBudget), p.amount(fin.InvoicedTotal), p.amount(fin.IssuedTotal), p.amount(fin.Remaining), fin.ProgressPercent)

			if len(view.Milestones) > 0 {
				p.milestones(view.Milestones)
			}

			rows := make([][]string, 0, len(view.Invoices))
			for _, inv := range view.Invoices {
				milestone := ""
				if inv.Milestone != nil {
					milestone = inv.Milestone.Label
				}
				rows = append(rows, []string{
					strconv.FormatInt(inv.ID, 10), inv.Number, milestone, p.amount(inv.Total), p.badge(inv.Status),
				})
			}
			if len(rows) > 0 {
				p.table([]string{"ID", "Invoice", "Milestone", "Total", "Status"}, rows)
			}
			return nil
		},
	}
}

func (r *root) projectsSaveCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "save [id]",
		Short: "Create a project, or update project <id>, from a YAML or JSON file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p api.Project
			if err := readFile(cmd.InOrStdin(), file, &p); err != nil {
				return err
			}
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				p.ID = id
			}
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			saved, err := rt.Desk.SaveProject(cmd.Context(), p)
			if err != nil {
				return err
			}
			return r.printer(cmd, rt.Money).projects([]api.Project{saved})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "project file (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (r *root) projectsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project that has no invoices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			if err := rt.Desk.DeleteProject(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %d\n", id)
			return nil
		},
	}
}

func (r *root) projectsMilestonesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "milestones <project-id>",
		Short: "List project milestones with what is left to invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			list, err := rt.Desk.Milestones(cmd.Context(), id)
			if err != nil {
				return err
			}
			p := r.printer(cmd, rt.Money)
			if ok, err := p.structured(list); ok {
				return err
			}
			if len(list) == 0 {
				p.muted("No milestones")
				return nil
			}
			p.milestones(list)
			return nil
		},
	}
}

func (r *root) projectsMilestoneCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "add-milestone <project-id>",
		Short: "Add a milestone to a project from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			var m billing.Milestone
			if err := readFile(cmd.InOrStdin(), file, &m); err != nil {
				return err
			}
			rt, err := r.runtime(cmd)
			if err != nil {
				return err
			}
			saved, err := rt.Desk.AddMilestone(cmd.Context(), projectID, m)
			if err != nil {
				return err
			}
			p := r.printer(cmd, rt.Money)
			if ok, err := p.structured(saved); ok {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added milestone %d %q (%s) to project %d\n",
				saved.No, saved.Label, p.amount(saved.ExpectedAmount), projectID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "milestone file (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
