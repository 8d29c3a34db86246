package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/evcraddock/estate-crm/internal/model"
)

func newLeadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "leads",
		Aliases: []string{"lead"},
		Short:   "Manage leads",
	}
	cmd.AddCommand(
		newLeadsListCmd(),
		newLeadsAddCmd(),
		newLeadsUpdateCmd(),
		newLeadsAssignCmd(),
		newLeadsArchiveCmd(),
		newLeadsRemoveCmd(),
	)
	return cmd
}

type leadFlags struct {
	name, email, phone, source, status string
	notes, preferredType, location     string
	budgetMin, budgetMax               float64
	assignedTo                         string
}

func (f *leadFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "lead name")
	fs.StringVar(&f.email, "email", "", "email address")
	fs.StringVar(&f.phone, "phone", "", "phone number")
	fs.StringVar(&f.source, "source", "", "where the lead came from")
	fs.StringVar(&f.status, "status", "", "new|contacted|qualified|viewing_scheduled|negotiating|won|lost|archived")
	fs.StringVar(&f.notes, "notes", "", "notes")
	fs.StringVar(&f.preferredType, "preferred-type", "", "preferred property type")
	fs.StringVar(&f.location, "preferred-location", "", "preferred location")
	fs.Float64Var(&f.budgetMin, "budget-min", 0, "minimum budget")
	fs.Float64Var(&f.budgetMax, "budget-max", 0, "maximum budget")
	fs.StringVar(&f.assignedTo, "assign", "", "user id to assign the lead to")
}

func (f *leadFlags) validate() error {
	if f.status != "" && !model.ValidLeadStatus(f.status) {
		return fmt.Errorf("invalid lead status %q", f.status)
	}
	if f.preferredType != "" && !model.ValidPropertyType(f.preferredType) {
		return fmt.Errorf("invalid property type %q", f.preferredType)
	}
	return nil
}

func (f *leadFlags) lead(fs *pflag.FlagSet) model.Lead {
	l := model.Lead{
		Name:   f.name,
		Email:  f.email,
		Phone:  f.phone,
		Source: f.source,
		Status: model.LeadStatus(f.status),
		Notes:  f.notes,
	}
	setIf(fs, "budget-min", &l.BudgetMin, f.budgetMin)
	setIf(fs, "budget-max", &l.BudgetMax, f.budgetMax)
	setIf(fs, "preferred-type", &l.PreferredType, model.PropertyType(f.preferredType))
	setIf(fs, "preferred-location", &l.PreferredLocation, f.location)
	setIf(fs, "assign", &l.AssignedTo, f.assignedTo)
	return l
}

func (f *leadFlags) patch(fs *pflag.FlagSet) model.LeadPatch {
	var p model.LeadPatch
	setIf(fs, "name", &p.Name, f.name)
	setIf(fs, "email", &p.Email, f.email)
	setIf(fs, "phone", &p.Phone, f.phone)
	setIf(fs, "source", &p.Source, f.source)
	setIf(fs, "status", &p.Status, model.LeadStatus(f.status))
	setIf(fs, "notes", &p.Notes, f.notes)
	setIf(fs, "budget-min", &p.BudgetMin, f.budgetMin)
	setIf(fs, "budget-max", &p.BudgetMax, f.budgetMax)
	setIf(fs, "preferred-type", &p.PreferredType, model.PropertyType(f.preferredType))
	setIf(fs, "preferred-location", &p.PreferredLocation, f.location)
	setIf(fs, "assign", &p.AssignedTo, f.assignedTo)
	return p
}

func newLeadsListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads you created or are assigned (all leads for admins)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			leads := s.store.LeadsForUser(s.me.UserID, s.me.IsAdmin())
			if status != "" {
				leads = filterSlice(leads, func(l model.Lead) bool { return string(l.Status) == status })
			}
			return render(s.out, leads, func() error { return printLeadTable(s.out, leads) })
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only show leads with this status")

	return cmd
}

func newLeadsAddCmd() *cobra.Command {
	var f leadFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a lead",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.validate(); err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			l, err := s.store.CreateLead(cmd.Context(), f.lead(cmd.Flags()))
			if err != nil {
				return err
			}
			return render(s.out, l, func() error {
				fmt.Fprintf(s.out, "✓ Added lead %s (%s).\n", l.ID, l.Name)
				return nil
			})
		},
	}

	f.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newLeadsUpdateCmd() *cobra.Command {
	var f leadFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.validate(); err != nil {
				return err
			}
			if !flagsChanged(cmd) {
				return fmt.Errorf("nothing to update")
			}
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			l, err := s.store.UpdateLead(cmd.Context(), args[0], f.patch(cmd.Flags()))
			if err != nil {
				return err
			}
			return render(s.out, l, func() error {
				fmt.Fprintf(s.out, "✓ Updated lead %s (%s).\n", l.ID, l.Status)
				return nil
			})
		},
	}

	f.register(cmd.Flags())

	return cmd
}

func newLeadsAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <id> <user-id>",
		Short: "Assign a lead to a user and notify them",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			l, err := s.store.AssignLead(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return render(s.out, l, func() error {
				fmt.Fprintf(s.out, "✓ Assigned lead %s to %s.\n", l.ID, args[1])
				return nil
			})
		},
	}
}

func newLeadsArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			l, err := s.store.ArchiveLead(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(s.out, l, func() error {
				fmt.Fprintf(s.out, "✓ Archived lead %s.\n", l.ID)
				return nil
			})
		},
	}
}

func newLeadsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a lead",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if err := s.store.DeleteLead(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "✓ Removed lead %s.\n", args[0])
			return nil
		},
	}
}
