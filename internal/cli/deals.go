package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/evcraddock/estate-crm/internal/model"
)

func newDealsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deals",
		Aliases: []string{"deal"},
		Short:   "Manage deals",
	}
	cmd.AddCommand(
		newDealsListCmd(),
		newDealsAddCmd(),
		newDealsUpdateCmd(),
		newDealsCloseCmd(),
		newDealsCancelCmd(),
	)
	return cmd
}

type dealFlags struct {
	propertyID, leadID, status, closer, notes string
	value, rate, commission                   float64
}

func (f *dealFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.propertyID, "property", "", "property id")
	fs.StringVar(&f.leadID, "lead", "", "lead id")
	fs.StringVar(&f.status, "status", "", "pending|in_progress|closed|cancelled")
	fs.StringVar(&f.closer, "closer", "", "user id of the closing agent")
	fs.StringVar(&f.notes, "notes", "", "notes")
	fs.Float64Var(&f.value, "value", 0, "deal value")
	fs.Float64Var(&f.rate, "rate", 0, "commission rate in percent")
	fs.Float64Var(&f.commission, "commission", 0, "commission amount (default: value × rate / 100)")
}

func (f *dealFlags) validate() error {
	if f.status != "" && !model.ValidDealStatus(f.status) {
		return fmt.Errorf("invalid deal status %q", f.status)
	}
	return nil
}

func (f *dealFlags) deal(fs *pflag.FlagSet, me string) model.Deal {
	d := model.Deal{
		PropertyID:       f.propertyID,
		DealValue:        f.value,
		CommissionRate:   f.rate,
		CommissionAmount: f.commission,
		Status:           model.DealStatus(f.status),
		CloserID:         f.closer,
		Notes:            f.notes,
	}
	if !fs.Changed("commission") {
		d.CommissionAmount = model.CommissionFor(f.value, f.rate)
	}
	if d.CloserID == "" {
		d.CloserID = me
	}
	setIf(fs, "lead", &d.LeadID, f.leadID)
	return d
}

func (f *dealFlags) patch(fs *pflag.FlagSet) model.DealPatch {
	var p model.DealPatch
	setIf(fs, "property", &p.PropertyID, f.propertyID)
	setIf(fs, "lead", &p.LeadID, f.leadID)
	setIf(fs, "status", &p.Status, model.DealStatus(f.status))
	setIf(fs, "closer", &p.CloserID, f.closer)
	setIf(fs, "notes", &p.Notes, f.notes)
	setIf(fs, "value", &p.DealValue, f.value)
	setIf(fs, "rate", &p.CommissionRate, f.rate)
	setIf(fs, "commission", &p.CommissionAmount, f.commission)
	return p
}

func newDealsListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			deals := s.store.DealsForUser(s.me.UserID, s.me.IsAdmin())
			if status != "" {
				deals = filterSlice(deals, func(d model.Deal) bool { return string(d.Status) == status })
			}
			return render(s.out, deals, func() error { return printDealTable(s.out, deals) })
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only show deals with this status")

	return cmd
}

func newDealsAddCmd() *cobra.Command {
	var f dealFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Open a deal on a property",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.validate(); err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			d, err := s.store.CreateDeal(cmd.Context(), f.deal(cmd.Flags(), s.me.UserID))
			if err != nil {
				return err
			}
			return render(s.out, d, func() error {
				fmt.Fprintf(s.out, "✓ Opened deal %s ($%s, commission $%s).\n",
					d.ID, formatPrice(d.DealValue), formatPrice(d.CommissionAmount))
				return nil
			})
		},
	}

	f.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("property")

	return cmd
}

func newDealsUpdateCmd() *cobra.Command {
	var f dealFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a deal",
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
			d, err := s.store.UpdateDeal(cmd.Context(), args[0], f.patch(cmd.Flags()))
			if err != nil {
				return err
			}
			return render(s.out, d, func() error {
				fmt.Fprintf(s.out, "✓ Updated deal %s (%s).\n", d.ID, d.Status)
				return nil
			})
		},
	}

	f.register(cmd.Flags())

	return cmd
}

func newDealsCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <id>",
		Short: "Mark a deal closed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			d, err := s.store.CloseDeal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(s.out, d, func() error {
				fmt.Fprintf(s.out, "✓ Closed deal %s.\n", d.ID)
				return nil
			})
		},
	}
}

func newDealsCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a deal (deals are never deleted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			d, err := s.store.DeleteDeal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(s.out, d, func() error {
				fmt.Fprintf(s.out, "✓ Cancelled deal %s.\n", d.ID)
				return nil
			})
		},
	}
}
