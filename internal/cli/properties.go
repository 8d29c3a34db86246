package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/evcraddock/estate-crm/internal/media"
	"github.com/evcraddock/estate-crm/internal/model"
)

func newPropertiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "properties",
		Aliases: []string{"property", "props"},
		Short:   "Manage property listings",
	}
	cmd.AddCommand(
		newPropertiesListCmd(),
		newPropertiesShowCmd(),
		newPropertiesAddCmd(),
		newPropertiesUpdateCmd(),
		newPropertiesArchiveCmd(),
		newPropertiesRemoveCmd(),
		newPropertiesAttachCmd(),
	)
	return cmd
}

// propertyFlags binds the editable property fields to command flags.
type propertyFlags struct {
	title, description, ptype, status string
	location                          string
	ownerName, ownerPhone, ownerEmail string
	price, area                       float64
	bedrooms, bathrooms               int
	features                          []string
}

func (f *propertyFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.title, "title", "", "listing title")
	fs.StringVar(&f.description, "description", "", "free-text description")
	fs.StringVar(&f.ptype, "type", "", "apartment|villa|townhouse|penthouse|office|retail|land")
	fs.StringVar(&f.status, "status", "", "draft|available|under_offer|sold|rented|archived")
	fs.StringVar(&f.location, "location", "", "location")
	fs.Float64Var(&f.price, "price", 0, "asking price")
	fs.Float64Var(&f.area, "area", 0, "floor area")
	fs.IntVar(&f.bedrooms, "bedrooms", 0, "number of bedrooms")
	fs.IntVar(&f.bathrooms, "bathrooms", 0, "number of bathrooms")
	fs.StringSliceVar(&f.features, "feature", nil, "feature (repeatable)")
	fs.StringVar(&f.ownerName, "owner-name", "", "owner name")
	fs.StringVar(&f.ownerPhone, "owner-phone", "", "owner phone")
	fs.StringVar(&f.ownerEmail, "owner-email", "", "owner email")
}

func (f *propertyFlags) validate() error {
	if f.ptype != "" && !model.ValidPropertyType(f.ptype) {
		return fmt.Errorf("invalid property type %q", f.ptype)
	}
	if f.status != "" && !model.ValidPropertyStatus(f.status) {
		return fmt.Errorf("invalid property status %q", f.status)
	}
	return nil
}

func (f *propertyFlags) property(fs *pflag.FlagSet) model.Property {
	p := model.Property{
		Title:      f.title,
		Type:       model.PropertyType(f.ptype),
		Status:     model.PropertyStatus(f.status),
		Price:      f.price,
		Location:   f.location,
		Area:       f.area,
		Features:   f.features,
		OwnerName:  f.ownerName,
		OwnerPhone: f.ownerPhone,
		OwnerEmail: f.ownerEmail,
	}
	if fs.Changed("description") {
		p.Description = &f.description
	}
	if fs.Changed("bedrooms") {
		p.Bedrooms = &f.bedrooms
	}
	if fs.Changed("bathrooms") {
		p.Bathrooms = &f.bathrooms
	}
	return p
}

// patch sets only the fields whose flags were given.
func (f *propertyFlags) patch(fs *pflag.FlagSet) model.PropertyPatch {
	var p model.PropertyPatch
	setIf(fs, "title", &p.Title, f.title)
	setIf(fs, "description", &p.Description, f.description)
	setIf(fs, "type", &p.Type, model.PropertyType(f.ptype))
	setIf(fs, "status", &p.Status, model.PropertyStatus(f.status))
	setIf(fs, "location", &p.Location, f.location)
	setIf(fs, "price", &p.Price, f.price)
	setIf(fs, "area", &p.Area, f.area)
	setIf(fs, "bedrooms", &p.Bedrooms, f.bedrooms)
	setIf(fs, "bathrooms", &p.Bathrooms, f.bathrooms)
	setIf(fs, "feature", &p.Features, f.features)
	setIf(fs, "owner-name", &p.OwnerName, f.ownerName)
	setIf(fs, "owner-phone", &p.OwnerPhone, f.ownerPhone)
	setIf(fs, "owner-email", &p.OwnerEmail, f.ownerEmail)
	return p
}

// setIf points *dst at v when the named flag was set on the command line.
func setIf[T any](fs *pflag.FlagSet, name string, dst **T, v T) {
	if fs.Changed(name) {
		*dst = &v
	}
}

func newPropertiesListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			props := s.store.PropertiesForUser(s.me.UserID, s.me.IsAdmin())
			if status != "" {
				props = filterSlice(props, func(p model.Property) bool { return string(p.Status) == status })
			}
			return render(s.out, props, func() error { return printPropertyTable(s.out, props) })
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only show properties with this status")

	return cmd
}

func newPropertiesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			p, ok := s.store.Property(args[0])
			if !ok {
				return fmt.Errorf("property %s not found", args[0])
			}
			return render(s.out, p, func() error {
				printPropertySummary(s.out, p)
				return nil
			})
		},
	}
}

func newPropertiesAddCmd() *cobra.Command {
	var f propertyFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a property",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.validate(); err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			p, err := s.store.CreateProperty(cmd.Context(), f.property(cmd.Flags()))
			if err != nil {
				return err
			}
			return render(s.out, p, func() error {
				fmt.Fprintf(s.out, "✓ Added property %s (%s).\n", p.ID, p.Title)
				return nil
			})
		},
	}

	f.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newPropertiesUpdateCmd() *cobra.Command {
	var f propertyFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a property",
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
			p, err := s.store.UpdateProperty(cmd.Context(), args[0], f.patch(cmd.Flags()))
			if err != nil {
				return err
			}
			return render(s.out, p, func() error {
				fmt.Fprintf(s.out, "✓ Updated property %s.\n", p.ID)
				return nil
			})
		},
	}

	f.register(cmd.Flags())

	return cmd
}

func newPropertiesArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			p, err := s.store.ArchiveProperty(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(s.out, p, func() error {
				fmt.Fprintf(s.out, "✓ Archived property %s.\n", p.ID)
				return nil
			})
		},
	}
}

func newPropertiesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a property",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if err := s.store.DeleteProperty(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "✓ Removed property %s.\n", args[0])
			return nil
		},
	}
}

func newPropertiesAttachCmd() *cobra.Command {
	var kind, name string

	cmd := &cobra.Command{
		Use:   "attach <id> <file>",
		Short: "Upload a video or document and attach it to a property",
		Long:  "Uploads a file to the media store (ECRM_BLOB_DRIVER=fs|s3) and appends it to the property's videos or documents.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := media.ParseKind(kind)
			if err != nil {
				return err
			}
			return runAttach(cmd, args[0], args[1], k, name)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "document", "video|document")
	cmd.Flags().StringVar(&name, "name", "", "display name (default: file name)")

	return cmd
}

func runAttach(cmd *cobra.Command, propertyID, path string, kind media.Kind, name string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	p, ok := s.store.Property(propertyID)
	if !ok {
		return fmt.Errorf("property %s not found", propertyID)
	}

	blobs, err := media.Open(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			warn(cmd, "closing %s: %v", path, cerr)
		}
	}()

	if name == "" {
		name = filepath.Base(path)
	}
	f, err := media.Upload(ctx, blobs, p.ID, kind, name, file, mime.TypeByExtension(filepath.Ext(path)))
	if err != nil {
		return err
	}

	updated, err := s.store.UpdateProperty(ctx, p.ID, media.AttachPatch(p, kind, f))
	if err != nil {
		return err
	}
	return render(s.out, updated, func() error {
		fmt.Fprintf(s.out, "✓ Attached %s %s to property %s.\n  %s\n", kind, f.Name, p.ID, f.URL)
		return nil
	})
}

// flagsChanged reports whether any of the command's own flags were given.
func flagsChanged(cmd *cobra.Command) bool {
	changed := false
	cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changed = true
		}
	})
	return changed
}

// filterSlice returns the elements of items for which keep is true.
func filterSlice[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
