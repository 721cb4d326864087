package commands

import (
	"context"
	"fmt"

	"github.com/simaogato/ledger-backend/cmd/ledger/output"
	"github.com/simaogato/ledger-backend/internal/app"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/usecase/customer"
	"github.com/spf13/cobra"
)

func newRegisterCmd(opts *globalOptions) *cobra.Command {
	var input customer.RegisterInput
	var kind string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a customer",
		Long: `Register an individual or business customer.

Examples:
  ledger register --id C1 --kind individual --first-name Jan --last-name Smit \
    --address "3 Oak Ave" --email jan@example.com --dob 1990-04-01 --id-number 9004015800087
  ledger register --id B1 --kind business --first-name Ada --last-name Lovelace \
    --address "1 Engine Rd" --email ada@example.com --business-name "Engines Ltd" --registration-number REG-9`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				password, err := readPassword(cmd, "password", "Choose a password: ")
				if err != nil {
					return err
				}
				input.Kind = domain.CustomerKind(kind)
				input.Password = password

				c, err := a.Customers.Register(ctx, input)
				if err != nil {
					return err
				}
				output.Success("Registered %s customer %s (%s)", c.Kind(), c.ID, c.DisplayName())
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&input.ID, "id", "", "Customer ID")
	f.StringVar(&kind, "kind", "individual", "Customer kind: individual or business")
	f.StringVar(&input.FirstName, "first-name", "", "First name")
	f.StringVar(&input.LastName, "last-name", "", "Last name")
	f.StringVar(&input.Address, "address", "", "Postal address")
	f.StringVar(&input.Email, "email", "", "Email address")
	f.StringVar(&input.DateOfBirth, "dob", "", "Date of birth, yyyy-mm-dd (individuals)")
	f.StringVar(&input.IDNumber, "id-number", "", "Identity number (individuals)")
	f.StringVar(&input.BusinessName, "business-name", "", "Business name (businesses)")
	f.StringVar(&input.RegistrationNumber, "registration-number", "", "Company registration number (businesses)")
	f.StringVar(&input.BusinessAddress, "business-address", "", "Business address (businesses)")
	f.String("password", "", "Password (or set "+PasswordEnv+"; prompted when omitted)")
	return cmd
}

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check a customer's credentials",
		Long: `Check a password for a customer identified by ID or by email.

Examples:
  ledger login --customer C1
  ledger login --customer jan@example.com --password secret1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				c, _, err := authenticate(ctx, cmd, a, user)
				if err != nil {
					return err
				}
				output.Success("Welcome, %s", c.DisplayName())
				output.Muted("%d account(s), total balance %s", len(c.Accounts), c.TotalBalance().StringFixed(2))
				return nil
			})
		},
	}
	addAuthFlags(cmd, &user)
	return cmd
}

func newUpdateProfileCmd(opts *globalOptions) *cobra.Command {
	var user string

	fields := []struct {
		flag  string
		usage string
		set   func(u *customer.ProfileUpdate, v *string)
	}{
		{"first-name", "New first name", func(u *customer.ProfileUpdate, v *string) { u.FirstName = v }},
		{"last-name", "New last name", func(u *customer.ProfileUpdate, v *string) { u.LastName = v }},
		{"address", "New postal address", func(u *customer.ProfileUpdate, v *string) { u.Address = v }},
		{"email", "New email address", func(u *customer.ProfileUpdate, v *string) { u.Email = v }},
		{"dob", "New date of birth (individuals)", func(u *customer.ProfileUpdate, v *string) { u.DateOfBirth = v }},
		{"id-number", "New identity number (individuals)", func(u *customer.ProfileUpdate, v *string) { u.IDNumber = v }},
		{"business-name", "New business name (businesses)", func(u *customer.ProfileUpdate, v *string) { u.BusinessName = v }},
		{"registration-number", "New registration number (businesses)", func(u *customer.ProfileUpdate, v *string) { u.RegistrationNumber = v }},
		{"business-address", "New business address (businesses)", func(u *customer.ProfileUpdate, v *string) { u.BusinessAddress = v }},
	}

	cmd := &cobra.Command{
		Use:   "update-profile",
		Short: "Change a customer's profile details",
		Long: `Change any of a customer's profile details. Only the given fields change.

Examples:
  ledger update-profile --customer C1 --address "9 Pine Rd"
  ledger update-profile --customer C1 --email jan.smit@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var update customer.ProfileUpdate
			changed := 0
			for _, field := range fields {
				if !cmd.Flags().Changed(field.flag) {
					continue
				}
				v, err := cmd.Flags().GetString(field.flag)
				if err != nil {
					return err
				}
				field.set(&update, &v)
				changed++
			}
			if changed == 0 {
				return fmt.Errorf("%w: nothing to update", domain.ErrValidation)
			}

			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				c, password, err := authenticate(ctx, cmd, a, user)
				if err != nil {
					return err
				}
				if _, err := a.Customers.UpdateProfile(ctx, c.ID, password, update); err != nil {
					return err
				}
				output.Success("Profile of %s updated", c.ID)
				return nil
			})
		},
	}
	addAuthFlags(cmd, &user)
	for _, field := range fields {
		cmd.Flags().String(field.flag, "", field.usage)
	}
	return cmd
}

func newChangePasswordCmd(opts *globalOptions) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "change-password",
		Short: "Change a customer's password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				c, current, err := authenticate(ctx, cmd, a, user)
				if err != nil {
					return err
				}
				next, err := readPassword(cmd, "new-password", "New password: ")
				if err != nil {
					return err
				}
				if err := a.Customers.ChangePassword(ctx, c.ID, current, next); err != nil {
					return err
				}
				output.Success("Password of %s changed", c.ID)
				return nil
			})
		},
	}
	addAuthFlags(cmd, &user)
	cmd.Flags().String("new-password", "", "New password (prompted when omitted)")
	return cmd
}

func newDeleteCustomerCmd(opts *globalOptions) *cobra.Command {
	var user string
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-customer",
		Short: "Delete a customer with all accounts and history",
		Long: `Delete a customer, every account the customer holds, the transactions on those
accounts and the stored password. This cannot be undone.

Examples:
  ledger delete-customer --customer C1 --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("%w: pass --yes to delete the customer and all their records", errAborted)
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				c, password, err := authenticate(ctx, cmd, a, user)
				if err != nil {
					return err
				}
				if err := a.Customers.DeleteCustomer(ctx, c.ID, password); err != nil {
					return err
				}
				output.Success("Customer %s deleted", c.ID)
				return nil
			})
		},
	}
	addAuthFlags(cmd, &user)
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}
