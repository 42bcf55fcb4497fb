package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"programhub/internal/auth"
	"programhub/internal/core"
	"programhub/internal/schema"
	"programhub/pkg/domain"
)

var (
	flagUserName       string
	flagUserEmail      string
	flagUserRole       string
	flagUserDepartment string
	flagIncludeAll     bool
	flagTokenTTL       time.Duration
	flagJSON           bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Register and inspect users",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a user",
	Long: `Add registers a user account the same way the identity provider does.

Example:
  programhub user add --name "Ada Byron" --email ada@example.com --role admin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := schema.Payload{"name": flagUserName, "email": flagUserEmail}
		if flagUserRole != "" {
			payload["role"] = flagUserRole
		}
		if flagUserDepartment != "" {
			payload["department"] = flagUserDepartment
		}
		return withApp(cmd, func(a *app) error {
			user, _, err := a.svc.RegisterUser(cmd.Context(), payload)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s) as %s\n", user.Email, user.ID, user.Role)
			return nil
		})
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			records, err := a.svc.ListEntities(cmd.Context(), operator, domain.EntityUser,
				core.ListQuery{IncludeInactive: flagIncludeAll, Sort: "name"})
			if err != nil {
				return describe(err)
			}
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			return printUsers(cmd.OutOrStdout(), records)
		})
	},
}

var userTokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a bearer token for a user",
	Long: `Token signs an access token for an existing active user with auth.secret.
It is meant for bootstrapping and local testing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Auth.Secret == "" {
			return fmt.Errorf("auth.secret is required to issue tokens")
		}
		verifier, err := auth.NewVerifier(cfg.Auth.Secret, auth.WithIssuer(cfg.Auth.Issuer))
		if err != nil {
			return err
		}
		return withApp(cmd, func(a *app) error {
			rec, err := a.svc.GetEntity(cmd.Context(), operator, domain.EntityUser, args[0], nil)
			if err != nil {
				return describe(err)
			}
			user := rec.Entity.(core.User)
			if !user.Active {
				return fmt.Errorf("user %s is deactivated", user.ID)
			}
			token, err := verifier.Issue(domain.Principal{ID: user.ID, Role: user.Role}, flagTokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		})
	},
}

func init() {
	userAddCmd.Flags().StringVar(&flagUserName, "name", "", "display name")
	userAddCmd.Flags().StringVar(&flagUserEmail, "email", "", "email address")
	userAddCmd.Flags().StringVar(&flagUserRole, "role", "", "admin, manager or member (default member)")
	userAddCmd.Flags().StringVar(&flagUserDepartment, "department", "", "department")
	_ = userAddCmd.MarkFlagRequired("name")
	_ = userAddCmd.MarkFlagRequired("email")

	userListCmd.Flags().BoolVar(&flagIncludeAll, "all", false, "include deactivated users")
	userListCmd.Flags().BoolVar(&flagJSON, "json", false, "output as JSON")

	userTokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", 24*time.Hour, "token lifetime")

	userCmd.AddCommand(userAddCmd, userListCmd, userTokenCmd)
}

func printUsers(w io.Writer, records []core.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tACTIVE")
	for _, rec := range records {
		u := rec.Entity.(core.User)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Name, u.Email, u.Role, u.Active)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describe appends violation details to validation failures.
func describe(err error) error {
	violations := domain.ViolationsOf(err)
	if len(violations) == 0 {
		return err
	}
	var b strings.Builder
	for _, v := range violations {
		fmt.Fprintf(&b, "\n  %s: %s", v.Field, v.Message)
	}
	return fmt.Errorf("%w%s", err, b.String())
}
