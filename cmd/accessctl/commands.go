package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/console-access/internal/access"
	"github.com/spec-kit/console-access/internal/config"
	"github.com/spec-kit/console-access/internal/domain"
	"github.com/spec-kit/console-access/internal/policy"
)

func newRootCmd() *cobra.Command {
	defaults, err := config.LoadAccess()
	if err != nil {
		defaults = config.AccessConfig{SignInPath: "/signin", ForbiddenPath: "/403"}
	}

	root := &cobra.Command{
		Use:   "accessctl",
		Short: "Inspect and test console route policies",
		Long: `accessctl loads a console policy file, or the built-in console policy
when --policy is omitted, and answers the same questions the access guard
answers at runtime.

Examples:
  # Would a "user" session be allowed to open the user creation screen?
  accessctl check --role user --path /user/create

  # Validate a policy file before deploying it
  accessctl lint --policy ./policy.yaml

  # Show the navigation an admin would see
  accessctl menu --role admin`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("policy", defaults.PolicyFile, "policy file (.yaml, .yml or .json); defaults to the built-in policy")

	root.AddCommand(newCheckCmd(defaults), newLintCmd(), newMenuCmd())
	return root
}

func loadPolicy(cmd *cobra.Command) (*policy.Policy, error) {
	path, _ := cmd.Flags().GetString("policy")
	if path == "" {
		return policy.Default()
	}
	return policy.LoadFile(path)
}

func newCheckCmd(defaults config.AccessConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate the guard for a role and path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, _ := cmd.Flags().GetString("role")
			path, _ := cmd.Flags().GetString("path")
			expiresIn, _ := cmd.Flags().GetDuration("expires-in")
			asJSON, _ := cmd.Flags().GetBool("json")
			signIn, _ := cmd.Flags().GetString("signin-path")
			forbidden, _ := cmd.Flags().GetString("forbidden-path")

			p, err := loadPolicy(cmd)
			if err != nil {
				return err
			}

			now := time.Now()
			var sess *domain.Session
			if role != "" {
				sess = &domain.Session{
					ID:            "accessctl",
					UserID:        "accessctl",
					Token:         "accessctl",
					Authenticated: true,
					Role:          domain.RoleID(role),
					IssuedAt:      now,
					ExpiresAt:     now.Add(expiresIn),
				}
			}
			decision := access.NewGuard(signIn, forbidden).Evaluate(sess, p.Table, path, now)
			return printDecision(cmd.OutOrStdout(), path, decision, asJSON)
		},
	}
	cmd.Flags().String("role", "", "role of the session; omit to evaluate without a session")
	cmd.Flags().String("path", "", "console path to evaluate")
	cmd.Flags().Duration("expires-in", time.Hour, "remaining session lifetime; zero or negative means expired")
	cmd.Flags().Bool("json", false, "print the decision as JSON")
	cmd.Flags().String("signin-path", defaults.SignInPath, "sign-in redirect target")
	cmd.Flags().String("forbidden-path", defaults.ForbiddenPath, "forbidden redirect target")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func printDecision(w io.Writer, path string, decision access.Decision, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Path string `json:"path"`
			access.Decision
		}{Path: path, Decision: decision})
	}

	line := fmt.Sprintf("%s %s (%s)", path, decision.Outcome, decision.Reason)
	switch {
	case decision.Pattern != "":
		line += " via " + decision.Pattern
	case decision.Redirect != "":
		line += " -> " + decision.Redirect
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func newLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Validate a policy and summarise its roles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPolicy(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, role := range p.Table.Roles() {
				fmt.Fprintf(out, "%-12s %d patterns\n", role, len(p.Table.AllowedPatterns(role)))
			}

			var unreachable []string
			for _, path := range access.MenuPaths(p.Menu) {
				reachable := false
				for _, role := range p.Table.Roles() {
					if p.Table.Allows(role, path) {
						reachable = true
						break
					}
				}
				if !reachable {
					unreachable = append(unreachable, path)
				}
			}
			if len(unreachable) > 0 {
				fmt.Fprintf(out, "menu paths no role can open: %s\n", strings.Join(unreachable, ", "))
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}

func newMenuCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Print the menu visible to a role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, _ := cmd.Flags().GetString("role")
			p, err := loadPolicy(cmd)
			if err != nil {
				return err
			}
			printMenu(cmd.OutOrStdout(), access.VisibleMenu(p.Menu, p.Table, domain.RoleID(role)), 0)
			return nil
		},
	}
	cmd.Flags().String("role", "", "role whose menu to print")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func printMenu(w io.Writer, entries []domain.RouteEntry, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, entry := range entries {
		if entry.Path != "" {
			fmt.Fprintf(w, "%s%s  %s\n", indent, entry.Title, entry.Path)
		} else {
			fmt.Fprintf(w, "%s%s\n", indent, entry.Title)
		}
		printMenu(w, entry.Children, depth+1)
	}
}
