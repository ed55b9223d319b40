package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/qs3c/chart_editor_server/internal/database"
	"github.com/qs3c/chart_editor_server/internal/model"
	"github.com/qs3c/chart_editor_server/internal/pkg/cron"
	"github.com/qs3c/chart_editor_server/internal/pkg/export"
	"github.com/qs3c/chart_editor_server/internal/repository"
)

func newMigrateCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.Migrate(current().db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
}

func newSetTierCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-tier <email> <free|premium>",
		Short: "Change a user's subscription tier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.ToLower(strings.TrimSpace(args[0]))
			tier := args[1]
			if tier != model.TierFree && tier != model.TierPremium {
				return fmt.Errorf("unknown tier %q", tier)
			}

			found, err := repository.NewUserRepository(current().db).SetTier(email, tier)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("user %s not found", email)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", email, tier)
			return nil
		},
	}
}

func newExportCmd(current func() *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <email>",
		Short: "Write a user's charts to an xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			user, err := lookupUser(a.db, args[0])
			if err != nil {
				return err
			}

			charts, err := repository.NewChartRepository(a.db).ListAllByUserID(user.ID)
			if err != nil {
				return err
			}
			data, err := export.ChartsWorkbook(charts)
			if err != nil {
				return err
			}

			if output == "" {
				output = fmt.Sprintf("charts-%d.xlsx", user.ID)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d charts to %s\n", len(charts), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default charts-<user id>.xlsx)")
	return cmd
}

func newActivityCmd(current func() *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity <email>",
		Short: "Show a user's recent activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			user, err := lookupUser(a.db, args[0])
			if err != nil {
				return err
			}

			logs, err := repository.NewActivityRepository(a.db).ListByUserID(user.ID, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, l := range logs {
				fmt.Fprintf(out, "%s\t%s\t%s\n", l.CreatedAt.Format("2006-01-02 15:04:05"), l.Action, l.Description)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	return cmd
}

func newPruneActivityCmd(current func() *app) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune-activity",
		Short: "Delete activity older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			if !cmd.Flags().Changed("days") {
				days = a.cfg.Queue.RetentionDays
			}
			if days <= 0 {
				return errors.New("retention must be at least one day")
			}

			removed, err := cron.NewService(repository.NewActivityRepository(a.db), days, a.logger).RunNow()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", removed)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention in days (default from config)")
	return cmd
}

func lookupUser(db *gorm.DB, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := repository.NewUserRepository(db).GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s not found", email)
		}
		return nil, err
	}
	return user, nil
}
