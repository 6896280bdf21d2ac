package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/soaringjerry/modern360/internal/db"
	"github.com/soaringjerry/modern360/internal/services"
)

// withStore opens and migrates the database for a one-shot command.
func (a *app) withStore(fn func(*db.Store) error) error {
	conn, err := a.openDB()
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.RunMigrations(conn); err != nil {
		return err
	}
	return fn(db.NewStore(conn))
}

func newTemplatesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage the template question pool",
	}

	var importLang string
	importCmd := &cobra.Command{
		Use:   "import <csv>",
		Short: "Import template questions from a CSV file (text,group,type,language[,options])",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return a.withStore(func(s *db.Store) error {
				n, err := services.NewTemplateService(s, a.cfg.DefaultLanguage).ImportCSV(cmd.Context(), f, importLang)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d template questions\n", n)
				return nil
			})
		},
	}
	importCmd.Flags().StringVar(&importLang, "language", "", "language for rows without one (default DEFAULT_LANGUAGE)")

	var reorderLang string
	reorderCmd := &cobra.Command{
		Use:   "reorder",
		Short: "Renumber template positions densely from 0",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *db.Store) error {
				n, err := services.NewTemplateService(s, a.cfg.DefaultLanguage).Reorder(cmd.Context(), reorderLang)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %d template positions\n", n)
				return nil
			})
		},
	}
	reorderCmd.Flags().StringVar(&reorderLang, "language", "", "template language (default DEFAULT_LANGUAGE)")

	cmd.AddCommand(importCmd, reorderCmd)
	return cmd
}

func newQuestionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Maintain assessment questions",
	}
	var assessmentID int64
	reorder := &cobra.Command{
		Use:   "reorder",
		Short: "Renumber an assessment's question order densely from 0",
		RunE: func(cmd *cobra.Command, args []string) error {
			if assessmentID <= 0 {
				return errors.New("--assessment is required")
			}
			return a.withStore(func(s *db.Store) error {
				n, err := services.NewAssessmentService(s, a.cfg.DefaultLanguage).RepairQuestionOrder(cmd.Context(), assessmentID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %d questions\n", n)
				return nil
			})
		},
	}
	reorder.Flags().Int64Var(&assessmentID, "assessment", 0, "assessment id")
	cmd.AddCommand(reorder)
	return cmd
}

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator account helpers",
		// No database or config needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}
	hash := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash for ADMIN_PASSWORD_HASH; reads stdin without an argument",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.Wrap(err, "read password")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			h, err := services.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
	cmd.AddCommand(hash)
	return cmd
}
