// cmd/invoicectl/root.go
package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/javajoker/invoice-backend/internal/config"
	"github.com/javajoker/invoice-backend/internal/database"
)

// app carries the state shared by all commands. Tests set db directly.
type app struct {
	cfg *config.Config
	db  *gorm.DB
	out io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "invoicectl",
		Short:        "Operator tasks for the invoicing backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.WarnLevel)
			}
			return a.open()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newMigrateCmd(a),
		newSeedAdminCmd(a),
		newCOGSCmd(a),
		newPriceHistoryCmd(a),
		newUnlockCmd(a),
	)
	return root
}

// open loads configuration and connects to the database unless already done.
func (a *app) open() error {
	if a.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		a.cfg = cfg
	}
	if a.db == nil {
		db, err := database.Initialize(a.cfg.Database)
		if err != nil {
			return err
		}
		a.db = db
	}
	return nil
}

func (a *app) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.SetStyle(table.StyleLight)
	return t
}
