package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lewtec/geogallery/internal/database"
)

// PrintQuery runs query in tx and writes the rows tab separated. NULL prints as "-".
func PrintQuery(ctx context.Context, w io.Writer, tx *sql.Tx, query string, args ...any) error {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	if len(columns) > 1 {
		fmt.Fprintln(w, strings.Join(columns, "\t"))
	}
	pointers := make([]any, len(columns))
	container := make([]sql.NullString, len(columns))
	for i := range container {
		pointers[i] = &container[i]
	}
	line := make([]string, len(columns))
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return err
		}
		for i, v := range container {
			if v.Valid {
				line[i] = v.String
			} else {
				line[i] = "-"
			}
		}
		fmt.Fprintln(w, strings.Join(line, "\t"))
	}
	return rows.Err()
}

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query [sql] [args...]",
	Short: "Run a read-only SQL query against the gallery database",
	Long: `Without arguments the tables of the database are listed.

Example:
  geogallery query "select id, description from images where latitude < ?" 0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		// query_only is per connection
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(cmd.Context(), "PRAGMA query_only = ON"); err != nil {
			return err
		}

		tx, err := db.BeginTx(cmd.Context(), &sql.TxOptions{ReadOnly: true})
		if err != nil {
			return err
		}
		defer tx.Rollback()

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			return PrintQuery(cmd.Context(), out, tx, "select name from sqlite_master where type = 'table' order by name")
		}
		queryArgs := make([]any, 0, len(args)-1)
		for _, a := range args[1:] {
			queryArgs = append(queryArgs, a)
		}
		return PrintQuery(cmd.Context(), out, tx, args[0], queryArgs...)
	},
}

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the database schema up to date",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.OpenAndMigrate(cmd.Context(), cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to migrate '%s': %w", cfg.Database.Path, err)
		}
		defer db.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "Database schema up to date: %s\n", cfg.Database.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(migrateCmd)
}
