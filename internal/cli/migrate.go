package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mariodrm17/Practica1/internal/catalog"
	"github.com/Mariodrm17/Practica1/pkg/database"
	pkglog "github.com/Mariodrm17/Practica1/pkg/log"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	SeedFile string
}

// NewMigrateCommand creates the command that migrates the schema and optionally loads
// a product seed file.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.SeedFile, "seed", "", "JSON product file to upsert into the catalog")

	return cmd
}

func runMigrate(cmd *cobra.Command, opts *MigrateOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	if opts.SeedFile == "" {
		return nil
	}
	products, err := catalog.LoadSeedFile(opts.SeedFile)
	if err != nil {
		return err
	}
	if err := catalog.NewGormCatalog(db).Upsert(cmd.Context(), products); err != nil {
		return fmt.Errorf("upsert catalog: %w", err)
	}
	logger.Info().Int("products", len(products)).Str("file", opts.SeedFile).Msg("catalog seeded")
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", len(products))
	return nil
}
