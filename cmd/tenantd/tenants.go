package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/bolt"
	"github.com/percussion/tenantd/internal/fs"
	"github.com/percussion/tenantd/kit/platform/errors"
	"github.com/percussion/tenantd/kv"
	"github.com/percussion/tenantd/logger"
	"github.com/percussion/tenantd/tenant"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// seedFile is the document read by tenants import.
type seedFile struct {
	Tenants []seedTenant `yaml:"tenants"`
}

type seedTenant struct {
	ID          string              `yaml:"id"`
	Name        string              `yaml:"name"`
	Description string              `yaml:"description"`
	Status      tenantd.TenantStatus `yaml:"status"`
}

func newTenantsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "Manage the tenant registry offline",
	}
	cmd.AddCommand(newTenantsImportCommand())
	return cmd
}

type importFlags struct {
	boltPath string
	update   bool
	verbose  bool
}

func newTenantsImportCommand() *cobra.Command {
	var flags importFlags
	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import tenants from a YAML seed file into the bolt registry",
		Long: `Import tenants from a YAML seed file of the form

    tenants:
      - id: acme
        name: Acme
        status: active

The server must not be running, bolt allows a single writer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			log := zap.NewNop()
			if flags.verbose {
				log = logger.New(cmd.ErrOrStderr())
			}

			store := bolt.NewKVStore(log, flags.boltPath)
			if err := store.Open(cmd.Context()); err != nil {
				return err
			}
			defer store.Close()

			res, err := importTenants(cmd.Context(), store, f, flags.update)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, updated %d, skipped %d\n", res.created, res.updated, res.skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.boltPath, "bolt-path", fs.DataFile("tenantd.bolt"), "path to boltdb database")
	cmd.Flags().BoolVar(&flags.update, "update", false, "update tenants that already exist instead of skipping them")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "log to stderr")
	return cmd
}

type importResult struct {
	created, updated, skipped int
}

func importTenants(ctx context.Context, store kv.Store, r io.Reader, update bool) (importResult, error) {
	var res importResult

	var seed seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && err != io.EOF {
		return res, fmt.Errorf("invalid seed file: %w", err)
	}

	svc := tenant.NewService(tenant.NewStore(store))
	for i, st := range seed.Tenants {
		t := &tenantd.Tenant{
			ID:          st.ID,
			Name:        st.Name,
			Description: st.Description,
			Status:      st.Status,
		}

		err := svc.CreateTenant(ctx, t)
		if err == nil {
			res.created++
			continue
		}
		if errors.ErrorCode(err) != errors.EConflict || st.ID == "" {
			return res, fmt.Errorf("tenant %d (%s): %w", i, st.Name, err)
		}
		if !update {
			res.skipped++
			continue
		}

		upd := tenantd.TenantUpdate{Name: &t.Name, Description: &t.Description}
		if st.Status != "" {
			upd.Status = &t.Status
		}
		if _, err := svc.UpdateTenant(ctx, st.ID, upd); err != nil {
			return res, fmt.Errorf("tenant %d (%s): %w", i, st.Name, err)
		}
		res.updated++
	}
	return res, nil
}
