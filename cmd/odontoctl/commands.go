package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/odontogram-api/internal/config"
	"github.com/jwalitptl/odontogram-api/internal/dental"
	"github.com/jwalitptl/odontogram-api/internal/export"
	"github.com/jwalitptl/odontogram-api/internal/model"
	"github.com/jwalitptl/odontogram-api/pkg/auth"
)

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "odontoctl",
		Short:         "Inspect condition priorities and dry-run visit batches against a blank chart.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("catalog", "", "JSON file with catalog entries; defaults to the seed catalog")

	root.AddCommand(newResolveCommand())
	root.AddCommand(newCatalogCommand())
	root.AddCommand(newTokenCommand())
	return root
}

// ResolveReport is what the resolve command prints.
type ResolveReport struct {
	Applied   []model.CanonicalServiceRecord `json:"applied"`
	Discarded int                            `json:"discarded"`
	Changes   []model.CellChange             `json:"changes"`
	Errors    []model.EntryError             `json:"errors,omitempty"`
}

func newResolveCommand() *cobra.Command {
	var file, xlsx string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Normalize, validate and resolve a batch of service entries",
		Long: `Reads a JSON array of service entries in any accepted shape, resolves
conflicting claims with the catalog priorities and prints the surviving records
together with the cells they would change on a blank chart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readEntries(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			source, err := catalogFlag(cmd)
			if err != nil {
				return err
			}

			report, chart, err := resolveBatch(cmd.Context(), source, entries)
			if err != nil {
				return err
			}

			if xlsx != "" {
				catalog, err := source.Conditions(cmd.Context())
				if err != nil {
					return err
				}
				data, err := export.Chart(chart, catalog)
				if err != nil {
					return err
				}
				if err := os.WriteFile(xlsx, data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", xlsx, err)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON array of service entries, - for stdin")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "also write the resulting chart to this xlsx file")
	return cmd
}

func resolveBatch(ctx context.Context, source dental.CatalogSource, entries []json.RawMessage) (ResolveReport, model.OdontogramSnapshot, error) {
	validator := dental.NewRecordValidator()
	records := make([]model.CanonicalServiceRecord, 0, len(entries))
	var report ResolveReport
	for i, raw := range entries {
		rec := dental.Normalize(dental.DecodeRawService(raw))
		if errs := validator.Validate(i, rec); len(errs) > 0 {
			report.Errors = append(report.Errors, errs...)
			continue
		}
		records = append(records, rec)
	}

	resolved, err := dental.NewResolver(source, nil, nil).Resolve(ctx, records)
	if err != nil {
		return report, model.OdontogramSnapshot{}, err
	}

	now := time.Now().UTC()
	blank := dental.NewOdontogram(uuid.Nil, now)
	chart := dental.Apply(blank, resolved, now)

	report.Applied = resolved
	report.Discarded = dental.CountClaims(records) - dental.CountClaims(resolved)
	report.Changes = dental.Diff(blank, chart)
	if report.Changes == nil {
		report.Changes = []model.CellChange{}
	}
	return report, chart, nil
}

func newCatalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the condition priority table",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := catalogFlag(cmd)
			if err != nil {
				return err
			}
			entries, err := source.Conditions(cmd.Context())
			if err != nil {
				return err
			}
			catalog, err := dental.NewCatalog(entries)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tCATEGORY\tPRIORITY\tTERMINAL\tCOLOR")
			for _, e := range catalog.Entries() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%s\n", e.Code, e.DisplayName, e.Category, e.Priority, e.IsTerminal, e.Color)
			}
			return w.Flush()
		},
	}
}

func newTokenCommand() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			id := uuid.New()
			if userID != "" {
				if id, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid user id: %w", err)
				}
			}
			switch role {
			case auth.RoleAdmin, auth.RoleDentist, auth.RoleAssistant:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			tokens, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer)
			if err != nil {
				return err
			}
			token, err := tokens.GenerateAccessToken(id, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id; random when empty")
	cmd.Flags().StringVar(&role, "role", auth.RoleDentist, "admin, dentist or assistant")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func catalogFlag(cmd *cobra.Command) (dental.CatalogSource, error) {
	path, err := cmd.Flags().GetString("catalog")
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog flag: %w", err)
	}
	if path == "" {
		return dental.StaticSource(dental.DefaultConditions()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var entries []model.ConditionCatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return dental.StaticSource(entries), nil
}

func readEntries(stdin io.Reader, file string) ([]json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("entries must be a JSON array: %w", err)
	}
	return entries, nil
}
