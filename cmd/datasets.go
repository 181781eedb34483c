package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbansafe/saferoute-cli/internal/dataset"
	"github.com/urbansafe/saferoute-cli/internal/store"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Import and inspect the risk datasets",
}

var importFlags struct {
	kind string
	file string
}

var datasetsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a dataset file (csv, xlsx, or shp), replacing the stored dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("datasets"); err != nil {
			return err
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := importDataset(cmd.Context(), st, importFlags.kind, importFlags.file)
		if err != nil {
			return err
		}

		zap.L().Info("dataset imported",
			zap.String("kind", importFlags.kind),
			zap.String("file", importFlags.file),
			zap.Int("records", n),
		)
		fmt.Printf("imported %d %s records from %s\n", n, importFlags.kind, importFlags.file)
		return nil
	},
}

var datasetsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored dataset record counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("datasets"); err != nil {
			return err
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		counts, err := st.CountDatasets(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("crime:      %d\n", counts.Crime)
		fmt.Printf("lighting:   %d\n", counts.Lighting)
		fmt.Printf("population: %d\n", counts.Population)
		return nil
	},
}

// importDataset parses the file by kind and extension and replaces the
// stored dataset. Returns the number of imported records.
func importDataset(ctx context.Context, st store.Store, kind, file string) (int, error) {
	ext := strings.ToLower(filepath.Ext(file))

	switch kind {
	case "crime":
		var records []dataset.CrimeRecord
		var err error
		switch ext {
		case ".csv":
			records, err = dataset.LoadCrimeCSV(file)
		case ".xlsx":
			records, err = dataset.LoadCrimeXLSX(file)
		case ".shp":
			records, err = dataset.LoadCrimeShapefile(file)
		default:
			return 0, eris.Errorf("unsupported file extension %q (want .csv, .xlsx, or .shp)", ext)
		}
		if err != nil {
			return 0, err
		}
		return len(records), st.ReplaceCrime(ctx, records)

	case "lighting":
		var records []dataset.LightingRecord
		var err error
		switch ext {
		case ".csv":
			records, err = dataset.LoadLightingCSV(file)
		case ".xlsx":
			records, err = dataset.LoadLightingXLSX(file)
		case ".shp":
			records, err = dataset.LoadLightingShapefile(file)
		default:
			return 0, eris.Errorf("unsupported file extension %q (want .csv, .xlsx, or .shp)", ext)
		}
		if err != nil {
			return 0, err
		}
		return len(records), st.ReplaceLighting(ctx, records)

	case "population":
		var records []dataset.PopulationRecord
		var err error
		switch ext {
		case ".csv":
			records, err = dataset.LoadPopulationCSV(file)
		case ".xlsx":
			records, err = dataset.LoadPopulationXLSX(file)
		case ".shp":
			records, err = dataset.LoadPopulationShapefile(file)
		default:
			return 0, eris.Errorf("unsupported file extension %q (want .csv, .xlsx, or .shp)", ext)
		}
		if err != nil {
			return 0, err
		}
		return len(records), st.ReplacePopulation(ctx, records)

	default:
		return 0, eris.Errorf("unknown dataset kind %q (want crime, lighting, or population)", kind)
	}
}

func init() {
	datasetsImportCmd.Flags().StringVar(&importFlags.kind, "kind", "", "dataset kind: crime, lighting, or population (required)")
	datasetsImportCmd.Flags().StringVar(&importFlags.file, "file", "", "source file path (required)")
	datasetsImportCmd.MarkFlagRequired("kind") //nolint:errcheck
	datasetsImportCmd.MarkFlagRequired("file") //nolint:errcheck
	datasetsCmd.AddCommand(datasetsImportCmd)
	datasetsCmd.AddCommand(datasetsStatusCmd)
	rootCmd.AddCommand(datasetsCmd)
}
