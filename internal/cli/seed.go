package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/coverlane/coverlane/internal/partnersrv/ingest"
)

var seedFile string

// seedManifest is the YAML manifest consumed by the seed command. Each entry
// points at a scraper export for one partner domain.
type seedManifest struct {
	Partners []seedEntry `yaml:"partners"`
}

type seedEntry struct {
	Domain       string `yaml:"domain"`
	StartURL     string `yaml:"start_url"`
	ProductsFile string `yaml:"products_file"`
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed -f FILENAME",
		Short: "Seed partners and products from a YAML manifest",
		Long: `Seed partners and products from a YAML manifest. Each manifest entry names
a partner domain and a scraper export file (a JSON array of raw records, or a
scraper batch object with a products field). Partners are created on first
sight; products already stored for a partner are counted as duplicates.

Example manifest:
  partners:
    - domain: jumbo.ae
      start_url: https://www.jumbo.ae
      products_file: exports/jumbo.json

Examples:
  # Seed from a manifest
  coverctl seed -f partners.yaml`,
		RunE: runSeed,
	}
	cmd.Flags().StringVarP(&seedFile, "filename", "f", "", "Path to the seed manifest")
	cmd.MarkFlagRequired("filename")
	return cmd
}

func runSeed(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(seedFile)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}

	var manifest seedManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("parsing manifest: %w", err)
	}
	if len(manifest.Partners) == 0 {
		return fmt.Errorf("manifest has no partners")
	}

	ctx, release, err := connCtx()
	if err != nil {
		return fmt.Errorf("connecting to partner store: %w", err)
	}
	defer release()

	var summaries []*ingest.Summary
	for _, entry := range manifest.Partners {
		if entry.Domain == "" {
			return fmt.Errorf("manifest entry missing domain")
		}
		products, err := loadExport(entry.ProductsFile)
		if err != nil {
			return fmt.Errorf("partner %s: %w", entry.Domain, err)
		}

		batch := &ingest.Batch{
			Domain:   entry.Domain,
			StartURL: entry.StartURL,
			Products: products,
		}
		summary, derr := ingest.LoadBatch(ctx, batch)
		if derr != nil {
			return fmt.Errorf("partner %s: %w", entry.Domain, derr)
		}
		summaries = append(summaries, summary)

		if !jsonOutput {
			okLabel.Printf("%s: %d added, %d duplicates, %d skipped (of %d)\n",
				summary.Partner, summary.Added, summary.Duplicates, summary.Skipped, summary.Total)
		}
	}

	if jsonOutput {
		printJSON(summaries)
	}
	return nil
}

// loadExport reads a scraper export file. Accepts either a bare JSON array of
// records or a batch object carrying a products field.
func loadExport(filename string) ([]json.RawMessage, error) {
	if filename == "" {
		return nil, fmt.Errorf("manifest entry missing products_file")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}

	doc := gjson.ParseBytes(data)
	if doc.IsObject() {
		doc = doc.Get("products")
		if !doc.Exists() {
			return nil, fmt.Errorf("export object has no products field")
		}
	}
	if !doc.IsArray() {
		return nil, fmt.Errorf("export is not a JSON array")
	}

	var products []json.RawMessage
	if err := json.Unmarshal([]byte(doc.Raw), &products); err != nil {
		return nil, fmt.Errorf("parsing export: %w", err)
	}
	return products, nil
}
