package relevance

import "github.com/openonco/scout/internal/types"

// DefaultTables returns the built-in keyword tables for a source.
//
// High tiers name specific tests, programs, and regulatory actions we track
// closely; medium tiers cover the broader liquid-biopsy vocabulary. The
// tables are ordered: earlier keywords are checked first.
func DefaultTables(source types.Source) TierTables {
	switch source {
	case types.SourceCoverageRegistry, types.SourcePayer:
		return TierTables{
			High: []string{
				"moldx",
				"signatera",
				"guardant",
				"foundationone",
				"galleri",
				"clonoseq",
				"oncotype",
				"liquid biopsy",
				"ctdna",
				"minimal residual disease",
			},
			Medium: []string{
				"circulating tumor",
				"tumor profiling",
				"next generation sequencing",
				"molecular diagnostic",
				"gene expression",
				"biomarker",
				"oncology",
				"cancer",
			},
		}
	case types.SourceVendor:
		return TierTables{
			High: []string{
				"fda approval",
				"fda clearance",
				"fda clear",
				"pma approv",
				"510(k)",
				"launch",
				"now available",
				"new test",
				"new assay",
			},
			Medium: []string{
				"liquid biopsy",
				"ctdna",
				"mrd",
				"minimal residual",
				"early detection",
				"cancer screening",
				"tumor profiling",
				"announce",
			},
		}
	case types.SourceLiterature, types.SourcePreprint:
		return TierTables{
			High: []string{
				"clinical validation",
				"prospective trial",
				"fda",
				"diagnostic accuracy",
				"sensitivity and specificity",
			},
			Medium: []string{
				"liquid biopsy",
				"ctdna",
				"circulating tumor dna",
				"minimal residual disease",
				"multi-cancer early detection",
				"cancer detection",
				"tumor-informed",
			},
		}
	case types.SourceDeviceApproval:
		return TierTables{
			High: []string{
				"liquid biopsy",
				"ctdna",
				"circulating tumor",
				"next generation sequencing",
				"tumor profiling",
			},
			Medium: []string{
				"cancer",
				"tumor",
				"oncology",
				"molecular diagnostic",
				"gene expression",
			},
		}
	default:
		return TierTables{}
	}
}
