package data

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sponsorCSV = `sponsor,ticker
Eli Lilly and Company,LLY
Pfizer,pfe
"Intra-Cellular Therapies, Inc.",ITCI
Memorial Sloan Kettering Cancer Center,
`

func TestNormalizeSponsor(t *testing.T) {
	assert.Equal(t, "eli lilly", NormalizeSponsor("Eli Lilly and Company"))
	assert.Equal(t, "intra cellular therapies", NormalizeSponsor("Intra-Cellular Therapies, Inc."))
	assert.Equal(t, "intra cellular therapies", NormalizeSponsor("Intra-Cellular Therapies Inc"))
	assert.Equal(t, "novartis", NormalizeSponsor("Novartis AG"))
	assert.Equal(t, "co", NormalizeSponsor("Co"))
}

func TestSponsorMapLookup(t *testing.T) {
	m, err := ReadSponsorMap(strings.NewReader(sponsorCSV))
	require.NoError(t, err)
	assert.Equal(t, 4, m.Len())

	ticker, ok := m.Lookup("Pfizer")
	assert.True(t, ok)
	assert.Equal(t, "PFE", ticker)

	ticker, ok = m.Lookup("Intra-Cellular Therapies Inc")
	assert.True(t, ok)
	assert.Equal(t, "ITCI", ticker)

	ticker, ok = m.Lookup("ELI LILLY & CO.")
	assert.True(t, ok)
	assert.Equal(t, "LLY", ticker)

	_, ok = m.Lookup("Memorial Sloan Kettering Cancer Center")
	assert.False(t, ok)
	assert.True(t, m.Known("Memorial Sloan Kettering Cancer Center"))

	_, ok = m.Lookup("Unknown Bio")
	assert.False(t, ok)
	assert.False(t, m.Known("Unknown Bio"))
}

func TestSponsorMapMergeAndSave(t *testing.T) {
	m, err := ReadSponsorMap(strings.NewReader(sponsorCSV))
	require.NoError(t, err)

	added := m.Merge([]string{"Pfizer Inc.", "Acme Bio", "Acme Bio", "N/A", ""})
	assert.Equal(t, 1, added)

	path := filepath.Join(t.TempDir(), "maps", "sponsor_ticker_map.csv")
	require.NoError(t, SaveSponsorMap(m, path))

	loaded, err := LoadSponsorMap(path)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Len())
	assert.True(t, loaded.Known("Acme Bio"))
	assert.Equal(t, "Acme Bio", loaded.Entries()[0].Sponsor)
}

func TestLoadSponsorMapMissing(t *testing.T) {
	_, err := LoadSponsorMap(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSponsorMapNotFound))
}

func TestReadSponsorMapMissingColumn(t *testing.T) {
	_, err := ReadSponsorMap(strings.NewReader("name,ticker\nPfizer,PFE\n"))
	assert.Error(t, err)
}
