package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// ErrSponsorMapNotFound is returned when the sponsor mapping file does not exist.
var ErrSponsorMapNotFound = errors.New("sponsor map not found")

// SponsorEntry maps a ClinicalTrials.gov lead sponsor name to a ticker.
// An empty Ticker marks a sponsor we know about but cannot trade
// (private, non-US, subsidiary without its own listing).
type SponsorEntry struct {
	Sponsor string `json:"sponsor"`
	Ticker  string `json:"ticker"`
}

// SponsorMap resolves sponsor legal names to tickers.
//
// ClinicalTrials.gov uses legal names ("Intra-Cellular Therapies, Inc.") while
// quotes use symbols ("ITCI"), and automated lookup is unreliable, so the map
// is curated by hand. Lookup tries the exact name first and then a normalized
// form without punctuation or corporate suffixes.
type SponsorMap struct {
	entries    []SponsorEntry
	exact      map[string]string
	normalized map[string]string
}

func NewSponsorMap(entries []SponsorEntry) *SponsorMap {
	m := &SponsorMap{
		exact:      make(map[string]string, len(entries)),
		normalized: make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		m.add(e)
	}
	return m
}

func (m *SponsorMap) add(e SponsorEntry) {
	e.Sponsor = strings.TrimSpace(e.Sponsor)
	e.Ticker = strings.ToUpper(strings.TrimSpace(e.Ticker))
	if e.Sponsor == "" {
		return
	}
	if _, dup := m.exact[e.Sponsor]; dup {
		return
	}
	m.entries = append(m.entries, e)
	m.exact[e.Sponsor] = e.Ticker
	norm := NormalizeSponsor(e.Sponsor)
	// A ticker-bearing entry wins over a blank one for the same normalized name.
	if cur, ok := m.normalized[norm]; !ok || (cur == "" && e.Ticker != "") {
		m.normalized[norm] = e.Ticker
	}
}

// Lookup returns the ticker for sponsor. ok is false when the sponsor is
// unknown or known with no ticker.
func (m *SponsorMap) Lookup(sponsor string) (string, bool) {
	if m == nil {
		return "", false
	}
	sponsor = strings.TrimSpace(sponsor)
	if t, ok := m.exact[sponsor]; ok {
		return t, t != ""
	}
	t, ok := m.normalized[NormalizeSponsor(sponsor)]
	return t, ok && t != ""
}

// Known reports whether sponsor has an entry, with or without a ticker.
func (m *SponsorMap) Known(sponsor string) bool {
	if m == nil {
		return false
	}
	sponsor = strings.TrimSpace(sponsor)
	if _, ok := m.exact[sponsor]; ok {
		return true
	}
	_, ok := m.normalized[NormalizeSponsor(sponsor)]
	return ok
}

// Merge adds blank-ticker entries for sponsors not yet known and returns
// how many were added.
func (m *SponsorMap) Merge(sponsors []string) int {
	added := 0
	for _, s := range sponsors {
		s = strings.TrimSpace(s)
		if s == "" || s == "N/A" || m.Known(s) {
			continue
		}
		m.add(SponsorEntry{Sponsor: s})
		added++
	}
	return added
}

func (m *SponsorMap) Entries() []SponsorEntry {
	out := make([]SponsorEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *SponsorMap) Len() int { return len(m.entries) }

var corporateSuffixes = map[string]bool{
	"inc": true, "incorporated": true, "corp": true, "corporation": true,
	"co": true, "company": true, "ltd": true, "limited": true, "plc": true,
	"ag": true, "sa": true, "se": true, "nv": true, "bv": true, "llc": true,
	"lp": true, "gmbh": true, "kgaa": true, "and": true,
}

// NormalizeSponsor case-folds, strips punctuation and trailing corporate
// suffixes: "Eli Lilly and Company" and "eli lilly" normalize the same.
func NormalizeSponsor(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for len(fields) > 1 && corporateSuffixes[fields[len(fields)-1]] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// LoadSponsorMap reads a CSV with a header containing "sponsor" and "ticker".
func LoadSponsorMap(path string) (*SponsorMap, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSponsorMapNotFound, path)
		}
		return nil, fmt.Errorf("failed to open sponsor map: %w", err)
	}
	defer f.Close()
	return ReadSponsorMap(f)
}

func ReadSponsorMap(r io.Reader) (*SponsorMap, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read sponsor map header: %w", err)
	}
	cols := headerIndex(header)
	si, ok := cols["sponsor"]
	if !ok {
		return nil, fmt.Errorf("sponsor map: missing %q column", "sponsor")
	}
	ti, ok := cols["ticker"]
	if !ok {
		return nil, fmt.Errorf("sponsor map: missing %q column", "ticker")
	}

	var entries []SponsorEntry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sponsor map line %d: %w", line, err)
		}
		entries = append(entries, SponsorEntry{Sponsor: field(rec, si), Ticker: field(rec, ti)})
	}
	return NewSponsorMap(entries), nil
}

// SaveSponsorMap writes the map sorted by sponsor name.
func SaveSponsorMap(m *SponsorMap, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write sponsor map: %w", err)
	}
	defer f.Close()

	entries := m.Entries()
	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Sponsor) < strings.ToLower(entries[j].Sponsor)
	})

	w := csv.NewWriter(f)
	if err := w.Write([]string{"sponsor", "ticker"}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.Write([]string{e.Sponsor, e.Ticker}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func headerIndex(header []string) map[string]int {
	out := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		out[key] = i
	}
	return out
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
