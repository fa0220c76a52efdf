// internal/words/words.go
//
// Provides the word-pair catalog the matching engine deals from.
//
// Responsibilities:
//   - Load pair records from an environment-provided CSV file or fall back to
//     the embedded starter list.
//   - Keep the catalog read-only once loaded; hand out copies.
//   - Supply lookups used by the HTTP layer (Catalog, Tags, Stats).
//
// File format (one pair per row, '#' starts a comment):
//   id,word1,word2,tags
// where tags is a '|' separated list. A header row whose first field is
// "id" is skipped. Rows with a blank id or word are dropped; duplicate ids
// keep the first occurrence.
//
// Environment variables:
//   WORDS_PAIRS_FILE=/path/to/pairs.csv
//
// Initialization is run once (sync.Once).

package words

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/RybakovWebDev/pair-learner-sub000/assets"
	"github.com/RybakovWebDev/pair-learner-sub000/internal/game"
)

var (
	initOnce   sync.Once
	catalog    []game.Pair
	initialErr error
)

// Init loads the catalog exactly once.
// Returns an error if the catalog ends up empty.
func Init() error {
	initOnce.Do(func() {
		var (
			pairs []game.Pair
			err   error
		)
		if path := os.Getenv("WORDS_PAIRS_FILE"); path != "" {
			pairs, err = readPairFile(path)
		} else {
			pairs, err = readEmbedded()
		}
		if err != nil {
			initialErr = err
			return
		}
		catalog = pairs
		if len(catalog) == 0 {
			initialErr = errors.New("words: pair catalog is empty")
		}
	})
	return initialErr
}

func readPairFile(path string) ([]game.Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParsePairs(f)
}

func readEmbedded() ([]game.Pair, error) {
	rc, err := assets.DefaultPairs()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParsePairs(rc)
}

// ParsePairs decodes the CSV catalog format described above.
func ParsePairs(r io.Reader) ([]game.Pair, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []game.Pair
	seen := make(map[string]struct{})
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read pairs line %d: %w", line, err)
		}
		if len(rec) < 3 || strings.EqualFold(strings.TrimSpace(rec[0]), "id") {
			continue
		}
		p := game.Pair{
			ID:    strings.TrimSpace(rec[0]),
			Word1: strings.TrimSpace(rec[1]),
			Word2: strings.TrimSpace(rec[2]),
		}
		if p.ID == "" || p.Word1 == "" || p.Word2 == "" {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		if len(rec) > 3 {
			p.TagIDs = splitTags(rec[3])
		}
		out = append(out, p)
	}
	return out, nil
}

func splitTags(s string) []string {
	tags := lo.Map(strings.Split(s, "|"), func(t string, _ int) string { return strings.TrimSpace(t) })
	tags = lo.Compact(tags)
	if len(tags) == 0 {
		return nil
	}
	return lo.Uniq(tags)
}

// Catalog returns a copy of the loaded pairs.
func Catalog() []game.Pair {
	return append([]game.Pair(nil), catalog...)
}

// Tags returns every tag id in use, sorted.
func Tags() []string {
	tags := lo.Uniq(lo.FlatMap(catalog, func(p game.Pair, _ int) []string { return p.TagIDs }))
	sort.Strings(tags)
	return tags
}

// Stats returns counts of loaded pairs and distinct tags.
func Stats() (pairsCount int, tagsCount int) {
	return len(catalog), len(Tags())
}
