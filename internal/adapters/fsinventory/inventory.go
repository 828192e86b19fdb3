// Package fsinventory resolves stimulus assets from the experiment's audio
// directory tree: <base>/<design>/block_<n>/trial_<m>/{words,cue}. Cue
// ground truth comes from an optional manifest.json, falling back to the
// cue filename convention wordW_syllable_S_<label>.<ext>.
package fsinventory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/seqlab/cadence/internal/logging"
	"github.com/seqlab/cadence/pkg/domain"
)

var (
	blockDirPattern = regexp.MustCompile(`^block_(\d+)$`)
	trialDirPattern = regexp.MustCompile(`^trial_(\d+)$`)
	itemFilePattern = regexp.MustCompile(`^word(\d+)_syllable_(\d+)_`)
)

// Inventory implements ports.Inventory over a local directory tree.
type Inventory struct {
	basePath string
	logger   *slog.Logger
}

// New creates an inventory rooted at basePath.
func New(basePath string, logger *slog.Logger) *Inventory {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Inventory{basePath: basePath, logger: logger}
}

// ListBlocks returns the sorted block numbers available for a design.
// A missing design directory yields an empty list, which the scheduler
// reports as an inventory mismatch.
func (inv *Inventory) ListBlocks(design domain.BlockDesign) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(inv.basePath, design.Name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan design %s: %w", design.Name, err)
	}

	var nums []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if m := blockDirPattern.FindStringSubmatch(e.Name()); m != nil {
			n, _ := strconv.Atoi(m[1])
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums, nil
}

// ListTrials returns the ordered trial refs within a block.
func (inv *Inventory) ListTrials(design domain.BlockDesign, block int) ([]domain.TrialRef, error) {
	blockPath := filepath.Join(inv.basePath, design.Name, fmt.Sprintf("block_%d", block))
	entries, err := os.ReadDir(blockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan block %s/%d: %w", design.Name, block, err)
	}

	type trial struct {
		num  int
		name string
	}
	var trials []trial
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if m := trialDirPattern.FindStringSubmatch(e.Name()); m != nil {
			n, _ := strconv.Atoi(m[1])
			trials = append(trials, trial{num: n, name: e.Name()})
		}
	}
	sort.Slice(trials, func(i, j int) bool { return trials[i].num < trials[j].num })

	refs := make([]domain.TrialRef, len(trials))
	for i, t := range trials {
		refs[i] = domain.TrialRef{Design: design.Name, Block: block, Trial: t.name}
	}
	return refs, nil
}

// ResolveTrial maps a trial ref to its ordered items, cue item and cue
// ground truth. Individual missing word files are logged and skipped; a
// trial without a usable cue is unusable and errors.
func (inv *Inventory) ResolveTrial(ref domain.TrialRef) (*domain.TrialAssets, error) {
	trialPath := filepath.Join(inv.basePath, ref.Design, fmt.Sprintf("block_%d", ref.Block), ref.Trial)

	items, err := inv.scanItems(filepath.Join(trialPath, "words"))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("trial %s has no word items", ref.Trial)
	}

	cue, info, err := inv.resolveCue(trialPath)
	if err != nil {
		return nil, fmt.Errorf("trial %s: %w", ref.Trial, err)
	}

	return &domain.TrialAssets{Items: items, Cue: cue, Info: info}, nil
}

// scanItems collects word/syllable files in presentation order: word
// ascending, then syllable ascending.
func (inv *Inventory) scanItems(wordsPath string) ([]domain.ItemRef, error) {
	entries, err := os.ReadDir(wordsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to scan words directory: %w", err)
	}

	var items []domain.ItemRef
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := itemFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			inv.logger.Debug("skipping unrecognized item file", "file", e.Name())
			continue
		}
		word, _ := strconv.Atoi(m[1])
		syllable, _ := strconv.Atoi(m[2])
		items = append(items, domain.ItemRef{
			Path:     filepath.Join(wordsPath, e.Name()),
			Word:     word,
			Syllable: syllable,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Word != items[j].Word {
			return items[i].Word < items[j].Word
		}
		return items[i].Syllable < items[j].Syllable
	})
	return items, nil
}

// trialManifest is the optional per-trial metadata file. Decoded through a
// generic map so unknown fields in hand-edited manifests stay harmless.
type trialManifest struct {
	Cue domain.CueInfo `mapstructure:"cue"`
}

func (inv *Inventory) resolveCue(trialPath string) (domain.ItemRef, domain.CueInfo, error) {
	cuePath := filepath.Join(trialPath, "cue")

	entries, err := os.ReadDir(cuePath)
	if err != nil {
		return domain.ItemRef{}, domain.CueInfo{}, fmt.Errorf("failed to scan cue directory: %w", err)
	}

	var cueFile string
	for _, e := range entries {
		if e.IsDir() || e.Name() == "manifest.json" {
			continue
		}
		cueFile = e.Name()
		break
	}
	if cueFile == "" {
		return domain.ItemRef{}, domain.CueInfo{}, fmt.Errorf("no cue file found")
	}

	info, err := inv.cueInfo(trialPath, cueFile)
	if err != nil {
		return domain.ItemRef{}, domain.CueInfo{}, err
	}

	ref := domain.ItemRef{
		Path:     filepath.Join(cuePath, cueFile),
		Word:     info.Word,
		Syllable: info.Syllable,
	}
	return ref, info, nil
}

// cueInfo prefers manifest.json and falls back to parsing the cue filename.
func (inv *Inventory) cueInfo(trialPath, cueFile string) (domain.CueInfo, error) {
	manifestPath := filepath.Join(trialPath, "cue", "manifest.json")
	if data, err := os.ReadFile(manifestPath); err == nil {
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return domain.CueInfo{}, fmt.Errorf("invalid manifest.json: %w", err)
		}
		var m trialManifest
		if err := mapstructure.Decode(raw, &m); err != nil {
			return domain.CueInfo{}, fmt.Errorf("invalid manifest.json: %w", err)
		}
		if m.Cue.Word > 0 && m.Cue.Syllable > 0 {
			return m.Cue, nil
		}
		inv.logger.Warn("manifest.json missing cue positions, falling back to filename", "path", manifestPath)
	}

	// Filename convention: word2_syllable_3_<label>.<ext>
	m := itemFilePattern.FindStringSubmatch(cueFile)
	if m == nil {
		// The label may follow the syllable index directly, without a
		// trailing underscore, when there is no suffix at all.
		trimmed := strings.TrimSuffix(cueFile, filepath.Ext(cueFile))
		m = regexp.MustCompile(`^word(\d+)_syllable_(\d+)`).FindStringSubmatch(trimmed)
	}
	if m == nil {
		return domain.CueInfo{}, fmt.Errorf("cue filename %q does not encode positions", cueFile)
	}
	word, _ := strconv.Atoi(m[1])
	syllable, _ := strconv.Atoi(m[2])
	return domain.CueInfo{Word: word, Syllable: syllable}, nil
}
