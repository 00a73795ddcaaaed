package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dadoslab/rfbdash/internal/model"
)

// requiredColumns are the establishment CSV columns the dashboard depends on.
var requiredColumns = []string{
	"cnpj_basico",
	"identificador_matriz_filial",
	"situacao_cadastral",
	"data_situacao_cadastral",
	"data_inicio_atividade",
	"cnae_fiscal_principal",
	"nome_municipio",
}

// Source identifies the input files of one dataset snapshot. The RFB
// publishes the establishment table split into several CSV parts; Parts
// are concatenated in order.
type Source struct {
	Parts          []string
	ActivityLookup string // optional CNAE code/description CSV
}

// LoadStats summarizes data-quality anomalies observed during a load.
// Anomalous rows are kept; the counts are surfaced in the UI and the
// inspect command.
type LoadStats struct {
	Rows                int `json:"rows"`
	Parts               int `json:"parts"`
	MissingOpeningDate  int `json:"missing_opening_date"`
	MissingStatusDate   int `json:"missing_status_date"`
	StatusBeforeOpening int `json:"status_before_opening"`
	UnknownStatusCode   int `json:"unknown_status_code"`
	UnknownTypeCode     int `json:"unknown_type_code"`
}

// Snapshot is the immutable in-memory dataset. It is loaded once per
// process and shared read-only by every request after that.
type Snapshot struct {
	Rows       []model.Establishment
	Activities map[string]string // CNAE code -> description, may be empty
	Stats      LoadStats
	LoadedAt   time.Time
}

// ActivityLabel returns "code - description" when the lookup knows the
// code, otherwise the bare code.
func (s *Snapshot) ActivityLabel(code string) string {
	if desc, ok := s.Activities[code]; ok && desc != "" {
		return code + " - " + desc
	}
	return code
}

// Load reads every CSV part concurrently, concatenates them in the
// configured order and attaches the optional activity-code lookup.
func Load(ctx context.Context, src Source) (*Snapshot, error) {
	if len(src.Parts) == 0 {
		return nil, eris.New("dataset: no csv parts configured")
	}

	log := zap.L().With(zap.String("component", "dataset.loader"))

	parts := make([][]model.Establishment, len(src.Parts))
	g, gCtx := errgroup.WithContext(ctx)
	for i, path := range src.Parts {
		i, path := i, path
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			rows, err := readPart(path)
			if err != nil {
				return err
			}
			parts[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, p := range parts {
		total += len(p)
	}
	if total == 0 {
		return nil, eris.New("dataset: csv parts contain no data rows")
	}

	rows := make([]model.Establishment, 0, total)
	for _, p := range parts {
		rows = append(rows, p...)
	}

	snap := &Snapshot{
		Rows:       rows,
		Activities: map[string]string{},
		Stats:      computeStats(rows, len(src.Parts)),
		LoadedAt:   time.Now().UTC(),
	}

	if src.ActivityLookup != "" {
		activities, err := loadActivities(src.ActivityLookup)
		if err != nil {
			// Degrade to code-only labels, as the dashboard did before
			// the lookup file existed.
			log.Warn("activity lookup unavailable, charts will show bare codes",
				zap.String("path", src.ActivityLookup), zap.Error(err))
		} else {
			snap.Activities = activities
		}
	}

	log.Info("dataset loaded",
		zap.Int("rows", snap.Stats.Rows),
		zap.Int("parts", snap.Stats.Parts),
		zap.Int("activity_codes", len(snap.Activities)),
	)
	return snap, nil
}

func readPart(path string) ([]model.Establishment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open csv part %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read csv header %s", path)
	}

	header := map[string]bool{}
	for _, col := range dec.Header() {
		header[col] = true
	}
	for _, col := range requiredColumns {
		if !header[col] {
			return nil, eris.Errorf("dataset: %s: missing required column %q", path, col)
		}
	}

	var rows []model.Establishment
	for {
		var e model.Establishment
		if err := dec.Decode(&e); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "dataset: decode row in %s", path)
		}
		rows = append(rows, e)
	}
	return rows, nil
}

func computeStats(rows []model.Establishment, parts int) LoadStats {
	stats := LoadStats{Rows: len(rows), Parts: parts}
	for i := range rows {
		e := &rows[i]
		if e.OpeningDate.IsZero() {
			stats.MissingOpeningDate++
		}
		if e.StatusDate.IsZero() {
			stats.MissingStatusDate++
		}
		if !e.OpeningDate.IsZero() && !e.StatusDate.IsZero() && e.StatusDate.Before(e.OpeningDate.Time) {
			stats.StatusBeforeOpening++
		}
		if !e.Status.Known() {
			stats.UnknownStatusCode++
		}
		if !e.Type.Known() {
			stats.UnknownTypeCode++
		}
	}
	return stats
}

// loadActivities reads the codigo,descricao CNAE lookup CSV.
func loadActivities(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open activity lookup %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read activity lookup %s", path)
	}
	if len(records) < 2 {
		return nil, eris.Errorf("dataset: activity lookup %s has no data rows", path)
	}

	out := make(map[string]string, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 2 || rec[0] == "" {
			continue
		}
		out[rec[0]] = rec[1]
	}
	return out, nil
}
