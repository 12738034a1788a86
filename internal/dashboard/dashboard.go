// Package dashboard turns a filtered session frame into the KPI tiles and
// chart panels of the player engagement dashboard.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"gamedash/internal/engine"
	"gamedash/internal/models"
	"gamedash/internal/sessions"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	histogramBins = 20
	heatmapBins   = 10
	densityPoints = 100
)

type Service struct {
	logger       zerolog.Logger
	scatterLimit int
}

// NewService returns a dashboard builder. Scatter panels are sampled down
// to scatterLimit points; zero keeps every row.
func NewService(logger zerolog.Logger, scatterLimit int) *Service {
	return &Service{
		logger:       logger.With().Str("component", "dashboard").Logger(),
		scatterLimit: scatterLimit,
	}
}

// request carries everything one dashboard build needs.
type request struct {
	base  *engine.Frame
	frame *engine.Frame
	limit int
}

// printer returns a new display printer. Printers are not safe for
// concurrent use.
func (r *request) printer() *message.Printer {
	return message.NewPrinter(language.English)
}

type panelDef struct {
	id    string
	title string
	kind  models.ChartKind
	build func(*request, *models.Panel) error
}

var panelDefs = []panelDef{
	{"genre-players", "Number of Players per Game Genre", models.ChartBar, genrePanel},
	{"engagement-location", "Engagement Level Distribution Across Locations", models.ChartHistogram, engagementPanel},
	{"playtime-level", "Playtime vs Player Level (Colored by Gender)", models.ChartScatter, scatterPanel},
	{"session-duration", "Distribution of Average Session Duration", models.ChartHistogram, durationPanel},
	{"difficulty-share", "Share of Players per Game Difficulty", models.ChartPie, difficultyPanel},
	{"age-playtime", "Average Playtime by Age Group", models.ChartLine, agePanel},
	{"engagement-playtime", "Playtime Hours by Engagement Level", models.ChartBox, boxPanel},
	{"sessions-duration", "Sessions per Week vs Session Duration", models.ChartDensityHeatmap, heatmapPanel},
	{"purchase-gender", "In-Game Purchase Rate by Gender", models.ChartBar, purchasePanel},
}

// Build computes the dashboard for one request scope. A panel that fails
// keeps its slot with Error set; only a bad filter or a cancelled context
// fails the whole build.
func (s *Service) Build(ctx context.Context, scope engine.Scope) (*models.Dashboard, error) {
	start := time.Now()
	f, err := scope.Frame()
	if err != nil {
		return nil, err
	}

	req := &request{
		base:  scope.Base,
		frame: f,
		limit: s.scatterLimit,
	}

	filters, err := Filters(scope.Base)
	if err != nil {
		return nil, err
	}

	out := &models.Dashboard{
		KPIs:    kpis(req),
		Panels:  make([]models.Panel, len(panelDefs)),
		Filters: filters,
		Rows:    f.Len(),
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, def := range panelDefs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := models.Panel{ID: def.id, Title: def.title, Kind: def.kind}
			if err := def.build(req, &p); err != nil {
				s.logger.Warn().Err(err).Str("panel", def.id).Msg("panel failed")
				p = models.Panel{ID: def.id, Title: def.title, Kind: def.kind, Error: err.Error()}
			}
			out.Panels[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("rows", f.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("dashboard built")
	return out, nil
}

// Filters lists the selectable values of each filter field over the full
// dataset.
func Filters(base *engine.Frame) ([]models.FilterOption, error) {
	out := make([]models.FilterOption, 0, len(sessions.FilterFields))
	for _, ff := range sessions.FilterFields {
		vals, err := base.UniqueValues(ff.Column)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", ff.Param, err)
		}
		out = append(out, models.FilterOption{Param: ff.Param, Label: ff.Label, Values: vals})
	}
	return out, nil
}

func kpis(r *request) []models.KPI {
	pr := r.printer()
	players, _ := r.frame.UniqueValues(sessions.PlayerID)
	out := []models.KPI{{
		Label:   "Total Players",
		Value:   float64(len(players)),
		Display: pr.Sprintf("%d", len(players)),
	}}

	for _, k := range []struct {
		label  string
		column string
		dp     int
	}{
		{"Avg Playtime (hrs)", sessions.PlayTimeHours, 2},
		{"Avg Sessions/Week", sessions.SessionsPerWeek, 1},
		{"Avg Player Level", sessions.PlayerLevel, 1},
	} {
		m, err := engine.Mean(r.frame, k.column)
		if err != nil || math.IsNaN(m) {
			out = append(out, models.KPI{Label: k.label, Display: "n/a"})
			continue
		}
		v := round(m, k.dp)
		out = append(out, models.KPI{
			Label:   k.label,
			Value:   v,
			Display: pr.Sprintf("%.*f", k.dp, v),
		})
	}
	return out
}

func round(v float64, dp int) float64 {
	p := math.Pow10(dp)
	return math.Round(v*p) / p
}
