package dashboard

import (
	"math"
	"strings"
	"unicode"

	"gamedash/internal/engine"
	"gamedash/internal/models"
	"gamedash/internal/sessions"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// axisTitle turns a column name such as "AvgSessionDurationMinutes" into
// "Avg Session Duration Minutes".
func axisTitle(column string) string {
	var b strings.Builder
	runes := []rune(column)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return cases.Title(language.English).String(b.String())
}

func seriesOf(name string, res *engine.Result, dp int) models.Series {
	s := models.Series{Name: name, Points: make([]models.LabelValue, 0, len(res.Groups))}
	for _, g := range res.Groups {
		s.Points = append(s.Points, models.LabelValue{Label: g.Label(), Value: round(g.Value, dp)})
	}
	return s
}

func genrePanel(r *request, p *models.Panel) error {
	res, err := engine.Aggregate(r.frame, engine.Query{
		GroupBy: []string{sessions.GameGenre},
		Op:      engine.OpCount,
		Order:   engine.OrderValueDesc,
	})
	if err != nil {
		return err
	}
	p.XAxis, p.YAxis = axisTitle(sessions.GameGenre), "Count"
	p.Series = []models.Series{seriesOf("Players", res, 0)}
	return nil
}

// engagementPanel groups by engagement level on the x axis with one series
// per location.
func engagementPanel(r *request, p *models.Panel) error {
	res, err := engine.Aggregate(r.frame, engine.Query{
		GroupBy: []string{sessions.EngagementLevel, sessions.Location},
		Op:      engine.OpCount,
	})
	if err != nil {
		return err
	}
	index := make(map[string]int)
	for _, g := range res.Groups {
		loc := g.Key[1]
		i, ok := index[loc]
		if !ok {
			i = len(p.Series)
			index[loc] = i
			p.Series = append(p.Series, models.Series{Name: loc})
		}
		p.Series[i].Points = append(p.Series[i].Points, models.LabelValue{Label: g.Key[0], Value: g.Value})
	}
	p.XAxis, p.YAxis = axisTitle(sessions.EngagementLevel), "Count"
	return nil
}

func scatterPanel(r *request, p *models.Panel) error {
	pts, err := engine.Points(r.frame, sessions.PlayTimeHours, sessions.PlayerLevel, sessions.Gender, r.limit)
	if err != nil {
		return err
	}
	for i := range pts {
		pts[i].X = round(pts[i].X, 2)
		pts[i].Y = round(pts[i].Y, 2)
	}
	p.XAxis, p.YAxis = "Playtime (Hours)", axisTitle(sessions.PlayerLevel)
	p.Points = pts
	return nil
}

// rangeLabels formats bucket bounds with just enough decimals to keep
// adjacent labels distinct.
func rangeLabels(r *request, lo, hi float64, n int) func(a, b float64) string {
	width := (hi - lo) / float64(n)
	dp := 0
	if width > 0 && width < 1 {
		dp = int(math.Ceil(-math.Log10(width)))
	}
	pr := r.printer()
	return func(a, b float64) string {
		return pr.Sprintf("%.*f-%.*f", dp, a, dp, b)
	}
}

// binned buckets column into n equal-width ranges over the frame's bounds.
func binned(r *request, f *engine.Frame, column, name string, n int) (*engine.Frame, engine.BucketSpec, error) {
	lo, hi, err := engine.Bounds(f, column)
	if err != nil {
		return nil, engine.BucketSpec{}, err
	}
	if hi <= lo {
		hi = lo + 1
	}
	spec := engine.EqualWidth(lo, hi, n, rangeLabels(r, lo, hi, n))
	spec.Name = name
	out, err := engine.Bucketize(f, column, spec)
	return out, spec, err
}

func durationPanel(r *request, p *models.Panel) error {
	col := sessions.AvgSessionDurationMinutes
	p.XAxis, p.YAxis = "Avg Session Duration (Minutes)", "Count"
	if r.frame.Len() == 0 {
		p.Series = []models.Series{{Name: "Sessions", Points: []models.LabelValue{}}}
		return nil
	}

	f, spec, err := binned(r, r.frame, col, "DurationBin", histogramBins)
	if err != nil {
		return err
	}
	res, err := engine.Aggregate(f, engine.Query{GroupBy: []string{spec.Name}, Op: engine.OpCount})
	if err != nil {
		return err
	}
	// Empty bins are shown as zero.
	s := models.Series{Name: "Sessions", Points: make([]models.LabelValue, len(spec.Labels))}
	for i, l := range spec.Labels {
		g, _ := res.Lookup(l)
		s.Points[i] = models.LabelValue{Label: l, Value: g.Value}
	}
	p.Series = []models.Series{s}

	density, err := engine.Density(r.frame, col, densityPoints)
	if err != nil {
		return err
	}
	for i := range density {
		density[i].X = round(density[i].X, 2)
		density[i].Y = round(density[i].Y, 6)
	}
	p.Density = density
	return nil
}

func difficultyPanel(r *request, p *models.Panel) error {
	res, err := engine.Aggregate(r.frame, engine.Query{
		GroupBy: []string{sessions.GameDifficulty},
		Op:      engine.OpPercent,
	})
	if err != nil {
		return err
	}
	p.Series = []models.Series{seriesOf("Players (%)", res, 2)}
	return nil
}

func agePanel(r *request, p *models.Panel) error {
	f, err := engine.Bucketize(r.frame, sessions.Age, sessions.AgeGroups)
	if err != nil {
		return err
	}
	res, err := engine.Aggregate(f, engine.Query{
		GroupBy: []string{sessions.AgeGroups.Name},
		Metric:  sessions.PlayTimeHours,
		Op:      engine.OpMean,
		Order:   engine.OrderKey,
	})
	if err != nil {
		return err
	}
	s := models.Series{Name: "Avg Playtime (hrs)", Points: []models.LabelValue{}}
	for _, g := range res.Groups {
		if g.Key[0] == engine.Unbucketed {
			continue
		}
		s.Points = append(s.Points, models.LabelValue{Label: g.Key[0], Value: round(g.Value, 2)})
	}
	p.XAxis, p.YAxis = "Age Group", "Avg Playtime (hrs)"
	p.Series = []models.Series{s}
	return nil
}

func boxPanel(r *request, p *models.Panel) error {
	names, sums, err := engine.DescribeBy(r.frame, sessions.PlayTimeHours, sessions.EngagementLevel)
	if err != nil {
		return err
	}
	p.Boxes = make([]models.Box, len(names))
	for i, n := range names {
		s := sums[i]
		p.Boxes[i] = models.Box{Name: n, Summary: engine.Summary{
			Count:  s.Count,
			Mean:   round(s.Mean, 2),
			Min:    round(s.Min, 2),
			Q1:     round(s.Q1, 2),
			Median: round(s.Median, 2),
			Q3:     round(s.Q3, 2),
			Max:    round(s.Max, 2),
		}}
	}
	p.XAxis, p.YAxis = axisTitle(sessions.EngagementLevel), "Playtime (Hours)"
	return nil
}

func heatmapPanel(r *request, p *models.Panel) error {
	p.XAxis, p.YAxis = axisTitle(sessions.SessionsPerWeek), "Avg Session Duration (Minutes)"
	p.Cells = []models.Cell{}
	if r.frame.Len() == 0 {
		return nil
	}

	f, xs, err := binned(r, r.frame, sessions.SessionsPerWeek, "SessionsBin", heatmapBins)
	if err != nil {
		return err
	}
	f, ys, err := binned(r, f, sessions.AvgSessionDurationMinutes, "DurationBin", heatmapBins)
	if err != nil {
		return err
	}
	res, err := engine.Aggregate(f, engine.Query{
		GroupBy: []string{xs.Name, ys.Name},
		Op:      engine.OpCount,
		Order:   engine.OrderKey,
	})
	if err != nil {
		return err
	}
	for _, g := range res.Groups {
		p.Cells = append(p.Cells, models.Cell{X: g.Key[0], Y: g.Key[1], Count: g.Count})
	}
	return nil
}

// purchasePanel lists every gender of the full dataset; a gender with no
// rows in the current selection is shown with a zero rate.
func purchasePanel(r *request, p *models.Panel) error {
	genders, err := r.base.UniqueValues(sessions.Gender)
	if err != nil {
		return err
	}
	res, err := engine.Aggregate(r.frame, engine.Query{
		GroupBy: []string{sessions.Gender},
		Metric:  sessions.InGamePurchases,
		Op:      engine.OpMean,
	})
	if err != nil {
		return err
	}
	s := models.Series{Name: "Purchase Rate (%)", Points: make([]models.LabelValue, len(genders))}
	for i, gender := range genders {
		g, _ := res.Lookup(gender)
		s.Points[i] = models.LabelValue{Label: gender, Value: round(g.Value*100, 2)}
	}
	p.XAxis, p.YAxis = axisTitle(sessions.Gender), "Purchase Rate (%)"
	p.Series = []models.Series{s}
	return nil
}
