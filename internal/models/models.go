package models

import "gamedash/internal/engine"

type ChartKind string

const (
	ChartBar            ChartKind = "bar"
	ChartPie            ChartKind = "pie"
	ChartLine           ChartKind = "line"
	ChartHistogram      ChartKind = "histogram"
	ChartScatter        ChartKind = "scatter"
	ChartBox            ChartKind = "box"
	ChartDensityHeatmap ChartKind = "density-heatmap"
)

type Dashboard struct {
	KPIs    []KPI          `json:"kpis"`
	Panels  []Panel        `json:"panels"`
	Filters []FilterOption `json:"filters"`
	Rows    int            `json:"rows"`
}

type KPI struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

// Panel is one chart. Only the fields for its Kind are set.
type Panel struct {
	ID      string                `json:"id"`
	Title   string                `json:"title"`
	Kind    ChartKind             `json:"kind"`
	XAxis   string                `json:"x_axis,omitempty"`
	YAxis   string                `json:"y_axis,omitempty"`
	Series  []Series              `json:"series,omitempty"`
	Points  []engine.Point        `json:"points,omitempty"`
	Boxes   []Box                 `json:"boxes,omitempty"`
	Density []engine.DensityPoint `json:"density,omitempty"`
	Cells   []Cell                `json:"cells,omitempty"`
	Error   string                `json:"error,omitempty"`
}

type Series struct {
	Name   string       `json:"name"`
	Points []LabelValue `json:"points"`
}

type LabelValue struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type Box struct {
	Name string `json:"name"`
	engine.Summary
}

// Cell is one bin of a density heatmap.
type Cell struct {
	X     string `json:"x"`
	Y     string `json:"y"`
	Count int    `json:"count"`
}

type FilterOption struct {
	Param  string   `json:"param"`
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

type QueryRequest struct {
	Filter  engine.Predicate `json:"filter"`
	Buckets []BucketRequest  `json:"buckets"`
	GroupBy []string         `json:"group_by"`
	Metric  string           `json:"metric"`
	Op      string           `json:"op"`
	Order   string           `json:"order"`
	Limit   int              `json:"limit"`
}

type BucketRequest struct {
	Column string `json:"column"`
	engine.BucketSpec
}

type QueryResponse struct {
	Rows  []engine.Group `json:"rows"`
	Total int            `json:"total_rows"`
}

type Page struct {
	Columns []string   `json:"columns"`
	Data    [][]string `json:"data"`
	Total   int        `json:"total"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
}

type Health struct {
	Status string `json:"status"`
	Loaded bool   `json:"loaded"`
	Rows   int    `json:"rows"`
}
