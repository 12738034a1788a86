// Command dashq runs one filter/bucket/aggregate query against a sessions
// file and prints the result, or converts the file to Parquet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"gamedash/internal/engine"
	"gamedash/internal/logger"
	"gamedash/internal/sessions"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// whereFlag collects repeated -where Column=v1,v2 flags.
type whereFlag engine.Predicate

func (w whereFlag) String() string { return "" }

func (w whereFlag) Set(s string) error {
	col, vals, ok := strings.Cut(s, "=")
	if !ok || col == "" {
		return fmt.Errorf("want Column=value[,value...], got %q", s)
	}
	w[col] = append(w[col], strings.Split(vals, ",")...)
	return nil
}

type bucketArg struct {
	column string
	spec   engine.BucketSpec
}

// bucketFlag collects repeated -bucket Column:edges:labels[:name] flags.
type bucketFlag []bucketArg

func (b *bucketFlag) String() string { return "" }

func (b *bucketFlag) Set(s string) error {
	arg, err := parseBucket(s)
	if err != nil {
		return err
	}
	*b = append(*b, arg)
	return nil
}

func parseBucket(s string) (bucketArg, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return bucketArg{}, fmt.Errorf("want Column:e0,e1,...:l0,l1,...[:name], got %q", s)
	}
	arg := bucketArg{column: parts[0]}
	for _, e := range strings.Split(parts[1], ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(e), 64)
		if err != nil {
			return bucketArg{}, fmt.Errorf("bucket edge %q: %w", e, err)
		}
		arg.spec.Edges = append(arg.spec.Edges, v)
	}
	arg.spec.Labels = strings.Split(parts[2], ",")
	if len(parts) == 4 {
		arg.spec.Name = parts[3]
	}
	return arg, nil
}

type options struct {
	file      string
	where     whereFlag
	buckets   bucketFlag
	group     string
	op        string
	metric    string
	order     string
	limit     int
	format    string
	toParquet string
	verbose   bool
}

func main() {
	opts := options{where: whereFlag{}}
	flag.StringVar(&opts.file, "file", os.Getenv("DATA_PATH"), "sessions `file` (.csv or .parquet)")
	flag.Var(opts.where, "where", "filter `Column=v1,v2` (repeatable)")
	flag.Var(&opts.buckets, "bucket", "derive a bucket column `Column:edges:labels[:name]` (repeatable)")
	flag.StringVar(&opts.group, "group", "", "comma-separated group-by `columns`")
	flag.StringVar(&opts.op, "op", "count", "aggregation: count, sum, mean, min, max, percent")
	flag.StringVar(&opts.metric, "metric", "", "numeric `column` for sum/mean/min/max")
	flag.StringVar(&opts.order, "order", "first", "group order: first, key, value_desc, value_asc")
	flag.IntVar(&opts.limit, "limit", 0, "keep at most `n` groups")
	flag.StringVar(&opts.format, "format", "table", "output format: table or json")
	flag.StringVar(&opts.toParquet, "to-parquet", "", "write the filtered rows to this Parquet `file` instead of querying")
	flag.BoolVar(&opts.verbose, "v", false, "verbose logging")
	flag.Parse()

	log := logger.Console(os.Stderr, opts.verbose)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout, log); err != nil {
		log.Error().Err(err).Msg("dashq failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer, log zerolog.Logger) error {
	if opts.file == "" {
		return errors.New("-file is required")
	}
	store, err := sessions.Load(ctx, opts.file, log)
	if err != nil {
		return err
	}
	defer store.Release()

	f, err := engine.Filter(store.Frame(), engine.Predicate(opts.where))
	if err != nil {
		return err
	}

	if opts.toParquet != "" {
		if err := sessions.WriteParquet(opts.toParquet, f); err != nil {
			return err
		}
		log.Info().Str("path", opts.toParquet).Int("rows", f.Len()).Msg("parquet written")
		return nil
	}

	for _, b := range opts.buckets {
		if f, err = engine.Bucketize(f, b.column, b.spec); err != nil {
			return err
		}
	}

	q, err := buildQuery(opts)
	if err != nil {
		return err
	}
	res, err := engine.Aggregate(f, q)
	if err != nil {
		return err
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "table", "":
		return writeTable(out, res)
	}
	return fmt.Errorf("unknown format %q", opts.format)
}

func buildQuery(opts options) (engine.Query, error) {
	var q engine.Query
	for _, g := range strings.Split(opts.group, ",") {
		if g = strings.TrimSpace(g); g != "" {
			q.GroupBy = append(q.GroupBy, g)
		}
	}
	var err error
	if q.Op, err = engine.ParseOp(opts.op); err != nil {
		return q, err
	}
	if q.Order, err = engine.ParseOrder(opts.order); err != nil {
		return q, err
	}
	q.Metric = opts.metric
	q.Limit = opts.limit
	return q, nil
}

func writeTable(out io.Writer, res *engine.Result) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	header := append(append([]string{}, res.GroupBy...), valueHeader(res), "rows")
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, g := range res.Groups {
		row := append(append([]string{}, g.Key...),
			strconv.FormatFloat(g.Value, 'f', -1, 64),
			strconv.Itoa(g.Count))
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	fmt.Fprintf(tw, "(%d groups over %d rows)\n", len(res.Groups), res.Total)
	return tw.Flush()
}

func valueHeader(res *engine.Result) string {
	if res.Metric != "" && res.Op != engine.OpCount && res.Op != engine.OpPercent {
		return res.Op.String() + "(" + res.Metric + ")"
	}
	return res.Op.String()
}
