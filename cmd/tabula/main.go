package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"

	"github.com/spektr-org/tabula"
	"github.com/spektr-org/tabula/dataframe"
	"github.com/spektr-org/tabula/datasource"
	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/format"
	"github.com/spektr-org/tabula/logger"
	"github.com/spektr-org/tabula/query"
	"github.com/spektr-org/tabula/schema"
	"github.com/spektr-org/tabula/translator"
)

// ============================================================================
// TABULA CLI — Load, reshape, query and convert tabular data
// ============================================================================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the parsed command line.
type options struct {
	in, inFormat, sqlQuery  string
	out, outFormat, table   string
	configPath, envFile     string
	infer                   bool
	keep, drop, index       string
	sort                    string
	desc                    bool
	distinct, pivot, detect string
	describe, refine        bool
	question                string
	group, agg, measure     string
	limit                   int
	where                   multiFlag
	version                 bool
}

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string     { return strings.Join(*m, ", ") }
func (m *multiFlag) Set(v string) error { *m = append(*m, v); return nil }

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("tabula", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── Input / output ────────────────────────────────────────────────────
	fs.StringVar(&o.in, "in", "-", "Input location: file path, s3://bucket/key, sqlite:<dsn> or - for stdin")
	fs.StringVar(&o.inFormat, "in-format", "", "Input format (default: from extension, csv for stdin)")
	fs.StringVar(&o.sqlQuery, "sql", "", "Query to run against a sqlite: input")
	fs.StringVar(&o.out, "out", "-", "Output location: file path, s3://bucket/key, sqlite:<dsn> or - for stdout")
	fs.StringVar(&o.outFormat, "out-format", "", "Output format (default: from extension, csv for stdout)")
	fs.StringVar(&o.table, "table", "tabula", "Table name for a sqlite: output")
	fs.StringVar(&o.configPath, "config", "", "Path to a YAML config file")
	fs.StringVar(&o.envFile, "env", ".env", "Path to a .env file (ignored when missing)")
	fs.BoolVar(&o.infer, "infer", false, "Detect column types and convert numbers and dates after loading")

	// ── Reshape ───────────────────────────────────────────────────────────
	fs.StringVar(&o.keep, "keep", "", "Comma-separated columns to keep")
	fs.StringVar(&o.drop, "drop", "", "Comma-separated columns to drop")
	fs.StringVar(&o.index, "index", "", "Column to promote to the index")
	fs.StringVar(&o.sort, "sort", "", "Column to sort by")
	fs.BoolVar(&o.desc, "desc", false, "Sort descending")
	fs.StringVar(&o.distinct, "distinct", "", "Keep the first row per distinct value of this column")
	fs.StringVar(&o.pivot, "pivot", "", "Pivot as group:value")
	fs.StringVar(&o.detect, "detect", "", "Replace the frame with a profile: types or values")
	fs.BoolVar(&o.describe, "describe", false, "Print the discovered schema instead of data")
	fs.BoolVar(&o.refine, "refine", false, "Enrich --describe output with the model (needs an API key)")

	// ── Query ─────────────────────────────────────────────────────────────
	fs.StringVar(&o.question, "query", "", "Natural language question (needs an API key)")
	fs.StringVar(&o.group, "group", "", "Comma-separated columns to group by")
	fs.StringVar(&o.agg, "agg", "", "Aggregation: sum, count, avg, min, max, none")
	fs.StringVar(&o.measure, "measure", "", "Column to aggregate")
	fs.IntVar(&o.limit, "limit", 0, "Keep at most this many groups")
	fs.Var(&o.where, "where", "Filter as column=v1|v2 (repeatable)")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `tabula — lazy dataframes on the command line

Usage:
  tabula --in sales.csv --infer --sort Amount --desc --out top.json
  tabula --in sales.csv --infer --group Region --agg sum --measure Amount
  tabula --in s3://bucket/sales.csv.sz --query "revenue by region"
  tabula --in sqlite:app.db --sql "select * from orders" --out orders.arrow
  tabula --in sales.csv --describe --out schema.yaml

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprintf(stderr, `
Formats: %s

Environment:
  TABULA_*          Any config key, e.g. TABULA_LOG_LEVEL=debug
  GEMINI_API_KEY    Required for --query and --refine
`, strings.Join(format.Names(), ", "))
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintf(stdout, "tabula %s\n", tabula.Version)
		return nil
	}

	cfg, err := loadConfig(o.configPath, o.envFile)
	if err != nil {
		return err
	}
	if o.inFormat == "" {
		o.inFormat = cfg.InFormat
	}
	if o.outFormat == "" {
		o.outFormat = cfg.OutFormat
	}
	o.infer = o.infer || cfg.Infer

	log := logger.Component(logger.NewWriter(cfg.Log, stderr), "cli")
	env := ioEnv{stdin: stdin, stdout: stdout, cfg: cfg, log: log}

	// ── Load ──────────────────────────────────────────────────────────────
	df, err := env.load(ctx, o)
	if err != nil {
		return err
	}

	// ── Reshape ───────────────────────────────────────────────────────────
	df, err = reshape(df, o)
	if err != nil {
		return err
	}

	// ── Describe mode ─────────────────────────────────────────────────────
	if o.describe {
		return env.describe(ctx, df, o)
	}

	// ── Query mode ────────────────────────────────────────────────────────
	if o.question != "" || o.group != "" || o.agg != "" || o.measure != "" || len(o.where) > 0 {
		res, err := analyze(ctx, df, o, cfg, log)
		if err != nil {
			return err
		}
		fmt.Fprintln(stderr, res.Summary)
		df = res.Frame
	}

	// ── Save ──────────────────────────────────────────────────────────────
	return env.save(ctx, df, o)
}

// ============================================================================
// LOAD / SAVE
// ============================================================================

// ioEnv carries what the load and save steps share.
type ioEnv struct {
	stdin  io.Reader
	stdout io.Writer
	cfg    *Config
	log    zerolog.Logger
}

func (e ioEnv) store(ctx context.Context, location string) (datasource.Store, error) {
	if location == "" || location == "-" {
		return datasource.Stream{In: e.stdin, Out: e.stdout}, nil
	}
	return datasource.Open(ctx, location, e.cfg.S3, datasource.WithLogger(e.log))
}

func pluginFor(name, location string) (format.Plugin, error) {
	if name != "" {
		return format.ByName(name)
	}
	if location == "" || location == "-" {
		return format.CSV{}, nil
	}
	return format.ForPath(location)
}

func (e ioEnv) load(ctx context.Context, o *options) (dataframe.DataFrame, error) {
	var df dataframe.DataFrame
	if dsn, ok := strings.CutPrefix(o.in, "sqlite:"); ok {
		if o.sqlQuery == "" {
			return nil, tberrors.InvalidArgument("sql", "--sql is required for sqlite: inputs")
		}
		db, err := datasource.OpenSQLite(dsn, datasource.WithLogger(e.log))
		if err != nil {
			return nil, err
		}
		defer db.Close()
		lazy, err := db.Query(ctx, o.sqlQuery)
		if err != nil {
			return nil, err
		}
		// Bake while the handle is still open.
		if df, err = lazy.Bake(); err != nil {
			return nil, err
		}
	} else {
		store, err := e.store(ctx, o.in)
		if err != nil {
			return nil, err
		}
		plugin, err := pluginFor(o.inFormat, o.in)
		if err != nil {
			return nil, err
		}
		if df, err = dataframe.Load(ctx, store, plugin); err != nil {
			return nil, err
		}
	}

	if o.infer {
		typed, _, err := schema.Infer(df)
		switch {
		case err == nil:
			df = typed
		case !tberrors.IsInvalidArgument(err):
			return nil, err
		}
	}

	n, err := df.Count()
	if err != nil {
		return nil, err
	}
	e.log.Info().
		Str(logger.FieldOperation, "load").
		Str("location", o.in).
		Int(logger.FieldRows, n).
		Strs("columns", df.GetColumnNames()).
		Msg("input loaded")
	return df, nil
}

func (e ioEnv) save(ctx context.Context, df dataframe.DataFrame, o *options) error {
	if dsn, ok := strings.CutPrefix(o.out, "sqlite:"); ok {
		db, err := datasource.OpenSQLite(dsn, datasource.WithLogger(e.log))
		if err != nil {
			return err
		}
		defer db.Close()
		_, err = db.WriteTable(ctx, o.table, df)
		return err
	}

	plugin, err := pluginFor(o.outFormat, o.out)
	if err != nil {
		return err
	}
	text, err := df.As(plugin).Text()
	if err != nil {
		return err
	}
	return e.write(ctx, o.out, plugin, text)
}

// write sends text to location, ending terminal output with a newline.
func (e ioEnv) write(ctx context.Context, location string, plugin format.Plugin, text string) error {
	store, err := e.store(ctx, location)
	if err != nil {
		return err
	}
	if _, isStream := store.(datasource.Stream); isStream && text != "" && !strings.HasSuffix(text, "\n") {
		if _, binary := plugin.(format.Arrow); !binary {
			text += "\n"
		}
	}
	return store.Write(ctx, text)
}

// ============================================================================
// RESHAPE
// ============================================================================

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func requireColumn(df dataframe.DataFrame, op, name string) error {
	if !df.HasSeries(name) {
		return tberrors.MissingColumn(op, name)
	}
	return nil
}

// reshape applies the column, index and row flags in a fixed order: keep,
// drop, index, sort, distinct, pivot, detect.
func reshape(df dataframe.DataFrame, o *options) (dataframe.DataFrame, error) {
	if cols := splitList(o.keep); len(cols) > 0 {
		for _, c := range cols {
			if err := requireColumn(df, "keep", c); err != nil {
				return nil, err
			}
		}
		df = df.KeepSeries(cols...)
	}
	if cols := splitList(o.drop); len(cols) > 0 {
		df = df.DropSeries(cols...)
	}
	if o.index != "" {
		var err error
		if df, err = df.SetIndex(o.index); err != nil {
			return nil, err
		}
	}
	if o.sort != "" {
		if err := requireColumn(df, "sort", o.sort); err != nil {
			return nil, err
		}
		if o.desc {
			df = df.OrderByDescending(o.sort)
		} else {
			df = df.OrderBy(o.sort)
		}
	}
	if o.distinct != "" {
		if err := requireColumn(df, "distinct", o.distinct); err != nil {
			return nil, err
		}
		col := o.distinct
		df = df.Distinct(func(row dataframe.Row, _ any) any { return row[col] })
	}
	if o.pivot != "" {
		group, val, ok := strings.Cut(o.pivot, ":")
		if !ok || group == "" || val == "" {
			return nil, tberrors.InvalidArgument("pivot", "want group:value, got "+o.pivot)
		}
		var err error
		if df, err = df.Pivot(group, val); err != nil {
			return nil, err
		}
	}
	switch o.detect {
	case "":
	case "types":
		df = df.DetectTypes()
	case "values":
		df = df.DetectValues()
	default:
		return nil, tberrors.InvalidArgument("detect", "want types or values, got "+o.detect)
	}
	return df, nil
}

// ============================================================================
// DESCRIBE / QUERY
// ============================================================================

func (e ioEnv) describe(ctx context.Context, df dataframe.DataFrame, o *options) error {
	sch, err := schema.Discover(df)
	if err != nil {
		return err
	}
	e.log.Info().
		Int("dimensions", len(sch.Dimensions)).
		Int("measures", len(sch.Measures)).
		Int("skipped", len(sch.SkippedColumns)).
		Msg("schema discovered")

	if o.refine {
		g, err := newTranslator(ctx, e.cfg, e.log)
		if err != nil {
			return err
		}
		if refined, err := g.Refine(ctx, sch); err != nil {
			e.log.Warn().Err(err).Msg("refine failed, using discovered schema")
		} else {
			sch = refined
		}
	}

	var out []byte
	var plugin format.Plugin = format.YAML{}
	if o.outFormat == "json" || (o.outFormat == "" && strings.HasSuffix(strings.TrimSuffix(o.out, ".sz"), ".json")) {
		out, err = sch.ToJSON()
		plugin = format.JSON{}
	} else {
		out, err = sch.ToYAML()
	}
	if err != nil {
		return err
	}
	return e.write(ctx, o.out, plugin, string(out))
}

func newTranslator(ctx context.Context, cfg *Config, log zerolog.Logger, opts ...translator.Option) (*translator.Gemini, error) {
	gcfg := cfg.Gemini
	gcfg.ApplyDefaults()
	if err := validateStruct(&gcfg); err != nil {
		return nil, fmt.Errorf("gemini: %w (set GEMINI_API_KEY)", err)
	}
	return translator.NewGemini(ctx, gcfg, append(opts, translator.WithLogger(log))...)
}

// parseWhere turns "col=a|b" flags into query filters.
func parseWhere(where []string) (query.Filters, error) {
	f := query.Filters{Columns: make(map[string][]string)}
	for _, w := range where {
		col, vals, ok := strings.Cut(w, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return f, tberrors.InvalidArgument("where", "want column=value, got "+w)
		}
		for _, v := range strings.Split(vals, "|") {
			f.Columns[col] = append(f.Columns[col], strings.TrimSpace(v))
		}
	}
	return f, nil
}

// analyze runs a structured query built from flags, or translates the
// natural language question into one first.
func analyze(ctx context.Context, df dataframe.DataFrame, o *options, cfg *Config, log zerolog.Logger) (*query.Result, error) {
	filters, err := parseWhere(o.where)
	if err != nil {
		return nil, err
	}
	spec := query.Spec{
		Filters:     filters,
		GroupBy:     splitList(o.group),
		Aggregation: o.agg,
		Measure:     o.measure,
		Limit:       o.limit,
	}
	qopts := []query.Option{query.WithLogger(log)}

	if o.question != "" {
		sch, err := schema.Discover(df)
		if err != nil {
			return nil, err
		}
		summary, err := translator.BuildDataSummary(df, *sch)
		if err != nil {
			return nil, err
		}
		g, err := newTranslator(ctx, cfg, log, translator.WithSummary(summary))
		if err != nil {
			return nil, err
		}
		res, err := g.Translate(ctx, o.question, *sch)
		if err != nil {
			return nil, err
		}
		if res.Interpretation.Summary != "" {
			log.Info().Str("interpretation", res.Interpretation.Summary).Msg("question understood")
		}
		spec = res.Spec
		qopts = append(qopts, query.WithDefaultMeasure(sch.GetDefaultMeasure()))
	}

	return query.Execute(spec, df, qopts...)
}
