// Package main is rowbench, a small cobra CLI that exercises the
// rowtable facade end to end against an in-memory store: seed rows,
// scan them back in key order (optionally under an order-by spec), and
// run a named range query with its rendered plan. It uses cobra the
// way the teacher's cmd/smf tool does — one root command, one
// subcommand per verb, flags bound to a per-command struct.
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rowtable"
	"rowtable/internal/config"
	"rowtable/internal/derive"
	"rowtable/internal/rowinfo"
	"rowtable/internal/scan"
	"rowtable/internal/storage"
	"rowtable/internal/storage/memstore"
)

// benchRow is rowbench's fixture row: an int32 key and a string value,
// the same shape rowtable's own tests use.
type benchRow struct {
	K int32
	V string
}

func encodeKey(k int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(k))
	return b
}

func decodeKey(b []byte) int32 { return int32(binary.BigEndian.Uint32(b)) }

type benchEvaluator struct{}

func (benchEvaluator) EvalRow(_ context.Context, cur storage.Cursor, _ storage.LockResult, row *benchRow) (scan.Outcome, error) {
	if err := (benchEvaluator{}).DecodeRow(cur.Key(), cur.Value(), row); err != nil {
		return scan.Rejected, err
	}
	return scan.Admitted, nil
}

func (benchEvaluator) DecodeRow(key, value []byte, row *benchRow) error {
	row.K = decodeKey(key)
	row.V = string(value)
	return nil
}

func (benchEvaluator) WriteRow(row *benchRow) ([]byte, []byte, error) {
	return encodeKey(row.K), []byte(row.V), nil
}

func (benchEvaluator) UpdateKey(row *benchRow, currentKey []byte) ([]byte, error) {
	newKey := encodeKey(row.K)
	if decodeKey(currentKey) == row.K {
		return nil, nil
	}
	return newKey, nil
}

func (benchEvaluator) UpdateValue(row *benchRow, _ []byte) ([]byte, error) {
	return []byte(row.V), nil
}

// benchTable is a minimal derive.Table[benchRow] over one memstore
// index, standing in for a codegen'd primary table.
type benchTable struct {
	index storage.Index
}

func (t *benchTable) NewRow() *benchRow               { return &benchRow{} }
func (t *benchTable) CloneRow(row *benchRow) *benchRow { cp := *row; return &cp }
func (t *benchTable) CopyRow(dst, src *benchRow)       { *dst = *src }
func (t *benchTable) IsSet(row *benchRow) bool         { return row != nil }
func (t *benchTable) ForEach(row *benchRow, fn func(int, any)) {
	fn(0, row.K)
	fn(1, row.V)
}
func (t *benchTable) UnsetRow(row *benchRow) { *row = benchRow{} }
func (t *benchTable) CleanRow(*benchRow)     {}

func (t *benchTable) TryLoad(ctx context.Context, txn storage.Transaction, key []byte) (*benchRow, bool, error) {
	v, err := t.index.Load(ctx, txn, key)
	if err != nil || v == nil {
		return nil, false, err
	}
	row := &benchRow{}
	_ = (benchEvaluator{}).DecodeRow(key, v, row)
	return row, true, nil
}

func (t *benchTable) Exists(ctx context.Context, txn storage.Transaction, key []byte) (bool, error) {
	_, ok, err := t.TryLoad(ctx, txn, key)
	return ok, err
}

func (t *benchTable) IsEmpty(ctx context.Context, txn storage.Transaction) (bool, error) {
	return t.index.IsEmpty(ctx, txn)
}

func (t *benchTable) AnyRows(ctx context.Context, txn storage.Transaction) (bool, error) {
	empty, err := t.index.IsEmpty(ctx, txn)
	return !empty, err
}

func (t *benchTable) NewScanner(ctx context.Context, txn storage.Transaction) (derive.Source[benchRow], error) {
	controller := scan.NewSingleScanController(scan.SingleScanControllerConfig[benchRow]{
		Index:     t.index,
		Evaluator: benchEvaluator{},
	})
	s := scan.NewBasicScanner[benchRow]("primary", t.index, txn, controller, scan.Hooks[benchRow]{})
	if err := s.Init(ctx, nil); err != nil {
		return nil, err
	}
	return s, nil
}

func (t *benchTable) NewUpdater(context.Context, storage.Transaction) (any, error) {
	return nil, fmt.Errorf("rowbench: update demo not wired")
}

// rangeFactory is a no-argument scan.Factory starting from a fixed low
// bound, registered on the demo table as a named query.
type rangeFactory struct {
	index storage.Index
	low   []byte
}

func (f *rangeFactory) ScanController([]any) (scan.Controller[benchRow], error) {
	return scan.NewSingleScanController(scan.SingleScanControllerConfig[benchRow]{
		Index:        f.index,
		LowBound:     f.low,
		LowInclusive: true,
		Evaluator:    benchEvaluator{},
	}), nil
}
func (f *rangeFactory) Reverse() bool { return false }
func (f *rangeFactory) Predicate([]any) (scan.RowPredicate[benchRow], error) { return nil, nil }
func (f *rangeFactory) Plan([]any) (string, error)                          { return "range scan from low bound", nil }
func (f *rangeFactory) Characteristics() scan.Characteristics {
	return scan.CharSorted | scan.CharOrdered
}
func (f *rangeFactory) ArgumentCount() int { return 0 }

func rowInfo() (*rowinfo.RowInfo, error) {
	return rowinfo.NewBuilder("benchRow").
		AddKeyColumn(rowinfo.ColumnInfo{Name: "K", TypeCode: rowinfo.TypeInt}).
		AddValueColumn(rowinfo.ColumnInfo{Name: "V", TypeCode: rowinfo.TypeString}).
		Build()
}

func extractField(row *benchRow, column string) any {
	switch column {
	case "K":
		return row.K
	case "V":
		return row.V
	default:
		return nil
	}
}

func buildTable(seedCount int) (*rowtable.Table[benchRow], storage.Index, error) {
	ix := memstore.New(1)
	ctx := context.Background()
	for i := 0; i < seedCount; i++ {
		if _, err := ix.Insert(ctx, nil, encodeKey(int32(i)), []byte(fmt.Sprintf("row-%d", i))); err != nil {
			return nil, nil, err
		}
	}
	info, err := rowInfo()
	if err != nil {
		return nil, nil, err
	}
	table := rowtable.New[benchRow](&benchTable{index: ix}, info, extractField)
	table.WithPrimaryIndex(ix, ix, nil, nil)
	table.RegisterQuery("fromKey", &rangeFactory{index: ix})
	return table, ix, nil
}

type scanFlags struct {
	seed  int
	order string
}

type queryFlags struct {
	seed int
	from int32
}

func main() {
	cfgPath := ""
	rootCmd := &cobra.Command{
		Use:   "rowbench",
		Short: "Exercise rowtable's scan, query, and comparator facade",
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to a TOML config file (cache/skip_set/workers); defaults applied when omitted")

	rootCmd.AddCommand(scanCmd(&cfgPath))
	rootCmd.AddCommand(queryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func scanCmd(cfgPath *string) *cobra.Command {
	flags := &scanFlags{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Seed rows and scan the whole table, optionally ordered by a spec",
		RunE: func(*cobra.Command, []string) error {
			return runScan(*cfgPath, flags)
		},
	}
	cmd.Flags().IntVarP(&flags.seed, "seed", "n", 10, "Number of rows to seed")
	cmd.Flags().StringVarP(&flags.order, "order", "o", "", "Order-by spec, e.g. \"-K\" for descending by key")
	return cmd
}

func runScan(cfgPath string, flags *scanFlags) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	fmt.Printf("cache capacity: %d, workers: %d/%d\n", cfg.Cache.Capacity, cfg.Workers.PoolSize, cfg.Workers.QueueSize)

	table, _, err := buildTable(flags.seed)
	if err != nil {
		return fmt.Errorf("building table: %w", err)
	}
	defer table.Close()

	ctx := context.Background()
	s, err := table.NewScanner(ctx, memstore.NewTransaction())
	if err != nil {
		return fmt.Errorf("scanning table: %w", err)
	}
	defer s.Close()

	var rows []benchRow
	for row := s.Row(); row != nil; row, err = s.Step(ctx, nil) {
		if err != nil {
			return fmt.Errorf("stepping scanner: %w", err)
		}
		rows = append(rows, *row)
	}

	if flags.order != "" {
		cmp, err := table.Comparator(flags.order)
		if err != nil {
			return fmt.Errorf("building comparator %q: %w", flags.order, err)
		}
		sortRows(rows, cmp)
	}

	for _, row := range rows {
		fmt.Printf("%d\t%s\n", row.K, row.V)
	}
	fmt.Printf("%d row(s)\n", len(rows))
	return nil
}

// sortRows is a plain insertion sort over cmp; rowbench's demo sizes
// never warrant anything fancier.
func sortRows(rows []benchRow, cmp func(a, b *benchRow) int) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && cmp(&rows[j-1], &rows[j]) > 0; j-- {
			rows[j-1], rows[j] = rows[j], rows[j-1]
		}
	}
}

func queryCmd() *cobra.Command {
	flags := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "query <fromKey>",
		Short: "Run the named range query registered on the demo table",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			low, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid low key %q: %w", args[0], err)
			}
			flags.from = int32(low)
			return runQuery(flags)
		},
	}
	cmd.Flags().IntVarP(&flags.seed, "seed", "n", 10, "Number of rows to seed")
	return cmd
}

func runQuery(flags *queryFlags) error {
	table, ix, err := buildTable(flags.seed)
	if err != nil {
		return fmt.Errorf("building table: %w", err)
	}
	defer table.Close()

	table.RegisterQuery("fromKey", &rangeFactory{index: ix, low: encodeKey(flags.from)})
	q, err := table.Query("fromKey")
	if err != nil {
		return fmt.Errorf("looking up query: %w", err)
	}

	plan, err := q.ScannerPlan()
	if err != nil {
		return fmt.Errorf("rendering plan: %w", err)
	}
	fmt.Println("plan:", plan)

	ctx := context.Background()
	s, err := q.NewScanner(ctx, memstore.NewTransaction())
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	defer s.Close()

	n := 0
	var lines []string
	for row := s.Row(); row != nil; row, err = s.Step(ctx, nil) {
		if err != nil {
			return fmt.Errorf("stepping scanner: %w", err)
		}
		lines = append(lines, fmt.Sprintf("%d\t%s", row.K, row.V))
		n++
	}
	fmt.Println(strings.Join(lines, "\n"))
	fmt.Printf("%d row(s) matched\n", n)
	return nil
}
