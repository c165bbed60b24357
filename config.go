package multilu

// Compile-time-constant-equivalent tunables. They are exposed
// as a Config struct with functional options rather than actual Go
// constants because the symbolic and numeric phases need per-call control
// for testing, following the same Option/With... shape the corpus uses
// for algorithm selection (compare prim_kruskal.MSTOptions).
type Config struct {
	// MaxSupercolSize caps the number of columns merged into one
	// supercolumn. -1 disables the cap.
	MaxSupercolSize int

	// MaxOverfillRatio bounds how much denser a supercolumn's front may
	// get relative to the sum of its members' per-column upper bounds
	// before a new supercolumn is started.
	MaxOverfillRatio float64

	// RelaxRuleSize is the descendant-count threshold below which a
	// leaf supercolumn is absorbed into its parent during relaxation.
	// Values <= 1 skip the relaxation pass entirely.
	RelaxRuleSize int

	// EANBuffer is the multiplier k that sizes the row-set arena's initial
	// workspace at nnz(A) + k*n ints.
	EANBuffer int

	// MinCoverSprsSpawn disables (-1) or enables a "don't spawn a task
	// below this covered-column count" heuristic for the task-parallel
	// numeric driver.
	MinCoverSprsSpawn int

	// MinSizeDenseSpawn is the front row bound (Symbolic.LSize) below
	// which the task-parallel driver walks a child front's subtree inline
	// in the calling goroutine instead of spawning a task for it. Values
	// <= 0 always spawn.
	MinSizeDenseSpawn int

	// AlignAddSmall is the column count (alignAddFull, alignAddCols) or
	// row count (alignAddRows) above which an align_add* gather splits
	// once into two sibling tasks over disjoint halves; the halves are not
	// split further. Values <= 0 disable the split, and NumericFactor
	// disables it when nproc <= 1.
	AlignAddSmall int

	// UnionByRank enables union-by-rank in the symbolic union-find.
	UnionByRank bool

	// Threshold is the partial-pivoting threshold thresh in (0, 1].
	Threshold float64
}

// DefaultConfig returns the configuration with the engine's default
// tunables.
func DefaultConfig() Config {
	return Config{
		MaxSupercolSize:   -1,
		MaxOverfillRatio:  2.0,
		RelaxRuleSize:     20,
		EANBuffer:         2,
		MinCoverSprsSpawn: -1,
		MinSizeDenseSpawn: 32,
		AlignAddSmall:     80,
		UnionByRank:       true,
		Threshold:         1.0,
	}
}

// Option mutates a Config. Apply via NewConfig.
type Option func(*Config)

// NewConfig builds a Config starting from DefaultConfig and applying opts
// in order.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func WithMaxSupercolSize(n int) Option {
	return func(c *Config) { c.MaxSupercolSize = n }
}

func WithMaxOverfillRatio(r float64) Option {
	return func(c *Config) { c.MaxOverfillRatio = r }
}

func WithRelaxRuleSize(n int) Option {
	return func(c *Config) { c.RelaxRuleSize = n }
}

func WithAlignAddSmall(n int) Option {
	return func(c *Config) { c.AlignAddSmall = n }
}

func WithMinSizeDenseSpawn(n int) Option {
	return func(c *Config) { c.MinSizeDenseSpawn = n }
}

func WithMinCoverSprsSpawn(n int) Option {
	return func(c *Config) { c.MinCoverSprsSpawn = n }
}

func WithUnionByRank(enabled bool) Option {
	return func(c *Config) { c.UnionByRank = enabled }
}

func WithThreshold(thresh float64) Option {
	return func(c *Config) { c.Threshold = thresh }
}
