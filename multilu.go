package multilu

// FactorAndSolve is a convenience wrapper chaining SymbolicFactor,
// NumericFactor, and Solve for the common case of factoring once and
// solving a single right-hand side immediately.
func FactorAndSolve(a *CCSMatrix, columnOrder []int, b []float64, opts ...Option) ([]float64, error) {
	cfg := NewConfig(opts...)

	sym, err := SymbolicFactor(a, columnOrder, cfg)
	if err != nil {
		return nil, err
	}

	factor, err := NumericFactor(a, sym, cfg.Threshold, 0, 1, cfg)
	if err != nil {
		return nil, err
	}

	return Solve(factor, b)
}
