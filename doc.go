// Package multilu implements an unsymmetric multifrontal LU factorization
// engine for large sparse square matrices with partial (threshold)
// pivoting.
//
// Given a sparse matrix A in compressed-column form and a caller-supplied
// column preordering, SymbolicFactor computes an elimination tree,
// supercolumn partition and upper bound on fill; NumericFactor walks that
// tree (sequentially or task-parallel) assembling frontal matrices and
// factoring them with partial pivoting; Solve performs the forward/back
// substitution over the resulting blocked factor.
//
// A must be square (m == n); there is no symmetric or Cholesky path, no
// iterative refinement, and no out-of-core spill.
package multilu
