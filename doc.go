// Package cytoprof provides whitening (sphering) and robust scaling for
// morphological profile matrices, written in Go on top of gonum.
//
// Profiles are usually normalized against a reference population such as
// negative-control wells: the transformers learn their parameters from that
// reference with Fit and then apply them to any number of query matrices
// with Transform.
//
// # Features
//
// - Sphering: PCA, ZCA, PCA-cor and ZCA-cor whitening with epsilon regularization
// - RobustMAD: median / median-absolute-deviation scaling that ignores NaN
// - Labeled tables: column names flow from input to output
// - Structured errors with hints and stack traces, structured logging via zerolog
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/cytoprof/cytoprof/core/table"
//	    "github.com/cytoprof/cytoprof/preprocessing"
//	)
//
//	func main() {
//	    controls, err := table.FromRows([]string{"area", "intensity"}, [][]float64{
//	        {1, 2}, {2, 1}, {3, 5}, {4, 3},
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    s, err := preprocessing.NewSphering(preprocessing.ZCA)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := s.Fit(controls); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    whitened, err := s.Transform(controls)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(whitened.(*table.Table).Columns())
//	}
//
// # Packages
//
//   - preprocessing: Sphering, RobustMAD and the StandardScaler used for centering
//   - metrics: whitening diagnostics and the singular value spectrum plot
//   - core/table: labeled numeric tables
//   - core/linalg: SVD and numerical rank
//   - core/model: fitted state and exported parameters
//   - core/parallel: per-column parallel loops
//   - pkg/errors: error types and the warning system
//   - pkg/log: structured logging
//
// # Error Handling
//
// All errors carry a stack trace. Use errors.As to inspect them:
//
//	if err := s.Fit(X); err != nil {
//	    var rankErr *errors.RankDeficiencyError
//	    if errors.As(err, &rankErr) {
//	        fmt.Println("reference rank:", rankErr.Rank)
//	    }
//	}
package cytoprof
