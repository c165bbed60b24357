// Command example factors a small sparse matrix and solves one linear
// system, demonstrating the multilu public API end to end.
package main

import (
	"fmt"
	"log"

	"go.uber.org/zap"

	"multilu"
)

func main() {
	zlog, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()
	multilu.SetLogger(zlog)

	// A = [[2, 0, 1],
	//      [0, 3, 0],
	//      [1, 0, 4]]
	a, err := multilu.NewCCSMatrix(3,
		[]int{0, 2, 3, 5},
		[]int{0, 2, 1, 0, 2},
		[]float64{2, 1, 3, 1, 4},
		multilu.RealDouble,
	)
	if err != nil {
		log.Fatalf("build matrix: %v", err)
	}

	x, err := multilu.FactorAndSolve(a, []int{0, 1, 2}, []float64{3, 6, 9})
	if err != nil {
		log.Fatalf("factor and solve: %v", err)
	}

	fmt.Printf("x = %v\n", x)
}
