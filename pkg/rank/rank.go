// Package rank identifies the coordinating process of a parallel run.
//
// Only rank 0 reads and writes figure state, exports images and drives the
// viewer. Other ranks skip those operations.
package rank

import (
	"os"
	"strconv"
)

// Root is the coordinating rank.
const Root = 0

// envVars are checked in order; the first parseable value wins.
var envVars = []string{
	"OMPI_COMM_WORLD_RANK",
	"PMI_RANK",
	"PMIX_RANK",
	"SLURM_PROCID",
}

// FromEnv returns the process rank advertised by the MPI launcher, or Root
// when the process was not started by one.
func FromEnv() int {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) int {
	for _, name := range envVars {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return Root
}

// IsRoot reports whether r is the coordinating rank.
func IsRoot(r int) bool { return r == Root }
