package chromosome

import (
	"strconv"
	"strings"
)

func IsValidHumanChromosome(text string) bool {
	// numeric chromosomes 1-23
	if chromNumber, err := strconv.Atoi(text); err == nil {
		return chromNumber >= 1 && chromNumber <= 23
	}

	switch strings.ToLower(text) {
	case "x", "y":
		return true
	}

	// M / MT mitochondrial naming
	return strings.Contains(strings.ToLower(text), "m")
}
