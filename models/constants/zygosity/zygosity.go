package zygosity

import (
	"strings"

	"hemotype/api/models/constants"
)

const (
	Unknown constants.Zygosity = iota
	Heterozygous
	Homozygous
)

func IsKnown(value constants.Zygosity) bool {
	return value > Unknown && value <= Homozygous
}

// FromGenotype derives zygosity from a diploid VCF GT string.
// Hemizygous single-allele calls ("1") count as homozygous for
// pruning purposes: the variant is on every copy the sample has.
func FromGenotype(gtString string) constants.Zygosity {
	var alleleCalls []string
	if strings.Contains(gtString, "|") {
		alleleCalls = strings.Split(gtString, "|")
	} else {
		alleleCalls = strings.Split(gtString, "/")
	}

	if len(alleleCalls) == 1 {
		if alleleCalls[0] == "1" {
			return Homozygous
		}
		return Unknown
	}

	switch {
	case alleleCalls[0] == "." || alleleCalls[1] == ".":
		return Unknown
	case alleleCalls[0] == alleleCalls[1]:
		return Homozygous
	default:
		return Heterozygous
	}
}

func ZygosityToString(zyg constants.Zygosity) string {
	switch zyg {
	case Heterozygous:
		return "HETEROZYGOUS"
	case Homozygous:
		return "HOMOZYGOUS"
	default:
		return "UNKNOWN"
	}
}
