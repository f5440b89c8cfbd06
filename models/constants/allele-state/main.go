package alleleState

import "hemotype/api/models/constants"

const (
	Raw    constants.AlleleState = "raw"
	Normal constants.AlleleState = "pairs"
	Co     constants.AlleleState = "co_existing"
	Filt   constants.AlleleState = "filtered"
)
