package common

// Source records how a passage reached the server.
type Source string

const (
	SourceApp Source = "app"
	SourceSMS Source = "sms"
)

// ViolationType classifies a matched pair.
type ViolationType string

const (
	ViolationNone     ViolationType = ""
	ViolationSpeeding ViolationType = "speeding"
	ViolationOverstay ViolationType = "overstay"
)

// Provenance tells who computed a verdict. Authoritative verdicts always
// supersede advisory ones.
type Provenance string

const (
	ProvenanceAdvisory      Provenance = "advisory"
	ProvenanceAuthoritative Provenance = "authoritative"
)

// Outranks reports whether a verdict of provenance p should replace one of
// provenance other.
func (p Provenance) Outranks(other Provenance) bool {
	return p == ProvenanceAuthoritative && other != ProvenanceAuthoritative
}
