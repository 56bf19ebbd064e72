package enrollment

//go:generate go run github.com/dmarkham/enumer -type Stage -trimprefix Stage -transform snake -json -output stage.gen.go

// Stage is a step of the enrollment pipeline, in execution order.
type Stage int

const (
	StageCollecting Stage = iota
	StageExtracting
	StageMatching
	StageGating
	StageConsenting
	StageIssuing
)
