package world

// Status is the lifecycle state of a tile slot.
type Status int32

const (
	StatusInit Status = iota
	StatusGenerate
	StatusGenerating
	StatusUpload
	StatusEntity
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "init"
	case StatusGenerate:
		return "generate"
	case StatusGenerating:
		return "generating"
	case StatusUpload:
		return "upload"
	case StatusEntity:
		return "entity"
	case StatusReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Legal reports whether from -> to is an edge of the tile lifecycle. The
// only edge leaving the main cycle is Generating -> Init after a failed
// synthesis.
func Legal(from, to Status) bool {
	switch from {
	case StatusInit:
		return to == StatusGenerate
	case StatusGenerate:
		return to == StatusGenerating
	case StatusGenerating:
		return to == StatusUpload || to == StatusInit
	case StatusUpload:
		return to == StatusEntity
	case StatusEntity:
		return to == StatusReady
	case StatusReady:
		return to == StatusInit
	default:
		return false
	}
}
