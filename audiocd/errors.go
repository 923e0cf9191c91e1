package audiocd

import "fmt"

// AudioCDError reports a disc whose table of contents cannot be used.
// Any of these is fatal for the whole disc since no track can be
// located reliably.
type AudioCDError int

const (
	ErrReadTOCLeadOut        AudioCDError = 2
	ErrIllegalNumberOfTracks AudioCDError = 3
	ErrReadTOCHeader         AudioCDError = 4
	ErrNoData                AudioCDError = 6
	ErrIllegalTOC            AudioCDError = 9
	ErrInvalidTrackNumber    AudioCDError = 401
	ErrNoAudioTracks         AudioCDError = 403
	ErrNoMediumPresent       AudioCDError = 404
)

func (e AudioCDError) Error() string {
	return fmt.Sprintf("audiocd: %v", e.name())
}

func (e AudioCDError) name() string {
	switch e {
	case ErrReadTOCLeadOut:
		return "unable to read table of contents lead-out"
	case ErrIllegalNumberOfTracks:
		return "cdrom reporting illegal number of tracks"
	case ErrReadTOCHeader:
		return "unable to read table of contents header"
	case ErrNoData:
		return "could not read any data from drive"
	case ErrIllegalTOC:
		return "cdrom reporting illegal table of contents"
	case ErrInvalidTrackNumber:
		return "invalid track number"
	case ErrNoAudioTracks:
		return "no audio tracks on disc"
	case ErrNoMediumPresent:
		return "no medium present"
	default:
		return fmt.Sprintf("unknown error code: %v", int(e))
	}
}
