package audiocd

// SampleRate is the number of samples per second. All Redbook audio
// CDs use 44.1KHz.
const SampleRate = 44100

// BytesPerSample is 2 bytes, representing signed 16-bit little-endian
// samples.
const BytesPerSample = 2

// Channels is the number of audio channels in the data. All Redbook audio
// CDs are stereo.
const Channels = 2

// FramesPerSecond is the number of audio frames in one second of audio.
// On an audio disc a frame and a sector are the same thing: one
// addressable block of 1/75th of a second.
const FramesPerSecond = 75

// SamplesPerFrame is the number of 16-bit audio samples per channel
// that appear within one frame of data (588).
const SamplesPerFrame = SampleRate / FramesPerSecond

// BytesPerSector is the size of one raw CD-DA sector as returned by
// READ CD with only the main channel user data selected, 2352 bytes.
const BytesPerSector = SampleRate * Channels * BytesPerSample / FramesPerSecond

// LeadOutTrack is the track number the drive reports for the lead-out
// entry of the table of contents.
const LeadOutTrack = 0xAA

// MaxTracks is the largest track number the CD-DA format allows.
const MaxTracks = 99

// PregapSectors is the two second gap before LBA 0. Addresses in MSF
// form and in MusicBrainz disc IDs are offset by it.
const PregapSectors = 2 * FramesPerSecond
