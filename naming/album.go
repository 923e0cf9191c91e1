package naming

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// VariousArtists as the album artist marks a compilation.
const VariousArtists = "Various Artists"

// Track is one entry of an album's track list.
type Track struct {
	Num    int    `yaml:"num"`
	Title  string `yaml:"title"`
	Artist string `yaml:"artist"`
}

// Album is hand-written metadata for a disc. It is read from YAML; the
// JSON form of the same fields parses too.
type Album struct {
	Artist string  `yaml:"artist"`
	Title  string  `yaml:"album"`
	Disc   int     `yaml:"disc"` // 0 for a single-disc release
	Tracks []Track `yaml:"tracks"`
}

// LoadAlbum reads album metadata from path.
func LoadAlbum(path string) (*Album, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "naming: read metadata")
	}
	var a Album
	if err := yaml.Unmarshal(raw, &a); err != nil {
		return nil, errors.Wrapf(err, "naming: parse %s", path)
	}
	return &a, nil
}

// Compilation reports whether the album is credited to various artists.
func (a *Album) Compilation() bool {
	return a.Artist == VariousArtists
}

// Track returns the entry for track num.
func (a *Album) Track(num int) (Track, bool) {
	for _, t := range a.Tracks {
		if t.Num == num {
			return t, true
		}
	}
	return Track{}, false
}

// FileName names track num with extension ext. ok is false when the
// album does not list the track.
func (a *Album) FileName(num int, ext string) (name string, ok bool) {
	t, ok := a.Track(num)
	if !ok {
		return "", false
	}
	if a.Compilation() {
		return CompilationFileName(a.Title, a.Disc, num, t.Artist, t.Title, ext), true
	}
	return FileName(a.Artist, a.Title, a.Disc, num, t.Title, ext), true
}

// Validate lists problems with the metadata for a disc of audioTracks
// tracks. They are warnings; names can still be generated.
func (a *Album) Validate(audioTracks int) []error {
	var errs []error
	if a.Artist == "" {
		errs = append(errs, errors.New("missing required field: artist"))
	}
	if a.Title == "" {
		errs = append(errs, errors.New("missing required field: album"))
	}
	if len(a.Tracks) == 0 {
		errs = append(errs, errors.New("missing required field: tracks"))
	} else if len(a.Tracks) != audioTracks {
		errs = append(errs, errors.Errorf("track count mismatch: metadata has %d, disc has %d", len(a.Tracks), audioTracks))
	}
	if a.Compilation() {
		for _, t := range a.Tracks {
			if t.Artist == "" {
				errs = append(errs, errors.Errorf("track %d missing artist (required for compilations)", t.Num))
			}
		}
	}
	return errs
}
