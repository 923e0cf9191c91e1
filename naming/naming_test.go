package naming

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	tests := map[string]struct {
		artist, album, title string
		disc, track          int
		want                 string
	}{
		"basic":        {"Artist", "Album", "Song Title", 0, 1, "Artist-Album-01-Song_Title.wav"},
		"spaces":       {"The Beatles", "Abbey Road", "Come Together", 0, 2, "The_Beatles-Abbey_Road-02-Come_Together.wav"},
		"slash":        {"AC/DC", "Back in Black", "Hells Bells", 0, 1, "AC_DC-Back_in_Black-01-Hells_Bells.wav"},
		"backslash":    {`Test\Artist`, `Test\Album`, `Test\Title`, 0, 1, "Test_Artist-Test_Album-01-Test_Title.wav"},
		"apostrophe":   {"The Who", "Who's Next", "Won't Get Fooled Again", 0, 3, "The_Who-Whos_Next-03-Wont_Get_Fooled_Again.wav"},
		"quotes":       {`Richard "Groove" Holmes`, "Album", "Song", 0, 1, "Richard_Groove_Holmes-Album-01-Song.wav"},
		"smart quotes": {"Artist", "Album", "“Smart” ‘Quotes’", 0, 1, "Artist-Album-01-Smart_Quotes.wav"},
		"shell":        {"Test$Artist", "Album!", "Song?", 0, 1, "Test_Artist-Album-01-Song.wav"},
		"accents":      {"Beyoncé", "Ōkami", "Café", 0, 4, "Beyonce-Okami-04-Cafe.wav"},
		"multi-disc":   {"Pink Floyd", "The Wall", "Hey You", 2, 1, "Pink_Floyd-The_Wall-CD2-01-Hey_You.wav"},
		"no title":     {"Artist", "Album", "", 0, 9, "Artist-Album-09.wav"},
		"collapse":     {"A  &  B", "Album", "x", 0, 1, "A_B-Album-01-x.wav"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.artist, tt.album, tt.disc, tt.track, tt.title, ".wav"))
		})
	}
}

func TestCompilationFileName(t *testing.T) {
	assert.Equal(t, "Now_Thats_Music-05-Blur-Song_2.wav",
		CompilationFileName("Now That's Music", 0, 5, "Blur", "Song 2", ".wav"))
	assert.Equal(t, "Hits-CD1-12-Various-Title.wav",
		CompilationFileName("Hits", 1, 12, "Various", "Title", ".wav"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "", Sanitize(""))
	assert.Equal(t, "", Sanitize("♥✨"))
	assert.Equal(t, "snake_case", Sanitize("snake_case"))
	assert.Equal(t, "a_b", Sanitize("a_(b)"))
}

func writeAlbum(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "album.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAlbum(t *testing.T) {
	path := writeAlbum(t, `
artist: R.E.M.
album: Chronic Town
tracks:
  - num: 1
    title: Wolves, Lower
  - num: 2
    title: Gardening at Night
`)
	a, err := LoadAlbum(path)
	require.NoError(t, err)
	assert.False(t, a.Compilation())
	assert.Empty(t, a.Validate(2))

	name, ok := a.FileName(2, ".wav")
	assert.True(t, ok)
	assert.Equal(t, "R.E.M.-Chronic_Town-02-Gardening_at_Night.wav", name)

	_, ok = a.FileName(3, ".wav")
	assert.False(t, ok)
}

func TestLoadAlbumJSON(t *testing.T) {
	path := writeAlbum(t, `{"artist": "Various Artists", "album": "Hits", "disc": 2, `+
		`"tracks": [{"num": 1, "title": "One", "artist": "Someone"}, {"num": 2, "title": "Two"}]}`)
	a, err := LoadAlbum(path)
	require.NoError(t, err)
	assert.True(t, a.Compilation())

	name, ok := a.FileName(1, ".wav")
	assert.True(t, ok)
	assert.Equal(t, "Hits-CD2-01-Someone-One.wav", name)

	errs := a.Validate(2)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "track 2 missing artist")
}

func TestLoadAlbumErrors(t *testing.T) {
	_, err := LoadAlbum(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadAlbum(writeAlbum(t, "tracks: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	errs := (&Album{}).Validate(3)
	assert.Len(t, errs, 3)

	a := &Album{Artist: "a", Title: "b", Tracks: []Track{{Num: 1}}}
	errs = a.Validate(3)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "track count mismatch")
}
