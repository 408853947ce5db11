package rangedl

import (
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// tempDirName builds the per-download temp directory name: the URL's
// basename with its query string stripped, suffixed with a random token
// so concurrent downloads of the same URL don't collide. The original
// implementation used a random float suffix; we use a UUID segment for
// the same uniqueness guarantee.
func tempDirName(rawURL string) string {
	base := path.Base(rawURL)
	if idx := strings.IndexByte(base, '?'); idx != -1 {
		base = base[:idx]
	}
	return filepath.Join(os.TempDir(), base+"-"+uuid.NewString())
}

func partFileName(dir string, index int) string {
	return filepath.Join(dir, strconv.Itoa(index)+".tmp")
}

// deriveFilename picks an output filename when the caller didn't supply
// one: the Content-Disposition filename parameter, falling back to the
// URL's basename.
func deriveFilename(resp *http.Response, rawURL string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	name := path.Base(rawURL)
	if idx := strings.IndexByte(name, '?'); idx != -1 {
		name = name[:idx]
	}
	if name == "" || name == "." || name == "/" {
		return "download"
	}
	return name
}
