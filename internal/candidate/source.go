package candidate

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gridfinder/internal/fetcher"
)

// Supported dataset formats.
const (
	FormatGeoJSON   = "geojson"
	FormatShapefile = "shapefile"
	FormatXLSX      = "xlsx"
	FormatCSV       = "csv"
	FormatZIP       = "zip"
)

// Source describes where the dataset lives.
type Source struct {
	// Location is a local path or an http(s)/ftp URL.
	Location string
	// Format overrides extension-based detection when set.
	Format string
}

// LoaderFunc produces the raw features of a dataset.
type LoaderFunc func(ctx context.Context) ([]Feature, error)

// DetectFormat maps a file name to a format by extension. Unknown
// extensions return "".
func DetectFormat(name string) string {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" && u.Path != "" {
		name = u.Path
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".geojson", ".json":
		return FormatGeoJSON
	case ".shp":
		return FormatShapefile
	case ".xlsx":
		return FormatXLSX
	case ".csv":
		return FormatCSV
	case ".zip":
		return FormatZIP
	default:
		return ""
	}
}

// NewLoader returns a LoaderFunc for src. Remote sources are downloaded with
// dl into a temporary directory that is removed once the features are read.
func NewLoader(src Source, dl fetcher.Downloader) LoaderFunc {
	return func(ctx context.Context) ([]Feature, error) {
		if src.Location == "" {
			return nil, eris.New("candidate: dataset source is empty")
		}

		format := src.Format
		if format == "" {
			format = DetectFormat(src.Location)
		}
		if format == "" {
			return nil, eris.Errorf("candidate: cannot detect format of %q", src.Location)
		}

		tmp, err := os.MkdirTemp("", "gridfinder-*")
		if err != nil {
			return nil, eris.Wrap(err, "candidate: create temp dir")
		}
		defer os.RemoveAll(tmp) //nolint:errcheck

		local := src.Location
		if fetcher.IsRemote(src.Location) {
			if dl == nil {
				return nil, eris.New("candidate: remote source without a downloader")
			}
			local = filepath.Join(tmp, "dataset"+extFor(format, src.Location))
			n, err := dl.DownloadToFile(ctx, src.Location, local)
			if err != nil {
				return nil, eris.Wrapf(err, "candidate: download %s", src.Location)
			}
			zap.L().Info("candidate: downloaded dataset",
				zap.String("source", src.Location),
				zap.Int64("bytes", n),
			)
		}

		if format == FormatZIP {
			local, format, err = pickArchiveMember(local, filepath.Join(tmp, "unzipped"))
			if err != nil {
				return nil, err
			}
		}

		return readFile(ctx, local, format)
	}
}

func readFile(ctx context.Context, path, format string) ([]Feature, error) {
	switch format {
	case FormatGeoJSON:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "candidate: open geojson")
		}
		defer f.Close() //nolint:errcheck
		return DecodeGeoJSON(f)
	case FormatShapefile:
		return ReadShapefile(path)
	case FormatXLSX:
		return ReadXLSX(path)
	case FormatCSV:
		return ReadCSV(ctx, path)
	default:
		return nil, eris.Errorf("candidate: unsupported format %q", format)
	}
}

// memberPreference orders formats when an archive holds several datasets.
var memberPreference = []string{FormatGeoJSON, FormatShapefile, FormatXLSX, FormatCSV}

func pickArchiveMember(zipPath, destDir string) (string, string, error) {
	files, err := fetcher.ExtractZIP(zipPath, destDir)
	if err != nil {
		return "", "", err
	}
	for _, want := range memberPreference {
		for _, f := range files {
			if DetectFormat(f) == want {
				return f, want, nil
			}
		}
	}
	return "", "", eris.Errorf("candidate: archive %s holds no supported dataset", filepath.Base(zipPath))
}

func extFor(format, location string) string {
	if ext := path.Ext(location); ext != "" && DetectFormat(location) == format {
		if u, err := url.Parse(location); err == nil {
			return path.Ext(u.Path)
		}
		return ext
	}
	switch format {
	case FormatGeoJSON:
		return ".geojson"
	case FormatShapefile:
		return ".shp"
	default:
		return "." + format
	}
}
