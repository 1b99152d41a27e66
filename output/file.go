package output

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/pkg/errors"
)

var reIndexSuffix = regexp.MustCompile(`\.(\d+)$`)

var createFile = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

type FileWriter struct {
	fullPath string
}

func NewFileWriter(url *url.URL, options *Options) *FileWriter {
	var fullPath string

	if options.OutputFile == "" {
		name := filepath.Base(url.Path)
		if name == "/" || name == "." {
			name = "index"
		}
		fullPath = fmt.Sprintf("./%s", name)
	} else {
		fullPath = options.OutputFile
	}

	if !options.Overwrite {
		fullPath = makeNonOverlappingFilename(fullPath)
	}

	return &FileWriter{
		fullPath: fullPath,
	}
}

func makeNonOverlappingFilename(path string) string {
	for {
		if _, err := os.Stat(path); err != nil {
			return path
		}
		newPath := reIndexSuffix.ReplaceAllStringFunc(path, func(index string) string {
			i, _ := strconv.Atoi(strings.TrimPrefix(index, "."))
			return fmt.Sprintf(".%d", i+1)
		})
		if path == newPath {
			newPath = fmt.Sprintf("%s.%d", path, 1)
		}
		path = newPath
	}
}

// Download writes the response body to the file and reports progress on
// progress, which is typically stderr.
func (f *FileWriter) Download(resp *http.Response, progress io.Writer) error {
	file, err := createFile(f.fullPath)
	if err != nil {
		return errors.Wrapf(err, "creating %s", f.fullPath)
	}

	counter := &progressWriter{
		out:   progress,
		total: resp.ContentLength,
	}
	if _, err := io.Copy(file, io.TeeReader(resp.Body, counter)); err != nil {
		file.Close()
		return errors.Wrapf(err, "downloading to %s", f.fullPath)
	}
	if err := file.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", f.fullPath)
	}
	fmt.Fprintf(progress, "\nDone. %s saved to %s\n", bytefmt.ByteSize(uint64(counter.written)), f.fullPath)
	return nil
}

func (f *FileWriter) Filename() string {
	return filepath.Base(f.fullPath)
}

type progressWriter struct {
	out     io.Writer
	total   int64
	written int64
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.total > 0 {
		fmt.Fprintf(w.out, "\rDownloading %s / %s (%d%%)",
			bytefmt.ByteSize(uint64(w.written)),
			bytefmt.ByteSize(uint64(w.total)),
			w.written*100/w.total)
	} else {
		fmt.Fprintf(w.out, "\rDownloading %s", bytefmt.ByteSize(uint64(w.written)))
	}
	return len(p), nil
}
