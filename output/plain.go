package output

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/nojima/hreq/request"
	"github.com/pkg/errors"
)

type PlainPrinter struct {
	writer io.Writer
}

func NewPlainPrinter(writer io.Writer) Printer {
	return &PlainPrinter{
		writer: writer,
	}
}

func (p *PlainPrinter) PrintStatusLine(proto string, status string, statusCode int) error {
	fmt.Fprintf(p.writer, "%s %s\n", proto, status)
	return nil
}

func (p *PlainPrinter) PrintRequestLine(d *request.Descriptor) error {
	fmt.Fprintf(p.writer, "%s %s HTTP/1.1\n", d.Method(), requestTarget(d))
	return nil
}

func (p *PlainPrinter) PrintHeader(header http.Header) error {
	for _, name := range sortedNames(header) {
		for _, value := range header[name] {
			fmt.Fprintf(p.writer, "%s: %s\n", name, value)
		}
	}
	fmt.Fprintln(p.writer)
	return nil
}

func (p *PlainPrinter) PrintBody(body io.Reader, contentType string) error {
	_, err := io.Copy(p.writer, body)
	if err != nil {
		return errors.Wrap(err, "printing response body")
	}
	return nil
}

func (p *PlainPrinter) PrintRequestBody(d *request.Descriptor) error {
	return printRequestBody(p.writer, d, func(body []byte, contentType string) error {
		_, err := fmt.Fprintf(p.writer, "%s\n", body)
		return err
	})
}

// printRequestBody writes what d will send. Bodies that are only read at send
// time are shown as a placeholder so printing never consumes them.
func printRequestBody(w io.Writer, d *request.Descriptor, printBytes func([]byte, string) error) error {
	body := d.Body()
	contentType := d.Header().Get("Content-Type")
	switch body.Kind() {
	case request.NoBody:
		form := d.FormParams()
		if len(form) == 0 {
			return nil
		}
		fmt.Fprintln(w, form.Encode())
	case request.BytesBody:
		if err := printBytes(body.Bytes(), contentType); err != nil {
			return errors.Wrap(err, "printing request body")
		}
	case request.FileBody:
		fmt.Fprintf(w, "<body read from file %s>\n", body.Path())
	case request.StreamBody:
		fmt.Fprintln(w, "<body streamed from stdin>")
	}
	fmt.Fprintln(w)
	return nil
}

func sortedNames(header http.Header) []string {
	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
