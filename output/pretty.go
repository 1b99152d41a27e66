package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/nojima/hreq/request"
	"github.com/pkg/errors"
)

type PrettyPrinter struct {
	writer        io.Writer
	plain         Printer
	format        bool
	aurora        aurora.Aurora
	headerPalette *HeaderPalette
}

type PrettyPrinterConfig struct {
	Writer       io.Writer
	EnableColor  bool
	EnableFormat bool
}

type HeaderPalette struct {
	Method         aurora.Color
	URL            aurora.Color
	Proto          aurora.Color
	Status         aurora.Color
	FieldName      aurora.Color
	FieldValue     aurora.Color
	FieldSeparator aurora.Color
}

var defaultHeaderPalette = HeaderPalette{
	Method:         aurora.GreenFg | aurora.BoldFm,
	URL:            aurora.CyanFg | aurora.UnderlineFm,
	Proto:          aurora.BlueFg,
	Status:         aurora.BrownFg | aurora.BoldFm,
	FieldName:      aurora.WhiteFg,
	FieldValue:     aurora.CyanFg,
	FieldSeparator: aurora.WhiteFg,
}

func NewPrettyPrinter(config PrettyPrinterConfig) Printer {
	return &PrettyPrinter{
		writer:        config.Writer,
		plain:         NewPlainPrinter(config.Writer),
		format:        config.EnableFormat,
		aurora:        aurora.NewAurora(config.EnableColor),
		headerPalette: &defaultHeaderPalette,
	}
}

func (p *PrettyPrinter) PrintStatusLine(proto string, status string, statusCode int) error {
	fmt.Fprintf(p.writer, "%s %s\n",
		p.aurora.Colorize(proto, p.headerPalette.Proto),
		p.aurora.Colorize(status, p.headerPalette.Status))
	return nil
}

func (p *PrettyPrinter) PrintRequestLine(d *request.Descriptor) error {
	fmt.Fprintf(p.writer, "%s %s %s\n",
		p.aurora.Colorize(d.Method(), p.headerPalette.Method),
		p.aurora.Colorize(requestTarget(d), p.headerPalette.URL),
		p.aurora.Colorize("HTTP/1.1", p.headerPalette.Proto))
	return nil
}

func (p *PrettyPrinter) PrintHeader(header http.Header) error {
	for _, name := range sortedNames(header) {
		for _, value := range header[name] {
			fmt.Fprintf(p.writer, "%s%s %s\n",
				p.aurora.Colorize(name, p.headerPalette.FieldName),
				p.aurora.Colorize(":", p.headerPalette.FieldSeparator),
				p.aurora.Colorize(value, p.headerPalette.FieldValue))
		}
	}
	fmt.Fprintln(p.writer)
	return nil
}

func isJSON(contentType string) bool {
	contentType = strings.TrimSpace(contentType)

	semicolon := strings.Index(contentType, ";")
	if semicolon != -1 {
		contentType = strings.TrimSpace(contentType[:semicolon])
	}

	// See https://tools.ietf.org/html/rfc6839
	return contentType == "application/json" || strings.HasSuffix(contentType, "+json")
}

func (p *PrettyPrinter) PrintBody(body io.Reader, contentType string) error {
	// Fallback to PlainPrinter when the body is not JSON
	if !p.format || !isJSON(contentType) {
		return p.plain.PrintBody(body, contentType)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return errors.Wrap(err, "reading response body")
	}
	return p.printJSON(data)
}

func (p *PrettyPrinter) PrintRequestBody(d *request.Descriptor) error {
	return printRequestBody(p.writer, d, func(body []byte, contentType string) error {
		if !p.format || !isJSON(contentType) {
			_, err := fmt.Fprintf(p.writer, "%s\n", body)
			return err
		}
		return p.printJSON(body)
	})
}

// printJSON indents data, or writes it unchanged when it is not valid JSON.
func (p *PrettyPrinter) printJSON(data []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "    "); err != nil {
		_, err := p.writer.Write(data)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(p.writer)
	return err
}
